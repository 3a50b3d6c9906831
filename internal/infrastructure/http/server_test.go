package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa-go/internal/adapters/loader"
	"github.com/0xcro3dile/docqa-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (e fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = e.Embed(ctx, texts[i])
	}
	return out, nil
}

type cannedLLM struct{ answer string }

func (l cannedLLM) Generate(ctx context.Context, prompt string, context []string) (string, error) {
	return l.answer, nil
}

func (l cannedLLM) GenerateStream(ctx context.Context, prompt string, context []string) (<-chan ports.StreamToken, error) {
	ch := make(chan ports.StreamToken, 3)
	ch <- ports.StreamToken{Content: "Made "}
	ch <- ports.StreamToken{Content: "in Spain"}
	ch <- ports.StreamToken{Done: true}
	close(ch)
	return ch, nil
}

type cannedGenerator struct {
	calls int
}

func (g *cannedGenerator) Generate(ctx context.Context, prompt string) []string {
	g.calls++
	return []string{
		"What ingredients are used in this product?",
		"Does this product contain any common allergens?",
		"Where are the main ingredients sourced from?",
		"What is the nutritional content per serving?",
	}
}

type testEnv struct {
	handler http.Handler
	store   *vectordb.InMemoryStore
	gen     *cannedGenerator
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := vectordb.NewInMemoryStore("test_collection")
	gen := &cannedGenerator{}
	dataDir := t.TempDir()

	ingestUC := usecases.NewIngestUseCase(loader.NewMultiLoader(nil, nil), fixedEmbedder{}, store, 1000, 200, nil)
	queryUC := usecases.NewQueryUseCase(fixedEmbedder{}, store, cannedLLM{answer: "It is made in Spain."}, 5, nil)
	assessUC := usecases.NewAssessUseCase(gen, nil)

	srv := NewServer(assessUC, queryUC, ingestUC, Options{DataDir: dataDir}, nil)
	return &testEnv{handler: srv.Handler(), store: store, gen: gen, dataDir: dataDir}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")

	rec := env.do(t, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestGenerateQuestions_EmptyBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/generate-questions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var res entities.AssessmentResult
	decodeBody(t, rec, &res)

	assert.False(t, res.IsComplete)
	assert.Equal(t, 0, res.TransparencyScore)
	assert.Equal(t, 0, res.AnsweredQuestions)
	assert.Len(t, res.Questions, 4)
	assert.NotEmpty(t, res.Message)
}

func TestGenerateQuestions_MalformedBodyIsEmptyRequest(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/generate-questions", strings.NewReader("{not json")))

	require.Equal(t, http.StatusOK, rec.Code)
	var res entities.AssessmentResult
	decodeBody(t, rec, &res)
	assert.Len(t, res.Questions, 4)
	assert.Equal(t, 1, env.gen.calls)
}

func TestGenerateQuestions_Complete(t *testing.T) {
	env := newTestEnv(t)

	answer := "All ingredients are certified organic and sourced from local farms with full traceability. " +
		"Packaging is recyclable and our carbon emissions are audited yearly by an independent verifier."
	history := make([]map[string]string, 8)
	for i := range history {
		history[i] = map[string]string{"question": "Tell me more?", "answer": answer}
	}
	body, _ := json.Marshal(map[string]interface{}{
		"product_info":  map[string]string{"name": "Oat Bar", "category": "Snacks"},
		"qa_history":    history,
		"current_score": 40,
	})

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/generate-questions", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"questions":[]`)

	var res entities.AssessmentResult
	decodeBody(t, rec, &res)
	assert.True(t, res.IsComplete)
	assert.Equal(t, 100, res.TransparencyScore)
	assert.Equal(t, 8, res.AnsweredQuestions)
	assert.Zero(t, env.gen.calls)
}

func TestGenerateQuestions_TrimsByScore(t *testing.T) {
	env := newTestEnv(t)
	body := `{"qa_history":[{"question":"a?"},{"question":"b?"},{"question":"c?"},{"question":"d?"},{"question":"e?"}]}`

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/generate-questions", strings.NewReader(body)))
	var res entities.AssessmentResult
	decodeBody(t, rec, &res)

	assert.Equal(t, 60, res.TransparencyScore)
	assert.Len(t, res.Questions, 3)
}

func TestGenerateQuestions_BlankAnswerLowersScore(t *testing.T) {
	env := newTestEnv(t)
	body := `{"qa_history":[{"question":"Is it vegan?","answer":"Yes"},{"question":"Where is it made?","answer":""}]}`

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/generate-questions", strings.NewReader(body)))
	var res entities.AssessmentResult
	decodeBody(t, rec, &res)

	// participation 24 + quality (26+0)/2*0.5
	assert.Equal(t, 30, res.TransparencyScore)
	assert.Equal(t, 2, res.AnsweredQuestions)
}

func TestDecodeAssessmentRequest(t *testing.T) {
	req := decodeAssessmentRequest([]byte(`{
		"product_info": {"name": "Soap", "category": 7},
		"qa_history": [{"question": "Is it vegan?", "answer": "Yes"}, "junk", {"question": 1}, {"question": "Where is it made?", "answer": ""}],
		"current_score": "high"
	}`))

	assert.Equal(t, "Soap", req.Product.Name)
	assert.Equal(t, "", req.Product.Category)
	require.Len(t, req.History, 3)
	assert.Equal(t, entities.QAEntry{Question: "Is it vegan?", Answer: "Yes"}, req.History[0])
	assert.Equal(t, entities.QAEntry{MissingField: true}, req.History[1])
	assert.Equal(t, entities.QAEntry{Question: "Where is it made?"}, req.History[2])
	assert.True(t, req.History[2].Present())
	assert.Zero(t, req.CurrentScore)

	req = decodeAssessmentRequest([]byte(`{"product_info": null, "qa_history": {}, "current_score": 55.5}`))
	assert.Empty(t, req.History)
	assert.Equal(t, 55.5, req.CurrentScore)

	assert.Equal(t, &entities.AssessmentRequest{}, decodeAssessmentRequest(nil))
}

func multipartUpload(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		fw.Write([]byte(content))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_IngestsTextFile(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, multipartUpload(t, "file", "../Oat Bar label.txt", "Ingredients: oats, honey. Made in Spain."))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Status string `json:"status"`
		Ingest struct {
			IngestedChunks int    `json:"ingested_chunks"`
			Collection     string `json:"collection"`
		} `json:"ingest"`
	}
	decodeBody(t, rec, &res)

	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, 1, res.Ingest.IngestedChunks)
	assert.Equal(t, "test_collection", res.Ingest.Collection)

	_, err := os.Stat(filepath.Join(env.dataDir, "Oat_Bar_label.txt"))
	assert.NoError(t, err)
	n, _ := env.store.Count(context.Background())
	assert.Equal(t, 1, n)
}

func TestUpload_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  *http.Request
		want string
	}{
		{"no file", multipartUpload(t, "", "", ""), "no file"},
		{"wrong field", multipartUpload(t, "document", "a.txt", "x"), "no file"},
		{"blank filename", multipartUpload(t, "file", "   ", "x"), "empty filename"},
		{"bad type", multipartUpload(t, "file", "photo.png", "x"), "bad file type"},
		{"only unsafe chars", multipartUpload(t, "file", "ü.txt", "x"), "empty filename"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			decodeBody(t, rec, &body)
			assert.Equal(t, tt.want, body["error"])
		})
	}
}

func TestQuery_ReturnsAnswerAndSources(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Store(context.Background(), []entities.Chunk{{
		ID: "d:0", DocumentID: "d", Content: "Made in Spain.", Embedding: []float32{1, 0},
		Metadata: map[string]string{"source": "label.txt", "chunk_index": "0"},
	}}))

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":"Where is it made?","k":2}`))
	rec := env.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res queryResponse
	decodeBody(t, rec, &res)

	assert.Equal(t, "It is made in Spain.", res.Answer)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "Made in Spain.", res.Sources[0].PageContent)
	assert.Equal(t, "label.txt", res.Sources[0].Metadata["source"])
}

func TestQuery_KAsString(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":"Where is it made?","k":"3"}`)))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":"Where is it made?","k":"many"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid k"}`, rec.Body.String())
}

func TestTopKDecoding(t *testing.T) {
	tests := []struct {
		body    string
		want    int
		wantErr bool
	}{
		{`{"k":3}`, 3, false},
		{`{"k":"3"}`, 3, false},
		{`{"k":" 7 "}`, 7, false},
		{`{"k":2.9}`, 2, false},
		{`{"k":null}`, 0, false},
		{`{}`, 0, false},
		{`{"k":"3.5"}`, 0, true},
		{`{"k":true}`, 0, true},
		{`{"k":[1]}`, 0, true},
	}
	for _, tt := range tests {
		var req queryRequest
		err := json.Unmarshal([]byte(tt.body), &req)
		if tt.wantErr {
			assert.ErrorIs(t, err, errInvalidTopK, tt.body)
			continue
		}
		require.NoError(t, err, tt.body)
		assert.Equal(t, topK(tt.want), req.K, tt.body)
	}
}

func TestQuery_MissingQuestion(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{}`, `{"question":"  "}`, `not json`} {
		rec := env.do(t, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"missing question"}`, rec.Body.String(), body)
	}
}

func TestQueryStream(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/query/stream?q=Where+is+it+made%3F", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `"sources":[]`)
	assert.Contains(t, body, `"content":"Made "`)
	assert.Contains(t, body, `"content":"in Spain"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), `data: {"content":"","done":true}`), body)
}

func TestQueryStream_MissingQuestion(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/query/stream", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodOptions, "/generate-questions", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, env.gen.calls)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/upload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"label.pdf":              "label.pdf",
		"My Label v2.pdf":        "My_Label_v2.pdf",
		"../../etc/passwd":       "etc_passwd",
		`C:\Users\me\report.doc`: "C_Users_me_report.doc",
		"..hidden.txt":           "hidden.txt",
		"ñandú.md":               "and.md",
		"   ":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
