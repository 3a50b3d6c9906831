package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/adapters/loader"
	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
)

// handleGenerateQuestions runs one assessment round. Bodies are decoded
// permissively: anything missing or malformed counts as empty.
func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.logger.Warn("reading assessment body", zap.Error(err))
	}

	req := decodeAssessmentRequest(body)
	res := s.assess.Assess(r.Context(), req)

	s.logger.Info("assessment",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("product", req.Product.Name),
		zap.Int("answered", res.AnsweredQuestions),
		zap.Int("score", res.TransparencyScore),
		zap.Bool("complete", res.IsComplete))
	writeJSON(w, http.StatusOK, res)
}

type uploadResponse struct {
	Status string                 `json:"status"`
	Ingest *entities.IngestResult `json:"ingest"`
}

// handleUpload saves a document into the data directory and ingests it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file")
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		writeError(w, http.StatusBadRequest, "empty filename")
		return
	}
	if !loader.Allowed(header.Filename) {
		writeError(w, http.StatusBadRequest, "bad file type")
		return
	}
	name := sanitizeFilename(header.Filename)
	if name == "" || !loader.Allowed(name) {
		writeError(w, http.StatusBadRequest, "empty filename")
		return
	}

	path, err := s.saveUpload(file, name)
	if err != nil {
		s.logger.Error("saving upload", zap.String("file", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save file")
		return
	}

	result, err := s.ingest.IngestFile(r.Context(), path)
	if err != nil {
		if errors.Is(err, loader.ErrUnsupportedType) {
			writeError(w, http.StatusBadRequest, "bad file type")
			return
		}
		s.logger.Error("ingest failed", zap.String("path", path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{Status: "ok", Ingest: result})
}

func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	if err := os.MkdirAll(s.opts.DataDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.opts.DataDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", err
	}
	return path, dst.Close()
}

type queryRequest struct {
	Question string `json:"question"`
	K        topK   `json:"k"`
}

type sourceDocument struct {
	PageContent string            `json:"page_content"`
	Metadata    map[string]string `json:"metadata"`
}

type queryResponse struct {
	Answer  string           `json:"answer"`
	Sources []sourceDocument `json:"sources"`
}

// handleQuery answers a question from the ingested documents.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, errInvalidTopK) {
			writeError(w, http.StatusBadRequest, errInvalidTopK.Error())
			return
		}
		writeError(w, http.StatusBadRequest, usecases.ErrEmptyQuestion.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, usecases.ErrEmptyQuestion.Error())
		return
	}

	resp, err := s.query.Query(r.Context(), &entities.ChatRequest{Query: req.Question, TopK: int(req.K)})
	if err != nil {
		if errors.Is(err, usecases.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("query failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Answer: resp.Answer, Sources: toSourceDocuments(resp.Sources)})
}

func toSourceDocuments(results []entities.QueryResult) []sourceDocument {
	docs := make([]sourceDocument, len(results))
	for i, r := range results {
		meta := make(map[string]string, len(r.Chunk.Metadata)+1)
		for k, v := range r.Chunk.Metadata {
			meta[k] = v
		}
		if _, ok := meta[usecases.MetaSource]; !ok && r.SourceDoc != "" {
			meta[usecases.MetaSource] = r.SourceDoc
		}
		docs[i] = sourceDocument{PageContent: r.Chunk.Content, Metadata: meta}
	}
	return docs
}

// handleQueryStream streams the answer as server-sent events.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("q")
	if strings.TrimSpace(question) == "" {
		writeError(w, http.StatusBadRequest, usecases.ErrEmptyQuestion.Error())
		return
	}
	k, _ := strconv.Atoi(r.URL.Query().Get("k"))

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	tokens, sources, err := s.query.QueryStream(r.Context(), &entities.ChatRequest{Query: question, TopK: k})
	if err != nil {
		s.logger.Error("stream query failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		sendSSE(w, flusher, map[string]interface{}{"error": err.Error(), "done": true})
		return
	}

	sendSSE(w, flusher, map[string]interface{}{"sources": toSourceDocuments(sources), "done": false})
	for token := range tokens {
		if token.Error != nil {
			sendSSE(w, flusher, map[string]interface{}{"error": token.Error.Error(), "done": true})
			return
		}
		sendSSE(w, flusher, map[string]interface{}{"content": token.Content, "done": token.Done})
		if token.Done {
			return
		}
	}
	sendSSE(w, flusher, map[string]interface{}{"done": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, data map[string]interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
