package questiongen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa-go/internal/adapters/llm"
	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// mockCompleter implements ports.ChatCompleter for testing
type mockCompleter struct {
	reply    string
	err      error
	calls    int
	messages []entities.ChatMessage
}

func (m *mockCompleter) Complete(ctx context.Context, messages []entities.ChatMessage) (string, error) {
	m.calls++
	m.messages = messages
	return m.reply, m.err
}

func TestGenerator_ParsesJSONArray(t *testing.T) {
	mock := &mockCompleter{reply: `["What materials are in the packaging?", "Is the cocoa fair trade certified?"]`}
	gen := NewGenerator(mock, time.Second, nil)

	got := gen.Generate(context.Background(), "prompt")

	assert.Equal(t, []string{
		"What materials are in the packaging?",
		"Is the cocoa fair trade certified?",
	}, got)
	require.Len(t, mock.messages, 2)
	assert.Equal(t, "system", mock.messages[0].Role)
	assert.Contains(t, mock.messages[0].Content, "JSON array")
	assert.Equal(t, "prompt", mock.messages[1].Content)
}

func TestGenerator_TruncatesToFour(t *testing.T) {
	mock := &mockCompleter{reply: `["Question number one here?", "Question number two here?",
		"Question number three here?", "Question number four here?", "Question number five here?"]`}

	got := NewGenerator(mock, 0, nil).Generate(context.Background(), "prompt")

	assert.Len(t, got, MaxQuestions)
	assert.Equal(t, "Question number one here?", got[0])
}

func TestGenerator_ErrorReturnsFallback(t *testing.T) {
	mock := &mockCompleter{err: errors.New("connection refused")}

	got := NewGenerator(mock, time.Second, nil).Generate(context.Background(), "prompt")

	assert.Equal(t, Fallback(), got)
	assert.Len(t, got, 4)
	assert.Equal(t, 1, mock.calls, "no retries")
}

func TestGenerator_EmptyCompletionReturnsFallback(t *testing.T) {
	got := NewGenerator(&mockCompleter{reply: "  "}, time.Second, nil).Generate(context.Background(), "prompt")
	assert.Equal(t, Fallback(), got)
}

func TestGenerator_NilCompleterReturnsFallback(t *testing.T) {
	got := NewGenerator(nil, time.Second, nil).Generate(context.Background(), "prompt")
	assert.Equal(t, Fallback(), got)
}

func TestGenerator_UnusableReplyIsEmpty(t *testing.T) {
	got := NewGenerator(&mockCompleter{reply: `["ok?", "no"]`}, time.Second, nil).Generate(context.Background(), "prompt")
	assert.Empty(t, got)
}

func TestGenerator_TimeoutApplied(t *testing.T) {
	var deadline time.Time
	mock := &deadlineCompleter{fn: func(ctx context.Context) {
		deadline, _ = ctx.Deadline()
	}}

	NewGenerator(mock, 2*time.Second, nil).Generate(context.Background(), "prompt")

	require.False(t, deadline.IsZero())
	assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
}

type deadlineCompleter struct {
	fn func(ctx context.Context)
}

func (d *deadlineCompleter) Complete(ctx context.Context, _ []entities.ChatMessage) (string, error) {
	d.fn(ctx)
	return `["Where is this product manufactured?"]`, nil
}

func TestGenerator_HTTPFailureReturnsFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	chat := llm.NewChatAdapter(llm.Config{Endpoint: server.URL, APIKey: "k"}, nil)
	got := NewGenerator(chat, time.Second, nil).Generate(context.Background(), "prompt")

	assert.Equal(t, Fallback(), got)
}

func TestGenerator_HTTPSuccessWithCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` +
			"```json\\n[\\\"Are the palm oil suppliers audited?\\\"]\\n```" + `"}}]}`))
	}))
	defer server.Close()

	chat := llm.NewChatAdapter(llm.Config{Endpoint: server.URL, APIKey: "k"}, nil)
	got := NewGenerator(chat, time.Second, nil).Generate(context.Background(), "prompt")

	assert.Equal(t, []string{"Are the palm oil suppliers audited?"}, got)
}

func TestGenerator_MissingAPIKeyReturnsFallback(t *testing.T) {
	chat := llm.NewChatAdapter(llm.Config{}, nil)
	got := NewGenerator(chat, time.Second, nil).Generate(context.Background(), "prompt")
	assert.Equal(t, Fallback(), got)
}

func TestFallback_ReturnsCopy(t *testing.T) {
	f := Fallback()
	f[0] = "mutated"
	assert.NotEqual(t, "mutated", Fallback()[0])
}
