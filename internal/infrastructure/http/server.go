// Package http provides the HTTP server: the transparency question endpoint,
// document upload, retrieval QA (plain and streamed) and health.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
)

// maxUploadBytes bounds the multipart body of an upload.
const maxUploadBytes = 32 << 20

// Options configures a Server.
type Options struct {
	Addr         string
	DataDir      string // uploads are saved here before ingestion
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP server for the assessment and document QA API.
type Server struct {
	assess *usecases.AssessUseCase
	query  *usecases.QueryUseCase
	ingest *usecases.IngestUseCase
	opts   Options
	logger *zap.Logger
}

// NewServer creates a new HTTP server.
func NewServer(
	assessUC *usecases.AssessUseCase,
	queryUC *usecases.QueryUseCase,
	ingestUC *usecases.IngestUseCase,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.Addr == "" {
		opts.Addr = ":7860"
	}
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 300 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		assess: assessUC,
		query:  queryUC,
		ingest: ingestUC,
		opts:   opts,
		logger: logger.Named("http"),
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestLogger)
	r.Use(corsMiddleware)

	r.HandleFunc("/generate-questions", s.handleGenerateQuestions).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/query/stream", s.handleQueryStream).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.logger.Info("server starting", zap.String("addr", s.opts.Addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
