// Package server exposes the job orchestration core over HTTP: creation
// endpoints for every job family, the polling status API and the WebSocket
// handshake for push notifications.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/studyforge/internal/config"
	"github.com/raphaelgruber/studyforge/internal/hub"
	"github.com/raphaelgruber/studyforge/internal/jobs"
	"github.com/raphaelgruber/studyforge/internal/models"
	"github.com/raphaelgruber/studyforge/internal/pipeline"
)

// Documents is the persisted-document surface backing the document endpoints.
// *db.Client implements it; nil disables the endpoints.
type Documents interface {
	ListDocuments(ctx context.Context, userID string, limit int) ([]models.Document, error)
	GetDocument(ctx context.Context, userID, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, userID, id string) error
}

// Server wires the job store, pipeline and hub behind the HTTP API.
type Server struct {
	cfg      config.Config
	store    *jobs.Store
	pipeline *pipeline.Pipeline
	hub      *hub.Hub
	docs     Documents
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a server over the given collaborators.
func New(cfg config.Config, store *jobs.Store, pl *pipeline.Pipeline, h *hub.Hub, docs Documents, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		pipeline: pl,
		hub:      h,
		docs:     docs,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler builds the full route table with auth and request logging applied.
// The health endpoint stays outside the auth boundary for probes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/documents/upload", s.handleUpload)
	mux.HandleFunc("POST /api/documents/text", s.handleUploadText)
	mux.HandleFunc("POST /api/summaries", s.handleCreateSummary)
	mux.HandleFunc("POST /api/summaries/multi", s.handleCreateMultiSummary)
	mux.HandleFunc("POST /api/exams", s.handleCreateExam)
	mux.HandleFunc("POST /api/questions", s.handleCreateQuestions)

	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /api/jobs/batch", s.handleBatchJobs)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", s.handleCancelJob)
	mux.HandleFunc("POST /api/jobs/cleanup", s.handleCleanup)

	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", s.handleHealth)
	root.Handle("/", s.authMiddleware(mux))

	return s.loggingMiddleware(root)
}

// Run serves until the context is cancelled, then drains with a grace period
// and closes all live WebSocket connections.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.ServerPort,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "port", s.cfg.ServerPort)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	s.hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebSocket upgrades an authenticated request and hands the connection
// to the hub. From here on the hub owns the socket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "user_id", user, "error", err)
		return
	}
	s.hub.Register(user, ws)
}
