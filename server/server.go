// Package server exposes the research engine over HTTP: a streaming NDJSON
// chat endpoint, a skip side-channel, and a health check.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	ada "github.com/adalabs/ada"
)

// Server handles the HTTP API.
type Server struct {
	engine      *ada.Engine
	sessions    *ada.Sessions
	logger      *slog.Logger
	corsOrigins []string
}

// New creates a Server. sessions must be the same registry passed to the
// engine, or skip requests will never reach running loops.
func New(engine *ada.Engine, sessions *ada.Sessions, corsOrigins []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		engine:      engine,
		sessions:    sessions,
		logger:      logger,
		corsOrigins: corsOrigins,
	}
}

// Handler returns the routed HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/chat/skip", s.handleSkip)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return s.cors(mux)
}

// handleChat runs one engine request, streaming each event as one JSON line.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ada.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	// The request context is cancelled when the client disconnects, which
	// unblocks the engine's sends and aborts the run.
	ch := make(chan ada.Event, 16)
	go s.engine.Run(r.Context(), req, ch)

	enc := json.NewEncoder(w)
	for ev := range ch {
		if err := enc.Encode(ev); err != nil {
			s.logger.Debug("client write failed, draining", "error", err)
			for range ch {
			}
			return
		}
		flusher.Flush()
	}
}

// handleSkip marks a running session's search phase for abandonment.
func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	skipped := s.sessions.Skip(req.SessionID)
	s.writeJSON(w, http.StatusOK, map[string]bool{"skipped": skipped})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// cors applies the configured origin allow-list, answering preflight
// requests directly.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("response write failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
