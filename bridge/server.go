package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/wdanxna/LocalLLMTranslator/safe"
)

// ServerConfig configures the HTTP surface of the host daemon.
type ServerConfig struct {
	// TokenHash is a bcrypt hash of the expected bearer token. Empty
	// disables auth.
	TokenHash string
	Logger    *slog.Logger
}

// NewHTTPServer exposes a Router over HTTP: POST /translate dispatches a
// Message, GET /healthz answers liveness probes.
func NewHTTPServer(router *Router, cfg ServerConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		if cfg.TokenHash != "" {
			r.Use(bearerAuth(cfg.TokenHash, cfg.Logger))
		}
		r.Post("/translate", func(w http.ResponseWriter, req *http.Request) {
			body, err := safe.LimitedReadAll(req.Body, safe.MaxResponseBody)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, Response{Error: "request body too large or unreadable"})
				return
			}
			var msg Message
			if err := json.Unmarshal(body, &msg); err != nil {
				writeJSON(w, http.StatusBadRequest, Response{Error: "invalid JSON payload"})
				return
			}
			if msg.Type == "" {
				msg.Type = TypeTranslateHotkey
				body, _ = json.Marshal(msg)
			}

			out, err := router.Dispatch(req.Context(), msg.Type, body)
			if err != nil {
				cfg.Logger.Error("bridge: http dispatch failed", "type", msg.Type, "error", err)
				writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(out)
		})
	})

	return r
}

// bearerAuth rejects requests whose Authorization bearer token does not
// match the configured bcrypt hash.
func bearerAuth(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeJSON(w, http.StatusUnauthorized, Response{Error: "missing bearer token"})
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
				logger.Warn("bridge: rejected token", "remote", req.RemoteAddr)
				writeJSON(w, http.StatusUnauthorized, Response{Error: "invalid token"})
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
