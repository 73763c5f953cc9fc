// Package api provides the HTTP handlers for the stock analysis UI and API.
package api

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/stock-analyst/internal/agent"
	"github.com/ashureev/stock-analyst/internal/display"
	"github.com/ashureev/stock-analyst/internal/session"
	"github.com/go-chi/chi/v5"
)

const defaultMaxRequestBodySize = 1 << 20

// Handler serves the analysis page and the JSON endpoint.
type Handler struct {
	sessions    *session.Manager
	tmpl        *template.Template
	maxBodySize int64
}

// NewHandler creates a new Handler. maxBodySize <= 0 selects a 1 MiB default.
func NewHandler(sessions *session.Manager, tmpl *template.Template, maxBodySize int64) *Handler {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxRequestBodySize
	}
	return &Handler{
		sessions:    sessions,
		tmpl:        tmpl,
		maxBodySize: maxBodySize,
	}
}

// RegisterRoutes registers the page and API routes. submit wraps the routes
// that start an agent run, typically with rate limiting; api wraps /api.
func (h *Handler) RegisterRoutes(r chi.Router, submit, api []func(http.Handler) http.Handler) {
	r.Get("/", h.Index)
	r.With(submit...).Post("/", h.Submit)
	r.Post("/reset", h.Reset)
	r.Route("/api", func(r chi.Router) {
		r.Use(api...)
		r.With(submit...).Post("/analyze", h.Analyze)
	})
}

// analysis is the outcome of one agent run.
type analysis struct {
	Content string
	Debug   string
}

// analyze runs the session's agent on query. Construction failures, run
// errors and panics all come back as err.
func (h *Handler) analyze(ctx context.Context, sessionID, query string) (out analysis, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = display.Recovered(v)
			slog.Error("Recovered panic during analysis", "session_id", sessionID, "panic", v)
		}
	}()

	a, err := h.sessions.Get(sessionID)
	if err != nil {
		return analysis{}, err
	}
	resp, err := a.Run(ctx, query)
	if err != nil {
		return analysis{}, err
	}
	return analysis{Content: display.Text(resp), Debug: debugString(resp)}, nil
}

func debugString(resp *agent.RunResponse) string {
	if resp == nil {
		return "<nil>"
	}
	return resp.String()
}

// isBlank reports whether q should skip the agent. Non-blank queries are
// passed on unmodified.
func isBlank(q string) bool {
	return strings.TrimSpace(q) == ""
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
