package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/stock-analyst/internal/display"
	"github.com/ashureev/stock-analyst/internal/identity"
	"github.com/ashureev/stock-analyst/web"
)

// ErrRateLimited is reported when a session submits too often.
var ErrRateLimited = errors.New("rate limit exceeded, try again in a minute")

// Index renders the empty page.
func (h *Handler) Index(w http.ResponseWriter, _ *http.Request) {
	h.render(w, http.StatusOK, web.Page{})
}

// Submit handles the query form. An empty query re-renders the page without
// running the agent.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, web.Page{
			Error: &web.ErrorView{Message: display.ErrorMessage(err), Details: display.Trace(err)},
		})
		return
	}

	query := r.PostForm.Get("query")
	page := web.Page{Query: query}
	if isBlank(query) {
		h.render(w, http.StatusOK, page)
		return
	}

	sessionID := identity.SessionIDFromContext(r.Context())
	out, err := h.analyze(r.Context(), sessionID, query)
	if err != nil {
		slog.Warn("Analysis failed", "session_id", sessionID, "error", err)
		page.Error = &web.ErrorView{Message: display.ErrorMessage(err), Details: display.Trace(err)}
		h.render(w, http.StatusOK, page)
		return
	}

	page.Result = &web.Result{Content: display.Markdown(out.Content), Debug: out.Debug}
	h.render(w, http.StatusOK, page)
}

// Reset drops the session's agent so the next query starts a fresh one.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.sessions.Close(identity.SessionIDFromContext(r.Context()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, status int, page web.Page) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", page); err != nil {
		slog.Error("Failed to render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("Failed to write page", "error", err)
	}
}

// RateLimited answers a throttled submission in the format of the route.
func (h *Handler) RateLimited(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		Error(w, http.StatusTooManyRequests, ErrRateLimited.Error())
		return
	}
	h.render(w, http.StatusTooManyRequests, web.Page{
		Error: &web.ErrorView{Message: display.ErrorMessage(ErrRateLimited)},
	})
}
