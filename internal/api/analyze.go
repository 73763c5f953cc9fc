package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/stock-analyst/internal/display"
	"github.com/ashureev/stock-analyst/internal/identity"
)

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Query string `json:"query"`
}

// AnalyzeResponse is a successful analysis.
type AnalyzeResponse struct {
	Content string `json:"content"`
	Debug   string `json:"debug"`
}

// Analyze handles POST /api/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if isBlank(req.Query) {
		Error(w, http.StatusBadRequest, "query is required")
		return
	}

	sessionID := identity.SessionIDFromContext(r.Context())
	out, err := h.analyze(r.Context(), sessionID, req.Query)
	if err != nil {
		slog.Warn("Analysis failed", "session_id", sessionID, "error", err)
		Error(w, http.StatusBadGateway, display.ErrorMessage(err))
		return
	}

	JSON(w, http.StatusOK, AnalyzeResponse{Content: out.Content, Debug: out.Debug})
}
