package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"platepick/internal/apperrs"
	"platepick/pkg/logging/logging"
)

// errorResponse is the error envelope: a generic message plus, outside
// production, the underlying detail.
type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// writeJSON sends a JSON response consistently.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// httpStatusFor maps the error taxonomy onto HTTP statuses and
// user-visible messages.
func httpStatusFor(err error) (int, string) {
	var upstream *apperrs.UpstreamError
	var parse *apperrs.ParseError

	switch {
	case errors.Is(err, apperrs.ErrInvalidInput):
		return http.StatusBadRequest, "invalid Google Maps URL"
	case errors.Is(err, apperrs.ErrNotFound):
		return http.StatusNotFound, "no matching place found"
	case errors.Is(err, apperrs.ErrNoData):
		return http.StatusUnprocessableEntity, "no reviews available to analyze"
	case errors.As(err, &parse):
		return http.StatusBadGateway, "failed to analyze reviews"
	case errors.As(err, &upstream):
		return http.StatusBadGateway, "upstream provider error"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeError logs err and sends the error envelope for it.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := httpStatusFor(err)

	logging.L(r.Context()).Warn("request failed",
		zap.Int("status", status),
		zap.Error(err),
	)

	resp := errorResponse{Error: message, Status: "error"}
	if h.ExposeErrors && err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeBadRequest is for malformed request bodies, before the taxonomy applies.
func (h *Handler) writeBadRequest(w http.ResponseWriter, r *http.Request, message string, err error) {
	logging.L(r.Context()).Warn("bad request", zap.String("reason", message), zap.Error(err))

	resp := errorResponse{Error: message, Status: "error"}
	if h.ExposeErrors && err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, http.StatusBadRequest, resp)
}
