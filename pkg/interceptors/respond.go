package interceptors

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/finance-assistant/pkg/apperrors"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Details any    `json:"details,omitempty"`
}

// detailer is an error that carries data the client needs to recover from it
type detailer interface {
	ErrorDetails() any
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteError maps err to its status code. Internal errors are logged and masked.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInternal || kind == apperrors.KindUpstream {
		slog.Default().ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", GetRequestID(r.Context())),
			slog.Any("error", err),
		)
	}
	resp := ErrorResponse{Error: apperrors.PublicMessage(err), Kind: string(kind)}
	var d detailer
	if kind != apperrors.KindInternal && errors.As(err, &d) {
		resp.Details = d.ErrorDetails()
	}
	WriteJSON(w, status, resp)
}

// DecodeJSON reads a JSON request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validation("request body is required")
		}
		return apperrors.Validation("invalid request body: %v", err)
	}
	return nil
}
