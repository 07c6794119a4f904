// Package handler exposes report generation and rendered report documents over HTTP.
package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finance-assistant/internal/domain/reports/repository"
	"github.com/FACorreiaa/finance-assistant/internal/domain/reports/service"
	"github.com/FACorreiaa/finance-assistant/pkg/interceptors"
)

// ReportsHandler serves /ai-assistant/reports and /files
type ReportsHandler struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewReportsHandler constructs a new handler
func NewReportsHandler(svc *service.Service, logger *slog.Logger) *ReportsHandler {
	return &ReportsHandler{svc: svc, logger: logger}
}

type reportRequest struct {
	Type        string      `json:"type"`
	StartDate   *string     `json:"startDate"`
	EndDate     *string     `json:"endDate"`
	CategoryIDs []uuid.UUID `json:"categoryIds"`
	GoalIDs     []uuid.UUID `json:"goalIds"`
	ProfileIDs  []uuid.UUID `json:"profileIds"`
	Format      string      `json:"format"`
}

// ReportResponse is the wire form of a report. Listings omit the payload.
type ReportResponse struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Format      string          `json:"format"`
	GeneratedAt time.Time       `json:"generatedAt"`
	ExternalURL *string         `json:"externalUrl"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

func toResponse(r *repository.Report) ReportResponse {
	return ReportResponse{
		ID:          r.ID,
		Type:        r.Type,
		Format:      r.Format,
		GeneratedAt: r.GeneratedAt,
		ExternalURL: r.ExternalURL,
		Payload:     r.Payload,
	}
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := interceptors.ParseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Generate handles POST /ai-assistant/reports
func (h *ReportsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	var req reportRequest
	if err := interceptors.DecodeJSON(r, &req); err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Generate(r.Context(), userID, service.ReportRequest{
		Type:        req.Type,
		StartDate:   start,
		EndDate:     end,
		CategoryIDs: req.CategoryIDs,
		GoalIDs:     req.GoalIDs,
		ProfileIDs:  req.ProfileIDs,
		Format:      req.Format,
	})
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusCreated, toResponse(res.Report))
}

// List handles GET /ai-assistant/reports
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	reports, err := h.svc.ListReports(r.Context(), userID)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	out := make([]ReportResponse, 0, len(reports))
	for _, rep := range reports {
		out = append(out, toResponse(rep))
	}
	interceptors.WriteJSON(w, http.StatusOK, map[string]any{"reports": out})
}

// Get handles GET /ai-assistant/reports/{id}
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	id, err := interceptors.PathUUID(r, "id")
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	res, err := h.svc.GetReport(r.Context(), userID, id)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, toResponse(res.Report))
}

// File handles GET /files/{id} and streams a rendered report document
func (h *ReportsHandler) File(w http.ResponseWriter, r *http.Request) {
	userID, err := interceptors.UserID(r.Context())
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	id, err := interceptors.PathUUID(r, "id")
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}

	rc, info, err := h.svc.OpenFile(r.Context(), userID, id)
	if err != nil {
		interceptors.WriteError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name))
	if info.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprint(info.Size))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "report file stream interrupted",
			slog.String("file_id", id.String()),
			slog.Any("error", err),
		)
	}
}
