// Package repository persists generated reports.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report is a generated report. Payload always holds the structured data;
// ExternalURL points at the rendered document for csv and xlsx formats.
type Report struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Type        string
	Format      string
	Payload     json.RawMessage
	ExternalURL *string
	GeneratedAt time.Time
}

// ReportRepository defines persistence for reports, scoped to the owning user
type ReportRepository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Report, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*Report, error)
}
