package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Journal struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ShortName    string    `json:"short_name"`
	OJSBaseURL   string    `json:"ojs_base_url,omitempty"`
	OJSAPIKey    string    `json:"-"`
	OJSSectionID int       `json:"ojs_section_id"`
	OJSEnabled   bool      `json:"ojs_enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// OJSConfigured reports whether the journal can talk to a remote OJS install.
func (j *Journal) OJSConfigured() bool {
	return j.OJSEnabled && j.OJSBaseURL != "" && j.OJSAPIKey != ""
}

type JournalRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Journal, error)
	List(ctx context.Context) ([]*Journal, error)
}
