// Package store persists unified leads across ingestion cycles. Two backends
// are provided: SQLite for single-node deployments and Postgres for shared
// ones. Leads are soft-expired, never hard-deleted.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fleetflow/leadflow/internal/config"
	"github.com/fleetflow/leadflow/internal/model"
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Tier           model.PriorityTier `json:"tier,omitempty"`
	State          string             `json:"state,omitempty"`
	MinScore       float64            `json:"min_score,omitempty"`
	IncludeExpired bool               `json:"include_expired,omitempty"`
	Limit          int                `json:"limit,omitempty"`
}

// Store defines the lead persistence interface.
type Store interface {
	// UpsertLead inserts or replaces a lead by identity key.
	UpsertLead(ctx context.Context, lead *model.UnifiedLead) error

	// GetLead returns the lead for a key, or nil if absent.
	GetLead(ctx context.Context, key string) (*model.UnifiedLead, error)

	// ListLeads returns leads matching the filter, highest score first.
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.UnifiedLead, error)

	// ExpireInactive soft-expires leads not observed since the cutoff and
	// returns how many were newly expired. Expired leads stay queryable
	// with IncludeExpired.
	ExpireInactive(ctx context.Context, now time.Time, ttl time.Duration) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by configuration.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
