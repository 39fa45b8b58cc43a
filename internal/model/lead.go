// Package model defines the core data types shared across the lead pipeline
// and the quote pricing engine.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RawLeadRecord is one company record as returned by a lead-source adapter.
// Transient: it lives for a single ingestion cycle and is never persisted.
type RawLeadRecord struct {
	SourceID       string    `json:"source_id"`
	SourceRecordID string    `json:"source_record_id,omitempty"`
	CompanyName    string    `json:"company_name"`
	Street         string    `json:"street,omitempty"`
	City           string    `json:"city,omitempty"`
	State          string    `json:"state,omitempty"`
	ZipCode        string    `json:"zip_code,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	Website        string    `json:"website,omitempty"`
	Industries     []string  `json:"industries,omitempty"`
	FreeText       string    `json:"free_text,omitempty"`
	MonthlyVolume  float64   `json:"monthly_volume,omitempty"` // provider-estimated shipments/month
	MCNumber       string    `json:"mc_number,omitempty"`
	DOTNumber      string    `json:"dot_number,omitempty"`
	ObservedAt     time.Time `json:"observed_at"`
}

// Identity is the normalized identity tuple produced by the identity
// normalizer. All fields are canonical: folded case, legal suffixes stripped,
// E.164 phone, 5-digit zip.
type Identity struct {
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// Key returns the canonical identity key: hex-encoded SHA-256 over the
// normalized name and zip. Leads with the same key are the same company.
func (id Identity) Key() string {
	sum := sha256.Sum256([]byte(id.Name + "|" + id.Zip))
	return hex.EncodeToString(sum[:16])
}

// SourceObservation records one contribution to a unified lead's provenance.
// The provenance list is append-only: sources are never overwritten.
type SourceObservation struct {
	SourceID       string    `json:"source_id"`
	SourceRecordID string    `json:"source_record_id,omitempty"`
	ObservedAt     time.Time `json:"observed_at"`
}

// SafetyRating is a carrier's regulatory safety standing.
type SafetyRating string

// Safety ratings.
const (
	SafetySatisfactory   SafetyRating = "satisfactory"
	SafetyConditional    SafetyRating = "conditional"
	SafetyUnsatisfactory SafetyRating = "unsatisfactory"
	SafetyUnknown        SafetyRating = "unknown"
)

// RegistryProfile is the result of a regulatory-registry lookup.
type RegistryProfile struct {
	MCNumber     string       `json:"mc_number,omitempty"`
	DOTNumber    string       `json:"dot_number,omitempty"`
	LegalName    string       `json:"legal_name,omitempty"`
	Verified     bool         `json:"verified"`
	SafetyRating SafetyRating `json:"safety_rating"`
}

// RegistryBlock is the registry verification state carried on a unified lead.
type RegistryBlock struct {
	Verified     bool         `json:"verified"`
	Checked      bool         `json:"checked"`
	SafetyRating SafetyRating `json:"safety_rating,omitempty"`
	MCNumber     string       `json:"mc_number,omitempty"`
	DOTNumber    string       `json:"dot_number,omitempty"`
	RetryCount   int          `json:"retry_count,omitempty"`
	NextRetryAt  *time.Time   `json:"next_retry_at,omitempty"`
}

// PriorityTier buckets leads by score.
type PriorityTier string

// Priority tiers, highest first.
const (
	TierHigh   PriorityTier = "HIGH"
	TierMedium PriorityTier = "MEDIUM"
	TierLow    PriorityTier = "LOW"
)

// UnifiedLead is the deduplicated, enriched representation of one company
// across all lead sources. Created on first merge, updated in place on
// subsequent cycles, soft-expired (never hard-deleted) after a TTL of
// inactivity.
type UnifiedLead struct {
	Key      string   `json:"key" db:"key"`
	Identity Identity `json:"identity"`

	CompanyName   string   `json:"company_name" db:"company_name"`
	Phone         string   `json:"phone,omitempty" db:"phone"`
	Email         string   `json:"email,omitempty" db:"email"`
	Website       string   `json:"website,omitempty" db:"website"`
	Street        string   `json:"street,omitempty" db:"street"`
	City          string   `json:"city,omitempty" db:"city"`
	State         string   `json:"state,omitempty" db:"state"`
	ZipCode       string   `json:"zip_code,omitempty" db:"zip_code"`
	Industries    []string `json:"industries,omitempty"`
	MonthlyVolume float64  `json:"monthly_volume,omitempty" db:"monthly_volume"`

	Provenance []SourceObservation `json:"provenance"`
	// FieldSources records which source supplied the current value of each
	// merged field, so later cycles can apply source-priority conflict rules.
	FieldSources map[string]string `json:"field_sources,omitempty"`
	Registry     RegistryBlock     `json:"registry"`

	Score                   float64      `json:"score" db:"score"`
	Tier                    PriorityTier `json:"tier" db:"tier"`
	ConversionProbability   float64      `json:"conversion_probability" db:"conversion_probability"`
	EstimatedMonthlyRevenue float64      `json:"estimated_monthly_revenue" db:"estimated_monthly_revenue"`

	LastObservedAt time.Time  `json:"last_observed_at" db:"last_observed_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// SourceCombined labels a lead fused from more than one source.
const SourceCombined = "Combined"

// Source returns the lead's display source: the sole contributing source ID,
// or SourceCombined once more than one source has merged in.
func (l *UnifiedLead) Source() string {
	srcs := l.Sources()
	switch len(srcs) {
	case 0:
		return ""
	case 1:
		return srcs[0]
	default:
		return SourceCombined
	}
}

// Sources returns the distinct source IDs present in the provenance list,
// in first-observed order.
func (l *UnifiedLead) Sources() []string {
	seen := make(map[string]bool, len(l.Provenance))
	var out []string
	for _, obs := range l.Provenance {
		if !seen[obs.SourceID] {
			seen[obs.SourceID] = true
			out = append(out, obs.SourceID)
		}
	}
	return out
}

// HasSource reports whether the given source contributed to this lead.
func (l *UnifiedLead) HasSource(sourceID string) bool {
	for _, obs := range l.Provenance {
		if obs.SourceID == sourceID {
			return true
		}
	}
	return false
}

// Expired reports whether the lead has been soft-expired as of now.
func (l *UnifiedLead) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}
