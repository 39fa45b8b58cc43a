// Package enrich cross-references unified leads against the regulatory
// carrier registry. It is the only pipeline stage that performs blocking
// external I/O, and it does so through a bounded worker pool with per-call
// timeouts; a failed or timed-out lookup degrades the lead rather than
// aborting the batch.
package enrich

import (
	"context"

	"github.com/fleetflow/leadflow/internal/model"
)

// RegistryClient is the regulatory-registry collaborator. A miss is reported
// as a NotFoundError; transport failures as ExternalServiceError.
type RegistryClient interface {
	// LookupByIdentifier resolves a profile by MC or DOT number.
	LookupByIdentifier(ctx context.Context, mcNumber, dotNumber string) (model.RegistryProfile, error)

	// LookupByNameAddress resolves a profile by normalized name and address.
	LookupByNameAddress(ctx context.Context, name, city, state string) (model.RegistryProfile, error)
}
