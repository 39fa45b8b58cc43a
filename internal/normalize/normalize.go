// Package normalize canonicalizes raw lead records into identity tuples for
// deduplication. All functions are pure; records that cannot be normalized
// fail with a ValidationError and are dropped by the caller, never merged.
package normalize

import (
	"github.com/fleetflow/leadflow/internal/errs"
	"github.com/fleetflow/leadflow/internal/model"
)

// Record pairs a raw lead record with its normalized identity.
type Record struct {
	Raw      model.RawLeadRecord
	Identity model.Identity
}

// Normalize produces the identity tuple for a raw record. The company name
// is mandatory: an empty or suffix-only name is a ValidationError.
func Normalize(raw model.RawLeadRecord) (Record, error) {
	name := Name(raw.CompanyName)
	if name == "" {
		return Record{}, errs.NewValidation("company_name", "empty or unparsable")
	}

	phone, err := Phone(raw.Phone)
	if err != nil {
		// A bad phone does not invalidate the record; it just cannot
		// contribute to fuzzy matching.
		phone = ""
	}

	return Record{
		Raw: raw,
		Identity: model.Identity{
			Name:   name,
			Phone:  phone,
			Street: Street(raw.Street),
			City:   City(raw.City),
			State:  State(raw.State),
			Zip:    Zip(raw.ZipCode),
		},
	}, nil
}
