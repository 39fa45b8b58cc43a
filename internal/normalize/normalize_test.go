package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetflow/leadflow/internal/errs"
	"github.com/fleetflow/leadflow/internal/model"
)

func TestNormalize_FullRecord(t *testing.T) {
	rec, err := Normalize(model.RawLeadRecord{
		SourceID:    "thomas_net",
		CompanyName: "Acme Manufacturing LLC",
		Street:      "100 N. Main St.",
		City:        "Dallas",
		State:       "Texas",
		ZipCode:     "75201-1234",
		Phone:       "(214) 555-0193",
	})
	require.NoError(t, err)

	assert.Equal(t, "acme manufacturing", rec.Identity.Name)
	assert.Equal(t, "100 north main street", rec.Identity.Street)
	assert.Equal(t, "dallas", rec.Identity.City)
	assert.Equal(t, "tx", rec.Identity.State)
	assert.Equal(t, "75201", rec.Identity.Zip)
	assert.Equal(t, "+12145550193", rec.Identity.Phone)
}

func TestNormalize_EmptyNameRejected(t *testing.T) {
	_, err := Normalize(model.RawLeadRecord{CompanyName: "  "})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))

	// A name that is nothing but a legal suffix is just as unusable.
	_, err = Normalize(model.RawLeadRecord{CompanyName: "LLC"})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestNormalize_BadPhoneDropped(t *testing.T) {
	rec, err := Normalize(model.RawLeadRecord{
		CompanyName: "Acme Manufacturing",
		Phone:       "555-0193",
	})
	require.NoError(t, err)
	assert.Equal(t, "", rec.Identity.Phone)
}

func TestNormalize_SameIdentityKey(t *testing.T) {
	a, err := Normalize(model.RawLeadRecord{CompanyName: "Acme Mfg LLC", ZipCode: "75201"})
	require.NoError(t, err)
	b, err := Normalize(model.RawLeadRecord{CompanyName: "ACME MFG, Inc.", ZipCode: "75201-0042"})
	require.NoError(t, err)

	assert.Equal(t, a.Identity.Key(), b.Identity.Key())

	c, err := Normalize(model.RawLeadRecord{CompanyName: "Acme Mfg LLC", ZipCode: "30301"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Identity.Key(), c.Identity.Key())
}
