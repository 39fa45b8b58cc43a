package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetflow/leadflow/internal/errs"
	"github.com/fleetflow/leadflow/internal/model"
)

const fmcsaCarrierBody = `{
	"content": [
		{"carrier": {
			"legalName": "ACME FREIGHT SYSTEMS LLC",
			"dbaName": "ACME FREIGHT",
			"dotNumber": 7654321,
			"safetyRating": "S",
			"statusCode": "A"
		}}
	]
}`

func TestFMCSA_LookupByDOTNumber(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("webKey")
		w.Write([]byte(fmcsaCarrierBody))
	}))
	defer srv.Close()

	c := NewFMCSAClient("test-key", WithBaseURL(srv.URL))
	profile, err := c.LookupByIdentifier(context.Background(), "", "7654321")
	require.NoError(t, err)

	assert.Equal(t, "/carriers/7654321", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.True(t, profile.Verified)
	assert.Equal(t, "ACME FREIGHT SYSTEMS LLC", profile.LegalName)
	assert.Equal(t, "7654321", profile.DOTNumber)
	assert.Equal(t, model.SafetySatisfactory, profile.SafetyRating)
}

func TestFMCSA_LookupByMCNumberUsesDocketPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(fmcsaCarrierBody))
	}))
	defer srv.Close()

	c := NewFMCSAClient("test-key", WithBaseURL(srv.URL))
	profile, err := c.LookupByIdentifier(context.Background(), "MC-12345", "")
	require.NoError(t, err)

	assert.Equal(t, "/carriers/docket-number/MC-12345", gotPath)
	// The docket response omits the MC number; the request value is kept.
	assert.Equal(t, "MC-12345", profile.MCNumber)
}

func TestFMCSA_LookupByIdentifierRequiresOne(t *testing.T) {
	c := NewFMCSAClient("test-key")
	_, err := c.LookupByIdentifier(context.Background(), "", "")
	assert.True(t, errs.IsValidation(err))
}

func TestFMCSA_LookupByNameSendsState(t *testing.T) {
	var gotPath, gotState string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotState = r.URL.Query().Get("state")
		w.Write([]byte(fmcsaCarrierBody))
	}))
	defer srv.Close()

	c := NewFMCSAClient("test-key", WithBaseURL(srv.URL))
	_, err := c.LookupByNameAddress(context.Background(), "acme freight", "dallas", "tx")
	require.NoError(t, err)

	assert.Equal(t, "/carriers/name/acme freight", gotPath)
	assert.Equal(t, "tx", gotState)
}

func TestFMCSA_NotFoundStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewFMCSAClient("test-key", WithBaseURL(srv.URL))
	_, err := c.LookupByIdentifier(context.Background(), "", "123")
	assert.True(t, errs.IsNotFound(err))
}

func TestFMCSA_EmptyContentIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content": []}`))
	}))
	defer srv.Close()

	c := NewFMCSAClient("test-key", WithBaseURL(srv.URL))
	_, err := c.LookupByNameAddress(context.Background(), "ghost carriers", "", "")
	assert.True(t, errs.IsNotFound(err))
}

func TestFMCSA_ServerErrorIsExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewFMCSAClient("test-key", WithBaseURL(srv.URL))
	_, err := c.LookupByIdentifier(context.Background(), "", "123")
	assert.True(t, errs.IsExternal(err))
}

func TestFMCSA_InactiveStatusIsUnverified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content": [{"carrier": {"legalName": "IDLE TRUCKING", "dotNumber": 111, "safetyRating": "", "statusCode": "I"}}]}`))
	}))
	defer srv.Close()

	c := NewFMCSAClient("test-key", WithBaseURL(srv.URL))
	profile, err := c.LookupByIdentifier(context.Background(), "", "111")
	require.NoError(t, err)
	assert.False(t, profile.Verified)
	assert.Equal(t, model.SafetyUnknown, profile.SafetyRating)
}
