package enrich

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fleetflow/leadflow/internal/errs"
	"github.com/fleetflow/leadflow/internal/model"
)

const fmcsaDefaultBaseURL = "https://mobile.fmcsa.dot.gov/qc/services"

// FMCSAClient looks carriers up in the FMCSA QCMobile registry.
type FMCSAClient struct {
	baseURL    string
	webKey     string
	httpClient *http.Client
}

// FMCSAOption configures the client.
type FMCSAOption func(*FMCSAClient)

// WithBaseURL points the client at a different endpoint; used in tests.
func WithBaseURL(u string) FMCSAOption {
	return func(c *FMCSAClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) FMCSAOption {
	return func(c *FMCSAClient) { c.httpClient = h }
}

// NewFMCSAClient creates a registry client authenticated with the given web
// key.
func NewFMCSAClient(webKey string, opts ...FMCSAOption) *FMCSAClient {
	c := &FMCSAClient{
		baseURL:    fmcsaDefaultBaseURL,
		webKey:     webKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type fmcsaCarrier struct {
	LegalName    string      `json:"legalName"`
	DBAName      string      `json:"dbaName"`
	DOTNumber    json.Number `json:"dotNumber"`
	SafetyRating string      `json:"safetyRating"`
	StatusCode   string      `json:"statusCode"`
}

type fmcsaResponse struct {
	Content []struct {
		Carrier fmcsaCarrier `json:"carrier"`
	} `json:"content"`
}

func (c *FMCSAClient) LookupByIdentifier(ctx context.Context, mcNumber, dotNumber string) (model.RegistryProfile, error) {
	var path string
	switch {
	case dotNumber != "":
		path = "/carriers/" + url.PathEscape(dotNumber)
	case mcNumber != "":
		path = "/carriers/docket-number/" + url.PathEscape(mcNumber)
	default:
		return model.RegistryProfile{}, errs.NewValidation("identifier", "mc or dot number required")
	}

	profile, err := c.fetch(ctx, path, nil)
	if err != nil {
		return model.RegistryProfile{}, err
	}
	if mcNumber != "" && profile.MCNumber == "" {
		profile.MCNumber = mcNumber
	}
	return profile, nil
}

func (c *FMCSAClient) LookupByNameAddress(ctx context.Context, name, city, state string) (model.RegistryProfile, error) {
	if name == "" {
		return model.RegistryProfile{}, errs.NewValidation("name", "required")
	}
	params := url.Values{}
	if state != "" {
		params.Set("state", state)
	}
	_ = city // the registry search keys on name and state only
	return c.fetch(ctx, "/carriers/name/"+url.PathEscape(name), params)
}

func (c *FMCSAClient) fetch(ctx context.Context, path string, params url.Values) (model.RegistryProfile, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("webKey", c.webKey)

	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.RegistryProfile{}, eris.Wrap(err, "fmcsa: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.RegistryProfile{}, errs.NewExternal("fmcsa", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.RegistryProfile{}, errs.NewNotFound("carrier", path)
	case resp.StatusCode != http.StatusOK:
		return model.RegistryProfile{}, errs.NewExternal("fmcsa",
			eris.Errorf("fmcsa: status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.RegistryProfile{}, errs.NewExternal("fmcsa", eris.Wrap(err, "fmcsa: read body"))
	}

	var parsed fmcsaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.RegistryProfile{}, errs.NewExternal("fmcsa", eris.Wrap(err, "fmcsa: parse response"))
	}
	if len(parsed.Content) == 0 {
		return model.RegistryProfile{}, errs.NewNotFound("carrier", path)
	}

	carrier := parsed.Content[0].Carrier
	return model.RegistryProfile{
		DOTNumber:    carrier.DOTNumber.String(),
		LegalName:    carrier.LegalName,
		Verified:     carrier.StatusCode == "A",
		SafetyRating: mapSafetyRating(carrier.SafetyRating),
	}, nil
}

func mapSafetyRating(code string) model.SafetyRating {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "S":
		return model.SafetySatisfactory
	case "C":
		return model.SafetyConditional
	case "U":
		return model.SafetyUnsatisfactory
	default:
		return model.SafetyUnknown
	}
}
