package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
)

// Client calls an external reverse-geocoding provider. Failures are surfaced
// as a generic upstream error and are never retried.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Result carries the resolved address for a coordinate pair.
type Result struct {
	Address  string `json:"address"`
	Province string `json:"province"`
	City     string `json:"city"`
	District string `json:"district"`
}

// New builds a geocoding client. An empty baseURL yields a client whose
// calls always fail with an upstream error, which keeps the endpoint wired
// in environments without a provider key.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: httpClient}
}

type reverseResponse struct {
	Status int `json:"status"`
	Result struct {
		Address          string `json:"address"`
		AddressComponent struct {
			Province string `json:"province"`
			City     string `json:"city"`
			District string `json:"district"`
		} `json:"address_component"`
	} `json:"result"`
}

// Reverse resolves the human-readable address for (lat, lng).
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*Result, error) {
	if c.baseURL == "" {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "geocoding provider not configured")
	}

	endpoint := fmt.Sprintf("%s/ws/geocoder/v1/?location=%s&key=%s",
		c.baseURL,
		url.QueryEscape(fmt.Sprintf("%f,%f", lat, lng)),
		url.QueryEscape(c.apiKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "geocoding provider returned an error")
	}

	var payload reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}
	if payload.Status != 0 {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "geocoding provider returned an error")
	}

	return &Result{
		Address:  payload.Result.Address,
		Province: payload.Result.AddressComponent.Province,
		City:     payload.Result.AddressComponent.City,
		District: payload.Result.AddressComponent.District,
	}, nil
}
