// Package places is a client for the Google Places web service
// (nearby search, place details and photo URLs).
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/singleflight"

	domerrors "github.com/garyellow/line-foodfinder/internal/errors"
	"github.com/garyellow/line-foodfinder/internal/metrics"
)

// Endpoint labels used for metrics and errors.
const (
	EndpointNearby  = "nearbysearch"
	EndpointDetails = "details"
)

// PhotoMaxWidth is the width requested from the photo endpoint.
const PhotoMaxWidth = 1040

// Response status values returned in the JSON body.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusInvalidRequest = "INVALID_REQUEST"
	StatusNotFound       = "NOT_FOUND"
	StatusUnknownError   = "UNKNOWN_ERROR"
)

const maxBodySize = 4 << 20

// Place is one nearby search result.
type Place struct {
	PlaceID          string
	Name             string
	Vicinity         string
	FormattedAddress string
	Lat              float64
	Lng              float64
	PhotoReference   string // empty when the result has no photos
}

// Point returns the result coordinate in orb (lng, lat) order.
func (p Place) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Address returns the vicinity, falling back to the formatted address.
func (p Place) Address() string {
	if v := strings.TrimSpace(p.Vicinity); v != "" {
		return v
	}
	return strings.TrimSpace(p.FormattedAddress)
}

// Detail is the subset of a place details response the bot uses.
type Detail struct {
	PlaceID          string
	Website          string
	URL              string // Google Maps page of the place
	Phone            string
	FormattedAddress string
	PhotoReferences  []string
}

// Config configures a Client.
type Config struct {
	APIKey       string
	BaseURL      string
	Language     string // optional, e.g. "th"
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	HTTPClient   *http.Client     // optional
	Metrics      *metrics.Metrics // optional
}

// Client calls the Places web service. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	http       *http.Client
	metrics    *metrics.Metrics
	details    singleflight.Group
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domerrors.NewValidationError("api_key", "required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, domerrors.NewValidationError("base_url", fmt.Sprintf("invalid url %q", cfg.BaseURL))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		language:   cfg.Language,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		http:       httpClient,
		metrics:    cfg.Metrics,
	}, nil
}

type photoJSON struct {
	PhotoReference string `json:"photo_reference"`
}

type nearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID          string `json:"place_id"`
		Name             string `json:"name"`
		Vicinity         string `json:"vicinity"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		Photos []photoJSON `json:"photos"`
	} `json:"results"`
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		PlaceID              string      `json:"place_id"`
		Website              string      `json:"website"`
		URL                  string      `json:"url"`
		FormattedPhoneNumber string      `json:"formatted_phone_number"`
		FormattedAddress     string      `json:"formatted_address"`
		Photos               []photoJSON `json:"photos"`
	} `json:"result"`
}

// NearbySearch returns restaurants matching keyword within radius meters
// of center. ZERO_RESULTS yields an empty slice and a nil error.
func (c *Client) NearbySearch(ctx context.Context, keyword string, center orb.Point, radius int) ([]Place, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("type", "restaurant")
	params.Set("radius", strconv.Itoa(radius))
	params.Set("keyword", keyword)
	params.Set("location", formatLatLng(center))
	if c.language != "" {
		params.Set("language", c.language)
	}

	var body nearbyResponse
	if err := c.get(ctx, EndpointNearby, "/nearbysearch/json", params, &body, func() (string, string) {
		return body.Status, body.ErrorMessage
	}); err != nil {
		return nil, err
	}

	results := make([]Place, 0, len(body.Results))
	for _, r := range body.Results {
		p := Place{
			PlaceID:          r.PlaceID,
			Name:             r.Name,
			Vicinity:         r.Vicinity,
			FormattedAddress: r.FormattedAddress,
			Lat:              r.Geometry.Location.Lat,
			Lng:              r.Geometry.Location.Lng,
		}
		if len(r.Photos) > 0 {
			p.PhotoReference = r.Photos[0].PhotoReference
		}
		results = append(results, p)
	}
	return results, nil
}

// PlaceDetail fetches details for placeID. Concurrent lookups of the same
// place share one request.
func (c *Client) PlaceDetail(ctx context.Context, placeID string) (*Detail, error) {
	v, err, shared := c.details.Do(placeID, func() (any, error) {
		return c.fetchDetail(ctx, placeID)
	})
	if shared && c.metrics != nil {
		c.metrics.RecordSingleflightDedup("places")
	}
	if err != nil {
		return nil, err
	}
	d := *v.(*Detail)
	d.PhotoReferences = append([]string(nil), d.PhotoReferences...)
	return &d, nil
}

func (c *Client) fetchDetail(ctx context.Context, placeID string) (*Detail, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("place_id", placeID)
	if c.language != "" {
		params.Set("language", c.language)
	}

	var body detailsResponse
	if err := c.get(ctx, EndpointDetails, "/details/json", params, &body, func() (string, string) {
		return body.Status, body.ErrorMessage
	}); err != nil {
		return nil, err
	}

	r := body.Result
	d := &Detail{
		PlaceID:          placeID,
		Website:          r.Website,
		URL:              r.URL,
		Phone:            r.FormattedPhoneNumber,
		FormattedAddress: r.FormattedAddress,
	}
	for _, p := range r.Photos {
		if p.PhotoReference != "" {
			d.PhotoReferences = append(d.PhotoReferences, p.PhotoReference)
		}
	}
	return d, nil
}

// PhotoURL builds the photo endpoint URL for reference. It does not call
// the network. An empty reference returns an empty string.
func (c *Client) PhotoURL(reference string) string {
	if reference == "" {
		return ""
	}
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("maxwidth", strconv.Itoa(PhotoMaxWidth))
	params.Set("photoreference", reference)
	return c.baseURL + "/photo?" + params.Encode()
}

// get performs one GET with retries and decodes the JSON body into out.
// status reads the status fields of out after each decode.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any, status func() (string, string)) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordPlacesDuration(endpoint, time.Since(start).Seconds())
		}
	}()

	reqURL := c.baseURL + path + "?" + params.Encode()

	return retryWithBackoff(ctx, c.maxRetries, c.backoff, func(int) error {
		err := c.attempt(ctx, endpoint, reqURL, out, status)
		c.record(endpoint, err)
		return err
	})
}

func (c *Client) attempt(ctx context.Context, endpoint, reqURL string, out any, status func() (string, string)) error {
	if err := ctx.Err(); err != nil {
		return permanent(domerrors.NewUpstreamError(endpoint, 0, "", err))
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return permanent(domerrors.NewUpstreamError(endpoint, 0, "", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domerrors.NewUpstreamError(endpoint, 0, "", redact(err, c.apiKey))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		upErr := domerrors.NewUpstreamError(endpoint, resp.StatusCode, "", errors.New("unexpected http status"))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return upErr
		}
		return permanent(upErr)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		return domerrors.NewUpstreamError(endpoint, resp.StatusCode, "", fmt.Errorf("decode response: %w", err))
	}

	st, msg := status()
	switch st {
	case StatusOK, StatusZeroResults:
		return nil
	case StatusNotFound, StatusInvalidRequest:
		if endpoint == EndpointDetails {
			// A stale or malformed place_id from a search result.
			return permanent(fmt.Errorf("%w: %s: %w", domerrors.ErrPlaceNotFound, st, statusErr(msg)))
		}
		return permanent(domerrors.NewUpstreamError(endpoint, resp.StatusCode, st, statusErr(msg)))
	case StatusOverQueryLimit, StatusUnknownError:
		return domerrors.NewUpstreamError(endpoint, resp.StatusCode, st, statusErr(msg))
	default:
		return permanent(domerrors.NewUpstreamError(endpoint, resp.StatusCode, st, statusErr(msg)))
	}
}

func (c *Client) record(endpoint string, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "retryable"
		var pe *permanentError
		if errors.As(err, &pe) {
			status = "error"
		}
	}
	c.metrics.RecordPlacesAttempt(endpoint, status)
}

func statusErr(msg string) error {
	if msg == "" {
		msg = "places api returned an error status"
	}
	return errors.New(msg)
}

// redact keeps the api key out of transport errors, which embed the URL.
func redact(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}

func formatLatLng(p orb.Point) string {
	return strconv.FormatFloat(p.Lat(), 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon(), 'f', -1, 64)
}
