package opendata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/velib-indicators/internal/velib"
)

// DefaultURL is the Paris open-data search endpoint for real-time Vélib availability.
const DefaultURL = "https://opendata.paris.fr/api/records/1.0/search/?dataset=velib-disponibilite-en-temps-reel"

var errNoRecords = errors.New("payload carries no records")

// Options configures a Client.
type Options struct {
	// URL is an HTTP(S) endpoint or a path to a local JSON dump.
	URL               string
	Rows              int
	HTTPClient        *http.Client
	RequestsPerMinute int
	Backoff           BackoffConfig
}

// Client implements velib.Source for the Paris open-data API.
type Client struct {
	name    string
	url     string
	rows      int
	transport *transport
}

var _ velib.Source = (*Client)(nil)

// NewClient creates a Client. Zero-valued options fall back to sensible defaults.
func NewClient(opts Options) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Backoff.InitialInterval <= 0 {
		opts.Backoff = BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "opendata-paris",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		name:      "opendata-paris",
		url:       opts.URL,
		rows:      opts.Rows,
		transport: &transport{
			client:  opts.HTTPClient,
			backoff: opts.Backoff,
			limiter: limiter,
			breaker: cb,
		},
	}
}

// Name returns the source identifier.
func (c *Client) Name() string {
	return c.name
}

// Fetch retrieves the current batch of station records.
func (c *Client) Fetch(ctx context.Context) ([]velib.RawStationRecord, error) {
	if !isRemote(c.url) {
		f, err := os.Open(c.url)
		if err != nil {
			return nil, fmt.Errorf("open station dump: %w", err)
		}
		defer f.Close()
		return decodeRecords(f)
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := c.transport.get(ctx, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("request station feed: %w", err)
	}
	defer resp.Body.Close()

	return decodeRecords(resp.Body)
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid source url: %w", err)
	}
	if c.rows > 0 {
		q := u.Query()
		if q.Get("rows") == "" {
			q.Set("rows", strconv.Itoa(c.rows))
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), nil
}

// decodeRecords accepts both the v1 search payload (records[].fields) and the v2.1 one (results[]).
// An absent or null record list is an error; an empty list is a valid empty batch.
func decodeRecords(r io.Reader) ([]velib.RawStationRecord, error) {
	var payload struct {
		Records []struct {
			Fields velib.RawStationRecord `json:"fields"`
		} `json:"records"`
		Results []velib.RawStationRecord `json:"results"`
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	switch {
	case payload.Records != nil:
		out := make([]velib.RawStationRecord, 0, len(payload.Records))
		for _, rec := range payload.Records {
			out = append(out, rec.Fields)
		}
		return out, nil
	case payload.Results != nil:
		return payload.Results, nil
	default:
		return nil, errNoRecords
	}
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
