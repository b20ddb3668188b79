// Package tracker talks to the remote fish tracking service.
// Every call performs exactly one HTTP attempt; retrying is the caller's business.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fish-tracker/backend/internal/logging"
	"github.com/fish-tracker/backend/internal/models"
	"github.com/labstack/gommon/log"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8088"

// PlaceholderWeightKG is sent when the true weight is not known yet.
const PlaceholderWeightKG = 0.1

const fishPath = "fish"

// Config is the minimal client config.
type Config struct {
	BaseURL string
	// HTTPClient defaults to a client without an explicit timeout.
	HTTPClient *http.Client
}

// Client issues list and create requests against <base-url>/fish.
type Client struct {
	endpoint string
	http     *http.Client
	log      *log.Logger
	now      func() time.Time
}

// New validates the base URL and builds a client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("tracker: base url must be http or https")
	}
	if u.Host == "" {
		return nil, errors.New("tracker: base url has no host")
	}

	endpoint, err := url.JoinPath(base, fishPath)
	if err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		endpoint: endpoint,
		http:     hc,
		log:      logging.New("tracker"),
		now:      time.Now,
	}, nil
}

// Endpoint returns the resolved fish collection URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchAll lists every fish. An empty or null body yields an empty snapshot.
func (c *Client) FetchAll(ctx context.Context) (models.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return models.Snapshot{}, &NetworkError{Op: "list", URL: c.endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Snapshot{}, &NetworkError{Op: "list", URL: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return models.Snapshot{}, &ProtocolError{Op: "list", URL: c.endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Snapshot{}, &NetworkError{Op: "list", URL: c.endpoint, Err: err}
	}

	fishes, err := decodeFishList(body)
	if err != nil {
		return models.Snapshot{}, &ProtocolError{Op: "list", URL: c.endpoint, Err: err}
	}

	c.log.Debugf("fetched %d fish from %s (status=%s)", len(fishes), c.endpoint, resp.Status)

	return models.Snapshot{
		Entities:   fishes,
		CapturedAt: c.now(),
	}, nil
}

// Create registers a new fish. The response body is ignored.
func (c *Client) Create(ctx context.Context, f models.NewFish) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &NetworkError{Op: "create", URL: c.endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: "create", URL: c.endpoint, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProtocolError{Op: "create", URL: c.endpoint, StatusCode: resp.StatusCode}
	}

	c.log.Debugf("created fish species=%q (status=%s)", f.Species, resp.Status)
	return nil
}

func decodeFishList(body []byte) ([]models.Fish, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []models.Fish{}, nil
	}

	var fishes []models.Fish
	if err := json.Unmarshal(trimmed, &fishes); err != nil {
		return nil, err
	}
	if fishes == nil {
		fishes = []models.Fish{}
	}
	return fishes, nil
}
