package historyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/config"
)

// Endpoint paths relative to the base URL.
const (
	addPath  = "/api/Sensor/AddSensorData"
	listPath = "/api/Sensor/GetAllData"
)

const (
	defaultTimeout = 5 * time.Second

	// maxResponseBytes caps how much of a list response is read.
	maxResponseBytes = 16 << 20
)

// Client talks to the history service over HTTP.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the configured base URL.
// It returns ErrDisabled when the URL is empty.
func New(cfg config.HistoryConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, ErrDisabled
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// BaseURL returns the service base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// AddReading posts one reading to the service.
func (c *Client) AddReading(ctx context.Context, r greenhouse.Reading) error {
	body, err := json.Marshal(toRecord(r))
	if err != nil {
		return fmt.Errorf("%w: encoding reading: %w", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+addPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	return checkStatus(resp)
}

// ListReadings fetches every reading the service holds, in service order.
//
// Records that cannot be converted are skipped; if any were skipped, the
// returned error wraps ErrInvalidRecord and the valid readings are still
// returned.
func (c *Client) ListReadings(ctx context.Context) ([]greenhouse.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+listPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrRequestFailed, err)
	}

	readings := make([]greenhouse.Reading, 0, len(raw))
	var errs []error
	for i, item := range raw {
		var rec record
		if err := json.Unmarshal(item, &rec); err != nil {
			errs = append(errs, fmt.Errorf("%w: item %d: %w", ErrInvalidRecord, i, err))
			continue
		}
		r, err := rec.reading()
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: item %d: %w", ErrInvalidRecord, i, err))
			continue
		}
		readings = append(readings, r)
	}

	return readings, errors.Join(errs...)
}

// HealthCheck verifies the service answers the list endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+listPath, nil)
	if err != nil {
		return fmt.Errorf("history health check: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("history health check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("history health check: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, resp.StatusCode)
}
