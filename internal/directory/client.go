package directory

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

	"energy_usage/internal/logger"
	"energy_usage/internal/metrics"
	"energy_usage/internal/models"

	"github.com/sony/gobreaker"
)

const maxBodyBytes = 1 << 20 // 1 MB

// ClientConfig tunes one directory client.
type ClientConfig struct {
	BaseURL            string
	Timeout            time.Duration // per call
	BreakerMaxFailures int           // consecutive failures before opening
	BreakerReset       time.Duration // open -> half-open delay
}

// StatusError is a non-2xx, non-404 directory response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// httpClient issues JSON GETs through a circuit breaker with a per-call timeout.
type httpClient struct {
	name    string
	base    string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger
}

func newHTTPClient(name string, cfg ClientConfig, hc *http.Client, log *logger.Logger) *httpClient {
	if hc == nil {
		hc = &http.Client{}
	}
	if log == nil {
		log = logger.Nop()
	}
	maxFailures := uint32(cfg.BreakerMaxFailures)
	if maxFailures == 0 {
		maxFailures = 5
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerReset,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		// not-found is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("directory_breaker_state", "directory", name, "from", from.String(), "to", to.String())
		},
	}
	return &httpClient{
		name:    name,
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    hc,
		breaker: gobreaker.NewCircuitBreaker(st),
		log:     log,
	}
}

// getJSON fetches base+path into out. 404 maps to ErrNotFound.
func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, c.base+path, out)
	})
	c.observe(err)
	return err
}

func (c *httpClient) do(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", u, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &StatusError{URL: u, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}

func (c *httpClient) observe(err error) {
	result := metrics.ResultOK
	switch {
	case errors.Is(err, ErrNotFound):
		result = metrics.ResultNotFound
	case err != nil:
		result = metrics.ResultFailed
	}
	metrics.DirectoryLookups.WithLabelValues(c.name, result).Inc()
}

func idPath(prefix string, id int64) string {
	return prefix + url.PathEscape(strconv.FormatInt(id, 10))
}

// DeviceClient is the HTTP device directory.
type DeviceClient struct {
	c *httpClient
}

// Ensure implementation of DeviceDirectory interface at compile time.
var _ DeviceDirectory = (*DeviceClient)(nil)

func NewDeviceClient(cfg ClientConfig, hc *http.Client, log *logger.Logger) *DeviceClient {
	return &DeviceClient{c: newHTTPClient("device", cfg, hc, log)}
}

// GetDevice fetches GET /api/v1/device/{id}. A body without an id counts as not found.
func (d *DeviceClient) GetDevice(ctx context.Context, id int64) (models.Device, error) {
	var dev models.Device
	if err := d.c.getJSON(ctx, idPath("/api/v1/device/", id), &dev); err != nil {
		return models.Device{}, err
	}
	if dev.ID == 0 {
		return models.Device{}, ErrNotFound
	}
	return dev, nil
}

// DevicesForUser fetches GET /api/v1/device/user/{userId}. Devices without an id are dropped.
func (d *DeviceClient) DevicesForUser(ctx context.Context, userID int64) ([]models.Device, error) {
	var devs []models.Device
	if err := d.c.getJSON(ctx, idPath("/api/v1/device/user/", userID), &devs); err != nil {
		return nil, err
	}
	out := make([]models.Device, 0, len(devs))
	for _, dev := range devs {
		if dev.ID == 0 {
			d.c.log.Warnw("device_without_id_skipped", "userId", userID)
			continue
		}
		out = append(out, dev)
	}
	return out, nil
}

// UserClient is the HTTP user directory.
type UserClient struct {
	c *httpClient
}

// Ensure implementation of UserDirectory interface at compile time.
var _ UserDirectory = (*UserClient)(nil)

func NewUserClient(cfg ClientConfig, hc *http.Client, log *logger.Logger) *UserClient {
	return &UserClient{c: newHTTPClient("user", cfg, hc, log)}
}

// GetUser fetches GET /api/v1/user/{id}.
func (u *UserClient) GetUser(ctx context.Context, id int64) (models.User, error) {
	var usr models.User
	if err := u.c.getJSON(ctx, idPath("/api/v1/user/", id), &usr); err != nil {
		return models.User{}, err
	}
	if usr.ID == 0 {
		return models.User{}, ErrNotFound
	}
	return usr, nil
}
