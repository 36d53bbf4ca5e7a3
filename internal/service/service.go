package service

import (
	"context"
	"errors"
	"time"

	"energy_usage/internal/directory"
	"energy_usage/internal/logger"
	"energy_usage/internal/models"
	"energy_usage/internal/repository"
)

var (
	ErrInvalidUserID    = errors.New("invalid user id: must be > 0")
	ErrInvalidDays      = errors.New("invalid days: out of allowed range")
	ErrInvalidReading   = errors.New("invalid reading: deviceId > 0 and timestamp are required")
	ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")

	// ErrDirectoryUnavailable wraps device set lookup failures.
	ErrDirectoryUnavailable = errors.New("device directory unavailable")
)

// Ingest persists readings consumed from the bus.
type Ingest interface {
	WriteReading(ctx context.Context, r models.Reading) error
}

// Aggregator runs the periodic threshold evaluation.
// Stop via context cancellation in main() for graceful shutdown.
type Aggregator interface {
	Run(ctx context.Context, interval time.Duration)
	RunCycle(ctx context.Context) CycleResult
}

// Usage builds on-demand usage reports.
type Usage interface {
	GetXDaysUsageForUser(ctx context.Context, userID int64, days int) (models.UsageReport, error)
}

// AlertHistory exposes the alerts emitted for a user.
type AlertHistory interface {
	List(ctx context.Context, userID int64, from, to time.Time) ([]models.AlertRecord, error)
}

// AlertPublisher hands alert events to the message bus.
type AlertPublisher interface {
	Publish(ctx context.Context, e models.AlertEvent) error
}

// Options tunes the services; zero values fall back to defaults.
type Options struct {
	Window         time.Duration // aggregation window, 1h by default
	StoreTimeout   time.Duration
	PublishTimeout time.Duration // per alert publish
	MaxDays        int
	Log            *logger.Logger
}

const (
	defaultWindow         = time.Hour
	defaultStoreTimeout   = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultMaxDays        = 366
)

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = defaultWindow
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = defaultStoreTimeout
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = defaultPublishTimeout
	}
	if o.MaxDays <= 0 {
		o.MaxDays = defaultMaxDays
	}
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	return o
}

type Service struct {
	Ingest
	Aggregator
	Usage
	AlertHistory
}

// NewService wires the repository layer and collaborators into concrete services.
func NewService(repos *repository.Repository, dirs directory.Directories, pub AlertPublisher, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		Ingest:       NewIngestService(repos.Usage, opts),
		Aggregator:   NewAggregationService(repos.Usage, repos.Alerts, dirs, pub, opts),
		Usage:        NewUsageService(repos.Usage, dirs.Devices, opts),
		AlertHistory: NewAlertHistoryService(repos.Alerts),
	}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
