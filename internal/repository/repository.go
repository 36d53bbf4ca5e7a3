package repository

import (
	"context"
	"database/sql"
	"time"

	"energy_usage/internal/models"
)

// UsageStore is the time-series store of readings.
type UsageStore interface {
	WriteReading(ctx context.Context, r models.Reading) error
	// SumByDevice sums usage per device over w. Empty ids means all devices.
	SumByDevice(ctx context.Context, w models.Window, ids []int64) (map[int64]float64, error)
}

// AlertLog keeps the history of emitted alerts.
type AlertLog interface {
	Append(ctx context.Context, a models.AlertRecord) error
	ListByUser(ctx context.Context, userID int64, from, to time.Time) ([]models.AlertRecord, error)
}

type Repository struct {
	Usage  UsageStore
	Alerts AlertLog
}

func NewRepository(usage UsageStore, db *sql.DB) *Repository {
	return &Repository{
		Usage:  usage,
		Alerts: NewAlertSQLite(db),
	}
}
