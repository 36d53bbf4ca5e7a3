package service

import (
	"context"
	"time"

	"energy_usage/internal/models"
	"energy_usage/internal/repository"
)

type AlertHistoryService struct {
	alerts repository.AlertLog
}

func NewAlertHistoryService(alerts repository.AlertLog) *AlertHistoryService {
	return &AlertHistoryService{alerts: alerts}
}

// List returns the user's alerts within [from, to]; zero bounds are open.
func (s *AlertHistoryService) List(ctx context.Context, userID int64, from, to time.Time) ([]models.AlertRecord, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	from, to = normalizeToUTC(from), normalizeToUTC(to)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, ErrInvalidTimeRange
	}
	return s.alerts.ListByUser(ctx, userID, from, to)
}
