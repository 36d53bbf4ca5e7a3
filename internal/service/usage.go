package service

import (
	"context"
	"fmt"
	"time"

	"energy_usage/internal/directory"
	"energy_usage/internal/logger"
	"energy_usage/internal/models"
	"energy_usage/internal/repository"
)

type UsageService struct {
	store   repository.UsageStore
	devices directory.DeviceDirectory
	opts    Options
	log     *logger.Logger
	now     func() time.Time
}

func NewUsageService(store repository.UsageStore, devices directory.DeviceDirectory, opts Options) *UsageService {
	opts = opts.withDefaults()
	return &UsageService{
		store:   store,
		devices: devices,
		opts:    opts,
		log:     opts.Log.With("component", "usage"),
		now:     time.Now,
	}
}

// GetXDaysUsageForUser reports per-device consumption over the last days*24h.
// A device lookup failure is returned; a store failure yields zero usage.
func (s *UsageService) GetXDaysUsageForUser(ctx context.Context, userID int64, days int) (models.UsageReport, error) {
	if userID <= 0 {
		return models.UsageReport{}, ErrInvalidUserID
	}
	if days < 1 || days > s.opts.MaxDays {
		return models.UsageReport{}, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidDays, days, s.opts.MaxDays)
	}

	devices, err := s.devices.DevicesForUser(ctx, userID)
	if err != nil {
		return models.UsageReport{}, fmt.Errorf("%w: resolve devices for user %d: %w", ErrDirectoryUnavailable, userID, err)
	}
	report := models.UsageReport{UserID: userID, Devices: make([]models.DeviceUsage, 0, len(devices))}
	if len(devices) == 0 {
		return report, nil
	}

	ids := make([]int64, 0, len(devices))
	for _, d := range devices {
		ids = append(ids, d.ID)
	}
	w := models.LastWindow(s.now().UTC(), time.Duration(days)*24*time.Hour)
	sums := s.sum(ctx, userID, w, ids)

	for _, d := range devices {
		report.Devices = append(report.Devices, models.DeviceUsage{
			ID:             d.ID,
			Name:           d.Name,
			Type:           d.Type,
			Location:       d.Location,
			UserID:         d.UserID,
			EnergyConsumed: sums[d.ID],
		})
	}
	return report, nil
}

// sum queries the store restricted to ids. Errors are logged and read as no data.
func (s *UsageService) sum(ctx context.Context, userID int64, w models.Window, ids []int64) map[int64]float64 {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	sums, err := s.store.SumByDevice(ctx, w, ids)
	if err != nil {
		s.log.Errorw("usage_query_failed", "userId", userID, "devices", len(ids), "err", err)
		return map[int64]float64{}
	}
	return sums
}
