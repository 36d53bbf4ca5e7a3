package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"energy_usage/internal/directory"
	"energy_usage/internal/logger"
	"energy_usage/internal/metrics"
	"energy_usage/internal/models"
	"energy_usage/internal/repository"

	"github.com/google/uuid"
)

// AlertMessage is the text carried by every threshold alert.
const AlertMessage = "ALERT: Energy usage exceeded threshold"

// CycleResult summarizes one aggregation tick.
type CycleResult struct {
	Skipped         bool
	Devices         int // device sums returned by the store
	Enriched        int // sums whose owner was resolved
	Users           int // users with alerting enabled
	Evaluated       int
	Alerts          int
	PublishFailures int
}

// AggregationService sums the last window of usage per device, attributes it
// to owners and alerts users whose total exceeds their threshold.
type AggregationService struct {
	store   repository.UsageStore
	alerts  repository.AlertLog
	devices directory.DeviceDirectory
	users   directory.UserDirectory
	pub     AlertPublisher
	opts    Options
	log     *logger.Logger

	running atomic.Bool
	now     func() time.Time
}

func NewAggregationService(
	store repository.UsageStore,
	alerts repository.AlertLog,
	dirs directory.Directories,
	pub AlertPublisher,
	opts Options,
) *AggregationService {
	opts = opts.withDefaults()
	return &AggregationService{
		store:   store,
		alerts:  alerts,
		devices: dirs.Devices,
		users:   dirs.Users,
		pub:     pub,
		opts:    opts,
		log:     opts.Log.With("component", "aggregator"),
		now:     time.Now,
	}
}

// Run ticks at the given interval until ctx is canceled. It returns only
// after the cycles it started have finished.
func (s *AggregationService) Run(ctx context.Context, interval time.Duration) {
	var inflight sync.WaitGroup
	defer inflight.Wait()

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			// cycles run off the ticker goroutine; RunCycle drops overlaps
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				s.RunCycle(ctx)
			}()
		}
	}
}

// RunCycle executes one tick. It returns immediately with Skipped set when
// the previous cycle is still running.
func (s *AggregationService) RunCycle(ctx context.Context) CycleResult {
	if !s.running.CompareAndSwap(false, true) {
		metrics.ObserveCycle(metrics.CycleSkipped, 0)
		s.log.Warnw("aggregation_tick_skipped", "reason", "previous cycle still running")
		return CycleResult{Skipped: true}
	}
	defer s.running.Store(false)

	start := time.Now()
	w := models.LastWindow(s.now().UTC(), s.opts.Window)

	usages, err := s.queryWindow(ctx, w)
	if err != nil {
		metrics.ObserveCycle(metrics.CycleQueryFailed, 0)
		s.log.Errorw("aggregation_query_failed", "start", w.Start, "stop", w.Stop, "err", err)
		return CycleResult{}
	}
	res := CycleResult{Devices: len(usages)}

	enriched := s.enrich(ctx, usages)
	res.Enriched = len(enriched)

	byUser := groupByUser(enriched)
	thresholds := s.resolveThresholds(ctx, byUser)
	res.Users = len(thresholds)

	s.evaluate(ctx, byUser, thresholds, &res)

	metrics.ObserveCycle(metrics.CycleCompleted, time.Since(start))
	s.log.Debugw("aggregation_cycle_done",
		"devices", res.Devices, "enriched", res.Enriched, "users", res.Users,
		"alerts", res.Alerts, "publish_failures", res.PublishFailures)
	return res
}

// queryWindow sums usage per device over w across all devices.
func (s *AggregationService) queryWindow(ctx context.Context, w models.Window) ([]models.DeviceEnergyUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	sums, err := s.store.SumByDevice(ctx, w, nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.DeviceEnergyUsage, 0, len(sums))
	for id, v := range sums {
		out = append(out, models.DeviceEnergyUsage{DeviceID: id, EnergyUsage: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

// enrich attaches the owning user. Records whose device cannot be resolved
// or has no owner are dropped.
func (s *AggregationService) enrich(ctx context.Context, usages []models.DeviceEnergyUsage) []models.DeviceEnergyUsage {
	out := usages[:0]
	for _, u := range usages {
		d, err := s.devices.GetDevice(ctx, u.DeviceID)
		if err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				s.log.Debugw("aggregation_device_unknown", "deviceId", u.DeviceID)
			} else {
				s.log.Warnw("aggregation_device_lookup_failed", "deviceId", u.DeviceID, "err", err)
			}
			continue
		}
		if d.UserID <= 0 {
			s.log.Debugw("aggregation_device_unowned", "deviceId", u.DeviceID)
			continue
		}
		owner := d.UserID
		u.UserID = &owner
		out = append(out, u)
	}
	return out
}

func groupByUser(usages []models.DeviceEnergyUsage) map[int64][]models.DeviceEnergyUsage {
	byUser := make(map[int64][]models.DeviceEnergyUsage)
	for _, u := range usages {
		if u.UserID == nil {
			continue
		}
		byUser[*u.UserID] = append(byUser[*u.UserID], u)
	}
	return byUser
}

// resolveThresholds looks up every grouped user. Users that cannot be
// resolved or have alerting disabled are left out.
func (s *AggregationService) resolveThresholds(ctx context.Context, byUser map[int64][]models.DeviceEnergyUsage) map[int64]models.UserThreshold {
	thresholds := make(map[int64]models.UserThreshold, len(byUser))
	for _, userID := range sortedKeys(byUser) {
		u, err := s.users.GetUser(ctx, userID)
		if err != nil {
			if !errors.Is(err, directory.ErrNotFound) {
				s.log.Warnw("aggregation_user_lookup_failed", "userId", userID, "err", err)
			}
			continue
		}
		if !u.AlertEnabled {
			continue
		}
		thresholds[userID] = models.UserThreshold{
			UserID:    userID,
			Threshold: u.EnergyAlertThreshold,
			Email:     u.Email,
		}
	}
	return thresholds
}

// evaluate alerts every resolved user whose total strictly exceeds the threshold.
func (s *AggregationService) evaluate(
	ctx context.Context,
	byUser map[int64][]models.DeviceEnergyUsage,
	thresholds map[int64]models.UserThreshold,
	res *CycleResult,
) {
	for _, userID := range sortedKeys(thresholds) {
		usages, ok := byUser[userID]
		if !ok {
			continue
		}
		th := thresholds[userID]
		res.Evaluated++

		var total float64
		for _, u := range usages {
			total += u.EnergyUsage
		}
		if total <= th.Threshold {
			s.log.Debugw("aggregation_user_within_threshold", "userId", userID, "total", total, "threshold", th.Threshold)
			continue
		}

		ev := models.AlertEvent{
			UserID:           userID,
			Message:          AlertMessage,
			Threshold:        th.Threshold,
			TotalEnergyUsage: total,
			Email:            th.Email,
		}
		published := s.publish(ctx, ev)
		res.Alerts++
		if !published {
			res.PublishFailures++
		}
		s.record(ctx, ev, published)
	}
}

func (s *AggregationService) publish(ctx context.Context, ev models.AlertEvent) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opts.PublishTimeout)
	defer cancel()
	if err := s.pub.Publish(ctx, ev); err != nil {
		metrics.AlertsPublished.WithLabelValues(metrics.ResultFailed).Inc()
		s.log.Errorw("alert_publish_failed", "userId", ev.UserID, "err", err)
		return false
	}
	metrics.AlertsPublished.WithLabelValues(metrics.ResultOK).Inc()
	s.log.Infow("alert_published", "userId", ev.UserID, "total", ev.TotalEnergyUsage, "threshold", ev.Threshold)
	return true
}

// record appends the alert to the history. Failures are logged only.
func (s *AggregationService) record(ctx context.Context, ev models.AlertEvent, published bool) {
	if s.alerts == nil {
		return
	}
	rec := models.AlertRecord{
		ID:               uuid.NewString(),
		UserID:           ev.UserID,
		Message:          ev.Message,
		Threshold:        ev.Threshold,
		TotalEnergyUsage: ev.TotalEnergyUsage,
		Email:            ev.Email,
		Published:        published,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.alerts.Append(ctx, rec); err != nil {
		s.log.Errorw("alert_record_failed", "userId", ev.UserID, "err", err)
	}
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
