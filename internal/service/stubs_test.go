package service

import (
	"context"
	"sync"
	"time"

	"energy_usage/internal/directory"
	"energy_usage/internal/models"
)

// ---- Test doubles ----

// storeStub is a minimal stub for repository.UsageStore.
type storeStub struct {
	mu      sync.Mutex
	sums    map[int64]float64
	err     error
	writes  []models.Reading
	queries []storeQuery
	block   chan struct{} // when set, SumByDevice waits on it
	entered chan struct{}
}

type storeQuery struct {
	w   models.Window
	ids []int64
}

func (s *storeStub) WriteReading(ctx context.Context, r models.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, r)
	return s.err
}

func (s *storeStub) SumByDevice(ctx context.Context, w models.Window, ids []int64) (map[int64]float64, error) {
	s.mu.Lock()
	s.queries = append(s.queries, storeQuery{w: w, ids: ids})
	s.mu.Unlock()
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[int64]float64, len(s.sums))
	for k, v := range s.sums {
		out[k] = v
	}
	return out, nil
}

// alertLogStub is a minimal stub for repository.AlertLog.
type alertLogStub struct {
	appended  []models.AlertRecord
	appendErr error

	listed  []models.AlertRecord
	listErr error
	gotUser int64
	gotFrom time.Time
	gotTo   time.Time
	calls   int
}

func (a *alertLogStub) Append(ctx context.Context, r models.AlertRecord) error {
	a.appended = append(a.appended, r)
	return a.appendErr
}

func (a *alertLogStub) ListByUser(ctx context.Context, userID int64, from, to time.Time) ([]models.AlertRecord, error) {
	a.calls++
	a.gotUser, a.gotFrom, a.gotTo = userID, from, to
	return a.listed, a.listErr
}

// deviceDirStub resolves devices from a map; errs overrides per id.
type deviceDirStub struct {
	devices   map[int64]models.Device
	errs      map[int64]error
	byUser    map[int64][]models.Device
	byUserErr error
	lookups   int
}

func (d *deviceDirStub) GetDevice(ctx context.Context, id int64) (models.Device, error) {
	d.lookups++
	if err, ok := d.errs[id]; ok {
		return models.Device{}, err
	}
	dev, ok := d.devices[id]
	if !ok {
		return models.Device{}, directory.ErrNotFound
	}
	return dev, nil
}

func (d *deviceDirStub) DevicesForUser(ctx context.Context, userID int64) ([]models.Device, error) {
	if d.byUserErr != nil {
		return nil, d.byUserErr
	}
	return d.byUser[userID], nil
}

type userDirStub struct {
	users  map[int64]models.User
	errs   map[int64]error
	lookup []int64
}

func (u *userDirStub) GetUser(ctx context.Context, id int64) (models.User, error) {
	u.lookup = append(u.lookup, id)
	if err, ok := u.errs[id]; ok {
		return models.User{}, err
	}
	usr, ok := u.users[id]
	if !ok {
		return models.User{}, directory.ErrNotFound
	}
	return usr, nil
}

// publisherStub records published events; failFor makes Publish fail for a user.
type publisherStub struct {
	mu        sync.Mutex
	events    []models.AlertEvent
	failFor   map[int64]error
	deadlines []time.Duration // time left on ctx per call, -1 when none
}

func (p *publisherStub) Publish(ctx context.Context, e models.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	left := time.Duration(-1)
	if dl, ok := ctx.Deadline(); ok {
		left = time.Until(dl)
	}
	p.deadlines = append(p.deadlines, left)
	if err, ok := p.failFor[e.UserID]; ok {
		return err
	}
	p.events = append(p.events, e)
	return nil
}

var fixedNow = time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

func device(id, userID int64, name string) models.Device {
	return models.Device{ID: id, Name: name, Type: "appliance", Location: "kitchen", UserID: userID}
}
