package service

import (
	"context"
	"fmt"

	"energy_usage/internal/models"
	"energy_usage/internal/repository"
)

type IngestService struct {
	store repository.UsageStore
	opts  Options
}

func NewIngestService(store repository.UsageStore, opts Options) *IngestService {
	return &IngestService{store: store, opts: opts.withDefaults()}
}

// WriteReading stores one reading at its own timestamp. Errors are returned
// unretried so the bus redelivers the message.
func (s *IngestService) WriteReading(ctx context.Context, r models.Reading) error {
	if r.DeviceID <= 0 || r.Timestamp.IsZero() {
		return ErrInvalidReading
	}
	r.Timestamp = r.Timestamp.UTC()

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.store.WriteReading(ctx, r); err != nil {
		return fmt.Errorf("write reading for device %d: %w", r.DeviceID, err)
	}
	return nil
}
