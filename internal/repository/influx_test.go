package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"energy_usage/internal/models"
)

type writerStub struct {
	measurement string
	field       string
	got         []models.Reading
	err         error
}

func (w *writerStub) WriteReading(_ context.Context, measurement, field string, r models.Reading) error {
	w.measurement, w.field = measurement, field
	w.got = append(w.got, r)
	return w.err
}

type querierStub struct {
	queries []string
	rows    [][]sumRow // one entry per call
	err     error
}

func (q *querierStub) QueryRows(_ context.Context, flux string) ([]sumRow, error) {
	q.queries = append(q.queries, flux)
	if q.err != nil {
		return nil, q.err
	}
	i := len(q.queries) - 1
	if i >= len(q.rows) {
		return nil, nil
	}
	return q.rows[i], nil
}

var testOpts = InfluxOptions{Bucket: "energy-usage", Measurement: "energy_usage", Field: "energyUsage", MaxFilterDevices: 2}

func TestInfluxStore_WriteReading(t *testing.T) {
	w := &writerStub{}
	s := newInfluxStore(w, &querierStub{}, testOpts, nil)
	ts := time.Date(2025, 1, 1, 12, 0, 0, 123_000_000, time.UTC)

	if err := s.WriteReading(context.Background(), models.Reading{DeviceID: 7, EnergyUsage: 2.5, Timestamp: ts}); err != nil {
		t.Fatalf("WriteReading: %v", err)
	}
	if w.measurement != "energy_usage" || w.field != "energyUsage" {
		t.Fatalf("unexpected point target: %s/%s", w.measurement, w.field)
	}
	if len(w.got) != 1 || !w.got[0].Timestamp.Equal(ts) {
		t.Fatalf("point must carry reading timestamp: %+v", w.got)
	}

	w.err = errors.New("influx down")
	err := s.WriteReading(context.Background(), models.Reading{DeviceID: 9})
	if err == nil || !strings.Contains(err.Error(), "device 9") {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
}

func TestInfluxStore_SumByDevice_AllDevices(t *testing.T) {
	q := &querierStub{rows: [][]sumRow{{
		{DeviceID: "7", Value: 5.0},
		{DeviceID: "8", Value: int64(3)},
		{DeviceID: "bogus", Value: 100.0},
		{DeviceID: nil, Value: 1.0},
		{DeviceID: "9", Value: "nan"},
	}}}
	s := newInfluxStore(&writerStub{}, q, testOpts, nil)

	got, err := s.SumByDevice(context.Background(), models.Window{}, nil)
	if err != nil {
		t.Fatalf("SumByDevice: %v", err)
	}
	if len(q.queries) != 1 {
		t.Fatalf("want 1 query, got %d", len(q.queries))
	}
	if strings.Contains(q.queries[0], `r["deviceId"] ==`) {
		t.Fatalf("unfiltered query must not restrict devices:\n%s", q.queries[0])
	}
	want := map[int64]float64{7: 5.0, 8: 3.0, 9: 0}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for id, v := range want {
		if got[id] != v {
			t.Fatalf("device %d: want %v, got %v", id, v, got[id])
		}
	}
}

func TestInfluxStore_SumByDevice_BatchesFilter(t *testing.T) {
	q := &querierStub{rows: [][]sumRow{
		{{DeviceID: "1", Value: 1.0}, {DeviceID: "2", Value: 2.0}},
		{{DeviceID: "3", Value: 3.0}},
	}}
	s := newInfluxStore(&writerStub{}, q, testOpts, nil)

	got, err := s.SumByDevice(context.Background(), models.Window{}, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("SumByDevice: %v", err)
	}
	if len(q.queries) != 2 {
		t.Fatalf("want 2 batched queries, got %d", len(q.queries))
	}
	if !strings.Contains(q.queries[1], `r["deviceId"] == "3"`) || strings.Contains(q.queries[1], `"1"`) {
		t.Fatalf("second batch must only filter device 3:\n%s", q.queries[1])
	}
	if got[1] != 1 || got[2] != 2 || got[3] != 3 {
		t.Fatalf("unexpected merge: %v", got)
	}
}

func TestInfluxStore_SumByDevice_QueryError(t *testing.T) {
	s := newInfluxStore(&writerStub{}, &querierStub{err: errors.New("timeout")}, testOpts, nil)
	if _, err := s.SumByDevice(context.Background(), models.Window{}, nil); err == nil {
		t.Fatalf("expected error")
	}
}
