package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"energy_usage/internal/logger"
	"energy_usage/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// sumRow is one (deviceId, _value) record of a grouped sum query.
type sumRow struct {
	DeviceID any
	Value    any
}

// pointWriter and rowQuerier isolate the influx client so the store can be
// exercised without a server.
type pointWriter interface {
	WriteReading(ctx context.Context, measurement, field string, r models.Reading) error
}

type rowQuerier interface {
	QueryRows(ctx context.Context, flux string) ([]sumRow, error)
}

// InfluxStore implements UsageStore on top of InfluxDB 2.x.
type InfluxStore struct {
	writer      pointWriter
	querier     rowQuerier
	bucket      string
	measurement string
	field       string
	maxFilter   int
	log         *logger.Logger
}

// InfluxOptions names where energy points live.
type InfluxOptions struct {
	Bucket           string
	Measurement      string
	Field            string
	MaxFilterDevices int
}

// Ensure implementation of UsageStore interface at compile time.
var _ UsageStore = (*InfluxStore)(nil)

// NewInfluxStore builds a store over an influx client.
func NewInfluxStore(client influxdb2.Client, org string, opts InfluxOptions, log *logger.Logger) *InfluxStore {
	c := &influxClient{
		write: client.WriteAPIBlocking(org, opts.Bucket),
		query: client.QueryAPI(org),
	}
	return newInfluxStore(c, c, opts, log)
}

func newInfluxStore(w pointWriter, q rowQuerier, opts InfluxOptions, log *logger.Logger) *InfluxStore {
	if log == nil {
		log = logger.Nop()
	}
	return &InfluxStore{
		writer:      w,
		querier:     q,
		bucket:      opts.Bucket,
		measurement: opts.Measurement,
		field:       opts.Field,
		maxFilter:   opts.MaxFilterDevices,
		log:         log,
	}
}

// WriteReading appends one point tagged by device id at the reading's own timestamp.
func (s *InfluxStore) WriteReading(ctx context.Context, r models.Reading) error {
	if err := s.writer.WriteReading(ctx, s.measurement, s.field, r); err != nil {
		return fmt.Errorf("write reading for device %d: %w", r.DeviceID, err)
	}
	return nil
}

// SumByDevice returns deviceId -> summed usage over w. A non-empty ids list is
// queried in batches of maxFilter devices and the results are merged.
func (s *InfluxStore) SumByDevice(ctx context.Context, w models.Window, ids []int64) (map[int64]float64, error) {
	out := make(map[int64]float64)
	batches := [][]int64{nil}
	if len(ids) > 0 {
		batches = chunkIDs(ids, s.maxFilter)
	}
	for _, batch := range batches {
		q := BuildSumQuery(s.bucket, s.measurement, s.field, w, batch)
		rows, err := s.querier.QueryRows(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("query device sums: %w", err)
		}
		s.mergeRows(out, rows)
	}
	return out, nil
}

// mergeRows adds parsed rows into out. Rows with a malformed device id are skipped.
func (s *InfluxStore) mergeRows(out map[int64]float64, rows []sumRow) {
	for _, row := range rows {
		id, ok := parseDeviceID(row.DeviceID)
		if !ok {
			s.log.Warnw("flux_row_bad_device_id", "deviceId", row.DeviceID)
			continue
		}
		out[id] += toFloat(row.Value)
	}
}

func parseDeviceID(v any) (int64, bool) {
	switch t := v.(type) {
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return id, err == nil
	case int64:
		return t, true
	default:
		return 0, false
	}
}

// toFloat converts flux numeric values; anything else counts as zero.
func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	default:
		return 0
	}
}

// influxClient adapts the influx blocking write and query APIs.
type influxClient struct {
	write api.WriteAPIBlocking
	query api.QueryAPI
}

func (c *influxClient) WriteReading(ctx context.Context, measurement, field string, r models.Reading) error {
	p := influxdb2.NewPoint(
		measurement,
		map[string]string{deviceTag: strconv.FormatInt(r.DeviceID, 10)},
		map[string]interface{}{field: r.EnergyUsage},
		r.Timestamp,
	)
	return c.write.WritePoint(ctx, p)
}

func (c *influxClient) QueryRows(ctx context.Context, flux string) ([]sumRow, error) {
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Close() }()

	var rows []sumRow
	for res.Next() {
		rec := res.Record()
		rows = append(rows, sumRow{DeviceID: rec.ValueByKey(deviceTag), Value: rec.Value()})
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
