package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"energy_usage/internal/models"
)

// ErrMalformed marks a message that can never be decoded.
var ErrMalformed = errors.New("malformed reading")

// readingMessage is the energy-usage topic payload. Producers disagree on
// number vs string ids and on timestamp shape, so both are accepted.
type readingMessage struct {
	DeviceID    json.RawMessage `json:"deviceId"`
	EnergyUsage *float64        `json:"energyUsage"`
	Timestamp   json.RawMessage `json:"timestamp"`
}

// DecodeReading parses one energy-usage message.
func DecodeReading(b []byte) (models.Reading, error) {
	var m readingMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return models.Reading{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	id, err := parseID(m.DeviceID)
	if err != nil {
		return models.Reading{}, fmt.Errorf("%w: deviceId: %v", ErrMalformed, err)
	}
	if m.EnergyUsage == nil {
		return models.Reading{}, fmt.Errorf("%w: energyUsage missing", ErrMalformed)
	}
	ts, err := parseTimestamp(m.Timestamp)
	if err != nil {
		return models.Reading{}, fmt.Errorf("%w: timestamp: %v", ErrMalformed, err)
	}
	return models.Reading{DeviceID: id, EnergyUsage: *m.EnergyUsage, Timestamp: ts}, nil
}

func parseID(raw json.RawMessage) (int64, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, errors.New("missing")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("non-positive id %d", id)
	}
	return id, nil
}

var timestampLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z07:00"}

// parseTimestamp accepts an ISO-8601 string or epoch milliseconds.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, errors.New("missing")
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}, err
		}
		for _, l := range timestampLayouts {
			if ts, err := time.Parse(l, str); err == nil {
				return ts.UTC(), nil
			}
		}
		s = str
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	return time.UnixMilli(ms).UTC(), nil
}
