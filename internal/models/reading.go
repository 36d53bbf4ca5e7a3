package models

import "time"

// Reading is one timestamped energy-usage sample for a device.
type Reading struct {
	DeviceID    int64     `json:"deviceId"`
	EnergyUsage float64   `json:"energyUsage"` // kWh
	Timestamp   time.Time `json:"timestamp"`
}
