package models

import "time"

// Window is a closed time range [Start, Stop] over which readings are summed.
type Window struct {
	Start time.Time
	Stop  time.Time
}

// LastWindow returns [now-d, now].
func LastWindow(now time.Time, d time.Duration) Window {
	return Window{Start: now.Add(-d), Stop: now}
}

// DeviceEnergyUsage is the per-device sum for one aggregation cycle.
// UserID stays nil until the device directory resolves the owner.
type DeviceEnergyUsage struct {
	DeviceID    int64
	EnergyUsage float64
	UserID      *int64
}

// UserThreshold holds the alerting preference of a user with alerts enabled.
type UserThreshold struct {
	UserID    int64
	Threshold float64
	Email     string
}

// DeviceUsage is one device line of a usage report.
type DeviceUsage struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Location       string  `json:"location"`
	UserID         int64   `json:"userId"`
	EnergyConsumed float64 `json:"energyConsumed"` // kWh over the window
}

// UsageReport is the per-device usage of a user over a window of days.
type UsageReport struct {
	UserID  int64         `json:"userId"`
	Devices []DeviceUsage `json:"devices"`
}
