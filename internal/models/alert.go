package models

import "time"

// AlertEvent is published when a user's hourly total exceeds their threshold.
type AlertEvent struct {
	UserID           int64   `json:"userId"`
	Message          string  `json:"message"`
	Threshold        float64 `json:"threshold"`
	TotalEnergyUsage float64 `json:"totalEnergyUsage"`
	Email            string  `json:"email"`
}

// AlertRecord is an alert history row.
type AlertRecord struct {
	ID               string    `json:"id"`
	UserID           int64     `json:"userId"`
	Message          string    `json:"message"`
	Threshold        float64   `json:"threshold"`
	TotalEnergyUsage float64   `json:"totalEnergyUsage"`
	Email            string    `json:"email"`
	Published        bool      `json:"published"` // false when the bus rejected the event
	CreatedAt        time.Time `json:"createdAt"`
}
