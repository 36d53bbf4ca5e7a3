package models

// Device is the device directory record.
type Device struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"` // REFRIGERATOR | TELEVISION | THERMOSTAT | ...
	Location string `json:"location"`
	UserID   int64  `json:"userId"`
}

// User is the user directory record. Only the alerting fields are used here.
type User struct {
	ID                   int64   `json:"id"`
	FirstName            string  `json:"firstName"`
	LastName             string  `json:"lastName"`
	Email                string  `json:"email"`
	Address              string  `json:"address"`
	AlertEnabled         bool    `json:"alertEnabled"`
	EnergyAlertThreshold float64 `json:"energyAlertThreshold"`
}
