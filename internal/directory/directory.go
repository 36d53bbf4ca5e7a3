// Package directory talks to the device and user directory services.
package directory

import (
	"context"
	"errors"

	"energy_usage/internal/models"
)

// ErrNotFound is returned when a directory has no record for the id.
var ErrNotFound = errors.New("directory: not found")

// DeviceDirectory resolves devices and their owners.
type DeviceDirectory interface {
	GetDevice(ctx context.Context, id int64) (models.Device, error)
	// DevicesForUser returns the user's devices in directory order; empty if none.
	DevicesForUser(ctx context.Context, userID int64) ([]models.Device, error)
}

// UserDirectory resolves user alerting preferences.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
}

// Directories bundles both lookups.
type Directories struct {
	Devices DeviceDirectory
	Users   UserDirectory
}
