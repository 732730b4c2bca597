package store

import (
	"context"
	"errors"
	"time"

	"paroletrack/internal/model"
)

// Store is the persistence interface the engine and API depend on.
type Store interface {
	// Devices
	GetDevice(ctx context.Context, deviceID string) (model.Device, error)
	UpdateDevice(ctx context.Context, d model.Device) error
	ListDevices(ctx context.Context) ([]model.Device, error)

	// Individuals, officers, preferences
	GetIndividual(ctx context.Context, id string) (model.Individual, error)
	GetOfficer(ctx context.Context, id string) (model.Officer, error)
	GetPreferences(ctx context.Context, officerID string) (model.NotificationPreferences, error)

	// Zones
	ActiveZonesForIndividual(ctx context.Context, individualID string) ([]model.GeofenceZone, error)

	// Positions
	UpsertCurrentPosition(ctx context.Context, pos model.CurrentPosition) error
	ListCurrentPositions(ctx context.Context) ([]model.CurrentPosition, error)

	// History (append-only)
	AppendHistory(ctx context.Context, rec model.HistoryRecord) error
	LatestHistory(ctx context.Context, deviceID string) (*model.HistoryRecord, error)
	ListHistory(ctx context.Context, deviceID string, limit int) ([]model.HistoryRecord, error)

	// Alerts
	InsertAlert(ctx context.Context, a model.Alert) error
	GetAlert(ctx context.Context, id string) (model.Alert, error)
	// HasRecentOpenAlert is the dedup lookback: an alert of the given
	// kind for the device with status new/acknowledged created at or
	// after since.
	HasRecentOpenAlert(ctx context.Context, deviceID string, kind model.AlertKind, since time.Time) (bool, error)
	ListAlerts(ctx context.Context, f AlertFilter) ([]model.Alert, error)
	UpdateAlert(ctx context.Context, a model.Alert) error
}

// AlertFilter narrows ListAlerts; zero values mean "any".
type AlertFilter struct {
	Status       model.AlertStatus
	Kind         model.AlertKind
	IndividualID string
	Limit        int
}

var ErrNotFound = errors.New("not found")
