package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"paroletrack/internal/metrics"
	"paroletrack/internal/model"
)

// Alert creation. Every alert persisted here is immediately handed to
// the notification sink; persistence is authoritative regardless of
// what happens on the notification path.

func (e *Engine) alertFromFinding(ctx context.Context, device model.Device, f model.ViolationFinding) (model.Alert, error) {
	title := "Curfew Violation"
	if f.Kind == model.AlertGeofenceViolation {
		title = fmt.Sprintf("Geofence Violation - %s", f.ZoneName)
	}
	loc := f.Location
	a := model.Alert{
		ID:           uuid.New().String(),
		IndividualID: device.IndividualID,
		DeviceID:     device.ID,
		Kind:         f.Kind,
		Severity:     model.SeverityHigh,
		Status:       model.AlertNew,
		Title:        title,
		Description:  f.Description,
		Location:     &loc,
		CreatedAt:    e.now(),
	}
	// Never deduped: successive reports represent continued violation
	// and each one must stay visible.
	return a, e.createAlert(ctx, a)
}

// lowBatteryAlert returns nil when an open low_battery alert inside
// the dedup window already covers the condition.
func (e *Engine) lowBatteryAlert(ctx context.Context, device model.Device) (*model.Alert, error) {
	since := e.now().Add(-time.Duration(e.cfg.DedupWindowMin) * time.Minute)
	dup, err := e.store.HasRecentOpenAlert(ctx, device.ID, model.AlertLowBattery, since)
	if err != nil {
		return nil, err
	}
	if dup {
		metrics.AlertsSuppressed.WithLabelValues(string(model.AlertLowBattery)).Inc()
		return nil, nil
	}
	a := model.Alert{
		ID:           uuid.New().String(),
		IndividualID: device.IndividualID,
		DeviceID:     device.ID,
		Kind:         model.AlertLowBattery,
		Severity:     model.SeverityMedium,
		Status:       model.AlertNew,
		Title:        "Device Low Battery",
		Description:  fmt.Sprintf("Device battery level is %.0f%%", device.BatteryLevel),
		CreatedAt:    e.now(),
	}
	if err := e.createAlert(ctx, a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (e *Engine) speedAlert(ctx context.Context, device model.Device, speedKmh float64) (model.Alert, error) {
	a := model.Alert{
		ID:           uuid.New().String(),
		IndividualID: device.IndividualID,
		DeviceID:     device.ID,
		Kind:         model.AlertSpeedViolation,
		Severity:     model.SeverityMedium,
		Status:       model.AlertNew,
		Title:        "Speed Violation",
		Description:  fmt.Sprintf("Speed exceeded limit: %.0f km/h", speedKmh),
		CreatedAt:    e.now(),
	}
	return a, e.createAlert(ctx, a)
}

// offlineAlert is raised by the sweeper for devices that stopped
// reporting; it shares the open-alert dedup window so a silent device
// is flagged once, not every sweep.
func (e *Engine) offlineAlert(ctx context.Context, device model.Device) (*model.Alert, error) {
	since := e.now().Add(-time.Duration(e.cfg.DedupWindowMin) * time.Minute)
	dup, err := e.store.HasRecentOpenAlert(ctx, device.ID, model.AlertDeviceOffline, since)
	if err != nil {
		return nil, err
	}
	if dup {
		metrics.AlertsSuppressed.WithLabelValues(string(model.AlertDeviceOffline)).Inc()
		return nil, nil
	}
	desc := "Device has not reported"
	if device.LastContact != nil {
		desc = fmt.Sprintf("Device has not reported since %s", device.LastContact.UTC().Format(time.RFC3339))
	}
	a := model.Alert{
		ID:           uuid.New().String(),
		IndividualID: device.IndividualID,
		DeviceID:     device.ID,
		Kind:         model.AlertDeviceOffline,
		Severity:     model.SeverityHigh,
		Status:       model.AlertNew,
		Title:        "Device Offline",
		Description:  desc,
		CreatedAt:    e.now(),
	}
	if err := e.createAlert(ctx, a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (e *Engine) createAlert(ctx context.Context, a model.Alert) error {
	if err := e.store.InsertAlert(ctx, a); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	metrics.AlertsCreated.WithLabelValues(string(a.Kind)).Inc()
	e.sink.Enqueue(a)
	return nil
}
