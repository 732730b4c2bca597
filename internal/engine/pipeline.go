// Package engine implements the geofence rule evaluation and alert
// pipeline: one location report in, zero or more alerts out.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"paroletrack/internal/config"
	"paroletrack/internal/metrics"
	"paroletrack/internal/model"
	"paroletrack/internal/store"
)

// AlertSink receives every persisted alert for notification dispatch.
// Enqueue must not block.
type AlertSink interface {
	Enqueue(a model.Alert)
}

// NopSink discards alerts; used when dispatch is disabled.
type NopSink struct{}

func (NopSink) Enqueue(model.Alert) {}

// Engine evaluates location reports against zone policy and device
// health rules. Reports for the same device are serialized internally;
// different devices process in parallel.
type Engine struct {
	store store.Store
	cfg   config.Engine
	sink  AlertSink
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-device serialization
}

func New(s store.Store, cfg config.Engine, sink AlertSink) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		store: s,
		cfg:   cfg,
		sink:  sink,
		now:   time.Now,
		locks: map[string]*sync.Mutex{},
	}
}

type ResultStatus string

const (
	// StatusProcessed: the report ran through the full pipeline.
	StatusProcessed ResultStatus = "processed"
	// StatusIgnored: accepted but recorded nowhere (GPS not ready).
	StatusIgnored ResultStatus = "ignored"
)

// Result describes what one report produced.
type Result struct {
	Status       ResultStatus  `json:"status"`
	Warning      string        `json:"warning,omitempty"`
	Alerts       []model.Alert `json:"alerts,omitempty"`
	HistorySaved bool          `json:"historySaved"`
}

// ProcessReport runs the pipeline for one report: device health update,
// current-position upsert, conditional history append, zone rules,
// alert creation, notification enqueue. Storage failures propagate as
// errors and leave the report not fully processed; an unknown device
// surfaces store.ErrNotFound.
func (e *Engine) ProcessReport(ctx context.Context, r model.LocationReport) (Result, error) {
	// Both coordinates exactly zero means the GPS fix is not ready.
	// Accepted but recorded nowhere: no position, no history, no alert.
	if r.Lat == 0 && r.Lng == 0 {
		metrics.ReportsProcessed.WithLabelValues("ignored").Inc()
		return Result{Status: StatusIgnored, Warning: "zero coordinates, GPS may not be ready"}, nil
	}

	unlock := e.lockDevice(r.DeviceID)
	defer unlock()

	device, err := e.store.GetDevice(ctx, r.DeviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.ReportsProcessed.WithLabelValues("unknown_device").Inc()
		} else {
			metrics.ReportsProcessed.WithLabelValues("error").Inc()
		}
		return Result{}, fmt.Errorf("lookup device %s: %w", r.DeviceID, err)
	}

	res := Result{Status: StatusProcessed}
	now := e.now()

	// Device health: battery level, status transitions, last contact.
	device.BatteryLevel = r.BatteryLevel
	device.LastContact = &now
	var lowBattery bool
	switch {
	case r.BatteryLevel < e.cfg.LowBatteryThreshold:
		device.Status = model.DeviceLowBattery
		lowBattery = true
	case device.Status == model.DeviceLowBattery && r.BatteryLevel > e.cfg.LowBatteryRecover:
		device.Status = model.DeviceActive
	}
	if err := e.store.UpdateDevice(ctx, device); err != nil {
		metrics.ReportsProcessed.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("update device %s: %w", device.ID, err)
	}
	if lowBattery {
		a, err := e.lowBatteryAlert(ctx, device)
		if err != nil {
			metrics.ReportsProcessed.WithLabelValues("error").Inc()
			return Result{}, err
		}
		if a != nil {
			res.Alerts = append(res.Alerts, *a)
		}
	}

	sample := model.LocationSample{
		Lat:        r.Lat,
		Lng:        r.Lng,
		AltitudeM:  r.AltitudeM,
		SpeedKmh:   r.SpeedKmh,
		AccuracyM:  r.AccuracyM,
		Satellites: r.Satellites,
		Timestamp:  r.Timestamp,
	}

	if err := e.store.UpsertCurrentPosition(ctx, model.CurrentPosition{
		DeviceID:       device.ID,
		LocationSample: sample,
		UpdatedAt:      now,
	}); err != nil {
		metrics.ReportsProcessed.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("upsert position for %s: %w", device.ID, err)
	}

	last, err := e.store.LatestHistory(ctx, device.ID)
	if err != nil {
		metrics.ReportsProcessed.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("latest history for %s: %w", device.ID, err)
	}
	if e.shouldRetain(last, now, sample.Point()) {
		rec := model.HistoryRecord{DeviceID: device.ID, LocationSample: sample, StoredAt: now}
		if err := e.store.AppendHistory(ctx, rec); err != nil {
			metrics.ReportsProcessed.WithLabelValues("error").Inc()
			return Result{}, fmt.Errorf("append history for %s: %w", device.ID, err)
		}
		res.HistorySaved = true
	}

	zones, err := e.store.ActiveZonesForIndividual(ctx, device.IndividualID)
	if err != nil {
		metrics.ReportsProcessed.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("zones for %s: %w", device.IndividualID, err)
	}
	for _, f := range e.EvaluateZones(device, sample.Point(), zones, now) {
		a, err := e.alertFromFinding(ctx, device, f)
		if err != nil {
			metrics.ReportsProcessed.WithLabelValues("error").Inc()
			return Result{}, err
		}
		res.Alerts = append(res.Alerts, a)
	}

	if r.SpeedKmh > e.cfg.SpeedLimitKmh {
		a, err := e.speedAlert(ctx, device, r.SpeedKmh)
		if err != nil {
			metrics.ReportsProcessed.WithLabelValues("error").Inc()
			return Result{}, err
		}
		res.Alerts = append(res.Alerts, a)
	}

	metrics.ReportsProcessed.WithLabelValues("processed").Inc()
	return res, nil
}

// lockDevice serializes report processing per device so CurrentPosition
// cannot regress when a device retries or double-sends.
func (e *Engine) lockDevice(deviceID string) func() {
	e.mu.Lock()
	l, ok := e.locks[deviceID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[deviceID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}
