package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"paroletrack/internal/config"
	"paroletrack/internal/model"
	"paroletrack/internal/store"
)

type captureSink struct {
	mu     sync.Mutex
	alerts []model.Alert
}

func (c *captureSink) Enqueue(a model.Alert) {
	c.mu.Lock()
	c.alerts = append(c.alerts, a)
	c.mu.Unlock()
}

func (c *captureSink) kinds() []model.AlertKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.AlertKind, len(c.alerts))
	for i, a := range c.alerts {
		out[i] = a.Kind
	}
	return out
}

func seededMemory() *store.Memory {
	mem := store.NewMemory()
	mem.PutOfficer(model.Officer{ID: "off-1", Name: "Officer"})
	mem.PutIndividual(model.Individual{ID: "ind-1", Name: "Subject", AssignedOfficerID: "off-1"})
	mem.PutDevice(model.Device{ID: "dev-1", IndividualID: "ind-1", Status: model.DeviceActive, BatteryLevel: 100})
	return mem
}

func pipelineFixture() (*Engine, *store.Memory, *captureSink, *time.Time) {
	mem := seededMemory()
	sink := &captureSink{}
	e := New(mem, config.Default().Engine, sink)
	// deterministic clock, noon so curfew stays quiet unless a test says so
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	return e, mem, sink, &now
}

func report(battery, speed float64) model.LocationReport {
	return model.LocationReport{
		DeviceID:     "dev-1",
		Lat:          40.0,
		Lng:          -74.0,
		SpeedKmh:     speed,
		BatteryLevel: battery,
		Timestamp:    time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestProcessReportZeroCoordinatesIgnored(t *testing.T) {
	e, mem, sink, _ := pipelineFixture()
	r := report(90, 0)
	r.Lat, r.Lng = 0, 0
	res, err := e.ProcessReport(context.Background(), r)
	if err != nil {
		t.Fatalf("ProcessReport: %v", err)
	}
	if res.Status != StatusIgnored || res.Warning == "" {
		t.Fatalf("want ignored with warning, got %+v", res)
	}
	// Nothing recorded anywhere: no position, no history, no device touch.
	if pos, _ := mem.ListCurrentPositions(context.Background()); len(pos) != 0 {
		t.Fatalf("zero-coordinate report must not write a position: %+v", pos)
	}
	d, _ := mem.GetDevice(context.Background(), "dev-1")
	if d.LastContact != nil {
		t.Fatal("zero-coordinate report must not update the device")
	}
	if len(sink.alerts) != 0 {
		t.Fatalf("no alerts expected, got %+v", sink.alerts)
	}
}

func TestProcessReportUnknownDevice(t *testing.T) {
	e, _, _, _ := pipelineFixture()
	r := report(90, 0)
	r.DeviceID = "ghost"
	_, err := e.ProcessReport(context.Background(), r)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestProcessReportUpdatesDeviceAndPosition(t *testing.T) {
	e, mem, _, _ := pipelineFixture()
	res, err := e.ProcessReport(context.Background(), report(80, 30))
	if err != nil {
		t.Fatalf("ProcessReport: %v", err)
	}
	if res.Status != StatusProcessed {
		t.Fatalf("want processed, got %+v", res)
	}
	d, _ := mem.GetDevice(context.Background(), "dev-1")
	if d.BatteryLevel != 80 || d.LastContact == nil || d.Status != model.DeviceActive {
		t.Fatalf("device not updated: %+v", d)
	}
	pos, _ := mem.ListCurrentPositions(context.Background())
	if len(pos) != 1 || pos[0].Lat != 40.0 {
		t.Fatalf("current position not written: %+v", pos)
	}
	if !res.HistorySaved {
		t.Fatal("first report must be retained in history")
	}
	last, _ := mem.LatestHistory(context.Background(), "dev-1")
	if last == nil || pos[0].Timestamp.Before(last.Timestamp) {
		t.Fatalf("current position timestamp must be >= newest history record")
	}
}

func TestProcessReportHistoryThinning(t *testing.T) {
	e, mem, _, nowp := pipelineFixture()
	if _, err := e.ProcessReport(context.Background(), report(90, 0)); err != nil {
		t.Fatalf("first report: %v", err)
	}
	// Same spot 4 minutes later: current position only.
	*nowp = nowp.Add(4 * time.Minute)
	res, err := e.ProcessReport(context.Background(), report(90, 0))
	if err != nil {
		t.Fatalf("second report: %v", err)
	}
	if res.HistorySaved {
		t.Fatal("stationary sample inside the interval must not be retained")
	}
	// One minute later but ~67 m north: retained.
	*nowp = nowp.Add(1 * time.Minute)
	moved := report(90, 0)
	moved.Lat += 0.0006
	res, err = e.ProcessReport(context.Background(), moved)
	if err != nil {
		t.Fatalf("third report: %v", err)
	}
	if !res.HistorySaved {
		t.Fatal("60+ m of movement must be retained")
	}
	recs, _ := mem.ListHistory(context.Background(), "dev-1", 0)
	if len(recs) != 2 {
		t.Fatalf("want 2 history records, got %d", len(recs))
	}
}

func TestLowBatteryAlertAndDedup(t *testing.T) {
	e, mem, sink, nowp := pipelineFixture()
	if _, err := e.ProcessReport(context.Background(), report(10, 0)); err != nil {
		t.Fatalf("first low-battery report: %v", err)
	}
	d, _ := mem.GetDevice(context.Background(), "dev-1")
	if d.Status != model.DeviceLowBattery {
		t.Fatalf("device status should be low_battery, got %s", d.Status)
	}
	// 10 minutes later, still low: suppressed by the dedup window.
	*nowp = nowp.Add(10 * time.Minute)
	if _, err := e.ProcessReport(context.Background(), report(9, 0)); err != nil {
		t.Fatalf("second low-battery report: %v", err)
	}
	if got := len(sink.alerts); got != 1 {
		t.Fatalf("dedup window: want 1 alert, got %d (%v)", got, sink.kinds())
	}
	// 3 hours after the first alert: the window has lapsed, alert again.
	*nowp = nowp.Add(3 * time.Hour)
	if _, err := e.ProcessReport(context.Background(), report(8, 0)); err != nil {
		t.Fatalf("third low-battery report: %v", err)
	}
	if got := len(sink.alerts); got != 2 {
		t.Fatalf("after window: want 2 alerts, got %d", got)
	}
}

func TestLowBatteryRecovery(t *testing.T) {
	e, mem, _, nowp := pipelineFixture()
	if _, err := e.ProcessReport(context.Background(), report(10, 0)); err != nil {
		t.Fatal(err)
	}
	// 22% is above the threshold but below recover: status stays flagged.
	*nowp = nowp.Add(time.Minute)
	if _, err := e.ProcessReport(context.Background(), report(22, 0)); err != nil {
		t.Fatal(err)
	}
	d, _ := mem.GetDevice(context.Background(), "dev-1")
	if d.Status != model.DeviceLowBattery {
		t.Fatalf("22%% must not clear low_battery, got %s", d.Status)
	}
	*nowp = nowp.Add(time.Minute)
	if _, err := e.ProcessReport(context.Background(), report(30, 0)); err != nil {
		t.Fatal(err)
	}
	d, _ = mem.GetDevice(context.Background(), "dev-1")
	if d.Status != model.DeviceActive {
		t.Fatalf("30%% must recover to active, got %s", d.Status)
	}
}

func TestSpeedViolationBoundary(t *testing.T) {
	e, _, sink, _ := pipelineFixture()
	if _, err := e.ProcessReport(context.Background(), report(90, 120)); err != nil {
		t.Fatal(err)
	}
	if len(sink.alerts) != 0 {
		t.Fatalf("120 km/h is at the limit, no alert expected: %v", sink.kinds())
	}
	if _, err := e.ProcessReport(context.Background(), report(90, 121)); err != nil {
		t.Fatal(err)
	}
	if len(sink.alerts) != 1 || sink.alerts[0].Kind != model.AlertSpeedViolation {
		t.Fatalf("121 km/h must alert: %v", sink.kinds())
	}
	// Speed alerts are never deduped.
	if _, err := e.ProcessReport(context.Background(), report(90, 122)); err != nil {
		t.Fatal(err)
	}
	if len(sink.alerts) != 2 {
		t.Fatalf("speed alerts must not dedup: %v", sink.kinds())
	}
}

func TestGeofenceAlertsFromZones(t *testing.T) {
	e, mem, sink, nowp := pipelineFixture()
	mem.PutZone(model.GeofenceZone{
		ID: "z-allowed", Name: "County", Kind: model.ZoneAllowed, IndividualID: "ind-1",
		Center: model.GeoPoint{Lat: 0, Lng: 0}, RadiusM: 100, Active: true,
	})
	mem.PutZone(model.GeofenceZone{
		ID: "z-home", Name: "Home", Kind: model.ZoneHome, IndividualID: "ind-1",
		Center: model.GeoPoint{Lat: 0, Lng: 0}, RadiusM: 100, Active: true,
	})
	// 23:00, ~1111 m from both centers: allowed-zone violation plus curfew.
	*nowp = time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	r := report(90, 0)
	r.Lat, r.Lng = 0, 0.01
	res, err := e.ProcessReport(context.Background(), r)
	if err != nil {
		t.Fatalf("ProcessReport: %v", err)
	}
	var geofence, curfew int
	for _, a := range res.Alerts {
		switch a.Kind {
		case model.AlertGeofenceViolation:
			geofence++
			if a.Severity != model.SeverityHigh {
				t.Fatalf("geofence alert severity: %s", a.Severity)
			}
			if a.Location == nil || a.Location.Lng != 0.01 {
				t.Fatalf("geofence alert location: %+v", a.Location)
			}
		case model.AlertCurfewViolation:
			curfew++
			if a.Severity != model.SeverityHigh {
				t.Fatalf("curfew alert severity: %s", a.Severity)
			}
		}
	}
	if geofence != 1 || curfew != 1 {
		t.Fatalf("want 1 geofence + 1 curfew alert, got %v", sink.kinds())
	}
	// Both persisted and both handed to the sink.
	listed, _ := mem.ListAlerts(context.Background(), store.AlertFilter{})
	if len(listed) != 2 || len(sink.alerts) != 2 {
		t.Fatalf("persisted=%d enqueued=%d, want 2/2", len(listed), len(sink.alerts))
	}
}

func TestGeofenceAlertsNeverDeduped(t *testing.T) {
	e, mem, sink, _ := pipelineFixture()
	mem.PutZone(model.GeofenceZone{
		ID: "z1", Name: "Forbidden", Kind: model.ZoneRestricted, IndividualID: "ind-1",
		Center: model.GeoPoint{Lat: 40, Lng: -74}, RadiusM: 5000, Active: true,
	})
	for i := 0; i < 3; i++ {
		if _, err := e.ProcessReport(context.Background(), report(90, 0)); err != nil {
			t.Fatal(err)
		}
	}
	// Continued violation: every report stays visible.
	if len(sink.alerts) != 3 {
		t.Fatalf("want 3 alerts for continued violation, got %d", len(sink.alerts))
	}
}

// faultStore fails selected writes to exercise the storage-error paths.
type faultStore struct {
	*store.Memory
	failUpsert bool
	failInsert bool
}

func (f *faultStore) UpsertCurrentPosition(ctx context.Context, pos model.CurrentPosition) error {
	if f.failUpsert {
		return errors.New("connection reset")
	}
	return f.Memory.UpsertCurrentPosition(ctx, pos)
}

func (f *faultStore) InsertAlert(ctx context.Context, a model.Alert) error {
	if f.failInsert {
		return errors.New("connection reset")
	}
	return f.Memory.InsertAlert(ctx, a)
}

func TestProcessReportPositionWriteFailure(t *testing.T) {
	fs := &faultStore{Memory: seededMemory(), failUpsert: true}
	sink := &captureSink{}
	e := New(fs, config.Default().Engine, sink)

	_, err := e.ProcessReport(context.Background(), report(90, 0))
	if err == nil {
		t.Fatal("position write failure must propagate")
	}
	// The report is not fully processed: no history, no alerts.
	if last, _ := fs.LatestHistory(context.Background(), "dev-1"); last != nil {
		t.Fatalf("history written after failed position upsert: %+v", last)
	}
	if len(sink.alerts) != 0 {
		t.Fatalf("no alerts expected, got %v", sink.kinds())
	}
}

func TestProcessReportAlertWriteFailure(t *testing.T) {
	fs := &faultStore{Memory: seededMemory(), failInsert: true}
	sink := &captureSink{}
	e := New(fs, config.Default().Engine, sink)

	// Battery 10 forces a low_battery alert, whose write fails.
	_, err := e.ProcessReport(context.Background(), report(10, 0))
	if err == nil {
		t.Fatal("alert write failure must propagate")
	}
	// A failed alert write must never reach the notification sink.
	if len(sink.alerts) != 0 {
		t.Fatalf("unpersisted alert enqueued: %v", sink.kinds())
	}
	if listed, _ := fs.ListAlerts(context.Background(), store.AlertFilter{}); len(listed) != 0 {
		t.Fatalf("alert persisted despite failing store: %+v", listed)
	}
}

func TestConcurrentReportsDifferentDevices(t *testing.T) {
	e, mem, _, _ := pipelineFixture()
	mem.PutDevice(model.Device{ID: "dev-2", IndividualID: "ind-1", Status: model.DeviceActive, BatteryLevel: 100})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		dev := "dev-1"
		if i%2 == 0 {
			dev = "dev-2"
		}
		go func(dev string) {
			defer wg.Done()
			r := report(90, 0)
			r.DeviceID = dev
			if _, err := e.ProcessReport(context.Background(), r); err != nil {
				t.Errorf("ProcessReport(%s): %v", dev, err)
			}
		}(dev)
	}
	wg.Wait()
	pos, _ := mem.ListCurrentPositions(context.Background())
	if len(pos) != 2 {
		t.Fatalf("want positions for both devices, got %d", len(pos))
	}
}
