package engine

import (
	"testing"
	"time"

	"paroletrack/internal/config"
	"paroletrack/internal/model"
	"paroletrack/internal/store"
)

func testEngine() *Engine {
	return New(store.NewMemory(), config.Default().Engine, nil)
}

func TestAllowedZoneViolationOutside(t *testing.T) {
	e := testEngine()
	dev := model.Device{ID: "d1", IndividualID: "i1"}
	zones := []model.GeofenceZone{{
		ID: "z1", Name: "County", Kind: model.ZoneAllowed, Active: true,
		Center: model.GeoPoint{Lat: 0, Lng: 0}, RadiusM: 100,
	}}
	// (0, 0.01) is roughly 1111 m from the center, well outside 100 m.
	findings := e.EvaluateZones(dev, model.GeoPoint{Lat: 0, Lng: 0.01}, zones, monday(12, 0))
	if len(findings) != 1 {
		t.Fatalf("want 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Kind != model.AlertGeofenceViolation || f.ZoneID != "z1" {
		t.Fatalf("unexpected finding: %+v", f)
	}
}

func TestAllowedZoneNoViolationInside(t *testing.T) {
	e := testEngine()
	dev := model.Device{ID: "d1", IndividualID: "i1"}
	zones := []model.GeofenceZone{{
		ID: "z1", Name: "County", Kind: model.ZoneAllowed, Active: true,
		Center: model.GeoPoint{Lat: 0, Lng: 0}, RadiusM: 2000,
	}}
	if fs := e.EvaluateZones(dev, model.GeoPoint{Lat: 0, Lng: 0.01}, zones, monday(12, 0)); len(fs) != 0 {
		t.Fatalf("inside allowed zone, want 0 findings, got %+v", fs)
	}
}

func TestAllowedZoneOutsideButWindowInactive(t *testing.T) {
	e := testEngine()
	dev := model.Device{ID: "d1", IndividualID: "i1"}
	zones := []model.GeofenceZone{{
		ID: "z1", Name: "Work hours", Kind: model.ZoneAllowed, Active: true,
		Center: model.GeoPoint{Lat: 0, Lng: 0}, RadiusM: 100,
		StartTime: "09:00", EndTime: "17:00", Days: model.AllWeekdays,
	}}
	// Outside the zone at 20:00: the allowed window is not in force.
	if fs := e.EvaluateZones(dev, model.GeoPoint{Lat: 0, Lng: 0.01}, zones, monday(20, 0)); len(fs) != 0 {
		t.Fatalf("window inactive, want 0 findings, got %+v", fs)
	}
}

func TestRestrictedZoneIgnoresTimeWindow(t *testing.T) {
	e := testEngine()
	dev := model.Device{ID: "d1", IndividualID: "i1"}
	zones := []model.GeofenceZone{{
		ID: "z1", Name: "Schoolyard", Kind: model.ZoneRestricted, Active: true,
		Center: model.GeoPoint{Lat: 10, Lng: 10}, RadiusM: 500,
		StartTime: "09:00", EndTime: "10:00", Days: model.WeekdaySet(time.Friday),
	}}
	// Dead center on a Monday noon, outside the zone's own window:
	// restricted zones trigger on containment alone.
	fs := e.EvaluateZones(dev, model.GeoPoint{Lat: 10, Lng: 10}, zones, monday(12, 0))
	if len(fs) != 1 || fs[0].Kind != model.AlertGeofenceViolation {
		t.Fatalf("want 1 geofence finding, got %+v", fs)
	}

	// ~1000 m away from a 500 m zone: no finding.
	far := model.GeoPoint{Lat: 10.009, Lng: 10}
	if fs := e.EvaluateZones(dev, far, zones, monday(12, 0)); len(fs) != 0 {
		t.Fatalf("outside restricted zone, want 0 findings, got %+v", fs)
	}
}

func TestHomeZoneCurfew(t *testing.T) {
	e := testEngine()
	dev := model.Device{ID: "d1", IndividualID: "i1"}
	zones := []model.GeofenceZone{{
		ID: "z1", Name: "Home", Kind: model.ZoneHome, Active: true,
		Center: model.GeoPoint{Lat: 0, Lng: 0}, RadiusM: 200,
	}}
	away := model.GeoPoint{Lat: 0, Lng: 0.01}

	// Outside home at 23:00: curfew violation.
	fs := e.EvaluateZones(dev, away, zones, monday(23, 0))
	if len(fs) != 1 || fs[0].Kind != model.AlertCurfewViolation {
		t.Fatalf("want curfew finding, got %+v", fs)
	}
	// Curfew wraps midnight: 05:00 also violates.
	fs = e.EvaluateZones(dev, away, zones, monday(5, 0))
	if len(fs) != 1 || fs[0].Kind != model.AlertCurfewViolation {
		t.Fatalf("want curfew finding at 05:00, got %+v", fs)
	}
	// Outside home at 12:00: no curfew, no finding.
	if fs := e.EvaluateZones(dev, away, zones, monday(12, 0)); len(fs) != 0 {
		t.Fatalf("daytime absence from home is not a violation, got %+v", fs)
	}
	// Inside home during curfew: fine.
	if fs := e.EvaluateZones(dev, model.GeoPoint{Lat: 0, Lng: 0}, zones, monday(23, 0)); len(fs) != 0 {
		t.Fatalf("inside home during curfew, got %+v", fs)
	}
}

func TestReservedZoneKindsNotEvaluated(t *testing.T) {
	e := testEngine()
	dev := model.Device{ID: "d1", IndividualID: "i1"}
	zones := []model.GeofenceZone{
		{ID: "z1", Kind: model.ZoneWork, Active: true, Center: model.GeoPoint{}, RadiusM: 10},
		{ID: "z2", Kind: model.ZoneExclusion, Active: true, Center: model.GeoPoint{}, RadiusM: 10},
	}
	if fs := e.EvaluateZones(dev, model.GeoPoint{Lat: 50, Lng: 50}, zones, monday(23, 0)); len(fs) != 0 {
		t.Fatalf("work/exclusion are reserved kinds, got %+v", fs)
	}
}

func TestMultipleZonesYieldIndependentFindings(t *testing.T) {
	e := testEngine()
	dev := model.Device{ID: "d1", IndividualID: "i1"}
	zones := []model.GeofenceZone{
		{ID: "z1", Name: "Allowed", Kind: model.ZoneAllowed, Active: true,
			Center: model.GeoPoint{Lat: 1, Lng: 1}, RadiusM: 100},
		{ID: "z2", Name: "Forbidden", Kind: model.ZoneRestricted, Active: true,
			Center: model.GeoPoint{Lat: 0, Lng: 0}, RadiusM: 5000},
	}
	// At (0,0): outside the allowed zone and inside the restricted one.
	fs := e.EvaluateZones(dev, model.GeoPoint{Lat: 0, Lng: 0}, zones, monday(12, 0))
	if len(fs) != 2 {
		t.Fatalf("want 2 independent findings, got %+v", fs)
	}
}
