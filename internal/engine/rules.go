package engine

import (
	"fmt"
	"time"

	"paroletrack/internal/geo"
	"paroletrack/internal/model"
)

// EvaluateZones runs every active zone of the device's individual
// against the reported position and returns the resulting findings.
// Zones are independent: one report can yield several findings.
func (e *Engine) EvaluateZones(device model.Device, pos model.GeoPoint, zones []model.GeofenceZone, now time.Time) []model.ViolationFinding {
	var findings []model.ViolationFinding
	for _, z := range zones {
		dist := geo.DistanceMeters(pos, z.Center)
		inside := dist <= z.RadiusM
		timeOK := zoneWindowContains(z, now)

		switch z.Kind {
		case model.ZoneAllowed:
			// Outside the allowed area during hours it must be respected.
			if !inside && timeOK {
				findings = append(findings, model.ViolationFinding{
					DeviceID:    device.ID,
					ZoneID:      z.ID,
					ZoneName:    z.Name,
					Kind:        model.AlertGeofenceViolation,
					Description: fmt.Sprintf("Outside allowed zone '%s'", z.Name),
					Location:    pos,
				})
			}
		case model.ZoneRestricted:
			// Containment alone triggers; the zone window is not consulted.
			if inside {
				findings = append(findings, model.ViolationFinding{
					DeviceID:    device.ID,
					ZoneID:      z.ID,
					ZoneName:    z.Name,
					Kind:        model.AlertGeofenceViolation,
					Description: fmt.Sprintf("Inside restricted zone '%s'", z.Name),
					Location:    pos,
				})
			}
		case model.ZoneHome:
			// Leaving home is only a violation during the global curfew
			// window, which is independent of the zone's own window.
			if !inside && e.inCurfew(now) {
				findings = append(findings, model.ViolationFinding{
					DeviceID:    device.ID,
					Kind:        model.AlertCurfewViolation,
					Description: "Outside home zone during curfew hours",
					Location:    pos,
				})
			}
		case model.ZoneWork, model.ZoneExclusion:
			// Reserved kinds: no evaluation rule yet.
		}
	}
	return findings
}

// inCurfew checks now against the configured nightly curfew window.
func (e *Engine) inCurfew(now time.Time) bool {
	start, ok1 := parseClock(e.cfg.CurfewStart)
	end, ok2 := parseClock(e.cfg.CurfewEnd)
	if !ok1 || !ok2 {
		return false
	}
	return windowContains(start, end, secondsOfDay(now))
}
