package api

import (
	"fmt"

	"paroletrack/internal/model"
)

// validateReport rejects malformed input before the engine runs.
// Zero coordinates are not a validation error; the engine treats them
// as "GPS not ready".
func validateReport(r *model.LocationReport) error {
	if r.DeviceID == "" {
		return fmt.Errorf("deviceId is required")
	}
	if r.Lat < -90 || r.Lat > 90 {
		return fmt.Errorf("lat must be in [-90,90]")
	}
	if r.Lng < -180 || r.Lng > 180 {
		return fmt.Errorf("lng must be in [-180,180]")
	}
	if r.BatteryLevel < 0 || r.BatteryLevel > 100 {
		return fmt.Errorf("batteryLevel must be in [0,100]")
	}
	if r.AccuracyM < 0 {
		return fmt.Errorf("accuracyM must be >= 0")
	}
	if r.Satellites < 0 {
		return fmt.Errorf("satellites must be >= 0")
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}
