package model

import "time"

// Core domain types shared by the engine, stores, and HTTP layer.

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type DeviceStatus string

const (
	DeviceActive      DeviceStatus = "active"
	DeviceInactive    DeviceStatus = "inactive"
	DeviceMaintenance DeviceStatus = "maintenance"
	DeviceTampered    DeviceStatus = "tampered"
	DeviceLowBattery  DeviceStatus = "low_battery"
)

// Device is a physical ankle/wrist tracker assigned to one individual.
type Device struct {
	ID           string       `json:"id"`
	IndividualID string       `json:"individualId"`
	Status       DeviceStatus `json:"status"`
	BatteryLevel float64      `json:"batteryLevel"` // percent, 0..100
	LastContact  *time.Time   `json:"lastContact,omitempty"`
}

// Officer supervises one or more individuals and receives alert notifications.
type Officer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BadgeNumber string `json:"badgeNumber"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Individual is a supervised person wearing a tracking device.
type Individual struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	AssignedOfficerID string `json:"assignedOfficerId,omitempty"`
}

// LocationReport is one inbound sample from a device, already
// JSON-decoded but not yet validated.
type LocationReport struct {
	DeviceID     string    `json:"deviceId"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	AltitudeM    float64   `json:"altitudeM,omitempty"`
	SpeedKmh     float64   `json:"speedKmh,omitempty"`
	AccuracyM    float64   `json:"accuracyM,omitempty"`
	Satellites   int       `json:"satellites,omitempty"`
	BatteryLevel float64   `json:"batteryLevel"`
	Timestamp    time.Time `json:"timestamp"`
}

// LocationSample is the stored shape shared by CurrentPosition and
// HistoryRecord.
type LocationSample struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	AltitudeM  float64   `json:"altitudeM,omitempty"`
	SpeedKmh   float64   `json:"speedKmh,omitempty"`
	AccuracyM  float64   `json:"accuracyM,omitempty"`
	Satellites int       `json:"satellites,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (s LocationSample) Point() GeoPoint { return GeoPoint{Lat: s.Lat, Lng: s.Lng} }

// CurrentPosition is the single mutable "last known location" record
// per device, overwritten on every accepted report.
type CurrentPosition struct {
	DeviceID string `json:"deviceId"`
	LocationSample
	UpdatedAt time.Time `json:"updatedAt"`
}

// HistoryRecord is an append-only retained sample. StoredAt is the
// wall-clock write time the retention policy measures intervals from.
type HistoryRecord struct {
	ID       string `json:"id"`
	DeviceID string `json:"deviceId"`
	LocationSample
	StoredAt time.Time `json:"storedAt"`
}

type ZoneKind string

const (
	ZoneAllowed    ZoneKind = "allowed"
	ZoneRestricted ZoneKind = "restricted"
	ZoneHome       ZoneKind = "home"
	ZoneWork       ZoneKind = "work"
	ZoneExclusion  ZoneKind = "exclusion"
)

// Weekdays is a day-of-week set, one bit per time.Weekday (Sunday=bit 0).
type Weekdays uint8

const AllWeekdays Weekdays = 0x7f

func (w Weekdays) Contains(d time.Weekday) bool { return w&(1<<uint(d)) != 0 }

// WeekdaySet builds a mask from the given days.
func WeekdaySet(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w |= 1 << uint(d)
	}
	return w
}

// GeofenceZone is a circular policy area belonging to one individual.
// StartTime/EndTime are optional daily "HH:MM" bounds; when both are
// empty the zone has no time restriction. Days defaults to all seven.
type GeofenceZone struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kind         ZoneKind `json:"kind"`
	IndividualID string   `json:"individualId"`
	Center       GeoPoint `json:"center"`
	RadiusM      float64  `json:"radiusM"`
	Active       bool     `json:"active"`
	StartTime    string   `json:"startTime,omitempty"`
	EndTime      string   `json:"endTime,omitempty"`
	Days         Weekdays `json:"days,omitempty"`
}

type AlertKind string

const (
	AlertGeofenceViolation AlertKind = "geofence_violation"
	AlertDeviceTamper      AlertKind = "device_tamper"
	AlertLowBattery        AlertKind = "low_battery"
	AlertDeviceOffline     AlertKind = "device_offline"
	AlertEmergency         AlertKind = "emergency"
	AlertSpeedViolation    AlertKind = "speed_violation"
	AlertCurfewViolation   AlertKind = "curfew_violation"
)

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

type AlertStatus string

const (
	AlertNew           AlertStatus = "new"
	AlertAcknowledged  AlertStatus = "acknowledged"
	AlertInvestigating AlertStatus = "investigating"
	AlertResolved      AlertStatus = "resolved"
	AlertFalseAlarm    AlertStatus = "false_alarm"
)

// ViolationFinding is an ephemeral rule-evaluation result. It is never
// persisted; the alert factory consumes it immediately.
type ViolationFinding struct {
	DeviceID    string
	ZoneID      string // empty for non-zone findings (curfew)
	ZoneName    string
	Kind        AlertKind
	Description string
	Location    GeoPoint
}

// Alert is the durable record of a detected condition. Created only by
// the engine; afterwards mutated only by the review workflow.
type Alert struct {
	ID             string        `json:"id"`
	IndividualID   string        `json:"individualId"`
	DeviceID       string        `json:"deviceId"`
	Kind           AlertKind     `json:"kind"`
	Severity       AlertSeverity `json:"severity"`
	Status         AlertStatus   `json:"status"`
	Title          string        `json:"title"`
	Description    string        `json:"description,omitempty"`
	Location       *GeoPoint     `json:"location,omitempty"`
	AcknowledgedBy string        `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time    `json:"acknowledgedAt,omitempty"`
	ResolvedAt     *time.Time    `json:"resolvedAt,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// Open reports whether the alert still needs attention; the dedup
// lookback only counts open alerts.
func (a Alert) Open() bool { return a.Status == AlertNew || a.Status == AlertAcknowledged }

type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelSMS       Channel = "sms"
	ChannelPush      Channel = "push"
	ChannelDashboard Channel = "dashboard"
)

// NotificationPreferences maps alert kinds to the channels an officer
// wants invoked. Kinds absent from Channels resolve to no channels.
type NotificationPreferences struct {
	OfficerID       string                  `json:"officerId"`
	Channels        map[AlertKind][]Channel `json:"channels"`
	QuietHoursStart string                  `json:"quietHoursStart,omitempty"`
	QuietHoursEnd   string                  `json:"quietHoursEnd,omitempty"`
}

// ChannelsFor returns the configured channel list for a kind, never nil.
func (p NotificationPreferences) ChannelsFor(kind AlertKind) []Channel {
	if p.Channels == nil {
		return []Channel{}
	}
	chs, ok := p.Channels[kind]
	if !ok || chs == nil {
		return []Channel{}
	}
	return chs
}
