package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"paroletrack/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies every .sql file in dir in lexical order (dev helper).
func (p *Postgres) MigrateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		raw, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(string(raw)); err != nil {
			return fmt.Errorf("migrate %s: %w", n, err)
		}
	}
	return nil
}

func (p *Postgres) GetDevice(ctx context.Context, deviceID string) (model.Device, error) {
	var d model.Device
	var lastContact sql.NullTime
	err := p.db.QueryRowContext(ctx,
		`SELECT id, individual_id, status, battery_level, last_contact FROM devices WHERE id=$1`,
		deviceID).Scan(&d.ID, &d.IndividualID, &d.Status, &d.BatteryLevel, &lastContact)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Device{}, ErrNotFound
	}
	if err != nil {
		return model.Device{}, err
	}
	if lastContact.Valid {
		t := lastContact.Time
		d.LastContact = &t
	}
	return d, nil
}

func (p *Postgres) UpdateDevice(ctx context.Context, d model.Device) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE devices SET status=$2, battery_level=$3, last_contact=$4, updated_at=now() WHERE id=$1`,
		d.ID, d.Status, d.BatteryLevel, nullTime(d.LastContact))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListDevices(ctx context.Context) ([]model.Device, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, individual_id, status, battery_level, last_contact FROM devices ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Device{}
	for rows.Next() {
		var d model.Device
		var lastContact sql.NullTime
		if err := rows.Scan(&d.ID, &d.IndividualID, &d.Status, &d.BatteryLevel, &lastContact); err != nil {
			return nil, err
		}
		if lastContact.Valid {
			t := lastContact.Time
			d.LastContact = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) GetIndividual(ctx context.Context, id string) (model.Individual, error) {
	var in model.Individual
	var officer sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name, assigned_officer_id FROM individuals WHERE id=$1`,
		id).Scan(&in.ID, &in.Name, &officer)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Individual{}, ErrNotFound
	}
	if err != nil {
		return model.Individual{}, err
	}
	in.AssignedOfficerID = officer.String
	return in, nil
}

func (p *Postgres) GetOfficer(ctx context.Context, id string) (model.Officer, error) {
	var o model.Officer
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name, badge_number, email, phone FROM officers WHERE id=$1`,
		id).Scan(&o.ID, &o.Name, &o.BadgeNumber, &o.Email, &o.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Officer{}, ErrNotFound
	}
	return o, err
}

func (p *Postgres) GetPreferences(ctx context.Context, officerID string) (model.NotificationPreferences, error) {
	var prefs model.NotificationPreferences
	var channels []byte
	var qs, qe sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT officer_id, channels, quiet_hours_start, quiet_hours_end FROM notification_preferences WHERE officer_id=$1`,
		officerID).Scan(&prefs.OfficerID, &channels, &qs, &qe)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotificationPreferences{}, ErrNotFound
	}
	if err != nil {
		return model.NotificationPreferences{}, err
	}
	prefs.Channels = map[model.AlertKind][]model.Channel{}
	if len(channels) > 0 {
		if err := json.Unmarshal(channels, &prefs.Channels); err != nil {
			return model.NotificationPreferences{}, fmt.Errorf("decode preferences for %s: %w", officerID, err)
		}
	}
	prefs.QuietHoursStart = qs.String
	prefs.QuietHoursEnd = qe.String
	return prefs, nil
}

func (p *Postgres) ActiveZonesForIndividual(ctx context.Context, individualID string) ([]model.GeofenceZone, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, kind, individual_id, center_lat, center_lng, radius_m, active,
		        COALESCE(start_time,''), COALESCE(end_time,''), days
		 FROM geofence_zones WHERE individual_id=$1 AND active=true`, individualID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.GeofenceZone{}
	for rows.Next() {
		var z model.GeofenceZone
		var days int
		if err := rows.Scan(&z.ID, &z.Name, &z.Kind, &z.IndividualID, &z.Center.Lat, &z.Center.Lng,
			&z.RadiusM, &z.Active, &z.StartTime, &z.EndTime, &days); err != nil {
			return nil, err
		}
		z.Days = model.Weekdays(days)
		out = append(out, z)
	}
	return out, rows.Err()
}

func (p *Postgres) UpsertCurrentPosition(ctx context.Context, pos model.CurrentPosition) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO current_positions (device_id, lat, lng, altitude_m, speed_kmh, accuracy_m, satellites, ts, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (device_id) DO UPDATE SET
		   lat=EXCLUDED.lat, lng=EXCLUDED.lng, altitude_m=EXCLUDED.altitude_m,
		   speed_kmh=EXCLUDED.speed_kmh, accuracy_m=EXCLUDED.accuracy_m,
		   satellites=EXCLUDED.satellites, ts=EXCLUDED.ts, updated_at=EXCLUDED.updated_at`,
		pos.DeviceID, pos.Lat, pos.Lng, pos.AltitudeM, pos.SpeedKmh, pos.AccuracyM,
		pos.Satellites, pos.Timestamp, pos.UpdatedAt)
	return err
}

func (p *Postgres) ListCurrentPositions(ctx context.Context) ([]model.CurrentPosition, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT device_id, lat, lng, altitude_m, speed_kmh, accuracy_m, satellites, ts, updated_at
		 FROM current_positions ORDER BY device_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CurrentPosition{}
	for rows.Next() {
		var c model.CurrentPosition
		if err := rows.Scan(&c.DeviceID, &c.Lat, &c.Lng, &c.AltitudeM, &c.SpeedKmh,
			&c.AccuracyM, &c.Satellites, &c.Timestamp, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) AppendHistory(ctx context.Context, rec model.HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO location_history (id, device_id, lat, lng, altitude_m, speed_kmh, accuracy_m, satellites, ts, stored_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.ID, rec.DeviceID, rec.Lat, rec.Lng, rec.AltitudeM, rec.SpeedKmh,
		rec.AccuracyM, rec.Satellites, rec.Timestamp, rec.StoredAt)
	return err
}

func (p *Postgres) LatestHistory(ctx context.Context, deviceID string) (*model.HistoryRecord, error) {
	var rec model.HistoryRecord
	err := p.db.QueryRowContext(ctx,
		`SELECT id, device_id, lat, lng, altitude_m, speed_kmh, accuracy_m, satellites, ts, stored_at
		 FROM location_history WHERE device_id=$1 ORDER BY stored_at DESC LIMIT 1`,
		deviceID).Scan(&rec.ID, &rec.DeviceID, &rec.Lat, &rec.Lng, &rec.AltitudeM,
		&rec.SpeedKmh, &rec.AccuracyM, &rec.Satellites, &rec.Timestamp, &rec.StoredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *Postgres) ListHistory(ctx context.Context, deviceID string, limit int) ([]model.HistoryRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, device_id, lat, lng, altitude_m, speed_kmh, accuracy_m, satellites, ts, stored_at
		 FROM location_history WHERE device_id=$1 ORDER BY ts DESC LIMIT $2`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.HistoryRecord{}
	for rows.Next() {
		var rec model.HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.DeviceID, &rec.Lat, &rec.Lng, &rec.AltitudeM,
			&rec.SpeedKmh, &rec.AccuracyM, &rec.Satellites, &rec.Timestamp, &rec.StoredAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertAlert(ctx context.Context, a model.Alert) error {
	var lat, lng any
	if a.Location != nil {
		lat, lng = a.Location.Lat, a.Location.Lng
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO alerts (id, individual_id, device_id, kind, severity, status, title, description, lat, lng, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.IndividualID, a.DeviceID, a.Kind, a.Severity, a.Status, a.Title, a.Description, lat, lng, a.CreatedAt)
	return err
}

func (p *Postgres) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, individual_id, device_id, kind, severity, status, title, COALESCE(description,''),
		        lat, lng, COALESCE(acknowledged_by,''), acknowledged_at, resolved_at, created_at
		 FROM alerts WHERE id=$1`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Alert{}, ErrNotFound
	}
	return a, err
}

func (p *Postgres) HasRecentOpenAlert(ctx context.Context, deviceID string, kind model.AlertKind, since time.Time) (bool, error) {
	var n int
	err := p.db.QueryRowContext(ctx,
		`SELECT count(*) FROM alerts
		 WHERE device_id=$1 AND kind=$2 AND status IN ('new','acknowledged') AND created_at >= $3`,
		deviceID, kind, since).Scan(&n)
	return n > 0, err
}

func (p *Postgres) ListAlerts(ctx context.Context, f AlertFilter) ([]model.Alert, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.Kind != "" {
		args = append(args, f.Kind)
		where = append(where, fmt.Sprintf("kind=$%d", len(args)))
	}
	if f.IndividualID != "" {
		args = append(args, f.IndividualID)
		where = append(where, fmt.Sprintf("individual_id=$%d", len(args)))
	}
	args = append(args, f.Limit)
	q := fmt.Sprintf(
		`SELECT id, individual_id, device_id, kind, severity, status, title, COALESCE(description,''),
		        lat, lng, COALESCE(acknowledged_by,''), acknowledged_at, resolved_at, created_at
		 FROM alerts WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		strings.Join(where, " AND "), len(args))
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateAlert(ctx context.Context, a model.Alert) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE alerts SET status=$2, acknowledged_by=$3, acknowledged_at=$4, resolved_at=$5, updated_at=now() WHERE id=$1`,
		a.ID, a.Status, nullIfEmpty(a.AcknowledgedBy), nullTime(a.AcknowledgedAt), nullTime(a.ResolvedAt))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (model.Alert, error) {
	var a model.Alert
	var lat, lng sql.NullFloat64
	var ackAt, resAt sql.NullTime
	err := row.Scan(&a.ID, &a.IndividualID, &a.DeviceID, &a.Kind, &a.Severity, &a.Status,
		&a.Title, &a.Description, &lat, &lng, &a.AcknowledgedBy, &ackAt, &resAt, &a.CreatedAt)
	if err != nil {
		return model.Alert{}, err
	}
	if lat.Valid && lng.Valid {
		a.Location = &model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	if ackAt.Valid {
		t := ackAt.Time
		a.AcknowledgedAt = &t
	}
	if resAt.Valid {
		t := resAt.Time
		a.ResolvedAt = &t
	}
	return a, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
