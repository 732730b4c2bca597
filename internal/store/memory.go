package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"paroletrack/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set
// and throughout the test suite.
type Memory struct {
	mu          sync.Mutex
	devices     map[string]model.Device
	individuals map[string]model.Individual
	officers    map[string]model.Officer
	prefs       map[string]model.NotificationPreferences // officerID -> prefs
	zones       map[string][]model.GeofenceZone          // individualID -> zones
	positions   map[string]model.CurrentPosition         // deviceID -> position
	history     map[string][]model.HistoryRecord         // deviceID -> records, append order
	alerts      map[string]model.Alert
	alertOrder  []string // insertion order, newest last
}

func NewMemory() *Memory {
	return &Memory{
		devices:     map[string]model.Device{},
		individuals: map[string]model.Individual{},
		officers:    map[string]model.Officer{},
		prefs:       map[string]model.NotificationPreferences{},
		zones:       map[string][]model.GeofenceZone{},
		positions:   map[string]model.CurrentPosition{},
		history:     map[string][]model.HistoryRecord{},
		alerts:      map[string]model.Alert{},
	}
}

// Seed helpers used by main (demo data) and tests.

func (m *Memory) PutDevice(d model.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[d.ID] = d
}

func (m *Memory) PutIndividual(in model.Individual) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.individuals[in.ID] = in
}

func (m *Memory) PutOfficer(o model.Officer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.officers[o.ID] = o
}

func (m *Memory) PutPreferences(p model.NotificationPreferences) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[p.OfficerID] = p
}

func (m *Memory) PutZone(z model.GeofenceZone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if z.ID == "" {
		z.ID = uuid.New().String()
	}
	m.zones[z.IndividualID] = append(m.zones[z.IndividualID], z)
}

func (m *Memory) GetDevice(ctx context.Context, deviceID string) (model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[deviceID]
	if !ok {
		return model.Device{}, ErrNotFound
	}
	return d, nil
}

func (m *Memory) UpdateDevice(ctx context.Context, d model.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[d.ID]; !ok {
		return ErrNotFound
	}
	m.devices[d.ID] = d
	return nil
}

func (m *Memory) ListDevices(ctx context.Context) ([]model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetIndividual(ctx context.Context, id string) (model.Individual, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.individuals[id]
	if !ok {
		return model.Individual{}, ErrNotFound
	}
	return in, nil
}

func (m *Memory) GetOfficer(ctx context.Context, id string) (model.Officer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.officers[id]
	if !ok {
		return model.Officer{}, ErrNotFound
	}
	return o, nil
}

func (m *Memory) GetPreferences(ctx context.Context, officerID string) (model.NotificationPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[officerID]
	if !ok {
		return model.NotificationPreferences{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ActiveZonesForIndividual(ctx context.Context, individualID string) ([]model.GeofenceZone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.GeofenceZone{}
	for _, z := range m.zones[individualID] {
		if z.Active {
			out = append(out, z)
		}
	}
	return out, nil
}

func (m *Memory) UpsertCurrentPosition(ctx context.Context, pos model.CurrentPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[pos.DeviceID] = pos
	return nil
}

func (m *Memory) ListCurrentPositions(ctx context.Context) ([]model.CurrentPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.CurrentPosition, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (m *Memory) AppendHistory(ctx context.Context, rec model.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	m.history[rec.DeviceID] = append(m.history[rec.DeviceID], rec)
	return nil
}

func (m *Memory) LatestHistory(ctx context.Context, deviceID string) (*model.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.history[deviceID]
	if len(recs) == 0 {
		return nil, nil
	}
	rec := recs[len(recs)-1]
	return &rec, nil
}

func (m *Memory) ListHistory(ctx context.Context, deviceID string, limit int) ([]model.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.history[deviceID]
	out := make([]model.HistoryRecord, len(recs))
	copy(out, recs)
	// newest first for retrieval
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) InsertAlert(ctx context.Context, a model.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = a
	m.alertOrder = append(m.alertOrder, a.ID)
	return nil
}

func (m *Memory) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return model.Alert{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) HasRecentOpenAlert(ctx context.Context, deviceID string, kind model.AlertKind, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.DeviceID == deviceID && a.Kind == kind && a.Open() && !a.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ListAlerts(ctx context.Context, f AlertFilter) ([]model.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Alert{}
	// newest first, matching retrieval ordering of the alert table
	for i := len(m.alertOrder) - 1; i >= 0; i-- {
		a := m.alerts[m.alertOrder[i]]
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Kind != "" && a.Kind != f.Kind {
			continue
		}
		if f.IndividualID != "" && a.IndividualID != f.IndividualID {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) UpdateAlert(ctx context.Context, a model.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[a.ID]; !ok {
		return ErrNotFound
	}
	m.alerts[a.ID] = a
	return nil
}
