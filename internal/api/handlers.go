package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"paroletrack/internal/engine"
	"paroletrack/internal/model"
	"paroletrack/internal/store"
)

// LocationUpdateHandler handles POST /v1/locations, the device ingest
// endpoint.
func (s *Server) LocationUpdateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.LocationReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateReport(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid location report", err.Error(), r.URL.Path)
		return
	}
	if !s.limits.allow(req.DeviceID) {
		writeProblem(w, http.StatusTooManyRequests, "Rate limited", "too many reports for device", r.URL.Path)
		return
	}

	res, err := s.Engine.ProcessReport(r.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Unknown device",
				fmt.Sprintf("device %s not registered", req.DeviceID), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Processing failed", err.Error(), r.URL.Path)
		return
	}
	if res.Status == engine.StatusIgnored {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "warning",
			"message":  res.Warning,
			"deviceId": req.DeviceID,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"deviceId":     req.DeviceID,
		"alerts":       len(res.Alerts),
		"historySaved": res.HistorySaved,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// CurrentPositionsHandler handles GET /v1/locations/current
func (s *Server) CurrentPositionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items, err := s.Store.ListCurrentPositions(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List positions failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// DeviceHistoryHandler handles GET /v1/devices/{id}/history
func (s *Server) DeviceHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/devices/")
	deviceID, ok := strings.CutSuffix(rest, "/history")
	if !ok || deviceID == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, err := s.Store.ListHistory(r.Context(), deviceID, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List history failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// AlertsHandler handles GET /v1/alerts with status/kind/individual filters.
func (s *Server) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	f := store.AlertFilter{
		Status:       model.AlertStatus(r.URL.Query().Get("status")),
		Kind:         model.AlertKind(r.URL.Query().Get("kind")),
		IndividualID: r.URL.Query().Get("individual"),
		Limit:        100,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &f.Limit)
	}
	items, err := s.Store.ListAlerts(r.Context(), f)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List alerts failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// AlertByIDHandler handles POST /v1/alerts/{id}/ack and /resolve, the
// review-workflow transitions.
func (s *Server) AlertByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/alerts/")
	id, action, ok := strings.Cut(rest, "/")
	if !ok || id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	a, err := s.Store.GetAlert(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Alert not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Get alert failed", err.Error(), r.URL.Path)
		return
	}
	now := time.Now().UTC()
	switch action {
	case "ack":
		var body struct {
			OfficerID string `json:"officerId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.Status = model.AlertAcknowledged
		a.AcknowledgedBy = body.OfficerID
		a.AcknowledgedAt = &now
	case "resolve":
		a.Status = model.AlertResolved
		a.ResolvedAt = &now
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if err := s.Store.UpdateAlert(r.Context(), a); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Update alert failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// MapDataHandler handles GET /v1/map-data: current positions plus open
// alerts for the live map.
func (s *Server) MapDataHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	locations, err := s.Store.ListCurrentPositions(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List positions failed", err.Error(), r.URL.Path)
		return
	}
	newAlerts, err := s.Store.ListAlerts(r.Context(), store.AlertFilter{Status: model.AlertNew})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List alerts failed", err.Error(), r.URL.Path)
		return
	}
	acked, err := s.Store.ListAlerts(r.Context(), store.AlertFilter{Status: model.AlertAcknowledged})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List alerts failed", err.Error(), r.URL.Path)
		return
	}
	open := append(newAlerts, acked...)
	located := make([]model.Alert, 0, len(open))
	for _, a := range open {
		if a.Location != nil {
			located = append(located, a)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locations, "alerts": located})
}

// HealthHandler handles GET /healthz
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler handles GET /readyz; checks backing storage when it
// supports pinging.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
