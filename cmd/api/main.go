package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paroletrack/internal/api"
	"paroletrack/internal/config"
	"paroletrack/internal/metrics"
	"paroletrack/internal/model"
	"paroletrack/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	srv, err := api.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	metrics.RegisterDefault()

	if os.Getenv("DEMO_SEED") == "true" {
		seedDemo(srv)
	}

	mux := http.NewServeMux()

	// Ingest
	mux.HandleFunc("/v1/locations", srv.LocationUpdateHandler)
	mux.HandleFunc("/v1/locations/current", srv.CurrentPositionsHandler)
	mux.HandleFunc("/v1/devices/", srv.DeviceHistoryHandler)

	// Alerts
	mux.HandleFunc("/v1/alerts", srv.AlertsHandler)
	mux.HandleFunc("/v1/alerts/stream", srv.AlertStreamHandler)
	mux.HandleFunc("/v1/alerts/ws", srv.AlertWSHandler)
	mux.HandleFunc("/v1/alerts/", srv.AlertByIDHandler)

	// Map
	mux.HandleFunc("/v1/map-data", srv.MapDataHandler)

	// Health
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.HandleFunc("/readyz", srv.ReadyHandler)

	// Metrics
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	addr := ":" + cfg.Port

	hsrv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.Dispatcher.Start()
	sweeper := srv.NewSweeper()
	sweeper.Start()

	log.Printf("API listening on %s", addr)
	if err := hsrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		dur := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.status)).Observe(dur.Seconds())
		log.Printf("%s %s %s %d %v", r.RemoteAddr, r.Method, r.URL.Path, sw.status, dur)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// seedDemo loads a small fixture set into the in-memory store so the
// service is exercisable without a database.
func seedDemo(srv *api.Server) {
	mem, ok := srv.Store.(*store.Memory)
	if !ok {
		return
	}
	mem.PutOfficer(model.Officer{ID: "off-1", Name: "R. Alvarez", BadgeNumber: "4411", Email: "alvarez@example.org", Phone: "+15550100"})
	mem.PutIndividual(model.Individual{ID: "ind-1", Name: "J. Doe", AssignedOfficerID: "off-1"})
	mem.PutDevice(model.Device{ID: "dev-1", IndividualID: "ind-1", Status: model.DeviceActive, BatteryLevel: 100})
	mem.PutZone(model.GeofenceZone{
		Name: "Home", Kind: model.ZoneHome, IndividualID: "ind-1",
		Center: model.GeoPoint{Lat: 40.7128, Lng: -74.0060}, RadiusM: 200, Active: true,
	})
	mem.PutZone(model.GeofenceZone{
		Name: "Downtown exclusion", Kind: model.ZoneRestricted, IndividualID: "ind-1",
		Center: model.GeoPoint{Lat: 40.7306, Lng: -73.9866}, RadiusM: 500, Active: true,
	})
	mem.PutPreferences(model.NotificationPreferences{
		OfficerID: "off-1",
		Channels: map[model.AlertKind][]model.Channel{
			model.AlertGeofenceViolation: {model.ChannelEmail, model.ChannelSMS, model.ChannelDashboard},
			model.AlertCurfewViolation:   {model.ChannelEmail, model.ChannelSMS, model.ChannelDashboard},
			model.AlertLowBattery:        {model.ChannelEmail, model.ChannelDashboard},
			model.AlertSpeedViolation:    {model.ChannelDashboard},
			model.AlertDeviceOffline:     {model.ChannelEmail, model.ChannelPush, model.ChannelDashboard},
		},
		QuietHoursStart: "22:00",
		QuietHoursEnd:   "06:00",
	})
	log.Printf("seeded demo fixtures (device dev-1)")
}
