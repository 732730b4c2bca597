package engine

import (
	"context"
	"log"
	"time"

	"paroletrack/internal/model"
)

// Sweeper periodically flags devices that stopped reporting.
type Sweeper struct {
	Engine   *Engine
	Interval time.Duration
	Stop     chan struct{}
}

func NewSweeper(e *Engine) *Sweeper {
	return &Sweeper{Engine: e, Interval: time.Minute, Stop: make(chan struct{})}
}

func (s *Sweeper) Start() {
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.Stop:
				return
			case <-ticker.C:
				s.sweepOnce()
			}
		}
	}()
}

func (s *Sweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Engine.SweepOffline(ctx); err != nil {
		log.Printf("offline sweep: %v", err)
	}
}

// SweepOffline raises a device_offline alert for every active device
// whose last contact is older than the configured window. The
// open-alert dedup keeps a silent device from being re-flagged each
// sweep.
func (e *Engine) SweepOffline(ctx context.Context) error {
	devices, err := e.store.ListDevices(ctx)
	if err != nil {
		return err
	}
	cutoff := e.now().Add(-time.Duration(e.cfg.OfflineAfterMin) * time.Minute)
	for _, d := range devices {
		if d.Status == model.DeviceInactive || d.Status == model.DeviceMaintenance {
			continue
		}
		if d.LastContact == nil || d.LastContact.After(cutoff) {
			continue
		}
		if _, err := e.offlineAlert(ctx, d); err != nil {
			log.Printf("offline alert for %s: %v", d.ID, err)
		}
	}
	return nil
}
