package notify

import (
	"context"
	"errors"
	"log"
	"time"

	"paroletrack/internal/metrics"
	"paroletrack/internal/model"
	"paroletrack/internal/store"
)

// Router resolves an alert to its officer's channel list and invokes
// each channel independently. Dispatch never returns an error: every
// failure is contained here, logged, and counted. Delivery is
// at-most-once; the core never retries.
type Router struct {
	Store       store.Store
	Senders     map[model.Channel]Sender
	SendTimeout time.Duration
}

func NewRouter(s store.Store, senders map[model.Channel]Sender, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Router{Store: s, Senders: senders, SendTimeout: timeout}
}

// Dispatch fans the alert out to the channels configured for its kind.
// Missing individual, officer, or preferences are quiet no-ops: the
// alert record itself is already durable.
func (r *Router) Dispatch(ctx context.Context, a model.Alert) {
	ind, err := r.Store.GetIndividual(ctx, a.IndividualID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("dispatch %s: individual lookup: %v", a.ID, err)
		}
		return
	}
	if ind.AssignedOfficerID == "" {
		return
	}
	officer, err := r.Store.GetOfficer(ctx, ind.AssignedOfficerID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("dispatch %s: officer lookup: %v", a.ID, err)
		}
		return
	}
	prefs, err := r.Store.GetPreferences(ctx, officer.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("dispatch %s: preferences lookup: %v", a.ID, err)
		}
		return
	}

	for _, ch := range prefs.ChannelsFor(a.Kind) {
		sender, ok := r.Senders[ch]
		if !ok {
			continue
		}
		sctx, cancel := context.WithTimeout(ctx, r.SendTimeout)
		err := sender.Send(sctx, officer, a)
		cancel()
		if err != nil {
			metrics.Notifications.WithLabelValues(string(ch), "error").Inc()
			log.Printf("dispatch %s via %s: %v", a.ID, ch, err)
			continue
		}
		metrics.Notifications.WithLabelValues(string(ch), "ok").Inc()
	}
}
