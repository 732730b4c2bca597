// Package notify routes created alerts to an officer's configured
// delivery channels through a bounded dispatch worker pool.
package notify

import (
	"context"
	"log"

	"paroletrack/internal/model"
)

// Sender delivers one alert to one officer over a single channel.
// Implementations wrap external delivery capabilities; the router
// contains their failures.
type Sender interface {
	Send(ctx context.Context, officer model.Officer, alert model.Alert) error
}

// The email/SMS/push senders are thin adapters over external delivery
// providers. The defaults log the handoff; deployments swap in real
// providers through Router.Senders.

type EmailSender struct{}

func (EmailSender) Send(ctx context.Context, o model.Officer, a model.Alert) error {
	log.Printf("email to %s: [%s] %s", o.Email, a.Severity, a.Title)
	return nil
}

type SMSSender struct{}

func (SMSSender) Send(ctx context.Context, o model.Officer, a model.Alert) error {
	log.Printf("sms to %s: [%s] %s", o.Phone, a.Severity, a.Title)
	return nil
}

type PushSender struct{}

func (PushSender) Send(ctx context.Context, o model.Officer, a model.Alert) error {
	log.Printf("push to officer %s: [%s] %s", o.ID, a.Severity, a.Title)
	return nil
}

// EventPublisher is the live-feed broker surface the dashboard channel
// publishes to.
type EventPublisher interface {
	Publish(topic string, eventType string, data any)
}

// DashboardSender surfaces the alert on the live dashboard feed.
type DashboardSender struct {
	Broker EventPublisher
}

func (d DashboardSender) Send(ctx context.Context, o model.Officer, a model.Alert) error {
	if d.Broker != nil {
		d.Broker.Publish("alerts", "alert.created", a)
	}
	return nil
}

// DefaultSenders returns the standard channel set with the dashboard
// wired to the given broker.
func DefaultSenders(pub EventPublisher) map[model.Channel]Sender {
	return map[model.Channel]Sender{
		model.ChannelEmail:     EmailSender{},
		model.ChannelSMS:       SMSSender{},
		model.ChannelPush:      PushSender{},
		model.ChannelDashboard: DashboardSender{Broker: pub},
	}
}
