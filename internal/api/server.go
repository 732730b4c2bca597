// Package api implements HTTP handlers and helpers for the tracking service.
package api

import (
	"log"
	"os"
	"time"

	"paroletrack/internal/config"
	"paroletrack/internal/engine"
	"paroletrack/internal/notify"
	"paroletrack/internal/store"
)

type Server struct {
	Store      store.Store
	Engine     *engine.Engine
	Dispatcher *notify.Dispatcher
	Broker     EventBroker
	limits     *deviceLimiters
}

// NewServer wires stores, broker, dispatcher, and engine from config.
// Without DATABASE_URL the in-memory store is used; without REDIS_URL
// the in-process broker.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if cfg.DatabaseURL == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.MigrateDir("db/migrations"); err != nil {
				log.Printf("migrations failed, schema may be incomplete: %v", err)
			}
		}
		s = sp
	}

	return newServer(cfg, s, newBrokerFromConfig(cfg)), nil
}

// newBrokerFromConfig selects the event broker. A REDIS_URL that cannot
// be used falls back to the in-process broker, which keeps a single
// instance alive but loses cross-instance fan-out, so the fallback is
// logged loudly.
func newBrokerFromConfig(cfg config.Config) EventBroker {
	if cfg.RedisURL == "" {
		return NewBroker()
	}
	rb, err := NewRedisBroker(cfg.RedisURL)
	if err != nil {
		log.Printf("redis broker unavailable (%v), falling back to in-process broker; cross-instance alert fan-out disabled", err)
		return NewBroker()
	}
	return rb
}

func newServer(cfg config.Config, s store.Store, broker EventBroker) *Server {
	senders := notify.DefaultSenders(BrokerPublisher{B: broker})
	router := notify.NewRouter(s, senders, secondsDuration(cfg.Dispatch.SendTimeoutSec))
	dispatcher := notify.NewDispatcher(router, cfg.Dispatch.QueueSize, cfg.Dispatch.Workers)
	eng := engine.New(s, cfg.Engine, dispatcher)
	return &Server{
		Store:      s,
		Engine:     eng,
		Dispatcher: dispatcher,
		Broker:     broker,
		limits:     newDeviceLimiters(cfg.Ingest.RateRPS, cfg.Ingest.RateBurst),
	}
}

// NewSweeper creates the background device-offline sweeper.
func (s *Server) NewSweeper() *engine.Sweeper {
	return engine.NewSweeper(s.Engine)
}

func secondsDuration(sec int) time.Duration { return time.Duration(sec) * time.Second }
