package api

import (
	"testing"

	"paroletrack/internal/config"
)

func TestBrokerSelection(t *testing.T) {
	cfg := config.Default()
	if _, ok := newBrokerFromConfig(cfg).(*Broker); !ok {
		t.Fatal("no REDIS_URL must select the in-process broker")
	}

	cfg.RedisURL = "redis://localhost:6379/0"
	if _, ok := newBrokerFromConfig(cfg).(*RedisBroker); !ok {
		t.Fatal("valid REDIS_URL must select the redis broker")
	}

	cfg.RedisURL = "not-a-redis-url"
	if _, ok := newBrokerFromConfig(cfg).(*Broker); !ok {
		t.Fatal("unusable REDIS_URL must fall back to the in-process broker")
	}
}
