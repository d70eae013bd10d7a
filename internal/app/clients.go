package app

import (
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/dagra27407/spinalith-site-sub000/internal/clients/redis"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
	"github.com/dagra27407/spinalith-site-sub000/internal/temporalx"
)

type Clients struct {
	StatusBus redis.StatusBus
	Temporal  temporalsdkclient.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var bus redis.StatusBus
	if cfg.RedisAddr != "" {
		b, err := redis.NewStatusBus(log, redis.Options{Addr: cfg.RedisAddr, Channel: cfg.RedisChannel})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis status bus: %w", err)
		}
		bus = b
	}

	// Temporal
	var tc temporalsdkclient.Client
	if cfg.RouterMode == RouterModeTemporal {
		c, err := temporalx.NewClient(log, cfg.Temporal)
		if err != nil {
			if bus != nil {
				_ = bus.Close()
			}
			return Clients{}, fmt.Errorf("init temporal client: %w", err)
		}
		if c == nil {
			if bus != nil {
				_ = bus.Close()
			}
			return Clients{}, fmt.Errorf("ROUTER_MODE=temporal requires TEMPORAL_ADDRESS")
		}
		tc = c
	}

	return Clients{StatusBus: bus, Temporal: tc}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.StatusBus != nil {
		_ = c.StatusBus.Close()
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
}
