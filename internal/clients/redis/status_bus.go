package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dagra27407/spinalith-site-sub000/internal/modules/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

const DefaultChannel = "assistant-status"

// StatusBus fans control-record status transitions out over a redis
// pub/sub channel so other replicas (and SSE listeners) can follow a run.
type StatusBus interface {
	assistant.StatusPublisher
	StartForwarder(ctx context.Context, onEvent func(ev assistant.StatusEvent)) error
	Close() error
}

type statusBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

type Options struct {
	Addr    string
	Channel string
}

func NewStatusBus(log *logger.Logger, opts Options) (StatusBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(opts.Channel)
	if ch == "" {
		ch = DefaultChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newStatusBus(log, rdb, ch), nil
}

func newStatusBus(log *logger.Logger, rdb *goredis.Client, channel string) *statusBus {
	return &statusBus{
		log:     log.With("service", "RedisStatusBus"),
		rdb:     rdb,
		channel: channel,
	}
}

func (b *statusBus) PublishStatus(ctx context.Context, ev assistant.StatusEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis status bus not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *statusBus) StartForwarder(ctx context.Context, onEvent func(ev assistant.StatusEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis status bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				ev, err := decodeStatusEvent(m.Payload)
				if err != nil {
					b.log.Warn("bad redis status payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()

	return nil
}

func (b *statusBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func decodeStatusEvent(payload string) (assistant.StatusEvent, error) {
	var ev assistant.StatusEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, err
	}
	if strings.TrimSpace(ev.Status) == "" {
		return ev, fmt.Errorf("status event without status")
	}
	return ev, nil
}
