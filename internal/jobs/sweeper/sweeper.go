package sweeper

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos"
	"github.com/dagra27407/spinalith-site-sub000/internal/modules/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/observability"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
)

type Config struct {
	Interval time.Duration
	// StaleAfter is how long a row must sit untouched in a recoverable
	// status before it is re-triggered.
	StaleAfter  time.Duration
	Concurrency int
	BatchSize   int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 5 * time.Minute
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

// Sweeper re-triggers rows that stopped in a recoverable status, e.g.
// PollingNeeded after a slow run or AwaitingNextBatch after a lost hop.
type Sweeper struct {
	log     *logger.Logger
	records repos.ControlRecordRepo
	invoker services.StageInvoker
	auth    services.AuthService
	cfg     Config
	now     func() time.Time
}

func New(baseLog *logger.Logger, records repos.ControlRecordRepo, invoker services.StageInvoker, auth services.AuthService, cfg Config) *Sweeper {
	return &Sweeper{
		log:     baseLog.With("component", "StaleRecordSweeper"),
		records: records,
		invoker: invoker,
		auth:    auth,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				func() {
					defer func() {
						if r := recover(); r != nil {
							s.log.Error("sweep panic", "panic", r)
						}
					}()
					if _, err := s.SweepOnce(ctx); err != nil {
						s.log.Warn("sweep failed", "error", err)
					}
				}()
			}
		}
	}()
}

// SweepOnce re-triggers one batch of stale rows and reports how many hops
// were handed to the router.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.StaleAfter)
	rows, err := s.records.ListStale(dbctx.Context{Ctx: ctx}, assistant.RecoverableStatuses(), cutoff, s.cfg.BatchSize)
	if err != nil {
		observability.Current().ObserveSweep("list_failed", 0)
		return 0, fmt.Errorf("list stale records: %w", err)
	}
	if len(rows) == 0 {
		observability.Current().ObserveSweep("empty", 0)
		return 0, nil
	}

	token := ""
	if s.auth != nil {
		token, err = s.auth.MintServiceToken()
		if err != nil {
			observability.Current().ObserveSweep("auth_failed", 0)
			return 0, fmt.Errorf("mint service token: %w", err)
		}
	}

	var requeued atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, rec := range rows {
		if rec == nil {
			continue
		}
		stage, ok := assistant.StageFor(rec.Status)
		if !ok || stage == assistant.StageParseResponse {
			continue
		}
		call := services.StageCall{Stage: stage, RequestID: rec.ID, Version: rec.Version, Token: token}
		g.Go(func() error {
			if err := s.invoker.Invoke(gctx, call); err != nil {
				// One bad hop must not cancel the rest of the batch.
				s.log.Warn("re-trigger failed", "request_id", call.RequestID, "stage", call.Stage, "error", err)
				return nil
			}
			requeued.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	n := int(requeued.Load())
	observability.Current().ObserveSweep("ok", n)
	s.log.Info("sweep finished", "stale", len(rows), "requeued", n)
	return n, nil
}
