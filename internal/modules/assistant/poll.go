package assistant

import (
	"context"
	"errors"
	"time"

	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

// Poll failure reasons.
const (
	PollMaxAttempts  = "MaxAttempts"
	PollTimedOut     = "TimedOut"
	PollUnknownError = "UnknownError"
)

type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	// Timeout is measured from RunContext.StartedAt.
	Timeout time.Duration
}

func DefaultPollConfig() PollConfig {
	return PollConfig{Interval: 2 * time.Second, MaxAttempts: 20, Timeout: 60 * time.Second}
}

type PollOutcome struct {
	Success   bool
	Reason    string
	RunStatus string
	Attempts  int
	Err       error
}

type Poller struct {
	log   *logger.Logger
	exec  PhaseExecutor
	store *Store
	cfg   PollConfig
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPoller(log *logger.Logger, exec PhaseExecutor, store *Store, cfg PollConfig) *Poller {
	def := DefaultPollConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		log:   log.With("component", "Poller"),
		exec:  exec,
		store: store,
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PollUntilTerminal polls the run until the provider reports a terminal status.
// Success only means the loop saw a terminal status; callers branch on RunStatus.
func (p *Poller) PollUntilTerminal(ctx context.Context, rc RunContext, rec *types.ControlRecord) PollOutcome {
	start := rc.StartedAt
	if start.IsZero() {
		start = p.now()
	}
	attempts := 0
	for {
		if attempts >= p.cfg.MaxAttempts {
			return PollOutcome{Reason: PollMaxAttempts, Attempts: attempts}
		}
		if p.now().Sub(start) >= p.cfg.Timeout {
			return PollOutcome{Reason: PollTimedOut, Attempts: attempts}
		}
		attempts++

		res, _ := p.exec.ExecutePhase(ctx, PhasePollRunStatus, rc)
		if res.Err != nil && IsConfigError(res.Err) {
			return PollOutcome{Reason: PollUnknownError, Attempts: attempts, Err: res.Err}
		}
		if res.Success {
			status, _ := res.Data["status"].(string)
			if status == "" {
				p.log.Warn("poll response has no status", "request_id", rc.RequestID, "attempt", attempts)
				return PollOutcome{Reason: PollUnknownError, Attempts: attempts}
			}
			if next := RunStatus(status); rec != nil && rec.Status != next {
				if err := p.store.SetStatus(ctx, rec, next); err != nil {
					if errors.Is(err, ErrConcurrentUpdate) {
						return PollOutcome{Reason: PollUnknownError, RunStatus: status, Attempts: attempts, Err: err}
					}
					p.log.Warn("persist run status failed", "request_id", rc.RequestID, "status", next, "error", err)
				}
			}
			if IsTerminalRunStatus(status) {
				return PollOutcome{Success: true, RunStatus: status, Attempts: attempts}
			}
		} else {
			p.log.Warn("poll attempt failed", "request_id", rc.RequestID, "attempt", attempts, "error", res.Err)
		}

		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			return PollOutcome{Reason: PollTimedOut, Attempts: attempts, Err: err}
		}
	}
}
