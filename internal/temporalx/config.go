package temporalx

import (
	"time"

	"github.com/dagra27407/spinalith-site-sub000/internal/platform/envutil"
)

// Config is read once at startup and handed to the client, the invoker and
// the stage worker.
type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	Dial Backoff

	// AutoRegisterNamespace creates Namespace on a self-hosted cluster when it
	// does not exist yet. Leave it off for managed clusters.
	AutoRegisterNamespace bool
	NamespaceRetention    time.Duration
	NamespaceEnsure       Backoff

	WorkerConcurrency int
	WorkerStart       Backoff
}

// Backoff bounds a retry loop: each attempt gets Timeout, sleeps double from
// Base up to Max, and the loop gives up after MaxWait.
type Backoff struct {
	Timeout time.Duration
	MaxWait time.Duration
	Base    time.Duration
	Max     time.Duration
}

func LoadConfig() Config {
	retentionDays := envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7)
	if retentionDays < 1 || retentionDays > 365 {
		retentionDays = 7
	}
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "default"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "assistant-stages"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		Dial: Backoff{
			Timeout: envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5*time.Second),
			MaxWait: envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", time.Minute),
			Base:    envutil.Millis("TEMPORAL_DIAL_BACKOFF_MS", 250*time.Millisecond),
			Max:     envutil.Millis("TEMPORAL_DIAL_BACKOFF_MAX_MS", 5*time.Second),
		},

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		NamespaceRetention:    time.Duration(retentionDays) * 24 * time.Hour,
		NamespaceEnsure: Backoff{
			MaxWait: envutil.Seconds("TEMPORAL_NAMESPACE_ENSURE_TIMEOUT_SECONDS", 10*time.Second),
			Base:    envutil.Millis("TEMPORAL_NAMESPACE_ENSURE_BACKOFF_MS", 250*time.Millisecond),
			Max:     envutil.Millis("TEMPORAL_NAMESPACE_ENSURE_BACKOFF_MAX_MS", 5*time.Second),
		},

		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4),
		WorkerStart: Backoff{
			MaxWait: envutil.Seconds("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", time.Minute),
			Base:    envutil.Millis("TEMPORAL_WORKER_START_BACKOFF_MS", 250*time.Millisecond),
			Max:     envutil.Millis("TEMPORAL_WORKER_START_BACKOFF_MAX_MS", 5*time.Second),
		},
	}
}

func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) usesTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

// Delay is the sleep before retry number attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	sleep := base
	for i := 1; i < attempt; i++ {
		sleep *= 2
		if b.Max > 0 && sleep >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && sleep > b.Max {
		return b.Max
	}
	return sleep
}
