package gazette

import "time"

// Config controls the gazette service.
type Config struct {
	// FeedLimit is the default number of records per rendered feed.
	FeedLimit int `yaml:"feed_limit"`
	// MaxFeedLimit caps the per-request limit parameter.
	MaxFeedLimit int `yaml:"max_feed_limit"`
	// CacheTTL is how long a cached feed artifact stays servable.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// CacheBypass disables the feed cache entirely (every request renders).
	CacheBypass bool `yaml:"cache_bypass"`
	// Worker configures the enrichment consumer.
	Worker WorkerConfig `yaml:"worker"`
}

// WorkerConfig controls the enrichment worker.
type WorkerConfig struct {
	// BatchSize is how many jobs are claimed per poll.
	BatchSize int `yaml:"batch_size"`
	// Concurrency bounds how many enrichments run at once.
	Concurrency int `yaml:"concurrency"`
	// MaxAttempts is the total attempt budget per record (first attempt
	// plus retries). Exhausting it dead-letters the job.
	MaxAttempts int `yaml:"max_attempts"`
	// TaskTimeout is the wall-clock ceiling for one enrichment attempt.
	TaskTimeout time.Duration `yaml:"task_timeout"`
	// PollInterval is the queue polling cadence.
	PollInterval time.Duration `yaml:"poll_interval"`
	// Visibility is how long a claimed job stays invisible to other workers.
	Visibility time.Duration `yaml:"visibility"`
	// BackoffBase is the redelivery delay after the first failed attempt.
	BackoffBase time.Duration `yaml:"backoff_base"`
	// BackoffMax caps the exponential redelivery delay.
	BackoffMax time.Duration `yaml:"backoff_max"`
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

func (c *Config) defaults() {
	if c.FeedLimit <= 0 {
		c.FeedLimit = 50
	}
	if c.MaxFeedLimit <= 0 {
		c.MaxFeedLimit = 500
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 15 * time.Minute
	}
	c.Worker.defaults()
}

func (w *WorkerConfig) defaults() {
	if w.BatchSize <= 0 {
		w.BatchSize = 8
	}
	if w.Concurrency <= 0 {
		w.Concurrency = 4
	}
	if w.MaxAttempts <= 0 {
		w.MaxAttempts = 3
	}
	if w.TaskTimeout <= 0 {
		w.TaskTimeout = 30 * time.Second
	}
	if w.PollInterval <= 0 {
		w.PollInterval = time.Second
	}
	if w.Visibility <= 0 {
		w.Visibility = time.Minute
	}
	if w.BackoffBase <= 0 {
		w.BackoffBase = 2 * time.Second
	}
	if w.BackoffMax <= 0 {
		w.BackoffMax = 5 * time.Minute
	}
}
