// Package vtq implements a Visibility Timeout Queue backed by SQLite.
//
// Rows in the queue are invisible to consumers for a configurable duration
// after being claimed. If the holder processes the row successfully it acks
// (deletes) it. If the holder crashes or exceeds the timeout the row
// reappears automatically and another consumer can claim it.
//
// Failed jobs are redelivered with exponential backoff plus randomized
// jitter. Once a job exhausts Options.MaxAttempts, or its handler reports a
// permanent failure, it is removed from the queue and handed to the
// DeadLetter hook, so no job is ever lost silently or retried forever.
//
// The queue is pure SQLite: no external broker, no cloud dependency.
//
// Expected schema (created by EnsureTable):
//
//	CREATE TABLE IF NOT EXISTS vtq_jobs (
//	    id          TEXT PRIMARY KEY,
//	    queue       TEXT NOT NULL DEFAULT '',
//	    payload     BLOB,
//	    visible_at  INTEGER NOT NULL DEFAULT 0,  -- milliseconds since epoch
//	    created_at  INTEGER NOT NULL,             -- milliseconds since epoch
//	    attempts    INTEGER NOT NULL DEFAULT 0
//	);
//	CREATE INDEX IF NOT EXISTS idx_vtq_visible ON vtq_jobs (queue, visible_at);
package vtq

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Job is a row in the queue.
type Job struct {
	ID        string
	Queue     string
	Payload   []byte
	VisibleAt time.Time
	CreatedAt time.Time
	Attempts  int
}

// Backoff controls the redelivery delay after a failed attempt.
// The delay for attempt n (1-based) is Base*2^(n-1), capped at Max, plus a
// random jitter of up to Jitter times the computed delay.
type Backoff struct {
	// Base is the delay after the first failed attempt. Default: 2s.
	Base time.Duration
	// Max caps the exponential delay. Default: 5m.
	Max time.Duration
	// Jitter is the random fraction added on top of the delay, in [0,1].
	// Default: 0.5.
	Jitter float64
}

func (b *Backoff) defaults() {
	if b.Base <= 0 {
		b.Base = 2 * time.Second
	}
	if b.Max <= 0 {
		b.Max = 5 * time.Minute
	}
	if b.Jitter <= 0 {
		b.Jitter = 0.5
	}
}

// Delay computes the redelivery delay after the given failed attempt count.
func (b Backoff) Delay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := b.Base
	for i := 1; i < attempts && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		d = b.Max
	}
	return d + time.Duration(rand.Float64()*b.Jitter*float64(d))
}

// DeadLetterFunc receives jobs that exhausted their attempts or failed
// permanently. The job has already been removed from the queue.
type DeadLetterFunc func(ctx context.Context, job *Job, err error)

// Options configures queue behaviour.
type Options struct {
	// Queue is the logical queue name. Multiple queues can coexist in the
	// same table. Default: "" (the default queue).
	Queue string
	// Visibility is how long a claimed job stays invisible. Default: 30s.
	Visibility time.Duration
	// PollInterval is the delay between claim attempts in the Run loop.
	// Default: 1s.
	PollInterval time.Duration
	// MaxAttempts limits how many times a job is attempted before it is
	// dead-lettered. 0 means unlimited. Default: 0.
	MaxAttempts int
	// Backoff controls the redelivery delay for failed attempts.
	Backoff Backoff
	// DeadLetter receives exhausted or permanently failed jobs. Nil means
	// dead-lettered jobs are only logged.
	DeadLetter DeadLetterFunc
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Visibility <= 0 {
		o.Visibility = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	o.Backoff.defaults()
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// permanentError marks a handler failure that must not be retried.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so the Run loops dead-letter the job immediately
// instead of redelivering it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Q is the queue handle.
type Q struct {
	db   *sql.DB
	opts Options
}

// New creates a queue handle. Call EnsureTable once at startup, then Publish
// and Claim (or Run / RunBatch) as needed.
func New(db *sql.DB, opts Options) *Q {
	opts.defaults()
	return &Q{db: db, opts: opts}
}

// EnsureTable creates the vtq_jobs table and index if they don't exist.
func (q *Q) EnsureTable(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS vtq_jobs (
			id          TEXT PRIMARY KEY,
			queue       TEXT NOT NULL DEFAULT '',
			payload     BLOB,
			visible_at  INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL,
			attempts    INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_vtq_visible ON vtq_jobs (queue, visible_at);
	`)
	return err
}

// Publish inserts a job that is immediately visible.
func (q *Q) Publish(ctx context.Context, id string, payload []byte) error {
	now := time.Now().UnixMilli()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO vtq_jobs (id, queue, payload, visible_at, created_at) VALUES (?,?,?,?,?)`,
		id, q.opts.Queue, payload, now, now,
	)
	return err
}

// Claim atomically picks the oldest visible job, marks it invisible for the
// configured visibility duration, and returns it. Returns nil, nil if no job
// is available.
func (q *Q) Claim(ctx context.Context) (*Job, error) {
	now := time.Now()
	hideUntil := now.Add(q.opts.Visibility).UnixMilli()

	row := q.db.QueryRowContext(ctx, `
		UPDATE vtq_jobs
		SET visible_at = ?, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM vtq_jobs
			WHERE queue = ? AND visible_at <= ?
			ORDER BY visible_at ASC
			LIMIT 1
		)
		RETURNING id, queue, payload, visible_at, created_at, attempts`,
		hideUntil, q.opts.Queue, now.UnixMilli(),
	)

	var j Job
	var visAt, creAt int64
	err := row.Scan(&j.ID, &j.Queue, &j.Payload, &visAt, &creAt, &j.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.VisibleAt = time.UnixMilli(visAt)
	j.CreatedAt = time.UnixMilli(creAt)
	return &j, nil
}

// Ack deletes a successfully processed job.
func (q *Q) Ack(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM vtq_jobs WHERE id = ? AND queue = ?`, id, q.opts.Queue,
	)
	return err
}

// Nack makes a job immediately visible again so another consumer can pick it up.
func (q *Q) Nack(ctx context.Context, id string) error {
	return q.NackAfter(ctx, id, 0)
}

// NackAfter makes a job visible again after the given delay. Used by the Run
// loops to implement backoff redelivery.
func (q *Q) NackAfter(ctx context.Context, id string, delay time.Duration) error {
	visibleAt := int64(0)
	if delay > 0 {
		visibleAt = time.Now().Add(delay).UnixMilli()
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE vtq_jobs SET visible_at = ? WHERE id = ? AND queue = ?`,
		visibleAt, id, q.opts.Queue,
	)
	return err
}

// Purge deletes all jobs in the queue.
func (q *Q) Purge(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM vtq_jobs WHERE queue = ?`, q.opts.Queue,
	)
	return err
}

// Len returns the total number of jobs (visible + invisible) in the queue.
func (q *Q) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vtq_jobs WHERE queue = ?`, q.opts.Queue,
	).Scan(&n)
	return n, err
}

// Handler processes a claimed job. Return nil to ack. Return an error to
// redeliver with backoff, or wrap it with Permanent to dead-letter the job
// without further attempts.
type Handler func(ctx context.Context, job *Job) error

// Run polls for visible jobs and calls handler for each one. It blocks until
// ctx is cancelled.
func (q *Q) Run(ctx context.Context, handler Handler) {
	log := q.opts.Logger
	log.Info("vtq: consumer started", "queue", q.opts.Queue, "visibility", q.opts.Visibility, "poll", q.opts.PollInterval)

	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("vtq: consumer stopped", "queue", q.opts.Queue)
			return
		case <-ticker.C:
			q.poll(ctx, handler, log)
		}
	}
}

func (q *Q) poll(ctx context.Context, handler Handler, log *slog.Logger) {
	for {
		job, err := q.Claim(ctx)
		if err != nil {
			log.Warn("vtq: claim failed", "error", err, "queue", q.opts.Queue)
			return
		}
		if job == nil {
			return // nothing visible
		}
		q.process(ctx, job, handler, log)
	}
}

// process runs handler on one claimed job and settles it: ack on success,
// dead-letter on permanent failure or exhausted attempts, backoff otherwise.
func (q *Q) process(ctx context.Context, job *Job, handler Handler, log *slog.Logger) {
	// A job redelivered past its attempt budget (e.g. after a crashed
	// holder) goes straight to the dead-letter hook.
	if q.opts.MaxAttempts > 0 && job.Attempts > q.opts.MaxAttempts {
		q.deadLetter(ctx, job, errors.New("vtq: attempts exhausted"), log)
		return
	}

	err := handler(ctx, job)
	if err == nil {
		_ = q.Ack(context.WithoutCancel(ctx), job.ID)
		return
	}

	if IsPermanent(err) {
		q.deadLetter(ctx, job, err, log)
		return
	}

	if q.opts.MaxAttempts > 0 && job.Attempts >= q.opts.MaxAttempts {
		q.deadLetter(ctx, job, err, log)
		return
	}

	delay := q.opts.Backoff.Delay(job.Attempts)
	log.Warn("vtq: handler failed, redelivering",
		"id", job.ID, "attempts", job.Attempts, "delay", delay, "error", err, "queue", q.opts.Queue)
	_ = q.NackAfter(context.WithoutCancel(ctx), job.ID, delay)
}

func (q *Q) deadLetter(ctx context.Context, job *Job, err error, log *slog.Logger) {
	log.Error("vtq: job dead-lettered",
		"id", job.ID, "attempts", job.Attempts, "error", err, "queue", q.opts.Queue)
	_ = q.Ack(context.WithoutCancel(ctx), job.ID)
	if q.opts.DeadLetter != nil {
		q.opts.DeadLetter(ctx, job, err)
	}
}

// BatchClaim atomically claims up to n visible jobs. It returns an empty
// (non-nil) slice when no jobs are available.
func (q *Q) BatchClaim(ctx context.Context, n int) ([]*Job, error) {
	now := time.Now()
	hideUntil := now.Add(q.opts.Visibility).UnixMilli()

	rows, err := q.db.QueryContext(ctx, `
		UPDATE vtq_jobs
		SET visible_at = ?, attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM vtq_jobs
			WHERE queue = ? AND visible_at <= ?
			ORDER BY visible_at ASC
			LIMIT ?
		)
		RETURNING id, queue, payload, visible_at, created_at, attempts`,
		hideUntil, q.opts.Queue, now.UnixMilli(), n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var j Job
		var visAt, creAt int64
		if err := rows.Scan(&j.ID, &j.Queue, &j.Payload, &visAt, &creAt, &j.Attempts); err != nil {
			return nil, err
		}
		j.VisibleAt = time.UnixMilli(visAt)
		j.CreatedAt = time.UnixMilli(creAt)
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []*Job{}
	}
	return jobs, nil
}

// RunBatch polls in batches and processes jobs with bounded concurrency.
// It blocks until ctx is cancelled, draining in-flight handlers before
// returning.
func (q *Q) RunBatch(ctx context.Context, batchSize, maxConcurrency int, handler Handler) {
	log := q.opts.Logger
	log.Info("vtq: batch consumer started",
		"queue", q.opts.Queue,
		"batch_size", batchSize,
		"max_concurrency", maxConcurrency,
		"visibility", q.opts.Visibility,
		"poll", q.opts.PollInterval,
	)

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("vtq: batch consumer stopping, draining in-flight handlers", "queue", q.opts.Queue)
			wg.Wait()
			log.Info("vtq: batch consumer stopped", "queue", q.opts.Queue)
			return
		case <-ticker.C:
			jobs, err := q.BatchClaim(ctx, batchSize)
			if err != nil {
				if ctx.Err() != nil {
					wg.Wait()
					return
				}
				log.Warn("vtq: batch claim failed", "error", err, "queue", q.opts.Queue)
				continue
			}

			for _, job := range jobs {
				// Acquire semaphore slot (or bail on context cancel).
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					_ = q.Nack(context.WithoutCancel(ctx), job.ID)
					wg.Wait()
					return
				}

				wg.Add(1)
				go func(j *Job) {
					defer wg.Done()
					defer func() { <-sem }()
					q.process(ctx, j, handler, log)
				}(job)
			}
		}
	}
}
