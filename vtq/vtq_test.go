package vtq_test

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/feedwatch/dbopen"
	"github.com/hazyhaar/feedwatch/vtq"
)

func newQ(t *testing.T, db *sql.DB, opts vtq.Options) *vtq.Q {
	t.Helper()
	q := vtq.New(db, opts)
	if err := q.EnsureTable(context.Background()); err != nil {
		t.Fatal(err)
	}
	return q
}

func TestPublishAndClaim(t *testing.T) {
	db := dbopen.OpenMemory(t)
	q := newQ(t, db, vtq.Options{Visibility: time.Second})
	ctx := context.Background()

	if err := q.Publish(ctx, "j1", []byte("hello")); err != nil {
		t.Fatal(err)
	}

	job, err := q.Claim(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if job == nil {
		t.Fatal("expected a job")
	}
	if job.ID != "j1" {
		t.Fatalf("got id %q, want j1", job.ID)
	}
	if string(job.Payload) != "hello" {
		t.Fatalf("got payload %q, want hello", string(job.Payload))
	}
	if job.Attempts != 1 {
		t.Fatalf("got attempts %d, want 1", job.Attempts)
	}

	// Second claim returns nil: job is invisible.
	job2, err := q.Claim(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if job2 != nil {
		t.Fatal("expected nil, job should be invisible")
	}
}

func TestAck(t *testing.T) {
	db := dbopen.OpenMemory(t)
	q := newQ(t, db, vtq.Options{Visibility: time.Second})
	ctx := context.Background()

	q.Publish(ctx, "j1", nil)
	job, _ := q.Claim(ctx)
	if err := q.Ack(ctx, job.ID); err != nil {
		t.Fatal(err)
	}

	n, _ := q.Len(ctx)
	if n != 0 {
		t.Fatalf("queue should be empty after ack, got %d", n)
	}
}

func TestNackAfter(t *testing.T) {
	db := dbopen.OpenMemory(t)
	q := newQ(t, db, vtq.Options{Visibility: 10 * time.Second})
	ctx := context.Background()

	q.Publish(ctx, "j1", []byte("retry-me"))
	job, _ := q.Claim(ctx)

	// Nack with a delay keeps the job invisible for that long.
	if err := q.NackAfter(ctx, job.ID, time.Hour); err != nil {
		t.Fatal(err)
	}
	job2, err := q.Claim(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if job2 != nil {
		t.Fatal("job should still be invisible during backoff delay")
	}

	// Plain nack makes it visible immediately.
	if err := q.Nack(ctx, job.ID); err != nil {
		t.Fatal(err)
	}
	job3, err := q.Claim(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if job3 == nil {
		t.Fatal("expected job after nack")
	}
	if job3.Attempts != 2 {
		t.Fatalf("got attempts %d, want 2", job3.Attempts)
	}
}

func TestVisibilityTimeout(t *testing.T) {
	db := dbopen.OpenMemory(t)
	q := newQ(t, db, vtq.Options{Visibility: 50 * time.Millisecond})
	ctx := context.Background()

	q.Publish(ctx, "j1", nil)
	q.Claim(ctx) // claimed, invisible for 50ms

	job, _ := q.Claim(ctx)
	if job != nil {
		t.Fatal("job should be invisible immediately after claim")
	}

	time.Sleep(80 * time.Millisecond)

	job, err := q.Claim(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if job == nil {
		t.Fatal("job should reappear after visibility timeout")
	}
	if job.Attempts != 2 {
		t.Fatalf("got attempts %d, want 2", job.Attempts)
	}
}

func TestBackoffDelay(t *testing.T) {
	b := vtq.Backoff{Base: time.Second, Max: 10 * time.Second, Jitter: 0.5}

	for attempts, base := range map[int]time.Duration{
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		9: 10 * time.Second, // capped at Max
	} {
		d := b.Delay(attempts)
		if d < base {
			t.Errorf("Delay(%d) = %v, want >= %v", attempts, d, base)
		}
		limit := base + time.Duration(0.5*float64(base))
		if d > limit {
			t.Errorf("Delay(%d) = %v, want <= %v (jitter bound)", attempts, d, limit)
		}
	}
}

func TestDeadLetterAfterMaxAttempts(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx := context.Background()

	var dead atomic.Int32
	q := newQ(t, db, vtq.Options{
		Visibility:   time.Second,
		PollInterval: 5 * time.Millisecond,
		MaxAttempts:  2,
		Backoff:      vtq.Backoff{Base: time.Millisecond, Max: time.Millisecond, Jitter: 0.01},
		DeadLetter: func(_ context.Context, job *vtq.Job, err error) {
			if job.ID != "j1" {
				t.Errorf("dead-lettered wrong job: %s", job.ID)
			}
			dead.Add(1)
		},
	})

	q.Publish(ctx, "j1", nil)
	boom := errors.New("boom")

	runCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	q.Run(runCtx, func(_ context.Context, _ *vtq.Job) error { return boom })

	if got := dead.Load(); got != 1 {
		t.Fatalf("dead-letter fired %d times, want exactly 1", got)
	}
	n, _ := q.Len(ctx)
	if n != 0 {
		t.Fatalf("queue should be empty after dead-letter, got %d", n)
	}
}

func TestPermanentDeadLettersImmediately(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx := context.Background()

	var dead atomic.Int32
	var calls atomic.Int32
	q := newQ(t, db, vtq.Options{
		Visibility:   time.Second,
		PollInterval: 5 * time.Millisecond,
		MaxAttempts:  10,
		DeadLetter: func(_ context.Context, _ *vtq.Job, err error) {
			dead.Add(1)
		},
	})

	q.Publish(ctx, "j1", nil)
	handler := func(_ context.Context, _ *vtq.Job) error {
		calls.Add(1)
		return vtq.Permanent(errors.New("gone"))
	}

	runCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	q.Run(runCtx, handler)

	if got := calls.Load(); got != 1 {
		t.Fatalf("handler called %d times, want 1 (no retry on permanent)", got)
	}
	if got := dead.Load(); got != 1 {
		t.Fatalf("dead-letter fired %d times, want 1", got)
	}
}

func TestRunProcessesAndAcks(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx := context.Background()

	q := newQ(t, db, vtq.Options{
		Visibility:   time.Second,
		PollInterval: 5 * time.Millisecond,
	})
	q.Publish(ctx, "j1", []byte("a"))
	q.Publish(ctx, "j2", []byte("b"))

	var done atomic.Int32
	runCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	q.Run(runCtx, func(_ context.Context, _ *vtq.Job) error {
		done.Add(1)
		return nil
	})

	if got := done.Load(); got != 2 {
		t.Fatalf("processed %d jobs, want 2", got)
	}
	n, _ := q.Len(ctx)
	if n != 0 {
		t.Fatalf("queue should be empty, got %d", n)
	}
}

func TestPermanentNil(t *testing.T) {
	if vtq.Permanent(nil) != nil {
		t.Fatal("Permanent(nil) should be nil")
	}
	if vtq.IsPermanent(errors.New("x")) {
		t.Fatal("plain error should not be permanent")
	}
	if !vtq.IsPermanent(vtq.Permanent(errors.New("x"))) {
		t.Fatal("wrapped error should be permanent")
	}
}
