package observability_test

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/feedwatch/dbopen"
	"github.com/hazyhaar/feedwatch/observability"
)

func TestLogAndQueryEvents(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := observability.Init(db); err != nil {
		t.Fatal(err)
	}
	l := observability.NewEventLogger(db)
	ctx := context.Background()

	l.LogEvent(ctx, observability.Event{
		EventType:  "enrich_failed",
		EntityType: "change_record",
		EntityID:   "rec-1",
		Details:    `{"error":"provider timeout"}`,
		Success:    false,
	})
	l.LogEvent(ctx, observability.Event{
		EventType:  "enrich_completed",
		EntityType: "change_record",
		EntityID:   "rec-2",
		Success:    true,
	})

	failed, err := l.RecentEvents(ctx, "enrich_failed", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 {
		t.Fatalf("got %d enrich_failed events, want 1", len(failed))
	}
	if failed[0].EntityID != "rec-1" {
		t.Fatalf("got entity %q, want rec-1", failed[0].EntityID)
	}
	if failed[0].Success {
		t.Fatal("enrich_failed event should not be marked success")
	}

	all, err := l.RecentEvents(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d events, want 2", len(all))
	}
}

func TestCleanup(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(observability.Schema))
	l := observability.NewEventLogger(db)
	ctx := context.Background()

	l.LogEvent(ctx, observability.Event{EventType: "old", CreatedAt: 1000})
	l.LogEvent(ctx, observability.Event{EventType: "new"})

	if err := l.Cleanup(ctx, 30); err != nil {
		t.Fatal(err)
	}

	events, err := l.RecentEvents(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventType != "new" {
		t.Fatalf("cleanup kept wrong events: %+v", events)
	}
}
