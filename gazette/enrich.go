package gazette

import (
	"context"
	"encoding/json"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/feedwatch/observability"
	"github.com/hazyhaar/feedwatch/summarize"
	"github.com/hazyhaar/feedwatch/vtq"
)

// Outcome classifies one enrichment attempt. The classification, not the
// error value, decides the retry policy.
type Outcome int

const (
	// OutcomeSuccess: summary generated and persisted.
	OutcomeSuccess Outcome = iota
	// OutcomeSkipped: nothing to do (generator unavailable, or the record
	// is already enriched). Not a failure; never retried.
	OutcomeSkipped
	// OutcomeTransient: attempt failed but a later one may succeed.
	// Redelivered with backoff until the attempt budget runs out.
	OutcomeTransient
	// OutcomePermanent: no attempt can succeed (record gone, payload
	// unparsable). Dead-lettered immediately.
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeTransient:
		return "transient"
	case OutcomePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// enrichJob is the queue payload for one enrichment task.
type enrichJob struct {
	RecordID string `json:"record_id"`
}

// summaryPolicy strips markup from generated summaries before they are
// persisted. The generator output is untrusted text.
var summaryPolicy = bluemonday.StrictPolicy()

// handleEnrichJob adapts enrichRecord outcomes to queue settle semantics.
func (svc *Service) handleEnrichJob(ctx context.Context, job *vtq.Job) error {
	var payload enrichJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return vtq.Permanent(fmt.Errorf("bad job payload: %w", err))
	}

	outcome, err := svc.enrichRecord(ctx, payload.RecordID)
	switch outcome {
	case OutcomePermanent:
		return vtq.Permanent(err)
	case OutcomeTransient:
		return err
	default:
		return nil
	}
}

// enrichRecord performs one enrichment attempt under the configured task
// timeout. Attempts on different records are independent and unordered.
func (svc *Service) enrichRecord(ctx context.Context, recordID string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.config.Worker.TaskTimeout)
	defer cancel()

	rec, err := svc.store.GetRecord(ctx, recordID)
	if err != nil {
		return OutcomeTransient, fmt.Errorf("load record: %w", err)
	}
	if rec == nil {
		return OutcomePermanent, fmt.Errorf("record not found: %s", recordID)
	}
	if rec.Summary != "" {
		svc.logger.Debug("gazette: record already enriched", "record_id", recordID)
		return OutcomeSkipped, nil
	}
	if !svc.gen.Available() {
		svc.logger.Debug("gazette: generator unavailable, record left unenriched",
			"record_id", recordID)
		return OutcomeSkipped, nil
	}

	var changes []summarize.Change
	if err := json.Unmarshal([]byte(rec.ChangesJSON), &changes); err != nil {
		return OutcomePermanent, fmt.Errorf("record %s changes: %w", recordID, err)
	}

	summary, err := svc.gen.Summarize(ctx, changes)
	if err != nil {
		return OutcomeTransient, fmt.Errorf("summarize record %s: %w", recordID, err)
	}
	summary = html.UnescapeString(summaryPolicy.Sanitize(summary))

	wrote, err := svc.store.SetSummary(ctx, recordID, summary)
	if err != nil {
		return OutcomeTransient, fmt.Errorf("persist summary: %w", err)
	}
	if !wrote {
		// A concurrent attempt won the write. The record is enriched either
		// way; nothing else to do.
		return OutcomeSkipped, nil
	}

	// The summary now belongs in the feed body: cached renders of this
	// resource are stale. Invalidation happens only after a successful write.
	svc.cache.Invalidate(rec.ResourceID)

	if svc.events != nil {
		svc.events.LogEvent(ctx, observability.Event{
			EventType:  "enrich_completed",
			EntityType: "change_record",
			EntityID:   recordID,
			Success:    true,
		})
	}
	svc.logger.Info("gazette: record enriched",
		"record_id", recordID, "resource_id", rec.ResourceID)
	return OutcomeSuccess, nil
}

// EnrichNow runs one enrichment attempt synchronously, outside the queue.
// Used by tests and operator tooling; the background worker uses the same
// attempt logic.
func (svc *Service) EnrichNow(ctx context.Context, recordID string) (Outcome, error) {
	return svc.enrichRecord(ctx, recordID)
}

// deadLetter receives enrichment jobs removed from the queue after a
// permanent failure or an exhausted attempt budget. The record stays
// unenriched; the failure is surfaced on the operator channel instead of
// being retried forever or dropped silently.
func (svc *Service) deadLetter(ctx context.Context, job *vtq.Job, cause error) {
	var payload enrichJob
	_ = json.Unmarshal(job.Payload, &payload)

	svc.logger.Error("gazette: enrichment abandoned",
		"record_id", payload.RecordID, "attempts", job.Attempts, "error", cause)

	if svc.events == nil {
		return
	}
	details, _ := json.Marshal(map[string]any{
		"error":    cause.Error(),
		"attempts": job.Attempts,
	})
	svc.events.LogEvent(ctx, observability.Event{
		EventType:  "enrich_failed",
		EntityType: "change_record",
		EntityID:   payload.RecordID,
		Details:    string(details),
		Success:    false,
	})
}
