package gazette

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/feedwatch/gazette/internal/render"
	"github.com/hazyhaar/feedwatch/gazette/internal/store"
)

// RegisterResource adds a resource whose changes will be accepted. The URL,
// when set, is validated against unsafe schemes and private addresses.
func (svc *Service) RegisterResource(ctx context.Context, r *Resource) error {
	if r.ID == "" {
		r.ID = svc.newID()
	}
	if r.Name == "" {
		return fmt.Errorf("%w: resource name is required", ErrValidation)
	}
	if r.OwnerID == "" {
		return fmt.Errorf("%w: resource owner is required", ErrValidation)
	}
	switch r.Visibility {
	case "", "private":
		r.Visibility = "private"
		r.Slug = ""
	case "public":
		if r.Slug == "" {
			return fmt.Errorf("%w: public resource requires a slug", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: visibility must be private or public", ErrValidation)
	}
	if r.URL != "" {
		if err := svc.urlValidator(r.URL); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	if err := svc.store.InsertResource(ctx, r); err != nil {
		if store.IsConflict(err) {
			return fmt.Errorf("%w: resource id or slug already taken", ErrValidation)
		}
		return err
	}
	svc.logger.Info("gazette: resource registered",
		"resource_id", r.ID, "visibility", r.Visibility)
	return nil
}

// RegisterReader adds a reader.
func (svc *Service) RegisterReader(ctx context.Context, r *Reader) error {
	if r.ID == "" {
		r.ID = svc.newID()
	}
	if err := svc.store.InsertReader(ctx, r); err != nil {
		if store.IsConflict(err) {
			return fmt.Errorf("%w: reader already exists", ErrValidation)
		}
		return err
	}
	return nil
}

// Subscribe links a reader to a resource. Re-subscribing updates the
// notification preference.
func (svc *Service) Subscribe(ctx context.Context, readerID, resourceID string, notifications bool) error {
	if _, err := svc.mustReader(ctx, readerID); err != nil {
		return err
	}
	if _, err := svc.mustResource(ctx, resourceID); err != nil {
		return err
	}
	return svc.store.InsertSubscription(ctx, &Subscription{
		ReaderID:             readerID,
		ResourceID:           resourceID,
		NotificationsEnabled: notifications,
	})
}

// SubmitChange records a detected change and, when the resource has
// enrichment enabled, queues it for asynchronous summarization. Validation
// is synchronous: an invalid submission is rejected here and never enters
// the pipeline. The caller never waits on summarization.
func (svc *Service) SubmitChange(ctx context.Context, resourceID string, changes []Change, title string) (*ChangeRecord, error) {
	res, err := svc.mustResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: a change record needs at least one field change", ErrValidation)
	}
	for i, c := range changes {
		if strings.TrimSpace(c.Field) == "" {
			return nil, fmt.Errorf("%w: change %d has an empty field name", ErrValidation, i)
		}
	}

	payload, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	publishedAt := svc.now().UnixMilli()
	rec := &ChangeRecord{
		ID:          svc.newID(),
		ResourceID:  resourceID,
		Title:       title,
		ChangesJSON: string(payload),
		GUID:        fmt.Sprintf("%s-%d", resourceID, publishedAt),
		PublishedAt: publishedAt,
	}
	if err := svc.store.InsertRecord(ctx, rec); err != nil {
		if store.IsConflict(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateGUID, rec.GUID)
		}
		return nil, err
	}

	// The feed for this resource changed; cached renders are now stale.
	svc.cache.Invalidate(resourceID)

	if res.EnrichEnabled {
		job, _ := json.Marshal(enrichJob{RecordID: rec.ID})
		if err := svc.queue.Publish(ctx, rec.ID, job); err != nil {
			// The record is durable; only its summary is lost. Surface the
			// failure without failing the submission.
			svc.logger.Error("gazette: enqueue enrichment failed",
				"record_id", rec.ID, "error", err)
		}
	}

	svc.logger.Info("gazette: change submitted",
		"record_id", rec.ID, "resource_id", resourceID,
		"fields", len(changes), "enrich", res.EnrichEnabled)
	return rec, nil
}

// GetRecord returns one change record.
func (svc *Service) GetRecord(ctx context.Context, recordID string) (*ChangeRecord, error) {
	rec, err := svc.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: record %s", ErrNotFound, recordID)
	}
	return rec, nil
}

// RenderFeed returns the RSS document for a resource. With useCache the
// artifact is served from the feed cache keyed by resource and limit;
// without it the feed is rendered fresh and the cache is neither read nor
// written.
func (svc *Service) RenderFeed(ctx context.Context, resourceID string, limit int, useCache bool) ([]byte, error) {
	res, err := svc.mustResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return svc.renderResourceFeed(ctx, res, limit, useCache)
}

// RenderPublicFeed serves a public resource's feed by its slug. Private
// resources have no slug and are never reachable this way.
func (svc *Service) RenderPublicFeed(ctx context.Context, slug string, limit int, useCache bool) ([]byte, error) {
	res, err := svc.store.GetResourceBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: no public feed %q", ErrNotFound, slug)
	}
	return svc.renderResourceFeed(ctx, res, limit, useCache)
}

func (svc *Service) renderResourceFeed(ctx context.Context, res *Resource, limit int, useCache bool) ([]byte, error) {
	if limit <= 0 {
		limit = svc.config.FeedLimit
	}
	if limit > svc.config.MaxFeedLimit {
		limit = svc.config.MaxFeedLimit
	}

	renderFn := func(ctx context.Context) ([]byte, error) {
		records, err := svc.store.ListRecords(ctx, res.ID, limit)
		if err != nil {
			return nil, err
		}
		return render.Feed(res, records)
	}

	if !useCache {
		return renderFn(ctx)
	}
	return svc.cache.GetOrRender(ctx, res.ID, fmt.Sprintf("limit=%d", limit), renderFn)
}

// ListResources returns the resources owned by one owner, newest first.
func (svc *Service) ListResources(ctx context.Context, ownerID string) ([]*Resource, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner_id is required", ErrValidation)
	}
	return svc.store.ListResources(ctx, ownerID)
}

// DescribeResource returns a resource together with its change record count.
func (svc *Service) DescribeResource(ctx context.Context, resourceID string) (*Resource, int, error) {
	res, err := svc.mustResource(ctx, resourceID)
	if err != nil {
		return nil, 0, err
	}
	count, err := svc.store.CountRecords(ctx, resourceID)
	if err != nil {
		return nil, 0, err
	}
	return res, count, nil
}

func (svc *Service) mustResource(ctx context.Context, id string) (*Resource, error) {
	res, err := svc.store.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: resource %s", ErrNotFound, id)
	}
	return res, nil
}

func (svc *Service) mustReader(ctx context.Context, id string) (*Reader, error) {
	r, err := svc.store.GetReader(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: reader %s", ErrNotFound, id)
	}
	return r, nil
}
