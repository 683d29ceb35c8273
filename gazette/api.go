package gazette

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Routes returns the HTTP surface of the service. Authentication and
// ownership checks belong to the caller's outer router.
func (svc *Service) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Get("/feeds/public/{slug}", svc.handlePublicFeed)
	r.Get("/feeds/{resourceID}", svc.handleFeed)

	r.Route("/api", func(r chi.Router) {
		r.Post("/resources", svc.handleCreateResource)
		r.Get("/resources", svc.handleListResources)
		r.Get("/resources/{resourceID}", svc.handleGetResource)
		r.Post("/readers", svc.handleCreateReader)
		r.Post("/subscriptions", svc.handleCreateSubscription)
		r.Post("/changes", svc.handleSubmitChange)
		r.Get("/cache/stats", svc.handleCacheStats)

		r.Route("/readers/{readerID}", func(r chi.Router) {
			r.Post("/read", svc.handleMarkRead)
			r.Post("/bulk-read", svc.handleBulkMarkRead)
			r.Post("/star/{recordID}", svc.handleToggleStar)
			r.Post("/notifications", svc.handleSetNotifications)
			r.Get("/starred", svc.handleListStarred)
			r.Get("/unread", svc.handleListUnread)
		})
	})

	return r
}

func (svc *Service) handleFeed(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "resourceID")
	limit := queryInt(r, "limit", 0)
	useCache := r.URL.Query().Get("fresh") != "1"

	feed, err := svc.RenderFeed(r.Context(), resourceID, limit, useCache)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeFeed(w, feed)
}

func (svc *Service) handlePublicFeed(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	limit := queryInt(r, "limit", 0)
	useCache := r.URL.Query().Get("fresh") != "1"

	feed, err := svc.RenderPublicFeed(r.Context(), slug, limit, useCache)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeFeed(w, feed)
}

func writeFeed(w http.ResponseWriter, feed []byte) {
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(200)
	w.Write(feed)
}

func (svc *Service) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := svc.ListResources(r.Context(), r.URL.Query().Get("owner_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if resources == nil {
		resources = []*Resource{}
	}
	writeJSON(w, 200, resources)
}

func (svc *Service) handleGetResource(w http.ResponseWriter, r *http.Request) {
	res, count, err := svc.DescribeResource(r.Context(), chi.URLParam(r, "resourceID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"resource": res, "record_count": count})
}

func (svc *Service) handleSetNotifications(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if err := svc.SetReaderNotifications(r.Context(), chi.URLParam(r, "readerID"), req.Enabled); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (svc *Service) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var res Resource
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeError(w, 400, err)
		return
	}
	if err := svc.RegisterResource(r.Context(), &res); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 201, res)
}

func (svc *Service) handleCreateReader(w http.ResponseWriter, r *http.Request) {
	var reader Reader
	if err := json.NewDecoder(r.Body).Decode(&reader); err != nil {
		writeError(w, 400, err)
		return
	}
	if err := svc.RegisterReader(r.Context(), &reader); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 201, reader)
}

func (svc *Service) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReaderID             string `json:"reader_id"`
		ResourceID           string `json:"resource_id"`
		NotificationsEnabled bool   `json:"notifications_enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if err := svc.Subscribe(r.Context(), req.ReaderID, req.ResourceID, req.NotificationsEnabled); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 201, map[string]string{"status": "subscribed"})
}

func (svc *Service) handleSubmitChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResourceID string   `json:"resource_id"`
		Title      string   `json:"title"`
		Changes    []Change `json:"changes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	rec, err := svc.SubmitChange(r.Context(), req.ResourceID, req.Changes, req.Title)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 201, rec)
}

func (svc *Service) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	readerID := chi.URLParam(r, "readerID")
	var req struct {
		RecordID string `json:"record_id"`
		IsRead   bool   `json:"is_read"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if err := svc.MarkRead(r.Context(), readerID, req.RecordID, req.IsRead); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (svc *Service) handleBulkMarkRead(w http.ResponseWriter, r *http.Request) {
	readerID := chi.URLParam(r, "readerID")
	var req struct {
		RecordIDs []string `json:"record_ids"`
		IsRead    bool     `json:"is_read"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	count, err := svc.BulkMarkRead(r.Context(), readerID, req.RecordIDs, req.IsRead)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, map[string]int{"count": count})
}

func (svc *Service) handleToggleStar(w http.ResponseWriter, r *http.Request) {
	state, err := svc.ToggleStarred(r.Context(),
		chi.URLParam(r, "readerID"), chi.URLParam(r, "recordID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, 200, state)
}

func (svc *Service) handleListStarred(w http.ResponseWriter, r *http.Request) {
	records, err := svc.ListStarred(r.Context(), chi.URLParam(r, "readerID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []*ChangeRecord{}
	}
	writeJSON(w, 200, records)
}

func (svc *Service) handleListUnread(w http.ResponseWriter, r *http.Request) {
	records, err := svc.ListUnread(r.Context(),
		chi.URLParam(r, "readerID"), r.URL.Query().Get("resource_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []*ChangeRecord{}
	}
	writeJSON(w, 200, records)
}

func (svc *Service) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, svc.CacheStats())
}

// writeServiceError maps sentinel errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, 404, err)
	case errors.Is(err, ErrValidation):
		writeError(w, 400, err)
	case errors.Is(err, ErrDuplicateGUID):
		writeError(w, 409, err)
	default:
		writeError(w, 500, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
