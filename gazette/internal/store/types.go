package store

// Resource is a monitored resource whose changes feed a channel.
type Resource struct {
	ID            string `json:"id"`
	OwnerID       string `json:"owner_id"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	Description   string `json:"description"`
	Visibility    string `json:"visibility"` // private | public
	Slug          string `json:"slug,omitempty"`
	EnrichEnabled bool   `json:"enrich_enabled"`
	CreatedAt     int64  `json:"created_at"`
}

// ChangeRecord is one detected change event on a resource. Immutable except
// for Summary, which the enrichment worker sets at most once.
type ChangeRecord struct {
	ID          string `json:"id"`
	ResourceID  string `json:"resource_id"`
	Title       string `json:"title"`
	ChangesJSON string `json:"changes_json"`
	Summary     string `json:"summary,omitempty"`
	GUID        string `json:"guid"`
	PublishedAt int64  `json:"published_at"`
	CreatedAt   int64  `json:"created_at"`
}

// Reader is a feed consumer with per-reader preferences and read state.
type Reader struct {
	ID                        string `json:"id"`
	EmailNotificationsEnabled bool   `json:"email_notifications_enabled"`
	CreatedAt                 int64  `json:"created_at"`
}

// Subscription links a reader to a resource.
type Subscription struct {
	ReaderID             string `json:"reader_id"`
	ResourceID           string `json:"resource_id"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	CreatedAt            int64  `json:"created_at"`
}

// ReadState is a reader's state for one record.
type ReadState struct {
	ReaderID  string `json:"reader_id"`
	RecordID  string `json:"record_id"`
	IsRead    bool   `json:"is_read"`
	ReadAt    *int64 `json:"read_at,omitempty"`
	IsStarred bool   `json:"is_starred"`
	UpdatedAt int64  `json:"updated_at"`
}
