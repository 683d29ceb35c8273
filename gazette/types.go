package gazette

import (
	"github.com/hazyhaar/feedwatch/gazette/internal/store"
	"github.com/hazyhaar/feedwatch/summarize"
)

// Aliases so callers work with gazette types without importing internals.

// Resource is a monitored resource whose changes feed a channel.
type Resource = store.Resource

// ChangeRecord is one detected change event on a resource.
type ChangeRecord = store.ChangeRecord

// Reader is a feed consumer.
type Reader = store.Reader

// Subscription links a reader to a resource.
type Subscription = store.Subscription

// ReadState is a reader's per-record read/starred state.
type ReadState = store.ReadState

// Change is one field-level change inside a record.
type Change = summarize.Change
