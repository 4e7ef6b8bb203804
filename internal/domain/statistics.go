package domain

import "context"

// StatMaxOpen names the cached historical maximum of simultaneously open
// issues.
const StatMaxOpen = "max_open"

// Statistics summarises the issue history.
type Statistics struct {
	MaxOpen          int `json:"maxOpen"`
	CurrentOpen      int `json:"currentOpen"`
	ClosedInLastWeek int `json:"closedInLastWeek"`
}

// StatCacheStore is the port for persisted derived statistics, one value per
// name.
type StatCacheStore interface {
	// Get returns the cached value, with ok=false when nothing is cached.
	Get(ctx context.Context, name string) (value int64, ok bool, err error)
	// InsertIfAbsent stores value unless name already has one, reporting
	// whether this call stored it.
	InsertIfAbsent(ctx context.Context, name string, value int64) (inserted bool, err error)
	// Delete removes the value; deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error
}
