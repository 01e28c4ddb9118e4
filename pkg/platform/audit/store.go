package audit

import "context"

// Store is an append-only sink for audit events. Implementations must never
// mutate or delete events once appended.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEntity(ctx context.Context, entityKind, entityID string) ([]Event, error)
}
