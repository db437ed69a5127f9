package domain

import "context"

// Store is the side-channel capability set the shop platform exposes on an
// order: a key-value metadata store and an append-only note log. The order
// record itself is owned by the platform and never written here.
type Store interface {
	// GetMeta returns the stored value for key, or "" when absent.
	GetMeta(ctx context.Context, orderID int64, key string) (string, error)
	SetMeta(ctx context.Context, orderID int64, key, value string) error
	// SetMetaIfAbsent writes value only when no value is stored yet and
	// returns the winning value. Concurrent callers for the same order all
	// observe the same result.
	SetMetaIfAbsent(ctx context.Context, orderID int64, key, value string) (string, error)
	AppendNote(ctx context.Context, orderID int64, note string) error
	RecordEvent(ctx context.Context, event *WebhookEvent) error
}
