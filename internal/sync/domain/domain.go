package domain

import (
	"context"
	"errors"

	orderdomain "github.com/smallbiznis/sevsync/internal/order/domain"
)

// MetaKeyInvoiceID is the idempotency marker on the order: its presence with
// a non-zero value means the order has already been synced.
const MetaKeyInvoiceID = "_sevdesk_invoice_id"

// Service pushes shop orders into the sevdesk account. One inbound order
// event triggers at most one outbound call sequence; there is no retry and
// no rollback of earlier steps when a later one fails.
type Service interface {
	// PushOrder synchronizes the order: contact upsert, then draft invoice
	// with positions, then marker write. Returns the invoice id, which may
	// be 0 when the remote create did not resolve one.
	PushOrder(ctx context.Context, ord *orderdomain.Order) (int64, error)
	// SyncContact re-runs the contact upsert alone and returns the contact id.
	SyncContact(ctx context.Context, ord *orderdomain.Order) (int64, error)
}

var (
	ErrMissingOrder = errors.New("missing_order")
)
