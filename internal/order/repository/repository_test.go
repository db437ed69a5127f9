package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/smallbiznis/sevsync/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) (domain.Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.OrderMeta{},
		&domain.OrderNote{},
		&domain.WebhookEvent{},
	))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewStore(db, node), db
}

func TestGetMeta_AbsentReturnsEmpty(t *testing.T) {
	store, _ := setupStore(t)

	value, err := store.GetMeta(context.Background(), 1, "_sevdesk_invoice_id")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSetMeta_InsertAndOverwrite(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetMeta(ctx, 1, "_sevdesk_invoice_id", "100"))

	value, err := store.GetMeta(ctx, 1, "_sevdesk_invoice_id")
	require.NoError(t, err)
	assert.Equal(t, "100", value)

	require.NoError(t, store.SetMeta(ctx, 1, "_sevdesk_invoice_id", "200"))

	value, err = store.GetMeta(ctx, 1, "_sevdesk_invoice_id")
	require.NoError(t, err)
	assert.Equal(t, "200", value)
}

func TestSetMeta_KeyedPerOrder(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetMeta(ctx, 1, "k", "a"))
	require.NoError(t, store.SetMeta(ctx, 2, "k", "b"))

	value, err := store.GetMeta(ctx, 1, "k")
	require.NoError(t, err)
	assert.Equal(t, "a", value)

	value, err = store.GetMeta(ctx, 2, "k")
	require.NoError(t, err)
	assert.Equal(t, "b", value)
}

func TestSetMetaIfAbsent_FirstWriterWins(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	won, err := store.SetMetaIfAbsent(ctx, 1, "_sevdesk_invoice_id", "100")
	require.NoError(t, err)
	assert.Equal(t, "100", won)

	// the second writer gets the incumbent back, not its own value
	won, err = store.SetMetaIfAbsent(ctx, 1, "_sevdesk_invoice_id", "999")
	require.NoError(t, err)
	assert.Equal(t, "100", won)

	value, err := store.GetMeta(ctx, 1, "_sevdesk_invoice_id")
	require.NoError(t, err)
	assert.Equal(t, "100", value)
}

func TestAppendNote_Ordered(t *testing.T) {
	store, db := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendNote(ctx, 1, "first"))
	require.NoError(t, store.AppendNote(ctx, 1, "second"))
	require.NoError(t, store.AppendNote(ctx, 2, "elsewhere"))

	var notes []domain.OrderNote
	require.NoError(t, db.Where("order_id = ?", 1).Order("id").Find(&notes).Error)
	require.Len(t, notes, 2)
	assert.Equal(t, "first", notes[0].Note)
	assert.Equal(t, "second", notes[1].Note)
	assert.Less(t, notes[0].ID, notes[1].ID)
}

func TestRecordEvent(t *testing.T) {
	store, db := setupStore(t)

	event := &domain.WebhookEvent{
		ID:      uuid.New(),
		Topic:   "order.created",
		OrderID: 1,
		Payload: datatypes.JSONMap{"id": float64(1)},
		Status:  domain.EventStatusFailed,
		Error:   "create invoice: status 500",
	}
	require.NoError(t, store.RecordEvent(context.Background(), event))
	assert.False(t, event.CreatedAt.IsZero())

	var got domain.WebhookEvent
	require.NoError(t, db.First(&got, "id = ?", event.ID).Error)
	assert.Equal(t, domain.EventStatusFailed, got.Status)
	assert.Equal(t, int64(1), got.OrderID)
}
