package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OrderMeta is the key-value side channel attached to an order. The sync
// idempotency marker lives here.
type OrderMeta struct {
	OrderID   int64     `gorm:"primaryKey;autoIncrement:false" json:"order_id"`
	Key       string    `gorm:"primaryKey;column:meta_key;size:191" json:"key"`
	Value     string    `gorm:"column:meta_value;not null" json:"value"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// OrderNote is one entry of the append-only note log on an order.
type OrderNote struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID   int64        `gorm:"not null;index" json:"order_id"`
	Note      string       `gorm:"not null" json:"note"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// WebhookEvent records every inbound order event and its sync outcome.
type WebhookEvent struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Topic     string            `gorm:"not null;index" json:"topic"`
	OrderID   int64             `gorm:"index" json:"order_id"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"payload,omitempty"`
	Status    string            `gorm:"not null" json:"status"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

const (
	EventStatusSynced  = "synced"
	EventStatusFailed  = "failed"
	EventStatusSkipped = "skipped"
)
