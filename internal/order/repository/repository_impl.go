package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sevsync/internal/order/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type store struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewStore(db *gorm.DB, genID *snowflake.Node) domain.Store {
	return &store{db: db, genID: genID}
}

func (s *store) GetMeta(ctx context.Context, orderID int64, key string) (string, error) {
	var meta domain.OrderMeta
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND meta_key = ?", orderID, key).
		First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return meta.Value, nil
}

func (s *store) SetMeta(ctx context.Context, orderID int64, key, value string) error {
	now := time.Now().UTC()
	meta := domain.OrderMeta{
		OrderID:   orderID,
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "meta_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"meta_value", "updated_at"}),
		}).
		Create(&meta).Error
}

// SetMetaIfAbsent is a conditional insert: when another writer got there
// first the incumbent value is read back and returned, so all racers agree
// on one marker.
func (s *store) SetMetaIfAbsent(ctx context.Context, orderID int64, key, value string) (string, error) {
	now := time.Now().UTC()
	meta := domain.OrderMeta{
		OrderID:   orderID,
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "meta_key"}},
			DoNothing: true,
		}).
		Create(&meta)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected > 0 {
		return value, nil
	}
	return s.GetMeta(ctx, orderID, key)
}

func (s *store) AppendNote(ctx context.Context, orderID int64, note string) error {
	record := domain.OrderNote{
		ID:        s.genID.Generate(),
		OrderID:   orderID,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

func (s *store) RecordEvent(ctx context.Context, event *domain.WebhookEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(event).Error
}
