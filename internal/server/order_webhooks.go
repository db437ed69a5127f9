package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	orderdomain "github.com/smallbiznis/sevsync/internal/order/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const topicOrderCreated = "order.created"

// HandleOrderCreated is the entry point of the integration. It never fails
// outward: without a credential or a usable order it is a no-op, and a sync
// failure becomes a note on the order. The shop platform retries nothing, so
// the response status is 200 in every case.
func (s *Server) HandleOrderCreated(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
		return
	}

	if s.settings.APIKey() == "" {
		s.metrics.Orders.WithLabelValues(orderdomain.EventStatusSkipped).Inc()
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
		return
	}

	ord := extractOrder(body)
	if ord == nil {
		s.metrics.Orders.WithLabelValues(orderdomain.EventStatusSkipped).Inc()
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
		return
	}

	ctx := c.Request.Context()
	invoiceID, err := s.syncSvc.PushOrder(ctx, ord)
	if err != nil {
		s.log.Error("order sync failed", zap.Int64("order_id", ord.ID), zap.Error(err))
		if noteErr := s.store.AppendNote(ctx, ord.ID, "sevdesk sync failed: "+err.Error()); noteErr != nil {
			s.log.Warn("append failure note failed", zap.Int64("order_id", ord.ID), zap.Error(noteErr))
		}
		s.recordEvent(ctx, topicOrderCreated, ord.ID, body, orderdomain.EventStatusFailed, err.Error())
		s.metrics.Orders.WithLabelValues(orderdomain.EventStatusFailed).Inc()
		c.JSON(http.StatusOK, gin.H{"status": "failed"})
		return
	}

	s.recordEvent(ctx, topicOrderCreated, ord.ID, body, orderdomain.EventStatusSynced, "")
	s.metrics.Orders.WithLabelValues(orderdomain.EventStatusSynced).Inc()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "invoice_id": invoiceID})
}

// HandleContactSync re-syncs only the contact for an order.
func (s *Server) HandleContactSync(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
		return
	}

	if s.settings.APIKey() == "" {
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
		return
	}

	ord := extractOrder(body)
	if ord == nil {
		c.JSON(http.StatusOK, gin.H{"status": "skipped"})
		return
	}

	ctx := c.Request.Context()
	contactID, err := s.syncSvc.SyncContact(ctx, ord)
	if err != nil {
		s.log.Error("contact sync failed", zap.Int64("order_id", ord.ID), zap.Error(err))
		if noteErr := s.store.AppendNote(ctx, ord.ID, "sevdesk contact sync failed: "+err.Error()); noteErr != nil {
			s.log.Warn("append failure note failed", zap.Int64("order_id", ord.ID), zap.Error(noteErr))
		}
		c.JSON(http.StatusOK, gin.H{"status": "failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "contact_id": contactID})
}

// extractOrder accepts both payload shapes the shop emits: the order nested
// under an "order" field, or the order object itself.
func extractOrder(body []byte) *orderdomain.Order {
	var wrapper struct {
		Order *orderdomain.Order `json:"order"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Order != nil && wrapper.Order.ID != 0 {
		return wrapper.Order
	}

	var ord orderdomain.Order
	if err := json.Unmarshal(body, &ord); err == nil && ord.ID != 0 {
		return &ord
	}
	return nil
}

func (s *Server) recordEvent(ctx context.Context, topic string, orderID int64, body []byte, status, errText string) {
	payload := datatypes.JSONMap{}
	_ = json.Unmarshal(body, &payload)

	event := orderdomain.WebhookEvent{
		ID:      uuid.New(),
		Topic:   topic,
		OrderID: orderID,
		Payload: payload,
		Status:  status,
		Error:   errText,
	}
	if err := s.store.RecordEvent(ctx, &event); err != nil {
		s.log.Warn("record webhook event failed", zap.Int64("order_id", orderID), zap.Error(err))
	}
}
