package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/posware/stock-ledger-service/internal/model"
	"github.com/posware/stock-ledger-service/internal/pkg/broker"
	"github.com/posware/stock-ledger-service/internal/pkg/logger"
	"github.com/posware/stock-ledger-service/internal/reservation"
	"github.com/posware/stock-ledger-service/internal/reservation/dto"
	"github.com/posware/stock-ledger-service/internal/stock"
	stockdto "github.com/posware/stock-ledger-service/internal/stock/dto"
)

// SaleListener consumes sale lifecycle events and settles the reservations
// they reference: a completed sale confirms its holds, an abandoned one
// cancels them. Goods receipts from the purchasing service land here too,
// as inbound movements.
type SaleListener struct {
	consumer *broker.KafkaConsumer
	uc       reservation.UseCase
	stockUC  stock.UseCase
	logger   logger.ZapLogger
}

func NewSaleListener(consumer *broker.KafkaConsumer, uc reservation.UseCase, stockUC stock.UseCase, log logger.ZapLogger) *SaleListener {
	return &SaleListener{
		consumer: consumer,
		uc:       uc,
		stockUC:  stockUC,
		logger:   log,
	}
}

func (l *SaleListener) Start(ctx context.Context) {
	l.logger.Info("Starting sale event listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping sale event listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type SaleEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type SalePayload struct {
	SaleID         string   `json:"sale_id"`
	StoreID        string   `json:"store_id"`
	CashierID      string   `json:"cashier_id"`
	ReservationIDs []string `json:"reservation_ids"`
}

type GoodsReceivedPayload struct {
	ReceiptID  string              `json:"receipt_id"`
	StoreID    string              `json:"store_id"`
	ReceiverID string              `json:"receiver_id"`
	Items      []GoodsReceivedItem `json:"items"`
}

type GoodsReceivedItem struct {
	StockID  string           `json:"stock_id"`
	Quantity decimal.Decimal  `json:"quantity"`
	UnitCost *decimal.Decimal `json:"unit_cost"`
}

// maxConflictRetries bounds re-attempts after a version conflict. The
// usecases re-read current state on every call, so retrying is just
// calling again.
const maxConflictRetries = 3

func withConflictRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		err = fn()
		if !errors.Is(err, model.ErrOptimisticLock) {
			return err
		}
	}
	return err
}

func (l *SaleListener) processMessage(ctx context.Context, value []byte) {
	var event SaleEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal sale event", zap.Error(err))
		return
	}

	switch event.EventType {
	case "SaleCompleted":
		l.handleSaleCompleted(ctx, &event)
	case "SaleAbandoned":
		l.handleSaleAbandoned(ctx, &event)
	case "GoodsReceived":
		l.handleGoodsReceived(ctx, &event)
	}
}

func (l *SaleListener) handleSaleCompleted(ctx context.Context, event *SaleEvent) {
	var payload SalePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		l.logger.Error("Failed to unmarshal SaleCompleted payload", zap.Error(err))
		return
	}

	l.logger.Info("Processing SaleCompleted event", zap.String("sale_id", payload.SaleID))
	for _, id := range payload.ReservationIDs {
		id := id
		if err := withConflictRetry(func() error {
			_, err := l.uc.Confirm(ctx, &dto.ConfirmInput{
				ReservationID: id,
				ActorID:       payload.CashierID,
			})
			return err
		}); err != nil {
			// Confirm is idempotent; redelivery of the same event is
			// harmless. Anything else needs eyes on it.
			l.logger.Error("Failed to confirm reservation for sale",
				zap.String("sale_id", payload.SaleID),
				zap.String("reservation_id", id),
				zap.Error(err),
			)
		}
	}
}

func (l *SaleListener) handleSaleAbandoned(ctx context.Context, event *SaleEvent) {
	var payload SalePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		l.logger.Error("Failed to unmarshal SaleAbandoned payload", zap.Error(err))
		return
	}

	l.logger.Info("Processing SaleAbandoned event", zap.String("sale_id", payload.SaleID))
	for _, id := range payload.ReservationIDs {
		id := id
		if err := withConflictRetry(func() error {
			_, err := l.uc.Cancel(ctx, id)
			return err
		}); err != nil {
			l.logger.Error("Failed to cancel reservation for sale",
				zap.String("sale_id", payload.SaleID),
				zap.String("reservation_id", id),
				zap.Error(err),
			)
		}
	}
}

func (l *SaleListener) handleGoodsReceived(ctx context.Context, event *SaleEvent) {
	var payload GoodsReceivedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		l.logger.Error("Failed to unmarshal GoodsReceived payload", zap.Error(err))
		return
	}

	l.logger.Info("Processing GoodsReceived event",
		zap.String("receipt_id", payload.ReceiptID),
		zap.Int("items", len(payload.Items)),
	)
	for _, item := range payload.Items {
		item := item
		if err := withConflictRetry(func() error {
			_, err := l.stockUC.ApplyMovement(ctx, &stockdto.ApplyMovementInput{
				StockID:       item.StockID,
				MovementType:  string(model.MovementIn),
				Quantity:      item.Quantity,
				UnitCost:      item.UnitCost,
				Reason:        "goods_received",
				ReferenceType: "goods_receipt",
				ReferenceID:   payload.ReceiptID,
				ActorID:       payload.ReceiverID,
			})
			return err
		}); err != nil {
			l.logger.Error("Failed to apply inbound movement for receipt",
				zap.String("receipt_id", payload.ReceiptID),
				zap.String("stock_id", item.StockID),
				zap.Error(err),
			)
		}
	}
}
