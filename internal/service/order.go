package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmalenkov/storefront/internal/events"
	"github.com/nmalenkov/storefront/internal/models"
	"github.com/nmalenkov/storefront/internal/payment"
	"github.com/nmalenkov/storefront/internal/repo"
	"github.com/nmalenkov/storefront/internal/transport"
	"github.com/nmalenkov/storefront/pkg/jwtutil"
	"github.com/nmalenkov/storefront/pkg/logging"
)

type OrderService struct {
	Repo     *repo.GormRepo
	Gateway  *payment.Client
	Producer *events.Producer
}

type CheckoutResult struct {
	Order        *models.Order
	PaymentToken string
	RedirectURL  string
}

// CreateOrder prices the requested lines, persists the order together
// with the stock decrement in one transaction, then opens a gateway
// transaction. userID is nil for guest checkout; those orders get an
// access key for later lookup.
func (s *OrderService) CreateOrder(ctx context.Context, req transport.CreateOrderRequest, userID *uint) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("svc", "order.create_order")

	items, total, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		UserID:          userID,
		Items:           items,
		Total:           total,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		ShippingName:    req.ShippingName,
		ShippingAddress: req.ShippingAddress,
		ShippingPhone:   req.ShippingPhone,
	}
	if userID == nil {
		order.GuestKey = jwtutil.NewJTI()
	}

	if err := s.Repo.CreateOrderWithStock(ctx, &order); err != nil {
		if errors.Is(err, repo.ErrInsufficientStock) {
			return nil, ErrInsufficientStock
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product not found", ErrValidation)
		}
		l.Error("create_order_error", "error", err)
		return nil, err
	}

	charge, err := s.Gateway.Charge(ctx, strconv.FormatUint(uint64(order.ID), 10), order.Total)
	if err != nil {
		l.Error("charge_error", "order_id", order.ID, "error", err)
		// The order keeps its row for diagnosis, but the reserved
		// stock goes back and the payment is marked failed.
		if _, serr := s.Repo.SetPaymentStatus(ctx, order.ID, models.PaymentStatusFailed); serr != nil {
			l.Error("mark failed error", "order_id", order.ID, "error", serr)
		}
		if rerr := s.Repo.RestockOrder(ctx, &order); rerr != nil {
			l.Error("restock error", "order_id", order.ID, "error", rerr)
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if err := s.Producer.PublishEvent(ctx, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]any{
		"type":     "order_created",
		"order_id": order.ID,
		"user_id":  order.UserID,
		"total":    order.Total,
	}); err != nil {
		l.Warn("event publish failed", "error", err)
	}

	l.Info("order_created", "order_id", order.ID)
	return &CheckoutResult{
		Order:        &order,
		PaymentToken: charge.Token,
		RedirectURL:  charge.RedirectURL,
	}, nil
}

func (s *OrderService) priceItems(ctx context.Context, reqItems []transport.CreateOrderItem) ([]models.OrderItem, decimal.Decimal, error) {
	items := make([]models.OrderItem, 0, len(reqItems))
	total := decimal.Zero

	for _, ri := range reqItems {
		product, err := s.Repo.GetProduct(ctx, ri.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, decimal.Zero, fmt.Errorf("%w: product %d not found", ErrValidation, ri.ProductID)
			}
			return nil, decimal.Zero, err
		}

		unitPrice := product.Price
		if ri.VariantID != nil {
			variant, err := s.Repo.GetVariant(ctx, *ri.VariantID)
			if err != nil || variant.ProductID != product.ID {
				return nil, decimal.Zero, fmt.Errorf("%w: variant %d not found", ErrValidation, *ri.VariantID)
			}
			unitPrice = variant.Price
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(ri.Quantity)))
		items = append(items, models.OrderItem{
			ProductID: ri.ProductID,
			VariantID: ri.VariantID,
			Quantity:  ri.Quantity,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}

	return items, total, nil
}

func (s *OrderService) GetUserOrder(ctx context.Context, id, userID uint) (*models.Order, error) {
	order, err := s.Repo.GetUserOrder(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) GetGuestOrder(ctx context.Context, id uint, key string) (*models.Order, error) {
	order, err := s.Repo.GetGuestOrder(ctx, id, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID uint, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListUserOrders(ctx, userID, offset, limit)
}

func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status string) error {
	if err := s.Repo.SetOrderStatus(ctx, id, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		return err
	}
	return nil
}

// HandleNotification reconciles a webhook notification into payment
// state. Settlement marks the order paid; deny/cancel/expire marks it
// failed, cancels fulfillment and returns the reserved stock. The
// transition check makes retried notifications idempotent.
func (s *OrderService) HandleNotification(ctx context.Context, n payment.Notification) error {
	l := logging.FromContext(ctx).With("svc", "order.notification", "order_id", n.OrderID)

	orderID, err := strconv.ParseUint(n.OrderID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad order id", ErrValidation)
	}

	order, err := s.Repo.GetOrder(ctx, uint(orderID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: order %s", ErrNotFound, n.OrderID)
		}
		return err
	}

	switch n.TransactionStatus {
	case payment.StatusSettlement, payment.StatusCapture:
		changed, err := s.Repo.SetPaymentStatus(ctx, order.ID, models.PaymentStatusPaid)
		if err != nil {
			return err
		}
		if changed {
			s.publishPaymentEvent(ctx, order.ID, "payment_settled")
			l.Info("payment settled")
		}
		return nil

	case payment.StatusPending:
		return nil

	case payment.StatusDeny, payment.StatusCancel, payment.StatusExpire:
		changed, err := s.Repo.SetPaymentStatus(ctx, order.ID, models.PaymentStatusFailed)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if err := s.Repo.SetOrderStatus(ctx, order.ID, models.OrderStatusCancelled); err != nil {
			return err
		}
		if err := s.Repo.RestockOrder(ctx, order); err != nil {
			l.Error("restock error", "error", err)
			return err
		}
		s.publishPaymentEvent(ctx, order.ID, "payment_failed")
		l.Info("payment failed", "transaction_status", n.TransactionStatus)
		return nil

	default:
		return fmt.Errorf("%w: unknown transaction status %q", ErrValidation, n.TransactionStatus)
	}
}

func (s *OrderService) publishPaymentEvent(ctx context.Context, orderID uint, typ string) {
	l := logging.FromContext(ctx)
	if err := s.Producer.PublishEvent(ctx, events.TopicOrderEvents, fmt.Sprint(orderID), map[string]any{
		"type":     typ,
		"order_id": orderID,
	}); err != nil {
		l.Warn("event publish failed", "error", err)
	}
}
