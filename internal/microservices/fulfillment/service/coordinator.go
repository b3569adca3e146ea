package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/messaging"
	"restaurant-fulfillment/internal/microservices/fulfillment/repository"
	"restaurant-fulfillment/internal/notify"
)

type FulfillmentServiceInterface interface {
	PlaceOrder(ctx context.Context, restaurantID uuid.UUID, req domain.PlaceOrderRequest) (*domain.PlaceOrderResult, error)
	AdvanceKitchenStatus(ctx context.Context, orderID uuid.UUID, next domain.KitchenStatus, staffID string) (*domain.KitchenUpdate, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, staffID, reason string) (*domain.KitchenUpdate, error)
	ResetKitchenItem(ctx context.Context, orderID uuid.UUID, staffID string) (*domain.KitchenUpdate, error)
	VerifyOTP(ctx context.Context, orderID uuid.UUID, otp string) (*domain.Order, error)
	AmendItems(ctx context.Context, orderID uuid.UUID, req domain.AmendItemsRequest) (*domain.Order, error)

	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListKitchenItems(ctx context.Context, restaurantID uuid.UUID, statuses []domain.KitchenStatus) ([]domain.KitchenWorkItem, error)
	OrderTimeline(ctx context.Context, orderID uuid.UUID) ([]domain.StatusLogEntry, error)
	GetBalance(ctx context.Context, customerID uuid.UUID) (*domain.Balance, error)
}

const (
	defaultNotifyTimeout = 2 * time.Second
	systemActor          = "fulfillment-service"
)

type Deps struct {
	Store         repository.Store
	Settings      repository.SettingsRepositoryInterface
	Notifier      notify.Notifier
	Messages      messaging.Gateway
	Logger        *zap.Logger
	Artifacts     ArtifactGenerator
	Clock         func() time.Time
	NotifyTimeout time.Duration
}

// Coordinator owns every write to orders, tables, kitchen items and the
// loyalty ledger. Each operation is one store transaction; notifications
// and messages go out only after it commits.
type Coordinator struct {
	store         repository.Store
	settings      repository.SettingsRepositoryInterface
	notifier      notify.Notifier
	messages      messaging.Gateway
	log           *zap.Logger
	artifacts     ArtifactGenerator
	now           func() time.Time
	notifyTimeout time.Duration

	ledger Ledger
	tables TableRegistry
}

func NewCoordinator(d Deps) *Coordinator {
	c := &Coordinator{
		store:         d.Store,
		settings:      d.Settings,
		notifier:      d.Notifier,
		messages:      d.Messages,
		log:           d.Logger,
		artifacts:     d.Artifacts,
		now:           d.Clock,
		notifyTimeout: d.NotifyTimeout,
	}
	if c.notifier == nil {
		c.notifier = notify.Nop{}
	}
	if c.messages == nil {
		c.messages = messaging.Nop{}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.artifacts == nil {
		c.artifacts = NewArtifactGenerator()
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	if c.notifyTimeout <= 0 {
		c.notifyTimeout = defaultNotifyTimeout
	}
	c.tables = TableRegistry{log: c.log}
	return c
}

func (c *Coordinator) PlaceOrder(ctx context.Context, restaurantID uuid.UUID, req domain.PlaceOrderRequest) (*domain.PlaceOrderResult, error) {
	// 1. Payload validation
	if err := domain.ValidatePlaceOrder(&req); err != nil {
		return nil, err
	}

	// 2. Settings snapshot for the whole request
	settings, err := c.settings.Load(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	redeem := req.RedeemPoints()
	if redeem > 0 && !settings.LoyaltyEnabled {
		return nil, domain.NewValidationError("loyaltyPoints", "loyalty_disabled")
	}

	// 3. Preconditions against committed state, before the write opens
	if err := c.checkPlacement(ctx, restaurantID, &req, redeem); err != nil {
		return nil, err
	}

	// 4. One atomic write, retried once on a concurrent-write conflict
	var placed placement
	err = c.retryOnConflict(ctx, "place_order", func() error {
		p, err := c.placeOnce(ctx, restaurantID, &req, settings, redeem)
		if err == nil {
			placed = p
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("order_placed",
		zap.String("order_id", placed.order.ID.String()),
		zap.String("order_number", placed.order.OrderNumber),
		zap.String("order_type", string(placed.order.OrderType)),
		zap.Int64("points_earned", placed.order.Loyalty.PointsEarned),
		zap.Int64("points_redeemed", placed.order.Loyalty.PointsRedeemed),
	)

	// 5. Side effects after commit; failures only degrade to warnings
	warnings := c.afterPlacement(ctx, &placed, &req)

	return &domain.PlaceOrderResult{
		OrderID:        placed.order.ID,
		OrderNumber:    placed.order.OrderNumber,
		OTP:            placed.otp,
		QRCodeURL:      placed.order.QRCode,
		PointsEarned:   placed.order.Loyalty.PointsEarned,
		PointsRedeemed: placed.order.Loyalty.PointsRedeemed,
		Status:         placed.order.Status,
		Warnings:       warnings,
		Order:          &placed.order,
	}, nil
}

type placement struct {
	order domain.Order
	item  domain.KitchenWorkItem
	otp   string
}

func (c *Coordinator) checkPlacement(ctx context.Context, restaurantID uuid.UUID, req *domain.PlaceOrderRequest, redeem int64) error {
	read := c.store.Read()
	if req.OrderType == domain.OrderTypeDineIn {
		table, err := read.TableRepo.GetByNumber(ctx, restaurantID, *req.TableNumber)
		if err != nil {
			return err
		}
		if table.Status != domain.TableAvailable {
			return &domain.TableError{Number: table.Number, Status: table.Status}
		}
	}
	if redeem > 0 {
		cust, found, err := read.CustomerRepo.FindByContact(ctx, restaurantID, req.CustomerDetails.Phone, req.CustomerDetails.Email)
		if err != nil {
			return err
		}
		if !found {
			return &domain.BalanceError{Available: 0, Requested: redeem}
		}
		bal, err := c.ledger.AvailableBalance(ctx, read.LedgerRepo, cust.ID, c.now())
		if err != nil {
			return err
		}
		if redeem > bal {
			return &domain.BalanceError{Available: bal, Requested: redeem}
		}
	}
	return nil
}

func (c *Coordinator) placeOnce(ctx context.Context, restaurantID uuid.UUID, req *domain.PlaceOrderRequest,
	settings domain.Settings, redeem int64) (placement, error) {

	now := c.now()
	orderID := uuid.New()
	number, err := c.artifacts.OrderNumber(now)
	if err != nil {
		return placement{}, err
	}
	otp, err := c.artifacts.OTP()
	if err != nil {
		return placement{}, err
	}
	assignedBy := req.AssignedBy
	if assignedBy == "" {
		assignedBy = string(req.OrderType)
	}

	var p placement
	err = c.store.InTx(ctx, func(r *repository.Repository) error {
		// 1. Resolve or create the customer
		cust, err := c.resolveCustomer(ctx, r.CustomerRepo, restaurantID, req.CustomerDetails, now)
		if err != nil {
			return err
		}

		// 2. Occupy the table (conditional update)
		var table *domain.Table
		if req.OrderType == domain.OrderTypeDineIn {
			t, err := c.tables.TryOccupy(ctx, r.TableRepo, restaurantID, *req.TableNumber)
			if err != nil {
				return err
			}
			table = &t
		}

		// 3. Redemption, balance checked inside the transaction
		discount := decimal.Zero
		if redeem > 0 {
			if _, err := c.ledger.RecordRedeem(ctx, r.LedgerRepo, cust.ID, orderID, redeem, now); err != nil {
				return err
			}
			discount = settings.RedemptionDiscount(redeem)
			if discount.GreaterThan(req.Total) {
				discount = req.Total
			}
		}

		// 4. Earn on the full total
		earned := settings.EarnedPoints(req.Total)
		if earned > 0 {
			if _, err := c.ledger.RecordEarn(ctx, r.LedgerRepo, cust.ID, orderID, earned, settings.ExpiryDays, now); err != nil {
				return err
			}
		}

		// 5. Order row with QR artifact
		qr, err := c.artifacts.QRCode(QRPayload{OrderID: orderID, OTP: otp, UserID: cust.ID})
		if err != nil {
			return err
		}
		otpCopy := otp
		custID := cust.ID
		order := domain.Order{
			ID:             orderID,
			OrderNumber:    number,
			RestaurantID:   restaurantID,
			CustomerID:     &custID,
			OrderType:      req.OrderType,
			PickupLocation: req.PickupLocation,
			Items:          req.LineItems(),
			TotalAmount:    req.Total,
			Currency:       settings.Currency,
			Status:         settings.InitialStatus(req.OrderType),
			PaymentStatus:  domain.PaymentUnpaid,
			OTP:            &otpCopy,
			QRCode:         qr,
			Loyalty: domain.LoyaltyUsage{
				PointsRedeemed: redeem,
				PointsEarned:   earned,
				DiscountAmount: discount,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if table != nil {
			tableID, tableNumber := table.ID, table.Number
			order.TableID = &tableID
			order.TableNumber = &tableNumber
		}
		if err := r.OrderRepo.Insert(ctx, &order); err != nil {
			return err
		}

		// 6. Kitchen work item
		item := domain.NewKitchenWorkItem(&order, assignedBy, now)
		if err := r.KitchenRepo.Insert(ctx, &item); err != nil {
			return err
		}

		// 7. Customer counters
		if err := r.CustomerRepo.RecordOrder(ctx, cust.ID, req.Total.Sub(discount), now); err != nil {
			return err
		}

		// 8. Initial status log entry
		if err := r.OrderRepo.AppendStatusLog(ctx, domain.StatusLogEntry{
			OrderID: order.ID, Status: order.Status, ChangedBy: assignedBy, ChangedAt: now, Notes: "order placed",
		}); err != nil {
			return err
		}

		p = placement{order: order, item: item, otp: otp}
		return nil
	})
	return p, err
}

func (c *Coordinator) resolveCustomer(ctx context.Context, repo repository.CustomerRepositoryInterface,
	restaurantID uuid.UUID, details domain.CustomerDetails, now time.Time) (domain.Customer, error) {
	cust, found, err := repo.FindByContact(ctx, restaurantID, details.Phone, details.Email)
	if err != nil {
		return cust, err
	}
	if found {
		return cust, nil
	}
	cust = domain.Customer{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Name:         details.Name,
		Phone:        details.Phone,
		Email:        details.Email,
		TotalSpent:   decimal.Zero,
		CreatedAt:    now,
	}
	return cust, repo.Insert(ctx, &cust)
}

func (c *Coordinator) afterPlacement(ctx context.Context, p *placement, req *domain.PlaceOrderRequest) []string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.notifyTimeout)
	defer cancel()

	var warnings []string
	if err := c.notifier.Publish(ctx, p.order.RestaurantID, domain.EventNewKitchenOrder, domain.NewKitchenOrderPayload{
		WorkItem: p.item,
		Order:    p.order.Summary(),
	}); err != nil {
		c.log.Warn("notification_failed", zap.String("event", domain.EventNewKitchenOrder),
			zap.String("order_id", p.order.ID.String()), zap.Error(err))
		warnings = append(warnings, "kitchen display notification was not delivered")
	}

	if err := c.messages.SendOrderConfirmation(ctx, messaging.Confirmation{
		OrderID:      p.order.ID,
		OrderNumber:  p.order.OrderNumber,
		RestaurantID: p.order.RestaurantID,
		Recipient: messaging.Recipient{
			Name:  req.CustomerDetails.Name,
			Phone: req.CustomerDetails.Phone,
			Email: req.CustomerDetails.Email,
		},
		OTP:          p.otp,
		Total:        p.order.TotalAmount.StringFixed(2),
		Currency:     p.order.Currency,
		Status:       p.order.Status,
		PointsEarned: p.order.Loyalty.PointsEarned,
	}); err != nil {
		c.log.Warn("confirmation_enqueue_failed", zap.String("order_id", p.order.ID.String()), zap.Error(err))
		warnings = append(warnings, "order confirmation message was not queued")
	}
	return warnings
}

func (c *Coordinator) AdvanceKitchenStatus(ctx context.Context, orderID uuid.UUID, next domain.KitchenStatus, staffID string) (*domain.KitchenUpdate, error) {
	if !next.Valid() {
		return nil, domain.NewValidationError("status", "oneof")
	}
	return c.changeKitchen(ctx, orderID, staffID, "", func(w *domain.KitchenWorkItem, now time.Time) error {
		return w.Transition(next, staffID, now)
	})
}

func (c *Coordinator) CancelOrder(ctx context.Context, orderID uuid.UUID, staffID, reason string) (*domain.KitchenUpdate, error) {
	return c.changeKitchen(ctx, orderID, staffID, reason, func(w *domain.KitchenWorkItem, now time.Time) error {
		return w.Transition(domain.KitchenCancelled, staffID, now)
	})
}

func (c *Coordinator) ResetKitchenItem(ctx context.Context, orderID uuid.UUID, staffID string) (*domain.KitchenUpdate, error) {
	return c.changeKitchen(ctx, orderID, staffID, "reset to pending", func(w *domain.KitchenWorkItem, now time.Time) error {
		return w.Reset(staffID, now)
	})
}

// changeKitchen locks the work item, applies mutate, mirrors the result onto
// the order and releases a dine-in table on a terminal status.
func (c *Coordinator) changeKitchen(ctx context.Context, orderID uuid.UUID, staffID, notes string,
	mutate func(w *domain.KitchenWorkItem, now time.Time) error) (*domain.KitchenUpdate, error) {

	var upd domain.KitchenUpdate
	err := c.retryOnConflict(ctx, "kitchen_status", func() error {
		return c.store.InTx(ctx, func(r *repository.Repository) error {
			now := c.now()
			item, err := r.KitchenRepo.GetForUpdate(ctx, orderID)
			if err != nil {
				return err
			}
			from := item.Status
			if err := mutate(&item, now); err != nil {
				return err
			}

			order, err := r.OrderRepo.Get(ctx, orderID)
			if err != nil {
				return err
			}
			order.Status = item.Status.OrderStatus()
			order.UpdatedAt = now
			if item.Status == domain.KitchenCompleted {
				order.CompletedAt = item.CompletedAt
			}

			if err := r.KitchenRepo.Update(ctx, &item); err != nil {
				return err
			}
			if err := r.OrderRepo.UpdateStatus(ctx, &order); err != nil {
				return err
			}
			if order.IsDineIn() && item.Status.ReleasesTable() && order.TableID != nil {
				if err := c.tables.Release(ctx, r.TableRepo, *order.TableID); err != nil {
					return err
				}
			}

			changedBy := staffID
			if changedBy == "" {
				changedBy = systemActor
			}
			if err := r.OrderRepo.AppendStatusLog(ctx, domain.StatusLogEntry{
				OrderID: orderID, Status: order.Status, ChangedBy: changedBy, ChangedAt: now, Notes: notes,
			}); err != nil {
				return err
			}

			c.log.Info("kitchen_status_advanced",
				zap.String("order_id", orderID.String()),
				zap.String("from", string(from)),
				zap.String("to", string(item.Status)),
				zap.String("staff_id", staffID),
			)
			upd = domain.KitchenUpdate{WorkItem: item, Order: order}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	upd.Warnings = c.afterKitchenChange(ctx, &upd)
	return &upd, nil
}

func (c *Coordinator) afterKitchenChange(ctx context.Context, upd *domain.KitchenUpdate) []string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.notifyTimeout)
	defer cancel()

	var warnings []string
	warnings = append(warnings, c.publishKitchenUpdate(ctx, &upd.WorkItem)...)

	if upd.WorkItem.Status != domain.KitchenCompleted || upd.Order.CustomerID == nil {
		return warnings
	}
	settings, err := c.settings.Load(ctx, upd.Order.RestaurantID)
	if err != nil {
		c.log.Warn("settings_load_failed", zap.String("restaurant_id", upd.Order.RestaurantID.String()), zap.Error(err))
		return append(warnings, "feedback request was not queued")
	}
	if !settings.FeedbackEnabled {
		return warnings
	}
	cust, err := c.store.Read().CustomerRepo.Get(ctx, *upd.Order.CustomerID)
	if err == nil {
		err = c.messages.SendFeedbackRequest(ctx, messaging.FeedbackRequest{
			OrderID:      upd.Order.ID,
			OrderNumber:  upd.Order.OrderNumber,
			RestaurantID: upd.Order.RestaurantID,
			Recipient:    messaging.Recipient{Name: cust.Name, Phone: cust.Phone, Email: cust.Email},
		})
	}
	if err != nil {
		c.log.Warn("feedback_enqueue_failed", zap.String("order_id", upd.Order.ID.String()), zap.Error(err))
		warnings = append(warnings, "feedback request was not queued")
	}
	return warnings
}

func (c *Coordinator) publishKitchenUpdate(ctx context.Context, item *domain.KitchenWorkItem) []string {
	var warnings []string
	events := []struct {
		typ     string
		payload any
	}{
		{domain.EventKitchenOrderUpdate, item},
		{domain.EventOrdersUpdate, domain.OrdersUpdatePayload{OrderIDs: []uuid.UUID{item.OrderID}}},
	}
	for _, ev := range events {
		if err := c.notifier.Publish(ctx, item.RestaurantID, ev.typ, ev.payload); err != nil {
			c.log.Warn("notification_failed", zap.String("event", ev.typ),
				zap.String("order_id", item.OrderID.String()), zap.Error(err))
			warnings = append(warnings, ev.typ+" notification was not delivered")
		}
	}
	return warnings
}

func (c *Coordinator) VerifyOTP(ctx context.Context, orderID uuid.UUID, otp string) (*domain.Order, error) {
	if err := domain.Validate(&domain.VerifyOTPRequest{OTP: otp}); err != nil {
		return nil, err
	}
	var order domain.Order
	err := c.retryOnConflict(ctx, "verify_otp", func() error {
		return c.store.InTx(ctx, func(r *repository.Repository) error {
			now := c.now()
			o, err := r.OrderRepo.Get(ctx, orderID)
			if err != nil {
				return err
			}
			ok, err := r.OrderRepo.ConsumeOTP(ctx, orderID, otp, now)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrInvalidOTP
			}
			o.OTP = nil
			o.UpdatedAt = now
			if err := r.OrderRepo.AppendStatusLog(ctx, domain.StatusLogEntry{
				OrderID: orderID, Status: o.Status, ChangedBy: systemActor, ChangedAt: now, Notes: "otp verified",
			}); err != nil {
				return err
			}
			order = o
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("otp_verified", zap.String("order_id", orderID.String()))
	return &order, nil
}

func (c *Coordinator) AmendItems(ctx context.Context, orderID uuid.UUID, req domain.AmendItemsRequest) (*domain.Order, error) {
	if err := domain.ValidateAmendItems(&req); err != nil {
		return nil, err
	}
	current, err := c.store.Read().OrderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	settings, err := c.settings.Load(ctx, current.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	var (
		order domain.Order
		item  domain.KitchenWorkItem
	)
	err = c.retryOnConflict(ctx, "amend_items", func() error {
		return c.store.InTx(ctx, func(r *repository.Repository) error {
			now := c.now()
			w, err := r.KitchenRepo.GetForUpdate(ctx, orderID)
			if err != nil {
				return err
			}
			if w.Status != domain.KitchenPending {
				return fmt.Errorf("%w: kitchen item is %s", domain.ErrItemsLocked, w.Status)
			}
			old, err := r.OrderRepo.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if req.Total.LessThan(old.Loyalty.DiscountAmount) {
				return domain.NewValidationError("total", "gte_discount")
			}

			earned := old.Loyalty.PointsEarned
			if settings.LoyaltyEnabled {
				earned = settings.EarnedPoints(req.Total)
			}
			if err := r.OrderRepo.ReplaceItems(ctx, orderID, req.LineItems(), req.Total, earned, now); err != nil {
				return err
			}

			if old.CustomerID != nil {
				if err := c.adjustLoyalty(ctx, r, *old.CustomerID, orderID, earned-old.Loyalty.PointsEarned, settings, now); err != nil {
					return err
				}
				if delta := req.Total.Sub(old.TotalAmount); !delta.IsZero() {
					if err := r.CustomerRepo.AdjustSpent(ctx, *old.CustomerID, delta); err != nil {
						return err
					}
				}
			}

			o, err := r.OrderRepo.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if err := r.OrderRepo.AppendStatusLog(ctx, domain.StatusLogEntry{
				OrderID: orderID, Status: o.Status, ChangedBy: systemActor, ChangedAt: now, Notes: "items amended",
			}); err != nil {
				return err
			}
			order, item = o, w
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("items_amended",
		zap.String("order_id", orderID.String()),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int64("points_earned", order.Loyalty.PointsEarned))

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.notifyTimeout)
	defer cancel()
	c.publishKitchenUpdate(nctx, &item)
	return &order, nil
}

// adjustLoyalty appends the ledger entry that moves an order's earn by diff.
// The ledger is append-only, so a lower earn is a clawback entry.
func (c *Coordinator) adjustLoyalty(ctx context.Context, r *repository.Repository, customerID, orderID uuid.UUID,
	diff int64, settings domain.Settings, now time.Time) error {
	switch {
	case diff > 0:
		_, err := c.ledger.RecordEarn(ctx, r.LedgerRepo, customerID, orderID, diff, settings.ExpiryDays, now)
		return err
	case diff < 0:
		_, err := c.ledger.RecordClawback(ctx, r.LedgerRepo, customerID, orderID, -diff, now)
		return err
	}
	return nil
}

// retryOnConflict runs fn again once when it fails with a persistence conflict.
func (c *Coordinator) retryOnConflict(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if errors.Is(err, domain.ErrPersistenceConflict) && ctx.Err() == nil {
		c.log.Info("persistence_conflict_retry", zap.String("op", op), zap.Error(err))
		err = fn()
	}
	return err
}
