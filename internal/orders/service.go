package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lunamercado/storefront-backend/internal/catalog"
	"github.com/lunamercado/storefront-backend/internal/ledger"
	"github.com/lunamercado/storefront-backend/internal/reservations"
	"github.com/lunamercado/storefront-backend/pkg/db"
	"github.com/lunamercado/storefront-backend/pkg/db/models"
	"github.com/lunamercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/lunamercado/storefront-backend/pkg/errors"
	"github.com/lunamercado/storefront-backend/pkg/logger"
	"github.com/lunamercado/storefront-backend/pkg/outbox"
	"github.com/lunamercado/storefront-backend/pkg/outbox/payloads"
	"github.com/lunamercado/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	GetAvailable(ctx context.Context, db *gorm.DB, productID uuid.UUID) (*ledger.Snapshot, error)
	ApplyDelta(ctx context.Context, tx *gorm.DB, d ledger.Delta) (int, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type holdReleaser interface {
	ReleaseInTx(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID, reason enums.ReleaseReason) (bool, error)
}

// Service is the order transaction coordinator plus the status state machine.
// CreateOrder makes "check stock for N lines" and "persist the order"
// indivisible; two concurrent checkouts can never both take the last unit.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, string, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actorID *uuid.UUID) (*models.Order, error)
}

type service struct {
	repo            Repository
	catalog         catalog.Repository
	reservationRepo reservations.Repository
	holds           holdReleaser
	tx              txRunner
	ledger          stockLedger
	outbox          outboxPublisher
	taxRate         decimal.Decimal
	logg            *logger.Logger
	now             func() time.Time
}

// ServiceParams configure the order service.
type ServiceParams struct {
	Repo            Repository
	Catalog         catalog.Repository
	ReservationRepo reservations.Repository
	Holds           holdReleaser
	Tx              txRunner
	Ledger          stockLedger
	Outbox          outboxPublisher
	TaxRate         string
	Logger          *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.ReservationRepo == nil {
		return nil, fmt.Errorf("reservations repository required")
	}
	if params.Holds == nil {
		return nil, fmt.Errorf("reservation releaser required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	taxRate := decimal.Zero
	if params.TaxRate != "" {
		parsed, err := decimal.NewFromString(params.TaxRate)
		if err != nil {
			return nil, fmt.Errorf("parsing tax rate %q: %w", params.TaxRate, err)
		}
		if parsed.IsNegative() {
			return nil, fmt.Errorf("tax rate must not be negative")
		}
		taxRate = parsed
	}
	return &service{
		repo:            params.Repo,
		catalog:         params.Catalog,
		reservationRepo: params.ReservationRepo,
		holds:           params.Holds,
		tx:              params.Tx,
		ledger:          params.Ledger,
		outbox:          params.Outbox,
		taxRate:         taxRate,
		logg:            params.Logger,
		now:             time.Now,
	}, nil
}

// CreateOrder runs the checkout transaction: every line's stock deduction and
// the order insert commit together or not at all. Shortfalls are collected
// across all lines so the caller learns about every unavailable product in
// one response. The coordinator itself never retries version collisions;
// those surface as TransientConflict for the caller to re-read and retry.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateOrder(input); err != nil {
		return nil, err
	}

	order, err := s.createOrderTx(ctx, input)
	if db.IsUniqueViolation(err, "order_number") {
		// Order number collision: regenerate and run the whole
		// transaction once more.
		order, err = s.createOrderTx(ctx, input)
	}
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(logCtx, "order created")
	}
	return order, nil
}

func (s *service) createOrderTx(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products, err := s.loadProducts(ctx, tx, input.Items)
		if err != nil {
			return err
		}

		var shortfalls []ShortfallItem
		for _, item := range input.Items {
			product := products[item.ProductID]
			available := product.AvailableStock()
			if available < item.Quantity {
				shortfalls = append(shortfalls, ShortfallItem{
					ProductID: item.ProductID,
					Requested: item.Quantity,
					Available: available,
				})
				continue
			}
			if _, err := s.ledger.ApplyDelta(ctx, tx, ledger.Delta{
				ProductID:       item.ProductID,
				Physical:        -item.Quantity,
				ExpectedVersion: product.Version,
				Operation:       enums.AuditOperationOrderDeduction,
				ActorID:         input.Customer.CustomerID,
			}); err != nil {
				if pkgerrors.HasCode(err, pkgerrors.CodeStaleVersion) {
					return pkgerrors.Wrap(pkgerrors.CodeTransientConflict, err, "concurrent stock update during checkout").
						WithDetails(map[string]any{"product_id": item.ProductID})
				}
				return err
			}
			if err := s.maybeEmitLowStock(ctx, tx, product, item.Quantity); err != nil {
				return err
			}
		}
		if len(shortfalls) > 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for one or more items").
				WithDetails(map[string]any{"items": shortfalls})
		}

		order, err = s.buildOrder(input, products)
		if err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "order_number") {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    s.now().UTC(),
			Actor:         actorFor(input.Customer.CustomerID),
			Data: payloads.OrderCreated{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Recipient:   enums.RecipientCustomer,
				CustomerID:  order.CustomerID,
				GuestEmail:  order.GuestEmail,
				TotalCents:  order.TotalCents,
				ItemCount:   len(order.Items),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) loadProducts(ctx context.Context, tx *gorm.DB, items []LineItem) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	rows, err := s.catalog.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	products := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		products[row.ID] = row
	}

	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "one or more products do not exist").
			WithDetails(map[string]any{"product_ids": missing})
	}
	for _, row := range rows {
		if row.UnitPriceCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no sellable price").
				WithDetails(map[string]any{"product_id": row.ID})
		}
	}
	return products, nil
}

func (s *service) buildOrder(input CreateOrderInput, products map[uuid.UUID]models.Product) (*models.Order, error) {
	items := make([]models.OrderItem, 0, len(input.Items))
	subtotal := 0
	for _, line := range input.Items {
		product := products[line.ProductID]
		lineTotal := product.UnitPriceCents * line.Quantity
		subtotal += lineTotal
		items = append(items, models.OrderItem{
			ProductID:      line.ProductID,
			Name:           product.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: product.UnitPriceCents,
			TotalCents:     lineTotal,
		})
	}
	tax := int(decimal.NewFromInt(int64(subtotal)).Mul(s.taxRate).Round(0).IntPart())

	number, err := NewOrderNumber(s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}
	return &models.Order{
		OrderNumber:     number,
		CustomerID:      input.Customer.CustomerID,
		GuestEmail:      input.Customer.GuestEmail,
		GuestName:       input.Customer.GuestName,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentMethod:   input.PaymentMethod,
		SubtotalCents:   subtotal,
		TaxCents:        tax,
		TotalCents:      subtotal + tax,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
		Version:         1,
		Items:           items,
	}, nil
}

// maybeEmitLowStock warns admins once, at the deduction that crosses the
// reorder point.
func (s *service) maybeEmitLowStock(ctx context.Context, tx *gorm.DB, product models.Product, deducted int) error {
	before := product.AvailableStock()
	after := before - deducted
	if product.ReorderPoint <= 0 || before <= product.ReorderPoint || after > product.ReorderPoint {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventLowStock,
		AggregateType: enums.AggregateProduct,
		AggregateID:   product.ID,
		Version:       1,
		OccurredAt:    s.now().UTC(),
		Data: payloads.LowStock{
			ProductID:      product.ID,
			SKU:            product.SKU,
			AvailableStock: after,
			ReorderPoint:   product.ReorderPoint,
			Status:         enums.DeriveStockStatus(product.PhysicalStock-deducted, product.ReservedStock, product.ReorderPoint),
		},
	})
}

func validateCreateOrder(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line item")
	}
	seen := make(map[uuid.UUID]bool, len(input.Items))
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item missing product id").
				WithDetails(map[string]any{"index": i})
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be positive").
				WithDetails(map[string]any{"product_id": item.ProductID, "quantity": item.Quantity})
		}
		if seen[item.ProductID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in line items").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		seen[item.ProductID] = true
	}
	if input.PaymentMethod == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}
	if input.Customer.CustomerID == nil {
		if input.Customer.GuestEmail == nil || *input.Customer.GuestEmail == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "guest orders require an email address")
		}
	}
	if input.ShippingAddress == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	if field := input.ShippingAddress.Validate(); field != "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address incomplete").
			WithDetails(map[string]any{"field": field})
	}
	if input.BillingAddress != nil {
		if field := input.BillingAddress.Validate(); field != "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "billing address incomplete").
				WithDetails(map[string]any{"field": field})
		}
	}
	return nil
}

func actorFor(customerID *uuid.UUID) *outbox.ActorRef {
	if customerID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: customerID}
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.List(ctx, filter, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}
