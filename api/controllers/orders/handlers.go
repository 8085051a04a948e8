package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/api/middleware"
	"github.com/lunamercado/storefront-backend/api/responses"
	"github.com/lunamercado/storefront-backend/api/validators"
	internalorders "github.com/lunamercado/storefront-backend/internal/orders"
	"github.com/lunamercado/storefront-backend/pkg/db/models"
	"github.com/lunamercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/lunamercado/storefront-backend/pkg/errors"
	"github.com/lunamercado/storefront-backend/pkg/logger"
	"github.com/lunamercado/storefront-backend/pkg/pagination"
)

// Create handles checkout for both authenticated customers and guests. The
// authenticated identity wins over any guest fields in the body.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  req.BillingAddress,
			PaymentMethod:   req.PaymentMethod,
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, internalorders.LineItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		if userID := middleware.UserIDFromContext(r.Context()); userID != uuid.Nil {
			input.Customer.CustomerID = &userID
		} else {
			input.Customer.GuestEmail = req.GuestEmail
			input.Customer.GuestName = req.GuestName
		}

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Detail returns one order. Customers only see their own; admins see any.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := authorizeRead(r, order); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// DetailByNumber resolves an order by its human-facing number. Guests must
// supply the email the order was placed under.
func DetailByNumber(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if number == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		order, err := svc.GetByNumber(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if middleware.UserIDFromContext(r.Context()) == uuid.Nil && !middleware.IsAdminFromContext(r.Context()) {
			email := strings.TrimSpace(r.URL.Query().Get("email"))
			if order.GuestEmail == nil || email == "" || !strings.EqualFold(*order.GuestEmail, email) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
		} else if err := authorizeRead(r, order); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// List pages orders newest-first. Admins may filter by any customer;
// everyone else is pinned to their own orders.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var filter internalorders.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.OrderStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").WithDetails(map[string]any{"status": raw}))
				return
			}
			filter.Status = &status
		}

		if middleware.IsAdminFromContext(r.Context()) {
			customerID, err := validators.ParseQueryUUID(r, "customer_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if customerID != uuid.Nil {
				filter.CustomerID = &customerID
			}
		} else {
			userID := middleware.UserIDFromContext(r.Context())
			if userID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			filter.CustomerID = &userID
		}

		orders, nextCursor, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"orders":      orders,
			"next_cursor": nextCursor,
		})
	}
}

// UpdateStatus applies admin-driven state changes: fulfillment status,
// payment status and tracking number.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.Status == nil && req.PaymentStatus == nil && req.TrackingNumber == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no changes requested"))
			return
		}
		if req.Status != nil && !req.Status.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").WithDetails(map[string]any{"status": *req.Status}))
			return
		}
		if req.PaymentStatus != nil && !req.PaymentStatus.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status").WithDetails(map[string]any{"payment_status": *req.PaymentStatus}))
			return
		}

		input := internalorders.UpdateStatusInput{
			Status:         req.Status,
			PaymentStatus:  req.PaymentStatus,
			TrackingNumber: req.TrackingNumber,
		}
		if actorID := middleware.UserIDFromContext(r.Context()); actorID != uuid.Nil {
			input.ActorID = &actorID
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// Cancel lets the owning customer or an admin cancel an order.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !middleware.IsAdminFromContext(r.Context()) {
			order, err := svc.Get(r.Context(), orderID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if err := authorizeRead(r, order); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		var actor *uuid.UUID
		if actorID := middleware.UserIDFromContext(r.Context()); actorID != uuid.Nil {
			actor = &actorID
		}

		order, err := svc.Cancel(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func authorizeRead(r *http.Request, order *models.Order) error {
	if middleware.IsAdminFromContext(r.Context()) {
		return nil
	}
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil || order.CustomerID == nil || *order.CustomerID != userID {
		// Not-found rather than forbidden so order ids cannot be probed.
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}
