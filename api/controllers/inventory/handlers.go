package inventory

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lunamercado/storefront-backend/api/middleware"
	"github.com/lunamercado/storefront-backend/api/responses"
	"github.com/lunamercado/storefront-backend/api/validators"
	"github.com/lunamercado/storefront-backend/internal/adjustments"
	"github.com/lunamercado/storefront-backend/internal/ledger"
	"github.com/lunamercado/storefront-backend/internal/reservations"
	"github.com/lunamercado/storefront-backend/pkg/db"
	"github.com/lunamercado/storefront-backend/pkg/enums"
	pkgerrors "github.com/lunamercado/storefront-backend/pkg/errors"
	"github.com/lunamercado/storefront-backend/pkg/logger"
)

// Availability exposes the derived availability view of one product.
func Availability(ledg *ledger.Ledger, client *db.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := parsePathUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := ledg.GetAvailable(r.Context(), client.DB(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"product_id":     snap.ProductID,
			"physical_stock": snap.Physical,
			"reserved_stock": snap.Reserved,
			"available":      snap.Available,
			"reorder_point":  snap.ReorderPoint,
			"stock_status":   snap.Status,
			"version":        snap.Version,
		})
	}
}

// RequestAdjustment files a stock correction for review.
func RequestAdjustment(svc adjustments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestedBy := middleware.UserIDFromContext(r.Context())
		adjustment, err := svc.Request(r.Context(), adjustments.RequestInput{
			ProductID:   req.ProductID,
			Type:        req.Type,
			ReasonCode:  req.ReasonCode,
			Quantity:    req.Quantity,
			Description: req.Description,
			RequestedBy: requestedBy,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, adjustment)
	}
}

// DecideAdjustment approves or rejects a pending adjustment.
func DecideAdjustment(svc adjustments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adjustmentID, err := parsePathUUID(r, "adjustmentId", "adjustment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adjustmentDecisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.Decision != enums.ApprovalStatusApproved && req.Decision != enums.ApprovalStatusRejected {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approved or rejected").WithDetails(map[string]any{"decision": req.Decision}))
			return
		}

		approverID := middleware.UserIDFromContext(r.Context())
		adjustment, err := svc.Decide(r.Context(), adjustmentID, req.Decision, approverID, req.ReviewNotes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, adjustment)
	}
}

// GetAdjustment returns one adjustment by id.
func GetAdjustment(svc adjustments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adjustmentID, err := parsePathUUID(r, "adjustmentId", "adjustment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adjustment, err := svc.Get(r.Context(), adjustmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, adjustment)
	}
}

// ListAdjustments pages adjustments, optionally filtered by product and
// approval status.
func ListAdjustments(svc adjustments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := adjustments.ListFilter{Limit: limit, Offset: offset}
		productID, err := validators.ParseQueryUUID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if productID != uuid.Nil {
			filter.ProductID = &productID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.ApprovalStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown approval status").WithDetails(map[string]any{"status": raw}))
				return
			}
			filter.Status = &status
		}

		rows, total, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"adjustments": rows,
			"total":       total,
		})
	}
}

// Hold places a time-bounded reservation against a product.
func Hold(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req holdRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservation, err := svc.Reserve(r.Context(), req.ProductID, req.OrderID, req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, reservation)
	}
}

// Release ends a reservation with an explicit reason.
func Release(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservationID, err := parsePathUUID(r, "reservationId", "reservation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req releaseRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !req.Reason.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown release reason").WithDetails(map[string]any{"reason": req.Reason}))
			return
		}

		if err := svc.Release(r.Context(), reservationID, req.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "released"})
	}
}

func parsePathUUID(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}
