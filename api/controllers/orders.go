package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/rahulbagri/phonelot-backend/api/responses"
	"github.com/rahulbagri/phonelot-backend/api/validators"
	"github.com/rahulbagri/phonelot-backend/internal/marketplace"
	"github.com/rahulbagri/phonelot-backend/pkg/logger"
)

type createOrderRequest struct {
	PhoneName         string          `json:"phone_name" validate:"required,max=200"`
	Brand             *string         `json:"brand,omitempty"`
	Model             *string         `json:"model,omitempty"`
	RAMGB             *int            `json:"ram_gb,omitempty" validate:"omitempty,min=1,max=64"`
	StorageGB         *int            `json:"storage_gb,omitempty" validate:"omitempty,min=1,max=2048"`
	Variant           *string         `json:"variant,omitempty"`
	ConditionAnswers  json.RawMessage `json:"condition_answers,omitempty"`
	QuotedPricePaise  int64           `json:"quoted_price_paise" validate:"required,gt=0"`
	CustomerName      string          `json:"customer_name" validate:"required,max=200"`
	CustomerPhone     string          `json:"customer_phone" validate:"required,min=10,max=15"`
	CustomerEmail     *string         `json:"customer_email,omitempty" validate:"omitempty,email"`
	PickupAddressLine string          `json:"pickup_address_line" validate:"required"`
	PickupCity        string          `json:"pickup_city" validate:"required"`
	PickupState       string          `json:"pickup_state" validate:"required"`
	PickupPincode     string          `json:"pickup_pincode" validate:"required,len=6"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// CreateOrder accepts a customer's phone submission and creates the lead.
func CreateOrder(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrder(r.Context(), marketplace.CreateOrderInput{
			CustomerID:        customerID,
			PhoneName:         req.PhoneName,
			Brand:             req.Brand,
			Model:             req.Model,
			RAMGB:             req.RAMGB,
			StorageGB:         req.StorageGB,
			Variant:           req.Variant,
			ConditionAnswers:  req.ConditionAnswers,
			QuotedPricePaise:  req.QuotedPricePaise,
			CustomerName:      req.CustomerName,
			CustomerPhone:     req.CustomerPhone,
			CustomerEmail:     req.CustomerEmail,
			PickupAddressLine: req.PickupAddressLine,
			PickupCity:        req.PickupCity,
			PickupState:       req.PickupState,
			PickupPincode:     req.PickupPincode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CustomerOrders lists the caller's submitted orders.
func CustomerOrders(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListCustomerOrders(r.Context(), customerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderDetail returns one order the caller is allowed to see.
func OrderDetail(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderTimeline returns the order's full status history.
func OrderTimeline(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		timeline, err := svc.Timeline(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"timeline": timeline})
	}
}

// CancelOrder cancels an order on behalf of the caller.
func CancelOrder(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelOrder(r.Context(), actor, orderID, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
