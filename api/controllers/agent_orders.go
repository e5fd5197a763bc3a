package controllers

import (
	"net/http"
	"time"

	"github.com/rahulbagri/phonelot-backend/api/responses"
	"github.com/rahulbagri/phonelot-backend/api/validators"
	"github.com/rahulbagri/phonelot-backend/internal/marketplace"
	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
	"github.com/rahulbagri/phonelot-backend/pkg/logger"
)

const pickupDateLayout = "2006-01-02"

type schedulePickupRequest struct {
	PickupDate     string `json:"pickup_date" validate:"required"`
	PickupTimeSlot string `json:"pickup_time_slot" validate:"required,max=50"`
}

type completePickupRequest struct {
	ActualCondition       string  `json:"actual_condition" validate:"required,max=500"`
	FinalOfferPaise       int64   `json:"final_offer_paise" validate:"required,gt=0"`
	CustomerAcceptedOffer *bool   `json:"customer_accepted_offer" validate:"required"`
	PickupNotes           *string `json:"pickup_notes,omitempty" validate:"omitempty,max=1000"`
}

type processPaymentRequest struct {
	AmountPaise int64   `json:"amount_paise" validate:"required,gt=0"`
	Method      string  `json:"method" validate:"required,oneof=upi bank_transfer cash"`
	Reference   *string `json:"reference,omitempty" validate:"omitempty,max=100"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// AgentOrders lists orders assigned to the calling agent.
func AgentOrders(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := statusFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAgentOrders(r.Context(), agentID, status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AgentAcceptOrder marks an assignment as accepted by the agent.
func AgentAcceptOrder(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AcceptAssignment(r.Context(), agentID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AgentSchedulePickup records the pickup date and time slot.
func AgentSchedulePickup(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req schedulePickupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pickupDate, err := time.Parse(pickupDateLayout, req.PickupDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "pickup_date must be formatted YYYY-MM-DD"))
			return
		}

		order, err := svc.SchedulePickup(r.Context(), agentID, orderID, marketplace.SchedulePickupInput{
			PickupDate:     pickupDate,
			PickupTimeSlot: req.PickupTimeSlot,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AgentCompletePickup records the on-site inspection outcome.
func AgentCompletePickup(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req completePickupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CompletePickup(r.Context(), agentID, orderID, marketplace.CompletePickupInput{
			ActualCondition:       req.ActualCondition,
			FinalOfferPaise:       req.FinalOfferPaise,
			CustomerAcceptedOffer: *req.CustomerAcceptedOffer,
			PickupNotes:           req.PickupNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AgentProcessPayment records the payout made to the customer.
func AgentProcessPayment(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req processPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ProcessPayment(r.Context(), agentID, orderID, marketplace.ProcessPaymentInput{
			AmountPaise: req.AmountPaise,
			Method:      req.Method,
			Reference:   req.Reference,
			Notes:       req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
