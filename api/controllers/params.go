package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rahulbagri/phonelot-backend/api/middleware"
	"github.com/rahulbagri/phonelot-backend/api/validators"
	"github.com/rahulbagri/phonelot-backend/internal/lifecycle"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
	"github.com/rahulbagri/phonelot-backend/pkg/pagination"
)

func subjectID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.SubjectIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid subject")
	}
	return id, nil
}

func partnerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.PartnerIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "partner context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid partner context")
	}
	return id, nil
}

func actorFromRequest(r *http.Request) (lifecycle.Actor, error) {
	id, err := subjectID(r)
	if err != nil {
		return lifecycle.Actor{}, err
	}
	role := enums.ActorType(middleware.RoleFromContext(r.Context()))
	if !role.IsValid() {
		return lifecycle.Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
	return lifecycle.Actor{Type: role, ID: &id}, nil
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a UUID")
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func statusFilter(r *http.Request) (*enums.OrderStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").WithDetails(map[string]any{"status": raw})
	}
	return &status, nil
}
