package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/subtrack-app/subtrack-backend/api/middleware"
	"github.com/subtrack-app/subtrack-backend/api/responses"
	"github.com/subtrack-app/subtrack-backend/api/validators"
	"github.com/subtrack-app/subtrack-backend/internal/subscriptions"
	"github.com/subtrack-app/subtrack-backend/pkg/db/models"
	"github.com/subtrack-app/subtrack-backend/pkg/enums"
	pkgerrors "github.com/subtrack-app/subtrack-backend/pkg/errors"
	"github.com/subtrack-app/subtrack-backend/pkg/logger"
)

const dateLayout = "2006-01-02"

type subscriptionResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Plan            string          `json:"plan"`
	Price           decimal.Decimal `json:"price"`
	Category        string          `json:"category"`
	PaymentPeriod   string          `json:"paymentPeriod"`
	StartDate       string          `json:"startDate"`
	NextPaymentDate string          `json:"nextPaymentDate"`
	IsActive        bool            `json:"isActive"`
}

type planHistoryResponse struct {
	ID        string          `json:"id"`
	Plan      string          `json:"plan"`
	Price     decimal.Decimal `json:"price"`
	StartDate string          `json:"startDate"`
	EndDate   *string         `json:"endDate"`
}

func toSubscriptionResponse(sub *models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:              sub.ID,
		Name:            sub.Name,
		Plan:            sub.Plan,
		Price:           sub.Price,
		Category:        sub.Category.String(),
		PaymentPeriod:   sub.PaymentPeriod.String(),
		StartDate:       sub.StartDate.Format(dateLayout),
		NextPaymentDate: sub.NextPaymentDate.Format(dateLayout),
		IsActive:        sub.IsActive,
	}
}

func toHistoryResponse(entries []models.PlanHistoryEntry) []planHistoryResponse {
	out := make([]planHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		item := planHistoryResponse{
			ID:        entry.ID,
			Plan:      entry.Plan,
			Price:     entry.Price,
			StartDate: entry.StartDate.Format(dateLayout),
		}
		if entry.EndDate != nil {
			end := entry.EndDate.Format(dateLayout)
			item.EndDate = &end
		}
		out = append(out, item)
	}
	return out
}

type subscriptionCreateRequest struct {
	Name          string          `json:"name" validate:"required,min=1,max=120"`
	Plan          string          `json:"plan" validate:"required,min=1,max=120"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category" validate:"required"`
	PaymentPeriod string          `json:"paymentPeriod" validate:"required"`
	StartDate     string          `json:"startDate" validate:"required"`
}

type subscriptionEditRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Category      *string `json:"category,omitempty"`
	PaymentPeriod *string `json:"paymentPeriod,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}

type subscriptionUpgradeRequest struct {
	Plan          string          `json:"plan" validate:"required,min=1,max=120"`
	Price         decimal.Decimal `json:"price"`
	EffectiveDate string          `json:"effectiveDate" validate:"required"`
}

func parseDateField(value, field string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "must be an ISO date").
			WithDetails(map[string]string{field: "expected " + dateLayout})
	}
	return parsed, nil
}

// SubscriptionCreate registers a new subscription for the signed-in user.
func SubscriptionCreate(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscriptionCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := enums.ParseCategory(req.Category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}
		payPeriod, err := enums.ParsePaymentPeriod(req.PaymentPeriod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment period"))
			return
		}
		start, err := parseDateField(req.StartDate, "startDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Create(r.Context(), middleware.UserIDFromContext(r.Context()), subscriptions.CreateInput{
			Name:          req.Name,
			Plan:          req.Plan,
			Price:         req.Price,
			Category:      category,
			PaymentPeriod: payPeriod,
			StartDate:     start,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toSubscriptionResponse(sub))
	}
}

// SubscriptionList returns every subscription of the signed-in user.
func SubscriptionList(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]subscriptionResponse, 0, len(subs))
		for i := range subs {
			out = append(out, toSubscriptionResponse(&subs[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// SubscriptionGet returns one subscription by id.
func SubscriptionGet(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "subscriptionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSubscriptionResponse(sub))
	}
}

// SubscriptionEdit patches cosmetic fields without touching the plan ledger.
func SubscriptionEdit(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscriptionEditRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := subscriptions.EditInput{
			Name:     req.Name,
			IsActive: req.IsActive,
		}
		if req.Category != nil {
			category, err := enums.ParseCategory(*req.Category)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			input.Category = &category
		}
		if req.PaymentPeriod != nil {
			payPeriod, err := enums.ParsePaymentPeriod(*req.PaymentPeriod)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment period"))
				return
			}
			input.PaymentPeriod = &payPeriod
		}

		sub, err := svc.Edit(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "subscriptionID"), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSubscriptionResponse(sub))
	}
}

// SubscriptionUpgrade switches the subscription to a new plan segment.
func SubscriptionUpgrade(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscriptionUpgradeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		effective, err := parseDateField(req.EffectiveDate, "effectiveDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Upgrade(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "subscriptionID"), subscriptions.UpgradeInput{
			Plan:          req.Plan,
			Price:         req.Price,
			EffectiveDate: effective,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSubscriptionResponse(sub))
	}
}

// SubscriptionDelete removes the subscription and its plan history.
func SubscriptionDelete(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "subscriptionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// SubscriptionHistory returns the ordered plan ledger.
func SubscriptionHistory(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.History(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "subscriptionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toHistoryResponse(entries))
	}
}
