package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/subtrack-app/subtrack-backend/api/middleware"
	"github.com/subtrack-app/subtrack-backend/api/responses"
	"github.com/subtrack-app/subtrack-backend/api/validators"
	"github.com/subtrack-app/subtrack-backend/internal/schedule"
	pkgerrors "github.com/subtrack-app/subtrack-backend/pkg/errors"
	"github.com/subtrack-app/subtrack-backend/pkg/logger"
)

// ScheduleOverview returns the schedule snapshot; ?refresh=true forces a
// recompute past the cache.
func ScheduleOverview(svc schedule.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refresh, err := validators.ParseQueryBool(r, "refresh")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		overview, err := svc.Overview(r.Context(), middleware.UserIDFromContext(r.Context()), refresh)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

// ScheduleDay lists the subscriptions paying on ?date=YYYY-MM-DD.
func ScheduleDay(svc schedule.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if date.IsZero() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "date is required"))
			return
		}

		views, err := svc.PaymentsOn(r.Context(), middleware.UserIDFromContext(r.Context()), date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// ScheduleTrend returns the trailing monthly spending totals; ?months
// overrides the configured default.
func ScheduleTrend(svc schedule.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		months, err := validators.ParseQueryInt(r, "months", 0, 1, 120)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		trend, err := svc.MonthlyTrend(r.Context(), middleware.UserIDFromContext(r.Context()), months)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, trend)
	}
}

type spendResponse struct {
	SubscriptionID string          `json:"subscriptionId"`
	AsOf           string          `json:"asOf"`
	Total          decimal.Decimal `json:"total"`
}

// SubscriptionSpend returns the lifetime spend of one subscription, as of
// ?as_of=YYYY-MM-DD (default today).
func SubscriptionSpend(svc schedule.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asOf, err := validators.ParseQueryDate(r, "as_of")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subID := chi.URLParam(r, "subscriptionID")
		total, err := svc.TotalSpend(r.Context(), middleware.UserIDFromContext(r.Context()), subID, asOf)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := spendResponse{SubscriptionID: subID, Total: total}
		if !asOf.IsZero() {
			resp.AsOf = asOf.Format(dateLayout)
		}
		responses.WriteSuccess(w, resp)
	}
}
