package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack-app/subtrack-backend/internal/ledger"
	"github.com/subtrack-app/subtrack-backend/internal/period"
	"github.com/subtrack-app/subtrack-backend/pkg/config"
	"github.com/subtrack-app/subtrack-backend/pkg/db/models"
	pkgerrors "github.com/subtrack-app/subtrack-backend/pkg/errors"
	"github.com/subtrack-app/subtrack-backend/pkg/logger"
	"github.com/subtrack-app/subtrack-backend/pkg/redis"
)

// subscriptionSource is the slice of the subscription service the schedule
// queries need: refreshed aggregates and the per-subscription ledger.
type subscriptionSource interface {
	List(ctx context.Context, userID string) ([]models.Subscription, error)
	History(ctx context.Context, userID, subID string) ([]models.PlanHistoryEntry, error)
}

// SubscriptionView is the serialized shape of one subscription inside a
// schedule snapshot.
type SubscriptionView struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Plan            string          `json:"plan"`
	Price           decimal.Decimal `json:"price"`
	Category        string          `json:"category"`
	PaymentPeriod   string          `json:"paymentPeriod"`
	StartDate       time.Time       `json:"startDate"`
	NextPaymentDate time.Time       `json:"nextPaymentDate"`
	IsActive        bool            `json:"isActive"`
}

// Overview is the one-shot schedule snapshot handed to the client.
type Overview struct {
	GeneratedAt   time.Time          `json:"generatedAt"`
	MonthlyTotal  decimal.Decimal    `json:"monthlyTotal"`
	Upcoming      *SubscriptionView  `json:"upcoming,omitempty"`
	Subscriptions []SubscriptionView `json:"subscriptions"`
}

// Service answers read-only schedule queries over a user's subscriptions.
type Service interface {
	Overview(ctx context.Context, userID string, refresh bool) (*Overview, error)
	PaymentsOn(ctx context.Context, userID string, date time.Time) ([]SubscriptionView, error)
	MonthlyTrend(ctx context.Context, userID string, monthsBack int) ([]MonthTotal, error)
	TotalSpend(ctx context.Context, userID, subID string, asOf time.Time) (decimal.Decimal, error)
}

// ServiceParams groups dependencies for the schedule service.
type ServiceParams struct {
	Subscriptions subscriptionSource
	Cache         redis.SnapshotCache
	Config        config.ScheduleConfig
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	source subscriptionSource
	cache  redis.SnapshotCache
	cfg    config.ScheduleConfig
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds a schedule query service. Cache is optional; without it
// every overview is computed from a fresh load.
func NewService(params ServiceParams) (Service, error) {
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription source required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Config.TrendMonths <= 0 {
		return nil, fmt.Errorf("trend months must be positive")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		source: params.Subscriptions,
		cache:  params.Cache,
		cfg:    params.Config,
		logg:   params.Logger,
		now:    params.Now,
	}, nil
}

// Overview returns the cached snapshot when one is fresh enough, otherwise
// recomputes it from a full load. refresh forces the recompute.
func (s *service) Overview(ctx context.Context, userID string, refresh bool) (*Overview, error) {
	if s.cache != nil && !refresh {
		if cached, ok := s.cachedOverview(ctx, userID); ok {
			return cached, nil
		}
	}

	subs, err := s.source.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		GeneratedAt:   s.now().UTC(),
		MonthlyTotal:  MonthlyTotal(subs),
		Subscriptions: viewsOf(subs),
	}
	if next := Upcoming(subs); next != nil {
		view := viewOf(*next)
		overview.Upcoming = &view
	}

	s.storeOverview(ctx, userID, overview)
	return overview, nil
}

// PaymentsOn lists the subscriptions with a payment occurrence on the given
// date. Always computed from a fresh load; day queries are not snapshotted.
func (s *service) PaymentsOn(ctx context.Context, userID string, date time.Time) ([]SubscriptionView, error) {
	if date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date is required")
	}
	subs, err := s.source.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return viewsOf(PaymentsOn(subs, date)), nil
}

// MonthlyTrend computes the trailing spending trend. monthsBack <= 0 falls
// back to the configured default; values beyond the configured cap are
// rejected.
func (s *service) MonthlyTrend(ctx context.Context, userID string, monthsBack int) ([]MonthTotal, error) {
	if monthsBack <= 0 {
		monthsBack = s.cfg.TrendMonths
	}
	if s.cfg.TrendMonthsMax > 0 && monthsBack > s.cfg.TrendMonthsMax {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("months must not exceed %d", s.cfg.TrendMonthsMax))
	}

	subs, err := s.source.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	ledgers := make(map[string][]models.PlanHistoryEntry, len(subs))
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := s.source.History(ctx, sub.UserID, sub.ID)
		if err != nil {
			return nil, err
		}
		ledgers[sub.ID] = entries
	}

	return MonthlyTrend(ledgers, s.now(), monthsBack), nil
}

// TotalSpend returns the lifetime spend of one subscription across all of
// its plan segments. A zero asOf means "as of now".
func (s *service) TotalSpend(ctx context.Context, userID, subID string, asOf time.Time) (decimal.Decimal, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	entries, err := s.source.History(ctx, userID, subID)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.TotalSpend(entries, period.DateOnly(asOf)), nil
}

func (s *service) cachedOverview(ctx context.Context, userID string) (*Overview, bool) {
	raw, err := s.cache.Get(ctx, s.cache.ScheduleSnapshotKey(userID))
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "schedule.snapshot.read_failed")
		}
		return nil, false
	}

	var overview Overview
	if err := json.Unmarshal([]byte(raw), &overview); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "schedule.snapshot.decode_failed")
		return nil, false
	}
	return &overview, true
}

func (s *service) storeOverview(ctx context.Context, userID string, overview *Overview) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(overview)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "schedule.snapshot.encode_failed")
		return
	}
	if err := s.cache.Set(ctx, s.cache.ScheduleSnapshotKey(userID), string(raw), s.cfg.SnapshotCacheTTL); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "schedule.snapshot.write_failed")
	}
}

func viewOf(sub models.Subscription) SubscriptionView {
	return SubscriptionView{
		ID:              sub.ID,
		Name:            sub.Name,
		Plan:            sub.Plan,
		Price:           sub.Price,
		Category:        sub.Category.String(),
		PaymentPeriod:   sub.PaymentPeriod.String(),
		StartDate:       sub.StartDate,
		NextPaymentDate: sub.NextPaymentDate,
		IsActive:        sub.IsActive,
	}
}

func viewsOf(subs []models.Subscription) []SubscriptionView {
	views := make([]SubscriptionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, viewOf(sub))
	}
	return views
}
