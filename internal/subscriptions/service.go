package subscriptions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/subtrack-app/subtrack-backend/internal/ledger"
	"github.com/subtrack-app/subtrack-backend/internal/period"
	"github.com/subtrack-app/subtrack-backend/pkg/db"
	"github.com/subtrack-app/subtrack-backend/pkg/db/models"
	"github.com/subtrack-app/subtrack-backend/pkg/enums"
	pkgerrors "github.com/subtrack-app/subtrack-backend/pkg/errors"
	"github.com/subtrack-app/subtrack-backend/pkg/logger"
)

type scheduleCache interface {
	ScheduleSnapshotKey(userID string) string
	Del(ctx context.Context, keys ...string) error
}

// Service defines the subscription lifecycle surface.
type Service interface {
	Create(ctx context.Context, userID string, input CreateInput) (*models.Subscription, error)
	Get(ctx context.Context, userID, subID string) (*models.Subscription, error)
	List(ctx context.Context, userID string) ([]models.Subscription, error)
	Edit(ctx context.Context, userID, subID string, input EditInput) (*models.Subscription, error)
	Upgrade(ctx context.Context, userID, subID string, input UpgradeInput) (*models.Subscription, error)
	Delete(ctx context.Context, userID, subID string) error
	History(ctx context.Context, userID, subID string) ([]models.PlanHistoryEntry, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo              Repository
	TransactionRunner db.TxRunner
	Cache             scheduleCache
	Logger            *logger.Logger
	Now               func() time.Time
}

type service struct {
	repo     Repository
	txRunner db.TxRunner
	cache    scheduleCache
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a subscription service with the required dependencies.
// Cache is optional; without it mutations simply skip snapshot invalidation.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:     params.Repo,
		txRunner: params.TransactionRunner,
		cache:    params.Cache,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

// Create registers a subscription together with its first open ledger entry.
// The first payment falls on the start date itself.
func (s *service) Create(ctx context.Context, userID string, input CreateInput) (*models.Subscription, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	plan := strings.TrimSpace(input.Plan)
	if plan == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown category")
	}
	if !input.PaymentPeriod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment period")
	}
	if input.StartDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start date is required")
	}

	now := s.now().UTC()
	start := period.DateOnly(input.StartDate)

	sub := &models.Subscription{
		ID:              uuid.NewString(),
		UserID:          userID,
		Name:            name,
		Plan:            plan,
		Price:           input.Price,
		Category:        input.Category,
		PaymentPeriod:   input.PaymentPeriod,
		StartDate:       start,
		NextPaymentDate: nextPaymentOn(start, input.PaymentPeriod, now),
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	first := &models.PlanHistoryEntry{
		ID:        uuid.NewString(),
		Plan:      plan,
		Price:     input.Price,
		StartDate: start,
	}

	err := s.txRunner.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return s.repo.WithTx(tx).Create(ctx, sub, first)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist subscription")
	}

	s.invalidateSnapshot(ctx, userID)
	return sub, nil
}

// Get loads one subscription, refreshing its next payment date in memory
// when the stored value has fallen behind.
func (s *service) Get(ctx context.Context, userID, subID string) (*models.Subscription, error) {
	sub, err := s.repo.Find(ctx, userID, subID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	s.refresh(sub)
	return sub, nil
}

// List returns all of the user's subscriptions with refreshed next payment
// dates. Malformed documents have already been dropped by the repository.
func (s *service) List(ctx context.Context, userID string) ([]models.Subscription, error) {
	subs, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	for i := range subs {
		s.refresh(&subs[i])
	}
	return subs, nil
}

// Edit overwrites cosmetic fields. It never touches the plan ledger; a
// period change recomputes the next payment date from the unchanged anchor.
func (s *service) Edit(ctx context.Context, userID, subID string, input EditInput) (*models.Subscription, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be blank")
	}
	if input.Category != nil && !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown category")
	}
	if input.PaymentPeriod != nil && !input.PaymentPeriod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment period")
	}

	sub, err := s.Get(ctx, userID, subID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		sub.Name = strings.TrimSpace(*input.Name)
	}
	if input.Category != nil {
		sub.Category = *input.Category
	}
	if input.PaymentPeriod != nil {
		sub.PaymentPeriod = *input.PaymentPeriod
	}
	if input.IsActive != nil {
		sub.IsActive = *input.IsActive
	}
	now := s.now().UTC()
	sub.NextPaymentDate = nextPaymentOn(sub.StartDate, sub.PaymentPeriod, now)
	sub.UpdatedAt = now

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription")
	}

	s.invalidateSnapshot(ctx, userID)
	return sub, nil
}

// Upgrade closes the open ledger entry at the effective date, appends the
// new plan segment and refreshes the cached plan fields, all in a single
// transaction so the ledger can never hold two open entries.
func (s *service) Upgrade(ctx context.Context, userID, subID string, input UpgradeInput) (*models.Subscription, error) {
	plan := strings.TrimSpace(input.Plan)
	if plan == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.EffectiveDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "effective date is required")
	}

	effective := period.DateOnly(input.EffectiveDate)
	now := s.now().UTC()

	var updated *models.Subscription
	err := s.txRunner.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		txRepo := s.repo.WithTx(tx)

		sub, err := txRepo.Find(ctx, userID, subID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if sub == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}

		open, err := txRepo.OpenEntry(ctx, userID, subID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open plan entry")
		}
		if err := ledger.ValidateUpgrade(open, effective); err != nil {
			return err
		}

		if err := txRepo.CloseEntry(ctx, userID, subID, open.ID, effective); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close plan entry")
		}
		next := &models.PlanHistoryEntry{
			ID:        uuid.NewString(),
			Plan:      plan,
			Price:     input.Price,
			StartDate: effective,
		}
		if err := txRepo.AppendEntry(ctx, userID, subID, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append plan entry")
		}

		sub.Plan = plan
		sub.Price = input.Price
		sub.StartDate = effective
		sub.NextPaymentDate = nextPaymentOn(effective, sub.PaymentPeriod, now)
		sub.UpdatedAt = now
		if err := txRepo.Update(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription")
		}

		updated = sub
		return nil
	})
	if err != nil {
		if coded := pkgerrors.As(err); coded != nil {
			return nil, coded
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upgrade subscription")
	}

	s.invalidateSnapshot(ctx, userID)
	return updated, nil
}

// Delete removes the subscription and its whole plan history.
func (s *service) Delete(ctx context.Context, userID, subID string) error {
	err := s.txRunner.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		txRepo := s.repo.WithTx(tx)

		sub, err := txRepo.Find(ctx, userID, subID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if sub == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return txRepo.Delete(ctx, userID, subID)
	})
	if err != nil {
		if coded := pkgerrors.As(err); coded != nil {
			return coded
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete subscription")
	}

	s.invalidateSnapshot(ctx, userID)
	return nil
}

// History returns the subscription's plan ledger ordered by start date.
func (s *service) History(ctx context.Context, userID, subID string) ([]models.PlanHistoryEntry, error) {
	if _, err := s.Get(ctx, userID, subID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListHistory(ctx, userID, subID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plan history")
	}
	return ledger.Sort(entries), nil
}

// refresh recomputes the next payment date in memory when the stored value
// is no longer in the future.
func (s *service) refresh(sub *models.Subscription) {
	sub.NextPaymentDate = nextPaymentOn(sub.StartDate, sub.PaymentPeriod, s.now().UTC())
}

// nextPaymentOn returns the next payment date relative to today. A start
// date today or in the future is itself the next payment.
func nextPaymentOn(start time.Time, p enums.PaymentPeriod, today time.Time) time.Time {
	start = period.DateOnly(start)
	today = period.DateOnly(today)
	if !start.Before(today) {
		return start
	}
	return period.NextOccurrenceAfter(start, p, today)
}

func (s *service) invalidateSnapshot(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.ScheduleSnapshotKey(userID)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "schedule.snapshot.invalidate_failed")
	}
}
