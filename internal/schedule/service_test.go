package schedule

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack-app/subtrack-backend/pkg/config"
	"github.com/subtrack-app/subtrack-backend/pkg/db/models"
	pkgerrors "github.com/subtrack-app/subtrack-backend/pkg/errors"
	"github.com/subtrack-app/subtrack-backend/pkg/logger"
	"github.com/subtrack-app/subtrack-backend/pkg/redis"
)

type stubSource struct {
	subs    []models.Subscription
	history map[string][]models.PlanHistoryEntry

	listCalls    int
	historyCalls int
	listErr      error
}

func (s *stubSource) List(ctx context.Context, userID string) ([]models.Subscription, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]models.Subscription(nil), s.subs...), nil
}

func (s *stubSource) History(ctx context.Context, userID, subID string) ([]models.PlanHistoryEntry, error) {
	s.historyCalls++
	entries, ok := s.history[subID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return append([]models.PlanHistoryEntry(nil), entries...), nil
}

type memoryCache struct {
	values map[string]string
	sets   int
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, error) {
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return "", redis.ErrCacheMiss
}

func (c *memoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.values == nil {
		c.values = map[string]string{}
	}
	c.values[key] = value.(string)
	c.sets++
	return nil
}

func (c *memoryCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.values, key)
	}
	return nil
}

func (c *memoryCache) ScheduleSnapshotKey(userID string) string { return "st:schedule:" + userID }

func testConfig() config.ScheduleConfig {
	return config.ScheduleConfig{TrendMonths: 6, TrendMonthsMax: 24, SnapshotCacheTTL: 5 * time.Minute}
}

func newScheduleService(t *testing.T, source *stubSource, cache redis.SnapshotCache, now time.Time) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Subscriptions: source,
		Cache:         cache,
		Config:        testConfig(),
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		Now:           func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func twoSubs() []models.Subscription {
	return []models.Subscription{
		monthlySub("netflix", 10, 15),
		monthlySub("spotify", 5, 20),
	}
}

func TestOverviewComputesAndCaches(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	source := &stubSource{subs: twoSubs()}
	cache := &memoryCache{}
	svc := newScheduleService(t, source, cache, now)

	overview, err := svc.Overview(context.Background(), "user-1", false)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !overview.MonthlyTotal.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected total 15, got %v", overview.MonthlyTotal)
	}
	if overview.Upcoming == nil || overview.Upcoming.ID != "netflix" {
		t.Fatalf("expected netflix upcoming, got %v", overview.Upcoming)
	}
	if len(overview.Subscriptions) != 2 {
		t.Fatalf("expected two subscriptions, got %d", len(overview.Subscriptions))
	}
	if cache.sets != 1 {
		t.Fatalf("expected snapshot stored, got %d sets", cache.sets)
	}

	// Second call is served from the snapshot without touching the source.
	if _, err := svc.Overview(context.Background(), "user-1", false); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if source.listCalls != 1 {
		t.Fatalf("expected cached read, source hit %d times", source.listCalls)
	}
}

func TestOverviewRefreshBypassesSnapshot(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	source := &stubSource{subs: twoSubs()}
	cache := &memoryCache{}
	svc := newScheduleService(t, source, cache, now)

	if _, err := svc.Overview(context.Background(), "user-1", false); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if _, err := svc.Overview(context.Background(), "user-1", true); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if source.listCalls != 2 {
		t.Fatalf("refresh must reload, source hit %d times", source.listCalls)
	}
	if cache.sets != 2 {
		t.Fatalf("refresh must restore the snapshot, got %d sets", cache.sets)
	}
}

func TestOverviewCorruptSnapshotRecomputes(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	source := &stubSource{subs: twoSubs()}
	cache := &memoryCache{values: map[string]string{"st:schedule:user-1": "{not json"}}
	svc := newScheduleService(t, source, cache, now)

	overview, err := svc.Overview(context.Background(), "user-1", false)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if source.listCalls != 1 {
		t.Fatalf("corrupt snapshot must fall through to a load")
	}
	if !overview.MonthlyTotal.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected recomputed total, got %v", overview.MonthlyTotal)
	}
}

func TestOverviewWithoutCache(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	source := &stubSource{subs: twoSubs()}
	svc := newScheduleService(t, source, nil, now)

	if _, err := svc.Overview(context.Background(), "user-1", false); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if _, err := svc.Overview(context.Background(), "user-1", false); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if source.listCalls != 2 {
		t.Fatalf("without a cache every overview reloads")
	}
}

func TestOverviewSnapshotRoundTrips(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	source := &stubSource{subs: twoSubs()}
	cache := &memoryCache{}
	svc := newScheduleService(t, source, cache, now)

	original, err := svc.Overview(context.Background(), "user-1", false)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	var decoded Overview
	if err := json.Unmarshal([]byte(cache.values["st:schedule:user-1"]), &decoded); err != nil {
		t.Fatalf("snapshot must be valid JSON: %v", err)
	}
	if !decoded.MonthlyTotal.Equal(original.MonthlyTotal) {
		t.Fatalf("snapshot drift: %v vs %v", decoded.MonthlyTotal, original.MonthlyTotal)
	}
	if len(decoded.Subscriptions) != len(original.Subscriptions) {
		t.Fatalf("snapshot drift: %d vs %d subscriptions", len(decoded.Subscriptions), len(original.Subscriptions))
	}
}

func TestPaymentsOnService(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	source := &stubSource{subs: twoSubs()}
	svc := newScheduleService(t, source, nil, now)

	views, err := svc.PaymentsOn(context.Background(), "user-1", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(views) != 1 || views[0].ID != "netflix" {
		t.Fatalf("expected netflix on the 15th, got %v", views)
	}

	_, err = svc.PaymentsOn(context.Background(), "user-1", time.Time{})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero date, got %v", err)
	}
}

func TestMonthlyTrendService(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	sub := monthlySub("netflix", 20, 15)
	source := &stubSource{
		subs: []models.Subscription{sub},
		history: map[string][]models.PlanHistoryEntry{
			"netflix": {
				{ID: "e1", Plan: "Basic", Price: decimal.NewFromInt(10), StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), EndDate: &end},
				{ID: "e2", Plan: "Pro", Price: decimal.NewFromInt(20), StartDate: end},
			},
		},
	}
	svc := newScheduleService(t, source, nil, now)

	trend, err := svc.MonthlyTrend(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(trend) != 6 {
		t.Fatalf("expected default of 6 months, got %d", len(trend))
	}
	if source.historyCalls != 1 {
		t.Fatalf("expected one ledger load per subscription")
	}
}

func TestMonthlyTrendRejectsExcessiveRange(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	svc := newScheduleService(t, &stubSource{}, nil, now)

	_, err := svc.MonthlyTrend(context.Background(), "user-1", 25)
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMonthlyTrendCancelledContext(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	source := &stubSource{
		subs:    twoSubs(),
		history: map[string][]models.PlanHistoryEntry{"netflix": nil, "spotify": nil},
	}
	svc := newScheduleService(t, source, nil, now)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.MonthlyTrend(ctx, "user-1", 6); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestTotalSpendAcrossPlanChange(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	source := &stubSource{
		history: map[string][]models.PlanHistoryEntry{
			"netflix": {
				{ID: "e1", Plan: "Basic", Price: decimal.NewFromInt(10), StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), EndDate: &end},
				{ID: "e2", Plan: "Pro", Price: decimal.NewFromInt(20), StartDate: end},
			},
		},
	}
	svc := newScheduleService(t, source, nil, now)

	total, err := svc.TotalSpend(context.Background(), "user-1", "netflix", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !total.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected 50, got %v", total)
	}
}

func TestTotalSpendUnknownSubscription(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newScheduleService(t, &stubSource{}, nil, now)

	_, err := svc.TotalSpend(context.Background(), "user-1", "missing", time.Time{})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
