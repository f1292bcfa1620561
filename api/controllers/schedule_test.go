package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack-app/subtrack-backend/internal/schedule"
	pkgerrors "github.com/subtrack-app/subtrack-backend/pkg/errors"
	"github.com/subtrack-app/subtrack-backend/pkg/types"
)

type stubScheduleService struct {
	overview *schedule.Overview
	views    []schedule.SubscriptionView
	trend    []schedule.MonthTotal
	total    decimal.Decimal
	err      error

	lastRefresh bool
	lastDate    time.Time
	lastMonths  int
	lastAsOf    time.Time
}

func (s *stubScheduleService) Overview(ctx context.Context, userID string, refresh bool) (*schedule.Overview, error) {
	s.lastRefresh = refresh
	return s.overview, s.err
}

func (s *stubScheduleService) PaymentsOn(ctx context.Context, userID string, date time.Time) ([]schedule.SubscriptionView, error) {
	s.lastDate = date
	return s.views, s.err
}

func (s *stubScheduleService) MonthlyTrend(ctx context.Context, userID string, monthsBack int) ([]schedule.MonthTotal, error) {
	s.lastMonths = monthsBack
	return s.trend, s.err
}

func (s *stubScheduleService) TotalSpend(ctx context.Context, userID, subID string, asOf time.Time) (decimal.Decimal, error) {
	s.lastAsOf = asOf
	return s.total, s.err
}

func TestScheduleOverviewRefreshFlag(t *testing.T) {
	svc := &stubScheduleService{overview: &schedule.Overview{MonthlyTotal: decimal.NewFromInt(15)}}
	handler := ScheduleOverview(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/v1/schedule/overview?refresh=true", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.lastRefresh {
		t.Fatalf("expected refresh flag to flow through")
	}
}

func TestScheduleOverviewBadRefresh(t *testing.T) {
	handler := ScheduleOverview(&stubScheduleService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/v1/schedule/overview?refresh=banana", ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestScheduleDayRequiresDate(t *testing.T) {
	handler := ScheduleDay(&stubScheduleService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/v1/schedule/day", ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestScheduleDayParsesDate(t *testing.T) {
	svc := &stubScheduleService{}
	handler := ScheduleDay(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/v1/schedule/day?date=2026-03-15", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.lastDate.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", svc.lastDate)
	}
}

func TestScheduleTrendMonthsParam(t *testing.T) {
	svc := &stubScheduleService{}
	handler := ScheduleTrend(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/v1/schedule/trend?months=12", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastMonths != 12 {
		t.Fatalf("expected 12 months, got %d", svc.lastMonths)
	}
}

func TestScheduleTrendValidationErrorPropagates(t *testing.T) {
	svc := &stubScheduleService{err: pkgerrors.New(pkgerrors.CodeValidation, "months must not exceed 24")}
	handler := ScheduleTrend(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/v1/schedule/trend?months=30", ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSubscriptionSpend(t *testing.T) {
	svc := &stubScheduleService{total: decimal.NewFromInt(50)}
	handler := SubscriptionSpend(svc, nil)

	resp := httptest.NewRecorder()
	req := withURLParam(authedRequest(http.MethodGet, "/v1/subscriptions/sub-1/spend?as_of=2026-05-01", ""), "subscriptionID", "sub-1")
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.lastAsOf.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected asOf %v", svc.lastAsOf)
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	payload := envelope.Data.(map[string]any)
	if payload["subscriptionId"] != "sub-1" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if payload["asOf"] != "2026-05-01" {
		t.Fatalf("unexpected asOf %v", payload["asOf"])
	}
}
