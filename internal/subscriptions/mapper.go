package subscriptions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	"github.com/subtrack-app/subtrack-backend/pkg/db/models"
	"github.com/subtrack-app/subtrack-backend/pkg/enums"
)

// ErrMalformedRecord marks a stored document that is missing a required
// field or carries an undecodable value. Readers skip such records instead
// of failing the whole list.
var ErrMalformedRecord = errors.New("malformed record")

// subscriptionDoc is the stored shape of users/{uid}/subscriptions/{id},
// kept compatible with the mobile client.
type subscriptionDoc struct {
	Name            string    `firestore:"name"`
	Plan            string    `firestore:"plan"`
	Price           float64   `firestore:"price"`
	Category        string    `firestore:"category"`
	PaymentPeriod   string    `firestore:"paymentPeriod"`
	StartDate       time.Time `firestore:"startDate"`
	NextPaymentDate time.Time `firestore:"nextPaymentDate"`
	IsActive        bool      `firestore:"isActive"`
	CreatedAt       time.Time `firestore:"createdAt"`
	UpdatedAt       time.Time `firestore:"updatedAt"`
}

// planHistoryDoc is the stored shape of one planHistory sub-document.
// A null endDate marks the open segment.
type planHistoryDoc struct {
	Plan      string     `firestore:"plan"`
	Price     float64    `firestore:"price"`
	StartDate time.Time  `firestore:"startDate"`
	EndDate   *time.Time `firestore:"endDate"`
}

func decodeSubscription(snap *firestore.DocumentSnapshot, userID string) (*models.Subscription, error) {
	var doc subscriptionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode subscription %s: %v", ErrMalformedRecord, snap.Ref.ID, err)
	}
	return subscriptionFromDoc(snap.Ref.ID, userID, doc)
}

func subscriptionFromDoc(id, userID string, doc subscriptionDoc) (*models.Subscription, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return nil, fmt.Errorf("%w: subscription %s missing name", ErrMalformedRecord, id)
	}
	if strings.TrimSpace(doc.Plan) == "" {
		return nil, fmt.Errorf("%w: subscription %s missing plan", ErrMalformedRecord, id)
	}
	if doc.Price < 0 {
		return nil, fmt.Errorf("%w: subscription %s has negative price", ErrMalformedRecord, id)
	}
	if doc.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: subscription %s missing start date", ErrMalformedRecord, id)
	}
	payPeriod, err := enums.ParsePaymentPeriod(doc.PaymentPeriod)
	if err != nil {
		return nil, fmt.Errorf("%w: subscription %s: %v", ErrMalformedRecord, id, err)
	}
	category, err := enums.ParseCategory(doc.Category)
	if err != nil {
		return nil, fmt.Errorf("%w: subscription %s: %v", ErrMalformedRecord, id, err)
	}

	return &models.Subscription{
		ID:              id,
		UserID:          userID,
		Name:            doc.Name,
		Plan:            doc.Plan,
		Price:           decimal.NewFromFloat(doc.Price),
		Category:        category,
		PaymentPeriod:   payPeriod,
		StartDate:       doc.StartDate.UTC(),
		NextPaymentDate: doc.NextPaymentDate.UTC(),
		IsActive:        doc.IsActive,
		CreatedAt:       doc.CreatedAt.UTC(),
		UpdatedAt:       doc.UpdatedAt.UTC(),
	}, nil
}

func subscriptionToDoc(sub *models.Subscription) subscriptionDoc {
	price, _ := sub.Price.Float64()
	return subscriptionDoc{
		Name:            sub.Name,
		Plan:            sub.Plan,
		Price:           price,
		Category:        sub.Category.String(),
		PaymentPeriod:   sub.PaymentPeriod.String(),
		StartDate:       sub.StartDate,
		NextPaymentDate: sub.NextPaymentDate,
		IsActive:        sub.IsActive,
		CreatedAt:       sub.CreatedAt,
		UpdatedAt:       sub.UpdatedAt,
	}
}

func decodeHistoryEntry(snap *firestore.DocumentSnapshot) (*models.PlanHistoryEntry, error) {
	var doc planHistoryDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode history entry %s: %v", ErrMalformedRecord, snap.Ref.ID, err)
	}
	return historyEntryFromDoc(snap.Ref.ID, doc)
}

func historyEntryFromDoc(id string, doc planHistoryDoc) (*models.PlanHistoryEntry, error) {
	if strings.TrimSpace(doc.Plan) == "" {
		return nil, fmt.Errorf("%w: history entry %s missing plan", ErrMalformedRecord, id)
	}
	if doc.Price < 0 {
		return nil, fmt.Errorf("%w: history entry %s has negative price", ErrMalformedRecord, id)
	}
	if doc.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: history entry %s missing start date", ErrMalformedRecord, id)
	}

	entry := &models.PlanHistoryEntry{
		ID:        id,
		Plan:      doc.Plan,
		Price:     decimal.NewFromFloat(doc.Price),
		StartDate: doc.StartDate.UTC(),
	}
	if doc.EndDate != nil {
		end := doc.EndDate.UTC()
		entry.EndDate = &end
	}
	return entry, nil
}

func historyEntryToDoc(entry *models.PlanHistoryEntry) planHistoryDoc {
	price, _ := entry.Price.Float64()
	return planHistoryDoc{
		Plan:      entry.Plan,
		Price:     price,
		StartDate: entry.StartDate,
		EndDate:   entry.EndDate,
	}
}
