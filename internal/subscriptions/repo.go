package subscriptions

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/subtrack-app/subtrack-backend/pkg/db/models"
	"github.com/subtrack-app/subtrack-backend/pkg/logger"
)

const (
	usersCollection         = "users"
	subscriptionsCollection = "subscriptions"
	planHistoryCollection   = "planHistory"
)

// Repository handles subscription persistence. Find returns nil without an
// error when the document is absent; list reads skip malformed documents.
type Repository interface {
	WithTx(tx *firestore.Transaction) Repository
	List(ctx context.Context, userID string) ([]models.Subscription, error)
	Find(ctx context.Context, userID, subID string) (*models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription, first *models.PlanHistoryEntry) error
	Update(ctx context.Context, sub *models.Subscription) error
	Delete(ctx context.Context, userID, subID string) error
	ListHistory(ctx context.Context, userID, subID string) ([]models.PlanHistoryEntry, error)
	OpenEntry(ctx context.Context, userID, subID string) (*models.PlanHistoryEntry, error)
	CloseEntry(ctx context.Context, userID, subID, entryID string, end time.Time) error
	AppendEntry(ctx context.Context, userID, subID string, entry *models.PlanHistoryEntry) error
}

type repository struct {
	fs   *firestore.Client
	tx   *firestore.Transaction
	logg *logger.Logger
}

// NewRepository returns a subscription repository bound to Firestore.
func NewRepository(fs *firestore.Client, logg *logger.Logger) Repository {
	return &repository{fs: fs, logg: logg}
}

func (r *repository) WithTx(tx *firestore.Transaction) Repository {
	if tx == nil {
		return r
	}
	return &repository{fs: r.fs, tx: tx, logg: r.logg}
}

func (r *repository) subscriptionsCol(userID string) *firestore.CollectionRef {
	return r.fs.Collection(usersCollection).Doc(userID).Collection(subscriptionsCollection)
}

func (r *repository) subscriptionRef(userID, subID string) *firestore.DocumentRef {
	return r.subscriptionsCol(userID).Doc(subID)
}

func (r *repository) historyCol(userID, subID string) *firestore.CollectionRef {
	return r.subscriptionRef(userID, subID).Collection(planHistoryCollection)
}

func (r *repository) getDoc(ctx context.Context, ref *firestore.DocumentRef) (*firestore.DocumentSnapshot, error) {
	if r.tx != nil {
		return r.tx.Get(ref)
	}
	return ref.Get(ctx)
}

func (r *repository) runQuery(ctx context.Context, query firestore.Query) *firestore.DocumentIterator {
	if r.tx != nil {
		return r.tx.Documents(query)
	}
	return query.Documents(ctx)
}

func (r *repository) setDoc(ctx context.Context, ref *firestore.DocumentRef, data any) error {
	if r.tx != nil {
		return r.tx.Set(ref, data)
	}
	_, err := ref.Set(ctx, data)
	return err
}

func (r *repository) updateDoc(ctx context.Context, ref *firestore.DocumentRef, updates []firestore.Update) error {
	if r.tx != nil {
		return r.tx.Update(ref, updates)
	}
	_, err := ref.Update(ctx, updates)
	return err
}

func (r *repository) deleteDoc(ctx context.Context, ref *firestore.DocumentRef) error {
	if r.tx != nil {
		return r.tx.Delete(ref)
	}
	_, err := ref.Delete(ctx)
	return err
}

func (r *repository) List(ctx context.Context, userID string) ([]models.Subscription, error) {
	iter := r.runQuery(ctx, r.subscriptionsCol(userID).OrderBy("createdAt", firestore.Desc))
	defer iter.Stop()

	var subs []models.Subscription
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		sub, err := decodeSubscription(snap, userID)
		if err != nil {
			r.warnMalformed(ctx, err)
			continue
		}
		subs = append(subs, *sub)
	}
	return subs, nil
}

func (r *repository) Find(ctx context.Context, userID, subID string) (*models.Subscription, error) {
	snap, err := r.getDoc(ctx, r.subscriptionRef(userID, subID))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}

	sub, err := decodeSubscription(snap, userID)
	if err != nil {
		// A single malformed document reads as absent.
		r.warnMalformed(ctx, err)
		return nil, nil
	}
	return sub, nil
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription, first *models.PlanHistoryEntry) error {
	subRef := r.subscriptionRef(sub.UserID, sub.ID)
	if err := r.setDoc(ctx, subRef, subscriptionToDoc(sub)); err != nil {
		return err
	}
	return r.setDoc(ctx, subRef.Collection(planHistoryCollection).Doc(first.ID), historyEntryToDoc(first))
}

func (r *repository) Update(ctx context.Context, sub *models.Subscription) error {
	return r.setDoc(ctx, r.subscriptionRef(sub.UserID, sub.ID), subscriptionToDoc(sub))
}

// Delete removes the subscription document together with its planHistory
// sub-collection; the ledger is owned 1:1 by the subscription.
func (r *repository) Delete(ctx context.Context, userID, subID string) error {
	iter := r.runQuery(ctx, r.historyCol(userID, subID).Query)
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}
		refs = append(refs, snap.Ref)
	}

	for _, ref := range refs {
		if err := r.deleteDoc(ctx, ref); err != nil {
			return err
		}
	}
	return r.deleteDoc(ctx, r.subscriptionRef(userID, subID))
}

func (r *repository) ListHistory(ctx context.Context, userID, subID string) ([]models.PlanHistoryEntry, error) {
	iter := r.runQuery(ctx, r.historyCol(userID, subID).OrderBy("startDate", firestore.Asc))
	defer iter.Stop()

	var entries []models.PlanHistoryEntry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		entry, err := decodeHistoryEntry(snap)
		if err != nil {
			r.warnMalformed(ctx, err)
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (r *repository) OpenEntry(ctx context.Context, userID, subID string) (*models.PlanHistoryEntry, error) {
	iter := r.runQuery(ctx, r.historyCol(userID, subID).Where("endDate", "==", nil))
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		entry, err := decodeHistoryEntry(snap)
		if err != nil {
			r.warnMalformed(ctx, err)
			continue
		}
		return entry, nil
	}
}

func (r *repository) CloseEntry(ctx context.Context, userID, subID, entryID string, end time.Time) error {
	ref := r.historyCol(userID, subID).Doc(entryID)
	return r.updateDoc(ctx, ref, []firestore.Update{{Path: "endDate", Value: end}})
}

func (r *repository) AppendEntry(ctx context.Context, userID, subID string, entry *models.PlanHistoryEntry) error {
	return r.setDoc(ctx, r.historyCol(userID, subID).Doc(entry.ID), historyEntryToDoc(entry))
}

func (r *repository) warnMalformed(ctx context.Context, err error) {
	if r.logg == nil || !errors.Is(err, ErrMalformedRecord) {
		return
	}
	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "subscriptions.record.skipped")
}
