package idempotency

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/Navneet1206/E-Commerce-sub000/internal/platform/firestore"
)

const defaultCollection = "idempotency_keys"

// FirestoreOption customises the FirestoreStore.
type FirestoreOption func(*FirestoreStore)

// WithCollection overrides the collection holding idempotency records.
func WithCollection(name string) FirestoreOption {
	return func(store *FirestoreStore) {
		if name != "" {
			store.collection = name
		}
	}
}

// FirestoreStore implements Store on a Firestore collection. Reservations run inside a
// transaction so concurrent retries observe a single owner.
type FirestoreStore struct {
	provider   *pfirestore.Provider
	collection string
}

func NewFirestoreStore(provider *pfirestore.Provider, opts ...FirestoreOption) *FirestoreStore {
	store := &FirestoreStore{provider: provider, collection: defaultCollection}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *FirestoreStore) doc(ctx context.Context, key string) (*firestore.DocumentRef, error) {
	coll, err := s.provider.Collection(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	return coll.Doc(recordID(key)), nil
}

func (s *FirestoreStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ref, err := s.doc(ctx, key)
	if err != nil {
		return Reservation{}, err
	}

	var result Reservation
	err = s.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err == nil {
			var stored firestoreRecord
			if err := snap.DataTo(&stored); err != nil {
				return err
			}
			reservation, live, err := reservationFor(stored.toRecord(), fingerprint, now)
			if err != nil {
				return err
			}
			if live {
				result = reservation
				return nil
			}
		} else if !isNotFound(err) {
			return err
		}

		record := pendingRecord(key, fingerprint, now, ttl)
		if err := tx.Set(ref, fromRecord(record)); err != nil {
			return err
		}
		result = Reservation{State: ReservationStateNew, Record: record}
		return nil
	})
	return result, err
}

func (s *FirestoreStore) Complete(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ref, err := s.doc(ctx, key)
	if err != nil {
		return err
	}
	return s.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		record := pendingRecord(key, fingerprint, now, ttl)
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var stored firestoreRecord
			if err := snap.DataTo(&stored); err != nil {
				return err
			}
			if stored.Fingerprint != fingerprint {
				return ErrFingerprintMismatch
			}
			record.CreatedAt = stored.CreatedAt
		case !isNotFound(err):
			return err
		}
		record.Status = StatusCompleted
		record.ResponseStatus = resp.Status
		record.ResponseHeaders = sanitizeHeaders(resp.Headers)
		record.ResponseBody = append([]byte(nil), resp.Body...)
		return tx.Set(ref, fromRecord(record))
	})
}

func (s *FirestoreStore) Release(ctx context.Context, key string) error {
	ref, err := s.doc(ctx, key)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil && !isNotFound(err) {
		return pfirestore.WrapError("idempotency.release", err)
	}
	return nil
}

func (s *FirestoreStore) CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	coll, err := s.provider.Collection(ctx, s.collection)
	if err != nil {
		return 0, err
	}
	docs, err := coll.Where("expires_at", "<=", now).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return 0, pfirestore.WrapError("idempotency.cleanup", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	client, err := s.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	writer := client.BulkWriter(ctx)
	for _, doc := range docs {
		if _, err := writer.Delete(doc.Ref); err != nil {
			writer.End()
			return 0, pfirestore.WrapError("idempotency.cleanup", err)
		}
	}
	writer.End()
	return len(docs), nil
}

func isNotFound(err error) bool {
	wrapped := pfirestore.WrapError("", err)
	classified, ok := wrapped.(interface{ IsNotFound() bool })
	return ok && classified.IsNotFound()
}

type firestoreRecord struct {
	Key             string              `firestore:"key"`
	Fingerprint     string              `firestore:"fingerprint"`
	Status          string              `firestore:"status"`
	ResponseStatus  int                 `firestore:"response_status"`
	ResponseHeaders map[string][]string `firestore:"response_headers"`
	ResponseBody    []byte              `firestore:"response_body"`
	CreatedAt       time.Time           `firestore:"created_at"`
	ExpiresAt       time.Time           `firestore:"expires_at"`
}

func fromRecord(r Record) firestoreRecord {
	return firestoreRecord{
		Key:             r.Key,
		Fingerprint:     r.Fingerprint,
		Status:          string(r.Status),
		ResponseStatus:  r.ResponseStatus,
		ResponseHeaders: r.ResponseHeaders,
		ResponseBody:    r.ResponseBody,
		CreatedAt:       r.CreatedAt,
		ExpiresAt:       r.ExpiresAt,
	}
}

func (r firestoreRecord) toRecord() Record {
	return Record{
		Key:             r.Key,
		Fingerprint:     r.Fingerprint,
		Status:          Status(r.Status),
		ResponseStatus:  r.ResponseStatus,
		ResponseHeaders: r.ResponseHeaders,
		ResponseBody:    r.ResponseBody,
		CreatedAt:       r.CreatedAt,
		ExpiresAt:       r.ExpiresAt,
	}
}
