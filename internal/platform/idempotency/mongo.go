package idempotency

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pmongo "github.com/Navneet1206/E-Commerce-sub000/internal/platform/mongo"
)

// MongoStore implements Store on a MongoDB collection. The unique _id index arbitrates
// concurrent reservations of the same key.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(client *pmongo.Client, collection string) *MongoStore {
	if collection == "" {
		collection = defaultCollection
	}
	return &MongoStore{coll: client.Collection(collection)}
}

// EnsureIndexes installs a TTL index so expired records are purged server side.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return pmongo.WrapError("idempotency.indexes", err)
}

func (s *MongoStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	id := recordID(key)
	record := pendingRecord(key, fingerprint, now, ttl)

	existing, err := s.find(ctx, id)
	switch {
	case err == nil:
		reservation, live, err := reservationFor(existing.toRecord(), fingerprint, now)
		if err != nil || live {
			return reservation, err
		}
		// Take over the expired record only if nobody else did first.
		res, err := s.coll.ReplaceOne(ctx,
			bson.M{"_id": id, "expires_at": existing.ExpiresAt},
			mongoRecordFrom(id, record))
		if err != nil {
			return Reservation{}, pmongo.WrapError("idempotency.reserve", err)
		}
		if res.MatchedCount == 0 {
			return Reservation{State: ReservationStatePending, Record: existing.toRecord()}, nil
		}
		return Reservation{State: ReservationStateNew, Record: record}, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return Reservation{}, pmongo.WrapError("idempotency.reserve", err)
	}

	if _, err := s.coll.InsertOne(ctx, mongoRecordFrom(id, record)); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return Reservation{}, pmongo.WrapError("idempotency.reserve", err)
		}
		winner, err := s.find(ctx, id)
		if err != nil {
			return Reservation{}, pmongo.WrapError("idempotency.reserve", err)
		}
		reservation, _, err := reservationFor(winner.toRecord(), fingerprint, now)
		return reservation, err
	}
	return Reservation{State: ReservationStateNew, Record: record}, nil
}

func (s *MongoStore) Complete(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	id := recordID(key)
	record := pendingRecord(key, fingerprint, now, ttl)
	existing, err := s.find(ctx, id)
	switch {
	case err == nil:
		if existing.Fingerprint != fingerprint {
			return ErrFingerprintMismatch
		}
		record.CreatedAt = existing.CreatedAt
	case !errors.Is(err, mongo.ErrNoDocuments):
		return pmongo.WrapError("idempotency.complete", err)
	}
	record.Status = StatusCompleted
	record.ResponseStatus = resp.Status
	record.ResponseHeaders = sanitizeHeaders(resp.Headers)
	record.ResponseBody = append([]byte(nil), resp.Body...)

	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": id}, mongoRecordFrom(id, record), options.Replace().SetUpsert(true))
	return pmongo.WrapError("idempotency.complete", err)
}

func (s *MongoStore) Release(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": recordID(key)})
	return pmongo.WrapError("idempotency.release", err)
}

// CleanupExpired deletes expired records. The TTL index normally does this; the limit is
// ignored because DeleteMany has no bound.
func (s *MongoStore) CleanupExpired(ctx context.Context, now time.Time, _ int) (int, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, pmongo.WrapError("idempotency.cleanup", err)
	}
	return int(res.DeletedCount), nil
}

func (s *MongoStore) find(ctx context.Context, id string) (mongoRecord, error) {
	var out mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&out)
	return out, err
}

type mongoRecord struct {
	ID              string              `bson:"_id"`
	Key             string              `bson:"key"`
	Fingerprint     string              `bson:"fingerprint"`
	Status          string              `bson:"status"`
	ResponseStatus  int                 `bson:"response_status"`
	ResponseHeaders map[string][]string `bson:"response_headers,omitempty"`
	ResponseBody    []byte              `bson:"response_body,omitempty"`
	CreatedAt       time.Time           `bson:"created_at"`
	ExpiresAt       time.Time           `bson:"expires_at"`
}

func mongoRecordFrom(id string, r Record) mongoRecord {
	return mongoRecord{
		ID:              id,
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

func (r mongoRecord) toRecord() Record {
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
