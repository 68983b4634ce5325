package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. It is used in tests and single-instance deployments.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := recordID(key)
	if existing, ok := s.records[id]; ok {
		reservation, live, err := reservationFor(existing, fingerprint, now)
		if live || err != nil {
			return reservation, err
		}
	}
	record := pendingRecord(key, fingerprint, now, ttl)
	s.records[id] = record
	return Reservation{State: ReservationStateNew, Record: record}, nil
}

func (s *MemoryStore) Complete(_ context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := recordID(key)
	record, ok := s.records[id]
	if ok && record.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	if !ok {
		record = pendingRecord(key, fingerprint, now, ttl)
	}
	record.Status = StatusCompleted
	record.ResponseStatus = resp.Status
	record.ResponseHeaders = sanitizeHeaders(resp.Headers)
	record.ResponseBody = append([]byte(nil), resp.Body...)
	record.ExpiresAt = now.Add(ttl)
	s.records[id] = record
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, recordID(key))
	return nil
}

func (s *MemoryStore) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, record := range s.records {
		if limit > 0 && removed >= limit {
			break
		}
		if !record.ExpiresAt.IsZero() && !now.Before(record.ExpiresAt) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}
