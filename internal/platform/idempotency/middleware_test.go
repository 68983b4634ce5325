package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/auth"
)

var fixedTime = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

func TestMiddleware_MissingHeaderPassesThrough(t *testing.T) {
	store := NewMemoryStore()
	middleware := Middleware(store, WithClock(func() time.Time { return fixedTime }))

	calls := 0
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBufferString(`{"amount":10}`))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rr.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected handler to run for each keyless request, got %d", calls)
	}
}

func TestMiddleware_MissingHeaderRejectedWhenRequired(t *testing.T) {
	store := NewMemoryStore()
	middleware := Middleware(store, WithRequiredKey(), WithClock(func() time.Time { return fixedTime }))

	handlerCalled := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		handlerCalled = true
	})

	req := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBufferString(`{"foo":"bar"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	middleware(next).ServeHTTP(rr, req)

	if handlerCalled {
		t.Fatal("handler should not be invoked when header is missing")
	}
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_key_required")
}

func TestMiddleware_KeysAreScopedPerUser(t *testing.T) {
	store := NewMemoryStore()
	middleware := Middleware(store, WithClock(func() time.Time { return fixedTime }))
	calls := 0
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for _, user := range []string{"u1", "u2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBufferString(`{}`))
		req.Header.Set("Idempotency-Key", "shared")
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: user, Role: auth.RoleUser}))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected one handler call per user, got %d", calls)
	}
}

func TestMiddleware_ServerErrorIsNotReplayed(t *testing.T) {
	store := NewMemoryStore()
	middleware := Middleware(store, WithClock(func() time.Time { return fixedTime }))
	calls := 0
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBufferString(`{}`))
		req.Header.Set("Idempotency-Key", "retry-me")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected retry after 5xx to reach the handler, got %d calls", calls)
	}
}

func TestMemoryStore_CleanupExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if _, err := store.Reserve(ctx, "a", "fp", fixedTime, time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := store.Reserve(ctx, "b", "fp", fixedTime, time.Hour); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	removed, err := store.CleanupExpired(ctx, fixedTime.Add(2*time.Minute), 0)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one expired record removed, got %d", removed)
	}
	res, err := store.Reserve(ctx, "a", "other", fixedTime.Add(3*time.Minute), time.Minute)
	if err != nil || res.State != ReservationStateNew {
		t.Fatalf("expected expired key to be reusable, got %+v %v", res, err)
	}
}

func TestMiddleware_ReplaysStoredResponse(t *testing.T) {
	store := NewMemoryStore()
	var calls int
	middleware := Middleware(store, WithClock(func() time.Time { return fixedTime }))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	handler := middleware(next)

	req1 := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBufferString(`{"foo":"bar"}`))
	req1.Header.Set("Content-Type", "application/json")
	req1.Header.Set("Idempotency-Key", "abc-123")

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req1)

	if calls != 1 {
		t.Fatalf("expected handler to be called once, got %d", calls)
	}
	if rr1.Code != http.StatusCreated {
		t.Fatalf("unexpected first response status: %d", rr1.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBufferString(`{"foo":"bar"}`))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("Idempotency-Key", "abc-123")

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req2)

	if calls != 1 {
		t.Fatalf("expected handler not to be called again, got %d calls", calls)
	}
	if rr2.Code != http.StatusCreated {
		t.Fatalf("expected replayed status 201, got %d", rr2.Code)
	}
	if rr2.Header().Get(replayHeaderName) != "true" {
		t.Fatalf("expected replay header to be present")
	}
	if got := rr2.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected content-type json, got %s", got)
	}
	if body := rr2.Body.String(); body != rr1.Body.String() {
		t.Fatalf("expected response body %s, got %s", rr1.Body.String(), body)
	}
}

func TestMiddleware_ConflictingFingerprintReturnsConflict(t *testing.T) {
	store := NewMemoryStore()
	middleware := Middleware(store, WithClock(func() time.Time { return fixedTime }))

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req1 := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBufferString(`{"foo":"bar"}`))
	req1.Header.Set("Content-Type", "application/json")
	req1.Header.Set("Idempotency-Key", "same-key")

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req1)
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected first request success, got %d", rr1.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBufferString(`{"foo":"baz"}`))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("Idempotency-Key", "same-key")

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req2)

	if rr2.Code != http.StatusConflict {
		t.Fatalf("expected conflict status, got %d", rr2.Code)
	}
	assertErrorResponse(t, rr2.Body.Bytes(), "idempotency_key_conflict")
}

func TestMiddleware_PendingReservationReturnsConflict(t *testing.T) {
	store := NewMemoryStore()
	clock := fixedTime
	middleware := Middleware(store, WithClock(func() time.Time { return clock }))
	handler := middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be invoked when reservation pending")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBufferString(`{"foo":"bar"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "pending-key")

	body, err := bufferBody(req, DefaultMaxBodyBytes)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	identity := requester(req.Context())
	fingerprint := requestFingerprint(req, body, identity)
	scoped := scopedKey("pending-key", identity)
	if _, err := store.Reserve(req.Context(), scoped, fingerprint, clock, time.Hour); err != nil {
		t.Fatalf("failed to seed reservation: %v", err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for pending reservation, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_in_progress")
}

func TestMiddleware_SaveFailureReleasesReservation(t *testing.T) {
	store := &stubStore{failSave: true}
	var events []string
	logger := func(_ context.Context, event string, fields map[string]any) {
		events = append(events, event)
		if fields["key"] != "fail-key" {
			t.Fatalf("expected key in log fields, got %v", fields)
		}
	}
	middleware := Middleware(store, WithLogger(logger), WithClock(func() time.Time { return fixedTime }))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBufferString(`{"foo":"bar"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "fail-key")

	rr := httptest.NewRecorder()
	middleware(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected handler response to be delivered, got %d", rr.Code)
	}
	if !store.released {
		t.Fatalf("expected reservation to be released on failure")
	}
	if len(events) != 1 || events[0] != "idempotency_persist_failed" {
		t.Fatalf("expected one persist failure event, got %v", events)
	}
}

func TestMiddleware_RejectsOversizedBody(t *testing.T) {
	store := NewMemoryStore()
	middleware := Middleware(store, WithMaxBodyBytes(8))
	handler := middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run for oversized bodies")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBufferString(`{"items":[1,2,3]}`))
	req.Header.Set("Idempotency-Key", "big")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "payload_too_large")
}

func TestMiddleware_RejectsOverlongKey(t *testing.T) {
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run for an invalid key")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/order/place", bytes.NewBufferString(`{}`))
	req.Header.Set("Idempotency-Key", strings.Repeat("k", maxKeyLength+1))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_key_invalid")
}

func TestMiddleware_ReadsPassThrough(t *testing.T) {
	store := &stubStore{}
	calls := 0
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/order/userorders", nil)
		req.Header.Set("Idempotency-Key", "read")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 || store.reserved != 0 {
		t.Fatalf("expected reads to bypass the store, calls=%d reserved=%d", calls, store.reserved)
	}
}

func TestRequestFingerprintIgnoresCharset(t *testing.T) {
	a := httptest.NewRequest(http.MethodPost, "/api/order/place", nil)
	a.Header.Set("Content-Type", "application/json; charset=utf-8")
	b := httptest.NewRequest(http.MethodPost, "/api/order/place", nil)
	b.Header.Set("Content-Type", "Application/JSON")

	if requestFingerprint(a, []byte(`{}`), "user:u1") != requestFingerprint(b, []byte(`{}`), "user:u1") {
		t.Fatal("expected media type parameters to be ignored")
	}
	if requestFingerprint(a, []byte(`{}`), "user:u1") == requestFingerprint(a, []byte(`{}`), "user:u2") {
		t.Fatal("expected requester to change the fingerprint")
	}
}

type stubStore struct {
	failSave bool
	released bool
	reserved int
}

func (s *stubStore) Reserve(context.Context, string, string, time.Time, time.Duration) (Reservation, error) {
	s.reserved++
	return Reservation{State: ReservationStateNew, Record: Record{}}, nil
}

func (s *stubStore) Complete(context.Context, string, string, Response, time.Time, time.Duration) error {
	if s.failSave {
		return errors.New("save failed")
	}
	return nil
}

func (s *stubStore) Release(context.Context, string) error {
	s.released = true
	return nil
}

func (s *stubStore) CleanupExpired(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func assertErrorResponse(t *testing.T, payload []byte, expected string) {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("failed to decode error payload: %v", err)
	}
	if body.Error != expected {
		t.Fatalf("expected error code %s, got %s", expected, body.Error)
	}
}
