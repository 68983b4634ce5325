package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/auth"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/httpx"
)

const (
	defaultHeaderName = "Idempotency-Key"
	replayHeaderName  = "Idempotent-Replayed"

	// DefaultMaxBodyBytes caps the request body buffered for fingerprinting.
	DefaultMaxBodyBytes int64 = 1 << 20
	maxKeyLength              = 255
)

var errBodyTooLarge = errors.New("idempotency: request body too large")

// EventLogger receives failures that happen after the client response is decided.
type EventLogger func(ctx context.Context, event string, fields map[string]any)

// guard wraps one downstream handler with key reservation and response replay.
type guard struct {
	next     http.Handler
	store    Store
	header   string
	ttl      time.Duration
	maxBody  int64
	required bool
	now      func() time.Time
	log      EventLogger
}

// MiddlewareOption customises middleware behaviour.
type MiddlewareOption func(*guard)

// WithHeader overrides the header carrying the client key.
func WithHeader(name string) MiddlewareOption {
	return func(g *guard) {
		if name = strings.TrimSpace(name); name != "" {
			g.header = name
		}
	}
}

// WithTTL sets how long a completed response stays replayable.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(g *guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithMaxBodyBytes caps the buffered request body. Larger requests get 413.
func WithMaxBodyBytes(limit int64) MiddlewareOption {
	return func(g *guard) {
		if limit > 0 {
			g.maxBody = limit
		}
	}
}

// WithRequiredKey rejects mutating requests that omit the key instead of passing them through.
func WithRequiredKey() MiddlewareOption {
	return func(g *guard) { g.required = true }
}

// WithLogger reports store failures that the client never sees.
func WithLogger(logger EventLogger) MiddlewareOption {
	return func(g *guard) {
		if logger != nil {
			g.log = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) MiddlewareOption {
	return func(g *guard) {
		if clock != nil {
			g.now = clock
		}
	}
}

// Middleware makes mutating requests safe to retry. The first request carrying a key runs the
// handler and its response is stored; repeats with the same key and payload get the stored
// response. Server errors release the key so the retry runs again.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	base := guard{
		store:   store,
		header:  defaultHeaderName,
		ttl:     DefaultTTL,
		maxBody: DefaultMaxBodyBytes,
		now:     time.Now,
		log:     func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&base)
		}
	}
	return func(next http.Handler) http.Handler {
		g := base
		g.next = next
		if g.next == nil {
			g.next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return &g
	}
}

func (g *guard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !mutating(r.Method) {
		g.next.ServeHTTP(w, r)
		return
	}

	key := strings.TrimSpace(r.Header.Get(g.header))
	switch {
	case key == "" && g.required:
		respondError(w, r, http.StatusBadRequest, "idempotency_key_required", "missing "+g.header+" header")
		return
	case key == "":
		g.next.ServeHTTP(w, r)
		return
	case len(key) > maxKeyLength:
		respondError(w, r, http.StatusBadRequest, "idempotency_key_invalid", "idempotency key is too long")
		return
	}

	body, err := bufferBody(r, g.maxBody)
	if errors.Is(err, errBodyTooLarge) {
		respondError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds allowed size")
		return
	}
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "unable to read request body")
		return
	}

	who := requester(r.Context())
	scoped := scopedKey(key, who)
	fingerprint := requestFingerprint(r, body, who)

	reservation, err := g.store.Reserve(r.Context(), scoped, fingerprint, g.now().UTC(), g.ttl)
	if errors.Is(err, ErrFingerprintMismatch) {
		respondError(w, r, http.StatusConflict, "idempotency_key_conflict", "idempotency key already used for a different request")
		return
	}
	if err != nil {
		g.log(r.Context(), "idempotency_reserve_failed", map[string]any{"key": key, "error": err.Error()})
		respondError(w, r, http.StatusServiceUnavailable, "idempotency_store_error", "unable to process idempotency key")
		return
	}

	switch reservation.State {
	case ReservationStateNew:
		g.run(w, r, key, scoped, fingerprint)
	case ReservationStateCompleted:
		record := reservation.Record
		w.Header().Set(replayHeaderName, "true")
		_ = writeResponse(w, record.ResponseStatus, record.ResponseHeaders, record.ResponseBody)
	case ReservationStatePending:
		respondError(w, r, http.StatusConflict, "idempotency_in_progress", "another request is processing this idempotency key")
	default:
		respondError(w, r, http.StatusInternalServerError, "idempotency_unknown_state", "unexpected idempotency state")
	}
}

// run executes the handler against a buffer, stores the outcome, then delivers it.
func (g *guard) run(w http.ResponseWriter, r *http.Request, key, scoped, fingerprint string) {
	ctx := r.Context()
	buffered := &bufferedResponse{header: make(http.Header)}
	g.next.ServeHTTP(buffered, r)
	resp := buffered.snapshot()

	persistErr := error(nil)
	if resp.Status < http.StatusInternalServerError {
		persistErr = g.store.Complete(ctx, scoped, fingerprint, resp, g.now().UTC(), g.ttl)
		if persistErr != nil {
			g.log(ctx, "idempotency_persist_failed", map[string]any{"key": key, "status": resp.Status, "error": persistErr.Error()})
		}
	}
	if resp.Status >= http.StatusInternalServerError || persistErr != nil {
		if err := g.store.Release(ctx, scoped); err != nil {
			g.log(ctx, "idempotency_release_failed", map[string]any{"key": key, "status": resp.Status, "error": err.Error()})
		}
	}

	if err := writeResponse(w, resp.Status, resp.Headers, resp.Body); err != nil {
		g.log(ctx, "idempotency_write_failed", map[string]any{"key": key, "error": err.Error()})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func bufferBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

// requester identifies the caller so keys from different accounts never collide.
func requester(ctx context.Context) string {
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil && identity.UserID != "" {
		return "user:" + identity.UserID
	}
	if svc, ok := auth.ServiceIdentityFromContext(ctx); ok && svc != nil && svc.Subject != "" {
		return "service:" + svc.Subject
	}
	return "anonymous"
}

func scopedKey(key, requester string) string {
	return requester + "|" + strings.TrimSpace(key)
}

// requestFingerprint hashes what must match for a replay: method, target, media type, caller and body.
func requestFingerprint(r *http.Request, body []byte, requester string) string {
	mediaType, _, _ := strings.Cut(r.Header.Get("Content-Type"), ";")
	h := sha256.New()
	for _, part := range []string{
		strings.ToUpper(r.Method),
		r.URL.Path,
		r.URL.RawQuery,
		strings.ToLower(strings.TrimSpace(mediaType)),
		requester,
	} {
		_, _ = io.WriteString(h, part)
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func writeResponse(w http.ResponseWriter, status int, header map[string][]string, body []byte) error {
	dst := w.Header()
	for name, values := range header {
		dst[name] = append([]string(nil), values...)
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(body) == 0 {
		return nil
	}
	_, err := w.Write(body)
	return err
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	httpx.WriteError(r.Context(), w, httpx.NewError(code, message, status))
}

// bufferedResponse holds the handler output until it has been stored.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 && status > 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(data []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(data)
}

func (b *bufferedResponse) snapshot() Response {
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	resp := Response{Status: status, Headers: b.header.Clone()}
	if b.body.Len() > 0 {
		resp.Body = append([]byte(nil), b.body.Bytes()...)
	}
	return resp
}
