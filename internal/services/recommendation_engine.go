package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const defaultRecommendationLimit = 10

// RecommendationSnapshot holds purchase statistics computed from every paid order. A snapshot
// is never mutated after it is published.
type RecommendationSnapshot struct {
	purchaseCount map[string]int
	coOccurrence  map[string]map[string]int
	categoryTop   map[string][]string
	category      map[string]string
	globalTop     []string
	orders        int
	computedAt    time.Time
}

// PurchaseCount returns how many orders contained the product.
func (s *RecommendationSnapshot) PurchaseCount(productID string) int {
	if s == nil {
		return 0
	}
	return s.purchaseCount[productID]
}

// CoOccurrence returns how many orders contained both products.
func (s *RecommendationSnapshot) CoOccurrence(a, b string) int {
	if s == nil {
		return 0
	}
	return s.coOccurrence[a][b]
}

// GlobalTop returns up to n product ids ranked by purchase count.
func (s *RecommendationSnapshot) GlobalTop(n int) []string {
	if s == nil {
		return nil
	}
	if n > len(s.globalTop) {
		n = len(s.globalTop)
	}
	return append([]string(nil), s.globalTop[:n]...)
}

// CategoryTop returns catalog product ids in category ranked by purchase count.
func (s *RecommendationSnapshot) CategoryTop(category string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.categoryTop[category]...)
}

func (s *RecommendationSnapshot) Orders() int {
	if s == nil {
		return 0
	}
	return s.orders
}

func (s *RecommendationSnapshot) ComputedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.computedAt
}

// RecommendationEngineDeps bundles collaborators required to construct the engine.
type RecommendationEngineDeps struct {
	Orders   repositories.OrderRepository
	Products repositories.ProductRepository
	Limit    int
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

// RecommendationEngine serves recommendations from the latest published snapshot. Recompute
// builds a fresh snapshot and swaps it in; readers never observe a partial build.
type RecommendationEngine struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	limit    int
	clock    func() time.Time
	logger   EventLogger

	snapshot  atomic.Pointer[RecommendationSnapshot]
	computeMu sync.Mutex
	trigger   chan struct{}
}

var _ RecommendationService = (*RecommendationEngine)(nil)

func NewRecommendationEngine(deps RecommendationEngineDeps) (*RecommendationEngine, error) {
	if deps.Orders == nil {
		return nil, errors.New("recommendation engine: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("recommendation engine: product repository is required")
	}
	limit := deps.Limit
	if limit <= 0 {
		limit = defaultRecommendationLimit
	}
	e := &RecommendationEngine{
		orders:   deps.Orders,
		products: deps.Products,
		limit:    limit,
		clock:    utcClock(deps.Clock),
		logger:   loggerOrNop(deps.Logger),
		trigger:  make(chan struct{}, 1),
	}
	e.snapshot.Store(&RecommendationSnapshot{})
	return e, nil
}

// Snapshot returns the most recently published statistics.
func (e *RecommendationEngine) Snapshot() *RecommendationSnapshot {
	return e.snapshot.Load()
}

// Trigger asks the Run loop for a recompute. Requests made while one is pending coalesce.
func (e *RecommendationEngine) Trigger() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Run recomputes once, then on every interval tick and trigger until ctx is done. A zero
// interval disables the ticker.
func (e *RecommendationEngine) Run(ctx context.Context, interval time.Duration) {
	e.recomputeLogged(ctx, "startup")
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			e.recomputeLogged(ctx, "interval")
		case <-e.trigger:
			e.recomputeLogged(ctx, "trigger")
		}
	}
}

func (e *RecommendationEngine) recomputeLogged(ctx context.Context, reason string) {
	if err := e.Recompute(ctx); err != nil && ctx.Err() == nil {
		e.logger(ctx, "recommendation.recompute_failed", map[string]any{"reason": reason, "error": err.Error()})
	}
}

// Recompute rebuilds the statistics from the catalog and every order that left Awaiting
// Payment, then publishes them.
func (e *RecommendationEngine) Recompute(ctx context.Context) error {
	e.computeMu.Lock()
	defer e.computeMu.Unlock()

	started := e.clock()
	catalog, err := e.products.List(ctx)
	if err != nil {
		return fmt.Errorf("recommendation: list products: %w", err)
	}

	purchase := make(map[string]int)
	co := make(map[string]map[string]int)
	var firstSeen []string
	orders := 0
	err = e.orders.ForEach(ctx, func(order domain.Order) error {
		if order.Status == domain.OrderStatusAwaitingPayment {
			return nil
		}
		orders++
		ids := order.ProductIDs()
		for _, id := range ids {
			if _, ok := purchase[id]; !ok {
				firstSeen = append(firstSeen, id)
			}
			purchase[id]++
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				bump(co, ids[i], ids[j])
				bump(co, ids[j], ids[i])
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("recommendation: scan orders: %w", err)
	}

	category := make(map[string]string, len(catalog))
	categoryTop := make(map[string][]string)
	for _, p := range catalog {
		category[p.ID] = p.Category
		categoryTop[p.Category] = append(categoryTop[p.Category], p.ID)
	}
	for c, ids := range categoryTop {
		sort.SliceStable(ids, func(i, j int) bool { return purchase[ids[i]] > purchase[ids[j]] })
		categoryTop[c] = ids
	}
	globalTop := append([]string(nil), firstSeen...)
	sort.SliceStable(globalTop, func(i, j int) bool { return purchase[globalTop[i]] > purchase[globalTop[j]] })

	snap := &RecommendationSnapshot{
		purchaseCount: purchase,
		coOccurrence:  co,
		categoryTop:   categoryTop,
		category:      category,
		globalTop:     globalTop,
		orders:        orders,
		computedAt:    e.clock(),
	}
	e.snapshot.Store(snap)
	e.logger(ctx, "recommendation.recomputed", map[string]any{
		"orders":     orders,
		"products":   len(purchase),
		"durationMs": snap.computedAt.Sub(started).Milliseconds(),
	})
	return nil
}

// Recommend ranks products the user has not bought by co-occurrence with their purchases and
// by bestsellers in the categories they buy from. Users without purchases get the global top.
func (e *RecommendationEngine) Recommend(ctx context.Context, userID string) ([]Product, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	history, err := e.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, mapRepositoryError(err, nil, nil)
	}
	purchased := make(map[string]struct{})
	for _, order := range history {
		if order.Status == domain.OrderStatusAwaitingPayment {
			continue
		}
		for _, id := range order.ProductIDs() {
			purchased[id] = struct{}{}
		}
	}

	snap := e.Snapshot()
	if len(purchased) == 0 {
		return e.hydrate(ctx, snap.GlobalTop(e.limit))
	}
	return e.hydrate(ctx, rankCandidates(snap, purchased, e.limit))
}

func rankCandidates(snap *RecommendationSnapshot, purchased map[string]struct{}, limit int) []string {
	scores := make(map[string]int)
	var order []string
	add := func(id string, weight int) {
		if _, owned := purchased[id]; owned {
			return
		}
		if _, ok := scores[id]; !ok {
			order = append(order, id)
		}
		scores[id] += weight
	}

	// Map iteration is unordered, so walk purchases in a fixed order to keep ties stable.
	owned := make([]string, 0, len(purchased))
	for id := range purchased {
		owned = append(owned, id)
	}
	sort.Strings(owned)

	categories := make([]string, 0)
	seenCategory := make(map[string]struct{})
	for _, id := range owned {
		peers := snap.coOccurrence[id]
		peerIDs := make([]string, 0, len(peers))
		for peer := range peers {
			peerIDs = append(peerIDs, peer)
		}
		sort.Strings(peerIDs)
		for _, peer := range peerIDs {
			add(peer, peers[peer])
		}
		if c, ok := snap.category[id]; ok {
			if _, dup := seenCategory[c]; !dup {
				seenCategory[c] = struct{}{}
				categories = append(categories, c)
			}
		}
	}
	for _, c := range categories {
		taken := 0
		for _, id := range snap.categoryTop[c] {
			if taken == limit {
				break
			}
			if _, owned := purchased[id]; owned {
				continue
			}
			add(id, snap.purchaseCount[id])
			taken++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// hydrate loads products in ranked order, dropping ids that no longer resolve.
func (e *RecommendationEngine) hydrate(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	found, err := e.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, mapRepositoryError(err, nil, nil)
	}
	byID := make(map[string]Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func bump(co map[string]map[string]int, a, b string) {
	peers, ok := co[a]
	if !ok {
		peers = make(map[string]int)
		co[a] = peers
	}
	peers[b]++
}
