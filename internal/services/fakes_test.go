package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	"github.com/Navneet1206/E-Commerce-sub000/internal/payments"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/storage"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

type fakeRepoError struct {
	msg      string
	notFound bool
	conflict bool
}

func (e *fakeRepoError) Error() string       { return e.msg }
func (e *fakeRepoError) IsNotFound() bool    { return e.notFound }
func (e *fakeRepoError) IsConflict() bool    { return e.conflict }
func (e *fakeRepoError) IsUnavailable() bool { return false }

func errNotFound(what string) error { return &fakeRepoError{msg: what + " not found", notFound: true} }
func errConflict(what string) error { return &fakeRepoError{msg: what + " conflict", conflict: true} }

// memProducts mirrors the transactional stock semantics of the real backends.
type memProducts struct {
	mu       sync.Mutex
	items    map[string]Product
	order    []string
	adjustFn func(lines []repositories.StockLine, mode repositories.StockMode)
}

func newMemProducts(products ...Product) *memProducts {
	m := &memProducts{items: map[string]Product{}}
	for _, p := range products {
		m.items[p.ID] = p
		m.order = append(m.order, p.ID)
	}
	return m
}

func (m *memProducts) Insert(_ context.Context, p Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[p.ID]; ok {
		return errConflict("product")
	}
	m.items[p.ID] = p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memProducts) FindByID(_ context.Context, id string) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return Product{}, errNotFound("product")
	}
	return cloneProduct(p), nil
}

func (m *memProducts) FindByIDs(_ context.Context, ids []string) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Product
	for _, id := range ids {
		if p, ok := m.items[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (m *memProducts) List(context.Context) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Product, 0, len(m.order))
	for _, id := range m.order {
		if p, ok := m.items[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return errNotFound("product")
	}
	delete(m.items, id)
	return nil
}

func (m *memProducts) AdjustStock(_ context.Context, lines []repositories.StockLine, mode repositories.StockMode) (repositories.StockResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adjustFn != nil {
		m.adjustFn(lines, mode)
	}
	if mode == repositories.StockStrict {
		for _, line := range lines {
			p, ok := m.items[line.ProductID]
			if !ok {
				return repositories.StockResult{}, repositories.NewStockError(repositories.StockErrorProductNotFound, line.ProductID, line.Size, 0, line.Quantity)
			}
			entry, ok := p.SizeEntry(line.Size)
			if !ok {
				return repositories.StockResult{}, repositories.NewStockError(repositories.StockErrorSizeUnavailable, line.ProductID, line.Size, 0, line.Quantity)
			}
			if entry.Stock < line.Quantity {
				return repositories.StockResult{}, repositories.NewStockError(repositories.StockErrorInsufficient, line.ProductID, line.Size, entry.Stock, line.Quantity)
			}
		}
	}
	var result repositories.StockResult
	for _, line := range lines {
		p, ok := m.items[line.ProductID]
		if !ok {
			result.Shortfalls = append(result.Shortfalls, repositories.StockShortfall{ProductID: line.ProductID, Size: line.Size, Requested: line.Quantity})
			continue
		}
		p = cloneProduct(p)
		applied := 0
		for i := range p.Sizes {
			if p.Sizes[i].Size == line.Size {
				applied = min(p.Sizes[i].Stock, line.Quantity)
				p.Sizes[i].Stock -= applied
			}
		}
		if applied < line.Quantity {
			result.Shortfalls = append(result.Shortfalls, repositories.StockShortfall{ProductID: line.ProductID, Size: line.Size, Requested: line.Quantity, Applied: applied})
		}
		m.items[p.ID] = p
	}
	return result, nil
}

func (m *memProducts) RestoreStock(_ context.Context, lines []repositories.StockLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range lines {
		p, ok := m.items[line.ProductID]
		if !ok {
			continue
		}
		p = cloneProduct(p)
		for i := range p.Sizes {
			if p.Sizes[i].Size == line.Size {
				p.Sizes[i].Stock += line.Quantity
			}
		}
		m.items[p.ID] = p
	}
	return nil
}

func (m *memProducts) stock(productID, size string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, _ := m.items[productID].SizeEntry(size)
	return entry.Stock
}

func cloneProduct(p Product) Product {
	p.Sizes = append([]SizeStock(nil), p.Sizes...)
	p.Images = append([]string(nil), p.Images...)
	return p
}

type memUsers struct {
	mu         sync.Mutex
	items      map[string]User
	clearCalls int
	clearErr   error
}

func newMemUsers(users ...User) *memUsers {
	m := &memUsers{items: map[string]User{}}
	for _, u := range users {
		m.items[u.ID] = u
	}
	return m
}

func (m *memUsers) Insert(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Email == u.Email {
			return errConflict("user")
		}
	}
	m.items[u.ID] = u
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return User{}, errNotFound("user")
	}
	return u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, errNotFound("user")
}

func (m *memUsers) UpdateCart(_ context.Context, id string, cart domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return errNotFound("user")
	}
	u.Cart = cart.Clone()
	m.items[id] = u
	return nil
}

func (m *memUsers) ClearCart(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	if m.clearErr != nil {
		return m.clearErr
	}
	u, ok := m.items[id]
	if !ok {
		return errNotFound("user")
	}
	u.Cart = domain.Cart{}
	m.items[id] = u
	return nil
}

func (m *memUsers) UpdateWishlist(_ context.Context, id string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return errNotFound("user")
	}
	u.Wishlist = append([]string(nil), ids...)
	m.items[id] = u
	return nil
}

type memOrders struct {
	mu        sync.Mutex
	items     map[string]Order
	insertErr error
}

func newMemOrders(orders ...Order) *memOrders {
	m := &memOrders{items: map[string]Order{}}
	for _, o := range orders {
		m.items[o.ID] = o
	}
	return m
}

func (m *memOrders) Insert(_ context.Context, o Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.items[o.ID]; ok {
		return errConflict("order")
	}
	m.items[o.ID] = o
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return Order{}, errNotFound("order")
	}
	return o, nil
}

func (m *memOrders) FindByGatewayOrderID(_ context.Context, gatewayID string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.items {
		if o.GatewayOrderID == gatewayID {
			return o, nil
		}
	}
	return Order{}, errNotFound("order")
}

func (m *memOrders) sorted() []Order {
	out := make([]Order, 0, len(m.items))
	for _, o := range m.items {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	all := m.sorted()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].UserID == userID {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (m *memOrders) ListAll(_ context.Context, filter repositories.OrderListFilter) (domain.CursorPage[Order], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.sorted() {
		if filter.Status == "" || o.Status == filter.Status {
			out = append(out, o)
		}
	}
	return domain.CursorPage[Order]{Items: out}, nil
}

func (m *memOrders) ForEach(_ context.Context, fn func(Order) error) error {
	m.mu.Lock()
	all := m.sorted()
	m.mu.Unlock()
	for _, o := range all {
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, status domain.OrderStatus, expected *time.Time, now time.Time) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return Order{}, errNotFound("order")
	}
	o.Status = status
	if expected != nil {
		o.ExpectedDelivery = *expected
	}
	o.UpdatedAt = now
	m.items[id] = o
	return o, nil
}

func (m *memOrders) MarkPaymentSettled(_ context.Context, id string, now time.Time) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return Order{}, errNotFound("order")
	}
	o.PaymentSettled = true
	o.UpdatedAt = now
	m.items[id] = o
	return o, nil
}

func (m *memOrders) ConfirmGatewayPayment(_ context.Context, c repositories.GatewayConfirmation) (repositories.ConfirmResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range m.items {
		if o.GatewayOrderID != c.GatewayOrderID {
			continue
		}
		if o.PaymentSettled {
			return repositories.ConfirmResult{Order: o}, nil
		}
		o.PaymentSettled = true
		o.Status = domain.OrderStatusPlaced
		o.GatewayPaymentID = c.GatewayPaymentID
		o.GatewaySignature = c.Signature
		o.UpdatedAt = c.ConfirmedAt
		m.items[id] = o
		return repositories.ConfirmResult{Order: o, Confirmed: true}, nil
	}
	return repositories.ConfirmResult{}, errNotFound("order")
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memDiscounts struct {
	mu    sync.Mutex
	items []Discount
}

func (m *memDiscounts) Insert(_ context.Context, d Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, d)
	return nil
}

func (m *memDiscounts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.items {
		if d.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return errNotFound("discount")
}

func (m *memDiscounts) List(_ context.Context, filter repositories.DiscountFilter) ([]Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Discount
	for _, d := range m.items {
		if filter.Type != "" && d.Type != filter.Type {
			continue
		}
		if filter.UserID != "" && d.UserID != filter.UserID {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type memReturns struct {
	mu    sync.Mutex
	items map[string]ReturnRequest
}

func newMemReturns(requests ...ReturnRequest) *memReturns {
	m := &memReturns{items: map[string]ReturnRequest{}}
	for _, r := range requests {
		m.items[r.ID] = r
	}
	return m
}

func (m *memReturns) Create(_ context.Context, r ReturnRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.OrderID == r.OrderID && existing.Active() {
			return errConflict("return")
		}
	}
	m.items[r.ID] = r
	return nil
}

func (m *memReturns) FindByID(_ context.Context, id string) (ReturnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return ReturnRequest{}, errNotFound("return")
	}
	return r, nil
}

func (m *memReturns) list(match func(ReturnRequest) bool) []ReturnRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ReturnRequest
	for _, r := range m.items {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memReturns) ListAll(context.Context) ([]ReturnRequest, error) {
	return m.list(func(ReturnRequest) bool { return true }), nil
}

func (m *memReturns) ListByUser(_ context.Context, userID string) ([]ReturnRequest, error) {
	return m.list(func(r ReturnRequest) bool { return r.UserID == userID }), nil
}

func (m *memReturns) ListByOrder(_ context.Context, orderID string) ([]ReturnRequest, error) {
	return m.list(func(r ReturnRequest) bool { return r.OrderID == orderID }), nil
}

func (m *memReturns) UpdateStatus(_ context.Context, id string, status domain.ReturnStatus, now time.Time) (ReturnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return ReturnRequest{}, errNotFound("return")
	}
	r.Status = status
	r.UpdatedAt = now
	m.items[id] = r
	return r, nil
}

func (m *memReturns) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return errNotFound("return")
	}
	delete(m.items, id)
	return nil
}

type stubGateway struct {
	createFn func(ctx context.Context, pc payments.PaymentContext, req payments.IntentRequest) (payments.Intent, error)
	verifyFn func(ctx context.Context, pc payments.PaymentContext, c payments.Confirmation) error
}

func (s *stubGateway) CreateIntent(ctx context.Context, pc payments.PaymentContext, req payments.IntentRequest) (payments.Intent, error) {
	if s.createFn != nil {
		return s.createFn(ctx, pc, req)
	}
	return payments.Intent{Provider: payments.ProviderRazorpay, ID: "order_gw_1", PublicKey: "rzp_key", Amount: req.Amount, Currency: req.Currency}, nil
}

func (s *stubGateway) VerifyConfirmation(ctx context.Context, pc payments.PaymentContext, c payments.Confirmation) error {
	if s.verifyFn != nil {
		return s.verifyFn(ctx, pc, c)
	}
	return nil
}

type captureNotifier struct {
	mu      sync.Mutex
	placed  []string
	updated []string
}

func (c *captureNotifier) OrderPlaced(_ context.Context, o Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placed = append(c.placed, o.ID)
}

func (c *captureNotifier) OrderUpdated(_ context.Context, o Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updated = append(c.updated, o.ID)
}

type countingTrigger struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTrigger) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

type captureMetrics struct {
	mu            sync.Mutex
	placed        []string
	verifications []string
	shortUnits    int
}

func (c *captureMetrics) OrderPlaced(_ context.Context, method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placed = append(c.placed, method)
}

func (c *captureMetrics) Verification(_ context.Context, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verifications = append(c.verifications, outcome)
}

func (c *captureMetrics) Shortfall(_ context.Context, units int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shortUnits += units
}

type captureEvents struct {
	mu     sync.Mutex
	events []string
	fields []map[string]any
}

func (c *captureEvents) log(_ context.Context, event string, fields map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	c.fields = append(c.fields, fields)
}

func (c *captureEvents) has(event string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e == event {
			return true
		}
	}
	return false
}

type stubUploader struct {
	uploads []storage.Upload
	err     error
}

func (s *stubUploader) Put(_ context.Context, in storage.Upload) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploads = append(s.uploads, in)
	path, err := storage.BuildObjectPath(in.Purpose, in.Params)
	if err != nil {
		return "", err
	}
	return "https://cdn.test/" + path, nil
}

func sequenceIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%02d", prefix, n)
	}
}
