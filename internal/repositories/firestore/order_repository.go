package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	pfirestore "github.com/Navneet1206/E-Commerce-sub000/internal/platform/firestore"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/pagination"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const orderCollection = "orders"

type OrderRepository struct {
	provider *pfirestore.Provider
	coll     *pfirestore.Collection[orderDocument]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		coll:     pfirestore.NewCollection[orderDocument](provider, orderCollection),
	}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	return r.coll.Create(ctx, order.ID, fromDomainOrder(order))
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.coll.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *OrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (domain.Order, error) {
	gatewayOrderID = strings.TrimSpace(gatewayOrderID)
	if gatewayOrderID == "" {
		return domain.Order{}, pfirestore.NotFound("orders.find_by_gateway", "gateway order id is required")
	}
	docs, err := r.coll.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("gatewayOrderId", "==", gatewayOrderID).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.NotFound("orders.find_by_gateway", "no order for gateway order %s", gatewayOrderID)
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	docs, err := r.coll.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID).OrderBy("date", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	return toDomainOrders(docs), nil
}

// ListAll pages through orders newest first, keyed on (date, document id).
func (r *OrderRepository) ListAll(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	docs, err := r.coll.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		q = q.OrderBy("date", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if !filter.Cursor.IsZero() {
			q = q.StartAfter(filter.Cursor.CreatedAt, filter.Cursor.ID)
		}
		return q.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{}
	if len(docs) > pageSize {
		docs = docs[:pageSize]
		last := docs[len(docs)-1]
		token, err := pagination.EncodeToken(pagination.Cursor{CreatedAt: last.Data.CreatedAt, ID: last.ID})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		page.NextPageToken = token
	}
	page.Items = toDomainOrders(docs)
	return page, nil
}

func (r *OrderRepository) ForEach(ctx context.Context, fn func(domain.Order) error) error {
	ref, err := r.coll.Ref(ctx)
	if err != nil {
		return err
	}
	iter := ref.OrderBy("date", firestore.Asc).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return pfirestore.WrapError("orders.for_each", err)
		}
		doc, err := pfirestore.Decode[orderDocument](snap)
		if err != nil {
			return err
		}
		if err := fn(doc.Data.toDomain(doc.ID)); err != nil {
			return err
		}
	}
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, expectedDelivery *time.Time, now time.Time) (domain.Order, error) {
	return r.mutate(ctx, orderID, func(doc *orderDocument) []firestore.Update {
		doc.Status = string(status)
		doc.UpdatedAt = now
		updates := []firestore.Update{
			{Path: "status", Value: doc.Status},
			{Path: "updatedAt", Value: now},
		}
		if expectedDelivery != nil {
			doc.ExpectedDelivery = *expectedDelivery
			updates = append(updates, firestore.Update{Path: "expectedDeliveryDate", Value: *expectedDelivery})
		}
		return updates
	})
}

func (r *OrderRepository) MarkPaymentSettled(ctx context.Context, orderID string, now time.Time) (domain.Order, error) {
	return r.mutate(ctx, orderID, func(doc *orderDocument) []firestore.Update {
		doc.Payment = true
		doc.UpdatedAt = now
		return []firestore.Update{
			{Path: "payment", Value: true},
			{Path: "updatedAt", Value: now},
		}
	})
}

// ConfirmGatewayPayment locates the order by gateway id and settles it inside a transaction.
// A second caller observes payment=true and gets Confirmed=false.
func (r *OrderRepository) ConfirmGatewayPayment(ctx context.Context, c repositories.GatewayConfirmation) (repositories.ConfirmResult, error) {
	ref, err := r.coll.Ref(ctx)
	if err != nil {
		return repositories.ConfirmResult{}, err
	}
	var result repositories.ConfirmResult
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.Documents(ref.Where("gatewayOrderId", "==", c.GatewayOrderID).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			return pfirestore.NotFound("orders.confirm_gateway", "no order for gateway order %s", c.GatewayOrderID)
		}
		decoded, err := pfirestore.Decode[orderDocument](snaps[0])
		if err != nil {
			return err
		}
		doc := decoded.Data
		if doc.Payment {
			result = repositories.ConfirmResult{Order: doc.toDomain(decoded.ID)}
			return nil
		}
		doc.Payment = true
		doc.GatewayPaymentID = c.GatewayPaymentID
		doc.GatewaySignature = c.Signature
		doc.UpdatedAt = c.ConfirmedAt
		updates := []firestore.Update{
			{Path: "payment", Value: true},
			{Path: "gatewayPaymentId", Value: c.GatewayPaymentID},
			{Path: "gatewaySignature", Value: c.Signature},
			{Path: "updatedAt", Value: c.ConfirmedAt},
		}
		if doc.Status == string(domain.OrderStatusAwaitingPayment) {
			doc.Status = string(domain.OrderStatusPlaced)
			updates = append(updates, firestore.Update{Path: "status", Value: doc.Status})
		}
		if err := tx.Update(snaps[0].Ref, updates); err != nil {
			return err
		}
		result = repositories.ConfirmResult{Order: doc.toDomain(decoded.ID), Confirmed: true}
		return nil
	})
	if err != nil {
		return repositories.ConfirmResult{}, err
	}
	return result, nil
}

func (r *OrderRepository) mutate(ctx context.Context, orderID string, apply func(*orderDocument) []firestore.Update) (domain.Order, error) {
	ref, err := r.coll.Doc(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	var updated domain.Order
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		decoded, err := pfirestore.Decode[orderDocument](snap)
		if err != nil {
			return err
		}
		doc := decoded.Data
		if err := tx.Update(ref, apply(&doc)); err != nil {
			return err
		}
		updated = doc.toDomain(decoded.ID)
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}

type orderLineDocument struct {
	ProductID string `firestore:"productId"`
	Size      string `firestore:"size"`
	Quantity  int    `firestore:"quantity"`
	UnitPrice string `firestore:"price"`
	Name      string `firestore:"name"`
	Image     string `firestore:"image"`
}

type orderDocument struct {
	UserID           string              `firestore:"userId"`
	Items            []orderLineDocument `firestore:"items"`
	Amount           string              `firestore:"amount"`
	Currency         string              `firestore:"currency"`
	Address          addressDocument     `firestore:"address"`
	PaymentMethod    string              `firestore:"paymentMethod"`
	Payment          bool                `firestore:"payment"`
	Status           string              `firestore:"status"`
	GatewayOrderID   string              `firestore:"gatewayOrderId,omitempty"`
	GatewayPaymentID string              `firestore:"gatewayPaymentId,omitempty"`
	GatewaySignature string              `firestore:"gatewaySignature,omitempty"`
	ExpectedDelivery time.Time           `firestore:"expectedDeliveryDate"`
	CreatedAt        time.Time           `firestore:"date"`
	UpdatedAt        time.Time           `firestore:"updatedAt"`
}

func fromDomainOrder(o domain.Order) orderDocument {
	items := make([]orderLineDocument, 0, len(o.Items))
	for _, line := range o.Items {
		items = append(items, orderLineDocument{
			ProductID: line.ProductID,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: moneyString(line.UnitPrice),
			Name:      line.Name,
			Image:     line.Image,
		})
	}
	return orderDocument{
		UserID:           o.UserID,
		Items:            items,
		Amount:           moneyString(o.Amount),
		Currency:         o.Currency,
		Address:          fromDomainAddress(o.Address),
		PaymentMethod:    string(o.PaymentMethod),
		Payment:          o.PaymentSettled,
		Status:           string(o.Status),
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		GatewaySignature: o.GatewaySignature,
		ExpectedDelivery: o.ExpectedDelivery,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderLine, 0, len(d.Items))
	for _, line := range d.Items {
		items = append(items, domain.OrderLine{
			ProductID: line.ProductID,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: parseMoney(line.UnitPrice),
			Name:      line.Name,
			Image:     line.Image,
		})
	}
	return domain.Order{
		ID:               id,
		UserID:           d.UserID,
		Items:            items,
		Amount:           parseMoney(d.Amount),
		Currency:         d.Currency,
		Address:          d.Address.toDomain(),
		PaymentMethod:    domain.PaymentMethod(d.PaymentMethod),
		PaymentSettled:   d.Payment,
		Status:           domain.OrderStatus(d.Status),
		GatewayOrderID:   d.GatewayOrderID,
		GatewayPaymentID: d.GatewayPaymentID,
		GatewaySignature: d.GatewaySignature,
		ExpectedDelivery: d.ExpectedDelivery,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func toDomainOrders(docs []pfirestore.Document[orderDocument]) []domain.Order {
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data.toDomain(doc.ID))
	}
	return orders
}
