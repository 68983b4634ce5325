package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	pmongo "github.com/Navneet1206/E-Commerce-sub000/internal/platform/mongo"
	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/pagination"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const orderCollection = "orders"

type OrderRepository struct {
	coll *mongo.Collection
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(client *pmongo.Client) *OrderRepository {
	return &OrderRepository{coll: client.Collection(orderCollection)}
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	_, err := r.coll.InsertOne(ctx, fromDomainOrder(order))
	return pmongo.WrapError("orders.insert", err)
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	return r.findOne(ctx, "orders.find", bson.M{"_id": orderID})
}

func (r *OrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (domain.Order, error) {
	if gatewayOrderID == "" {
		return domain.Order{}, pmongo.NotFound("orders.find_by_gateway", "gateway order id is required")
	}
	return r.findOne(ctx, "orders.find_by_gateway", bson.M{"gateway_order_id": gatewayOrderID})
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
}

// ListAll pages newest first on (date, _id) so equal timestamps still page deterministically.
func (r *OrderRepository) ListAll(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if !filter.Cursor.IsZero() {
		query["$or"] = bson.A{
			bson.M{"date": bson.M{"$lt": filter.Cursor.CreatedAt}},
			bson.M{"date": filter.Cursor.CreatedAt, "_id": bson.M{"$lt": filter.Cursor.ID}},
		}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(pageSize + 1))
	orders, err := r.find(ctx, query, opts)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{}
	if len(orders) > pageSize {
		orders = orders[:pageSize]
		last := orders[len(orders)-1]
		token, err := pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		page.NextPageToken = token
	}
	page.Items = orders
	return page, nil
}

func (r *OrderRepository) ForEach(ctx context.Context, fn func(domain.Order) error) error {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return pmongo.WrapError("orders.for_each", err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var doc orderDocument
		if err := cur.Decode(&doc); err != nil {
			return pmongo.WrapError("orders.for_each", err)
		}
		if err := fn(doc.toDomain()); err != nil {
			return err
		}
	}
	return pmongo.WrapError("orders.for_each", cur.Err())
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, expectedDelivery *time.Time, now time.Time) (domain.Order, error) {
	set := bson.M{"status": string(status), "updated_at": now}
	if expectedDelivery != nil {
		set["expected_delivery_date"] = *expectedDelivery
	}
	return r.findAndSet(ctx, "orders.update_status", bson.M{"_id": orderID}, bson.M{"$set": set})
}

func (r *OrderRepository) MarkPaymentSettled(ctx context.Context, orderID string, now time.Time) (domain.Order, error) {
	return r.findAndSet(ctx, "orders.mark_settled", bson.M{"_id": orderID},
		bson.M{"$set": bson.M{"payment": true, "updated_at": now}})
}

// ConfirmGatewayPayment settles the order with a single FindOneAndUpdate filtered on
// payment=false. The status flip is expressed as a pipeline $cond so it lands in the same
// write.
func (r *OrderRepository) ConfirmGatewayPayment(ctx context.Context, c repositories.GatewayConfirmation) (repositories.ConfirmResult, error) {
	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "payment", Value: true},
		{Key: "gateway_payment_id", Value: c.GatewayPaymentID},
		{Key: "gateway_signature", Value: c.Signature},
		{Key: "updated_at", Value: c.ConfirmedAt},
		{Key: "status", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$status", string(domain.OrderStatusAwaitingPayment)}}},
			string(domain.OrderStatusPlaced),
			"$status",
		}}}},
	}}}}
	order, err := r.findAndSet(ctx, "orders.confirm_gateway",
		bson.M{"gateway_order_id": c.GatewayOrderID, "payment": false}, update)
	if err == nil {
		return repositories.ConfirmResult{Order: order, Confirmed: true}, nil
	}
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		return repositories.ConfirmResult{}, err
	}
	existing, err := r.FindByGatewayOrderID(ctx, c.GatewayOrderID)
	if err != nil {
		return repositories.ConfirmResult{}, err
	}
	return repositories.ConfirmResult{Order: existing}, nil
}

func (r *OrderRepository) findAndSet(ctx context.Context, op string, filter bson.M, update any) (domain.Order, error) {
	var doc orderDocument
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return domain.Order{}, pmongo.WrapError(op, err)
	}
	return doc.toDomain(), nil
}

func (r *OrderRepository) findOne(ctx context.Context, op string, filter bson.M) (domain.Order, error) {
	var doc orderDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return domain.Order{}, pmongo.WrapError(op, err)
	}
	return doc.toDomain(), nil
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Order, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, pmongo.WrapError("orders.find", err)
	}
	var docs []orderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError("orders.find", err)
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.toDomain())
	}
	return orders, nil
}

type orderLineDocument struct {
	ProductID string               `bson:"product_id"`
	Size      string               `bson:"size"`
	Quantity  int                  `bson:"quantity"`
	UnitPrice primitive.Decimal128 `bson:"price"`
	Name      string               `bson:"name"`
	Image     string               `bson:"image"`
}

type orderDocument struct {
	ID               string               `bson:"_id"`
	UserID           string               `bson:"user_id"`
	Items            []orderLineDocument  `bson:"items"`
	Amount           primitive.Decimal128 `bson:"amount"`
	Currency         string               `bson:"currency"`
	Address          addressDocument      `bson:"address"`
	PaymentMethod    string               `bson:"payment_method"`
	Payment          bool                 `bson:"payment"`
	Status           string               `bson:"status"`
	GatewayOrderID   string               `bson:"gateway_order_id,omitempty"`
	GatewayPaymentID string               `bson:"gateway_payment_id,omitempty"`
	GatewaySignature string               `bson:"gateway_signature,omitempty"`
	ExpectedDelivery time.Time            `bson:"expected_delivery_date"`
	CreatedAt        time.Time            `bson:"date"`
	UpdatedAt        time.Time            `bson:"updated_at"`
}

func fromDomainOrder(o domain.Order) orderDocument {
	items := make([]orderLineDocument, 0, len(o.Items))
	for _, line := range o.Items {
		items = append(items, orderLineDocument{
			ProductID: line.ProductID,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: toDecimal128(line.UnitPrice),
			Name:      line.Name,
			Image:     line.Image,
		})
	}
	return orderDocument{
		ID:               o.ID,
		UserID:           o.UserID,
		Items:            items,
		Amount:           toDecimal128(o.Amount),
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

func (d orderDocument) toDomain() domain.Order {
	items := make([]domain.OrderLine, 0, len(d.Items))
	for _, line := range d.Items {
		items = append(items, domain.OrderLine{
			ProductID: line.ProductID,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: fromDecimal128(line.UnitPrice),
			Name:      line.Name,
			Image:     line.Image,
		})
	}
	return domain.Order{
		ID:               d.ID,
		UserID:           d.UserID,
		Items:            items,
		Amount:           fromDecimal128(d.Amount),
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
