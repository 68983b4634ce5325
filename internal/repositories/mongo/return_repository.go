package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	pmongo "github.com/Navneet1206/E-Commerce-sub000/internal/platform/mongo"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const returnCollection = "return_refunds"

// ReturnRepository stores return requests. A partial unique index on order_id over active
// documents enforces one open request per order.
type ReturnRepository struct {
	coll *mongo.Collection
}

var _ repositories.ReturnRepository = (*ReturnRepository)(nil)

func NewReturnRepository(client *pmongo.Client) *ReturnRepository {
	return &ReturnRepository{coll: client.Collection(returnCollection)}
}

func (r *ReturnRepository) Create(ctx context.Context, req domain.ReturnRequest) error {
	_, err := r.coll.InsertOne(ctx, fromDomainReturn(req))
	if mongo.IsDuplicateKeyError(err) {
		return pmongo.Conflict("returns.create", "order %s already has an active return request", req.OrderID)
	}
	return pmongo.WrapError("returns.create", err)
}

func (r *ReturnRepository) FindByID(ctx context.Context, requestID string) (domain.ReturnRequest, error) {
	var doc returnDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": requestID}).Decode(&doc); err != nil {
		return domain.ReturnRequest{}, pmongo.WrapError("returns.find", err)
	}
	return doc.toDomain(), nil
}

func (r *ReturnRepository) ListAll(ctx context.Context) ([]domain.ReturnRequest, error) {
	return r.list(ctx, bson.M{})
}

func (r *ReturnRepository) ListByUser(ctx context.Context, userID string) ([]domain.ReturnRequest, error) {
	return r.list(ctx, bson.M{"user_id": userID})
}

func (r *ReturnRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.ReturnRequest, error) {
	return r.list(ctx, bson.M{"order_id": orderID})
}

// UpdateStatus keeps the active flag in step with the status. Reactivating a rejected request
// while another is open surfaces as a conflict from the partial index.
func (r *ReturnRepository) UpdateStatus(ctx context.Context, requestID string, status domain.ReturnStatus, now time.Time) (domain.ReturnRequest, error) {
	update := bson.M{"$set": bson.M{
		"status":     string(status),
		"active":     status != domain.ReturnStatusRejected,
		"updated_at": now,
	}}
	var doc returnDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": requestID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ReturnRequest{}, pmongo.Conflict("returns.update_status", "order already has an active return request")
	}
	if err != nil {
		return domain.ReturnRequest{}, pmongo.WrapError("returns.update_status", err)
	}
	return doc.toDomain(), nil
}

func (r *ReturnRepository) Delete(ctx context.Context, requestID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": requestID})
	if err != nil {
		return pmongo.WrapError("returns.delete", err)
	}
	if res.DeletedCount == 0 {
		return pmongo.NotFound("returns.delete", "return request %s not found", requestID)
	}
	return nil
}

func (r *ReturnRepository) list(ctx context.Context, filter bson.M) ([]domain.ReturnRequest, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, pmongo.WrapError("returns.list", err)
	}
	var docs []returnDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError("returns.list", err)
	}
	out := make([]domain.ReturnRequest, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toDomain())
	}
	return out, nil
}

type returnDocument struct {
	ID        string    `bson:"_id"`
	OrderID   string    `bson:"order_id"`
	UserID    string    `bson:"user_id"`
	Reason    string    `bson:"reason"`
	Images    []string  `bson:"images"`
	Status    string    `bson:"status"`
	Active    bool      `bson:"active"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func fromDomainReturn(r domain.ReturnRequest) returnDocument {
	return returnDocument{
		ID:        r.ID,
		OrderID:   r.OrderID,
		UserID:    r.UserID,
		Reason:    r.Reason,
		Images:    append([]string{}, r.Images...),
		Status:    string(r.Status),
		Active:    r.Active(),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (d returnDocument) toDomain() domain.ReturnRequest {
	return domain.ReturnRequest{
		ID:        d.ID,
		OrderID:   d.OrderID,
		UserID:    d.UserID,
		Reason:    d.Reason,
		Images:    append([]string(nil), d.Images...),
		Status:    domain.ReturnStatus(d.Status),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
