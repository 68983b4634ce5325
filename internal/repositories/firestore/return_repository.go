package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
	pfirestore "github.com/Navneet1206/E-Commerce-sub000/internal/platform/firestore"
	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

const returnCollection = "returnRefunds"

// ReturnRepository stores return requests. The active flag mirrors status != Rejected and
// backs the one-active-request-per-order check.
type ReturnRepository struct {
	provider *pfirestore.Provider
	coll     *pfirestore.Collection[returnDocument]
}

var _ repositories.ReturnRepository = (*ReturnRepository)(nil)

func NewReturnRepository(provider *pfirestore.Provider) (*ReturnRepository, error) {
	if provider == nil {
		return nil, errors.New("return repository requires firestore provider")
	}
	return &ReturnRepository{
		provider: provider,
		coll:     pfirestore.NewCollection[returnDocument](provider, returnCollection),
	}, nil
}

func (r *ReturnRepository) Create(ctx context.Context, req domain.ReturnRequest) error {
	ref, err := r.coll.Ref(ctx)
	if err != nil {
		return err
	}
	doc := fromDomainReturn(req)
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := r.ensureNoActive(tx, ref, req.OrderID, ""); err != nil {
			return err
		}
		return tx.Create(ref.Doc(req.ID), doc)
	})
}

func (r *ReturnRepository) FindByID(ctx context.Context, requestID string) (domain.ReturnRequest, error) {
	doc, err := r.coll.Get(ctx, requestID)
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *ReturnRepository) ListAll(ctx context.Context) ([]domain.ReturnRequest, error) {
	return r.list(ctx, func(q firestore.Query) firestore.Query { return q })
}

func (r *ReturnRepository) ListByUser(ctx context.Context, userID string) ([]domain.ReturnRequest, error) {
	return r.list(ctx, func(q firestore.Query) firestore.Query { return q.Where("userId", "==", userID) })
}

func (r *ReturnRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.ReturnRequest, error) {
	return r.list(ctx, func(q firestore.Query) firestore.Query { return q.Where("orderId", "==", orderID) })
}

func (r *ReturnRepository) UpdateStatus(ctx context.Context, requestID string, status domain.ReturnStatus, now time.Time) (domain.ReturnRequest, error) {
	docRef, err := r.coll.Doc(ctx, requestID)
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	ref, err := r.coll.Ref(ctx)
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	var updated domain.ReturnRequest
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		decoded, err := pfirestore.Decode[returnDocument](snap)
		if err != nil {
			return err
		}
		doc := decoded.Data
		active := status != domain.ReturnStatusRejected
		if active && !doc.Active {
			if err := r.ensureNoActive(tx, ref, doc.OrderID, decoded.ID); err != nil {
				return err
			}
		}
		doc.Status = string(status)
		doc.Active = active
		doc.UpdatedAt = now
		if err := tx.Update(docRef, []firestore.Update{
			{Path: "status", Value: doc.Status},
			{Path: "active", Value: doc.Active},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
		updated = doc.toDomain(decoded.ID)
		return nil
	})
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	return updated, nil
}

func (r *ReturnRepository) Delete(ctx context.Context, requestID string) error {
	return r.coll.Delete(ctx, requestID)
}

func (r *ReturnRepository) ensureNoActive(tx *firestore.Transaction, ref *firestore.CollectionRef, orderID, exceptID string) error {
	snaps, err := tx.Documents(ref.Where("orderId", "==", orderID).Where("active", "==", true)).GetAll()
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		if snap.Ref.ID != exceptID {
			return pfirestore.Conflict("returns.create", "order %s already has an active return request", orderID)
		}
	}
	return nil
}

func (r *ReturnRepository) list(ctx context.Context, build pfirestore.QueryBuilder) ([]domain.ReturnRequest, error) {
	docs, err := r.coll.Query(ctx, func(q firestore.Query) firestore.Query {
		return build(q).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.ReturnRequest, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Data.toDomain(doc.ID))
	}
	return out, nil
}

type returnDocument struct {
	OrderID   string    `firestore:"orderId"`
	UserID    string    `firestore:"userId"`
	Reason    string    `firestore:"reason"`
	Images    []string  `firestore:"images"`
	Status    string    `firestore:"status"`
	Active    bool      `firestore:"active"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func fromDomainReturn(r domain.ReturnRequest) returnDocument {
	images := append([]string{}, r.Images...)
	return returnDocument{
		OrderID:   r.OrderID,
		UserID:    r.UserID,
		Reason:    r.Reason,
		Images:    images,
		Status:    string(r.Status),
		Active:    r.Active(),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (d returnDocument) toDomain(id string) domain.ReturnRequest {
	return domain.ReturnRequest{
		ID:        id,
		OrderID:   d.OrderID,
		UserID:    d.UserID,
		Reason:    d.Reason,
		Images:    append([]string(nil), d.Images...),
		Status:    domain.ReturnStatus(d.Status),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
