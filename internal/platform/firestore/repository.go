package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Document pairs a decoded payload with its document id.
type Document[T any] struct {
	ID   string
	Data T
}

// QueryBuilder customises a collection query before execution.
type QueryBuilder func(query firestore.Query) firestore.Query

// Collection provides typed helpers over one Firestore collection. T is the storage struct
// carrying `firestore` tags.
type Collection[T any] struct {
	provider *Provider
	name     string
}

func NewCollection[T any](provider *Provider, name string) *Collection[T] {
	return &Collection[T]{provider: provider, name: strings.TrimSpace(name)}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Ref returns the underlying collection reference.
func (c *Collection[T]) Ref(ctx context.Context) (*firestore.CollectionRef, error) {
	if c.provider == nil {
		return nil, errors.New("firestore: provider is nil")
	}
	return c.provider.Collection(ctx, c.name)
}

// Doc returns the reference for id.
func (c *Collection[T]) Doc(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NotFound(c.op("doc"), "document id is required")
	}
	ref, err := c.Ref(ctx)
	if err != nil {
		return nil, err
	}
	return ref.Doc(id), nil
}

// Create writes value under id and fails with a conflict when the document exists.
func (c *Collection[T]) Create(ctx context.Context, id string, value T) error {
	doc, err := c.Doc(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Create(ctx, value); err != nil {
		return WrapError(c.op("create"), err)
	}
	return nil
}

// Set upserts value under id.
func (c *Collection[T]) Set(ctx context.Context, id string, value T) error {
	doc, err := c.Doc(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Set(ctx, value); err != nil {
		return WrapError(c.op("set"), err)
	}
	return nil
}

// Update applies field updates to an existing document.
func (c *Collection[T]) Update(ctx context.Context, id string, updates []firestore.Update) error {
	doc, err := c.Doc(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Update(ctx, updates); err != nil {
		return WrapError(c.op("update"), err)
	}
	return nil
}

// Delete removes the document. A missing document is reported as not found.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	doc, err := c.Doc(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Delete(ctx, firestore.Exists); err != nil {
		return WrapError(c.op("delete"), err)
	}
	return nil
}

// Get loads and decodes the document.
func (c *Collection[T]) Get(ctx context.Context, id string) (Document[T], error) {
	doc, err := c.Doc(ctx, id)
	if err != nil {
		return Document[T]{}, err
	}
	snap, err := doc.Get(ctx)
	if err != nil {
		return Document[T]{}, WrapError(c.op("get"), err)
	}
	return Decode[T](snap)
}

// GetAll loads several documents in one round trip. Missing ids are skipped.
func (c *Collection[T]) GetAll(ctx context.Context, ids []string) ([]Document[T], error) {
	if len(ids) == 0 {
		return nil, nil
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		refs = append(refs, client.Collection(c.name).Doc(id))
	}
	snaps, err := client.GetAll(ctx, refs)
	if err != nil {
		return nil, WrapError(c.op("get_all"), err)
	}
	docs := make([]Document[T], 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		decoded, err := Decode[T](snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, decoded)
	}
	return docs, nil
}

// Query runs a query built from the collection and decodes every result.
func (c *Collection[T]) Query(ctx context.Context, build QueryBuilder) ([]Document[T], error) {
	ref, err := c.Ref(ctx)
	if err != nil {
		return nil, err
	}
	query := ref.Query
	if build != nil {
		query = build(query)
	}
	return DecodeAll[T](query.Documents(ctx), c.op("query"))
}

// Decode converts a snapshot into a typed document.
func Decode[T any](snap *firestore.DocumentSnapshot) (Document[T], error) {
	var data T
	if err := snap.DataTo(&data); err != nil {
		return Document[T]{}, fmt.Errorf("firestore: decode %s: %w", snap.Ref.ID, err)
	}
	return Document[T]{ID: snap.Ref.ID, Data: data}, nil
}

// DecodeAll drains iter and decodes each snapshot. The iterator is always stopped.
func DecodeAll[T any](iter *firestore.DocumentIterator, op string) ([]Document[T], error) {
	defer iter.Stop()
	var docs []Document[T]
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return docs, nil
		}
		if err != nil {
			return nil, WrapError(op, err)
		}
		decoded, err := Decode[T](snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, decoded)
	}
}

func (c *Collection[T]) op(action string) string {
	return c.name + "." + action
}
