package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

// StockLedgerDeps bundles collaborators required to construct the stock ledger.
type StockLedgerDeps struct {
	Products repositories.ProductRepository
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type stockLedger struct {
	products repositories.ProductRepository
	logger   EventLogger
}

// NewStockLedger wires the product repository into a StockLedger.
func NewStockLedger(deps StockLedgerDeps) (StockLedger, error) {
	if deps.Products == nil {
		return nil, errors.New("stock ledger: product repository is required")
	}
	return &stockLedger{products: deps.Products, logger: loggerOrNop(deps.Logger)}, nil
}

// CheckAvailability loads every product named by lines and fails on the first line that
// cannot be served. Quantities for the same product and size are summed before comparing.
// The loaded products are returned keyed in request order.
func (l *stockLedger) CheckAvailability(ctx context.Context, lines []repositories.StockLine) ([]Product, error) {
	lines = mergeStockLines(lines)
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	found, err := l.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, mapRepositoryError(err, ErrProductNotFound, nil)
	}
	byID := make(map[string]Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, stockUnavailable(repositories.NewStockError(repositories.StockErrorProductNotFound, line.ProductID, line.Size, 0, line.Quantity))
		}
		entry, ok := product.SizeEntry(line.Size)
		if !ok {
			se := repositories.NewStockError(repositories.StockErrorSizeUnavailable, line.ProductID, line.Size, 0, line.Quantity)
			se.Name = product.Name
			return nil, stockUnavailable(se)
		}
		if entry.Stock < line.Quantity {
			se := repositories.NewStockError(repositories.StockErrorInsufficient, line.ProductID, line.Size, entry.Stock, line.Quantity)
			se.Name = product.Name
			return nil, stockUnavailable(se)
		}
	}

	products := make([]Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, byID[id])
	}
	return products, nil
}

// Decrement removes stock through the repository's atomic conditional update.
func (l *stockLedger) Decrement(ctx context.Context, lines []repositories.StockLine, mode repositories.StockMode) (repositories.StockResult, error) {
	lines = mergeStockLines(lines)
	result, err := l.products.AdjustStock(ctx, lines, mode)
	if err != nil {
		var stockErr *repositories.StockError
		if errors.As(err, &stockErr) {
			return repositories.StockResult{}, stockUnavailable(stockErr)
		}
		return repositories.StockResult{}, mapRepositoryError(err, ErrProductNotFound, nil)
	}
	for _, s := range result.Shortfalls {
		l.logger(ctx, "stock.shortfall", map[string]any{
			"productId": s.ProductID,
			"size":      s.Size,
			"requested": s.Requested,
			"applied":   s.Applied,
		})
	}
	return result, nil
}

func (l *stockLedger) Restore(ctx context.Context, lines []repositories.StockLine) error {
	return mapRepositoryError(l.products.RestoreStock(ctx, mergeStockLines(lines)), nil, nil)
}

func stockUnavailable(se *repositories.StockError) error {
	return fmt.Errorf("%w: %w", ErrStockUnavailable, se)
}

// mergeStockLines sums quantities per product and size, keeping first-seen order.
func mergeStockLines(lines []repositories.StockLine) []repositories.StockLine {
	type key struct{ product, size string }
	index := make(map[key]int, len(lines))
	out := make([]repositories.StockLine, 0, len(lines))
	for _, line := range lines {
		k := key{line.ProductID, line.Size}
		if i, ok := index[k]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[k] = len(out)
		out = append(out, line)
	}
	return out
}
