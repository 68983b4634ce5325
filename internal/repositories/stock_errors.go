package repositories

import "fmt"

// StockErrorCode enumerates why a stock line could not be applied.
type StockErrorCode string

const (
	// StockErrorProductNotFound indicates the product id does not resolve.
	StockErrorProductNotFound StockErrorCode = "product_not_found"
	// StockErrorSizeUnavailable indicates the product has no entry for the size.
	StockErrorSizeUnavailable StockErrorCode = "size_unavailable"
	// StockErrorInsufficient indicates the requested quantity exceeds availability.
	StockErrorInsufficient StockErrorCode = "insufficient_stock"
)

// StockError names the first line that blocked a stock check or strict decrement.
type StockError struct {
	Code      StockErrorCode
	ProductID string
	Name      string
	Size      string
	Available int
	Requested int
}

// Error renders the actionable message shown to shoppers.
func (e *StockError) Error() string {
	if e == nil {
		return ""
	}
	label := e.Name
	if label == "" {
		label = e.ProductID
	}
	switch e.Code {
	case StockErrorProductNotFound:
		return fmt.Sprintf("product %s not found", e.ProductID)
	case StockErrorSizeUnavailable:
		return fmt.Sprintf("size %s is not available for %s", e.Size, label)
	default:
		return fmt.Sprintf("insufficient stock for %s size %s: available %d, requested %d", label, e.Size, e.Available, e.Requested)
	}
}

// NewStockError constructs a typed stock error.
func NewStockError(code StockErrorCode, productID, size string, available, requested int) *StockError {
	return &StockError{Code: code, ProductID: productID, Size: size, Available: available, Requested: requested}
}
