package services

import (
	"errors"
	"fmt"

	"github.com/Navneet1206/E-Commerce-sub000/internal/repositories"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates a status transition outside the allowed table.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderForbidden indicates the caller does not own the order.
	ErrOrderForbidden = errors.New("order: forbidden")

	// ErrStockUnavailable wraps a *repositories.StockError with a user-facing message.
	ErrStockUnavailable = errors.New("stock: unavailable")

	// ErrPaymentNotConfigured signals missing gateway credentials. Its detail must not reach clients.
	ErrPaymentNotConfigured = errors.New("payment: gateway not configured")
	// ErrPaymentSignature indicates a gateway confirmation failed verification.
	ErrPaymentSignature = errors.New("payment: invalid signature")
	// ErrPaymentUpstream indicates the gateway rejected or failed a call.
	ErrPaymentUpstream = errors.New("payment: gateway error")

	// ErrImageStoreNotConfigured signals uploads arrived without an object store. Its detail must not reach clients.
	ErrImageStoreNotConfigured = errors.New("storage: image store not configured")

	ErrProductInvalidInput = errors.New("product: invalid input")
	ErrProductNotFound     = errors.New("product: not found")

	ErrUserInvalidInput       = errors.New("user: invalid input")
	ErrUserNotFound           = errors.New("user: not found")
	ErrUserConflict           = errors.New("user: email already registered")
	ErrUserInvalidCredentials = errors.New("user: invalid credentials")

	ErrDiscountInvalidInput = errors.New("discount: invalid input")
	ErrDiscountNotFound     = errors.New("discount: not found")

	ErrReturnInvalidInput = errors.New("return: invalid input")
	ErrReturnNotFound     = errors.New("return: not found")
	ErrReturnInvalidState = errors.New("return: invalid status transition")
	ErrReturnConflict     = errors.New("return: active request exists")
	ErrReturnForbidden    = errors.New("return: forbidden")
)

// mapRepositoryError translates repository classifications into the given sentinels. A nil
// sentinel leaves that classification untouched.
func mapRepositoryError(err error, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound() && notFound != nil:
			return fmt.Errorf("%w: %v", notFound, err)
		case repoErr.IsConflict() && conflict != nil:
			return fmt.Errorf("%w: %v", conflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("repository unavailable: %w", err)
		}
	}
	return err
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
