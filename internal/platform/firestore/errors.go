package firestore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error implements repositories.RepositoryError for Firestore backed repositories.
type Error struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *Error) Error() string {
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) IsNotFound() bool { return e != nil && e.notFound }

func (e *Error) IsConflict() bool { return e != nil && e.conflict }

func (e *Error) IsUnavailable() bool { return e != nil && e.unavailable }

// NotFound builds a not-found error for conditions detected by repository code rather than the
// backend, such as an empty query inside a transaction.
func NotFound(op, format string, args ...any) error {
	return &Error{op: op, err: fmt.Errorf(format, args...), notFound: true}
}

// Conflict builds a conflict error for a failed repository-level precondition.
func Conflict(op, format string, args ...any) error {
	return &Error{op: op, err: fmt.Errorf(format, args...), conflict: true}
}

// WrapError annotates Firestore errors with repository semantics. Context cancellations and
// errors that already carry domain meaning are passed through untouched.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var repoErr *Error
	if errors.As(err, &repoErr) {
		return err
	}

	e := &Error{op: op, err: err}
	switch status.Code(err) {
	case codes.Canceled:
		return context.Canceled
	case codes.NotFound:
		e.notFound = true
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		e.conflict = true
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.DeadlineExceeded:
		e.unavailable = true
	case codes.Unknown:
		// Not a gRPC status, e.g. a domain error returned from a transaction callback.
		return err
	}
	return e
}
