package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Error implements repositories.RepositoryError for Mongo backed repositories.
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

// NotFound builds a not-found error for a filter that matched nothing.
func NotFound(op, format string, args ...any) error {
	return &Error{op: op, err: fmt.Errorf(format, args...), notFound: true}
}

// Conflict builds a conflict error for a failed conditional write.
func Conflict(op, format string, args ...any) error {
	return &Error{op: op, err: fmt.Errorf(format, args...), conflict: true}
}

// WrapError classifies driver errors. Context errors are returned unchanged.
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
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		e.notFound = true
	case mongo.IsDuplicateKeyError(err):
		e.conflict = true
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, mongo.ErrClientDisconnected):
		e.unavailable = true
	}
	return e
}
