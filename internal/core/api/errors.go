package api

import (
	"context"
	"errors"

	"github.com/solatis/datagrid/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrInvalidRequest indicates a request message with missing or mistyped fields.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidOrder indicates an order that violates the schema.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrOrderNotFound indicates an order id with no row.
	ErrOrderNotFound = errors.New("order not found")
)

// Error mapping:
// Compile and validation errors map to INVALID_ARGUMENT.
// Missing orders map to NOT_FOUND.
// Context timeouts map to DEADLINE_EXCEEDED, cancellation to CANCELED.
// Everything else comes from the database and maps to UNAVAILABLE.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Unavailable
	switch {
	case errors.Is(err, types.ErrUnknownColumn),
		errors.Is(err, types.ErrUnsupportedCompareVerb),
		errors.Is(err, types.ErrUnsupportedRecordType),
		errors.Is(err, types.ErrNoColumns),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidOrder):
		code = codes.InvalidArgument
	case errors.Is(err, ErrOrderNotFound):
		code = codes.NotFound
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	return status.Error(code, err.Error())
}
