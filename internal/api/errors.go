package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/matheus3301/chatline/internal/fault"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps domain errors onto gRPC status codes.
func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, fault.ErrInvalidArgument):
		return grpcstatus.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	case errors.Is(err, fault.ErrNotFound):
		return grpcstatus.Errorf(codes.NotFound, "%s: %v", op, err)
	case errors.Is(err, context.Canceled):
		return grpcstatus.Errorf(codes.Canceled, "%s: %v", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Errorf(codes.DeadlineExceeded, "%s: %v", op, err)
	default:
		return grpcstatus.Errorf(codes.Internal, "%s: %v", op, err)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), fault.ErrInvalidArgument)
}

// validateLimit accepts 1..maxLimit.
func validateLimit(limit, maxLimit int) error {
	if limit <= 0 {
		return invalid("limit must be positive, got %d", limit)
	}
	if limit > maxLimit {
		return invalid("limit %d exceeds maximum %d", limit, maxLimit)
	}
	return nil
}

func validateChatID(id string) error {
	if id == "" {
		return invalid("chatId is required")
	}
	return nil
}
