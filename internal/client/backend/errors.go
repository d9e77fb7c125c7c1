package backend

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mpetrovs/tabchat/internal/common"
)

// mapError translates a Firestore RPC error into the client's sentinel
// errors so callers can branch with errors.Is.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", common.ErrorUnavailable, err)
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrorUnauthorized, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", common.ErrorUnavailable, err)
	}
	return err
}

// IsTransient reports whether err is a network-class failure that should
// degrade a send to the queued path instead of surfacing.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, common.ErrorUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return true
	}
	return false
}
