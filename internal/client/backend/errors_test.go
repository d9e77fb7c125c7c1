package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mpetrovs/tabchat/internal/common"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))

	err := mapError(status.Error(codes.NotFound, "missing"))
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	err = mapError(status.Error(codes.Unavailable, "down"))
	assert.True(t, errors.Is(err, common.ErrorUnavailable))

	err = mapError(status.Error(codes.DeadlineExceeded, "slow"))
	assert.True(t, errors.Is(err, common.ErrorUnavailable))

	err = mapError(status.Error(codes.PermissionDenied, "nope"))
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))

	err = mapError(fmt.Errorf("wrapping: %w", context.DeadlineExceeded))
	assert.True(t, errors.Is(err, common.ErrorUnavailable))

	plain := errors.New("boom")
	assert.Equal(t, plain, mapError(plain))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(status.Error(codes.Unavailable, "down")))
	assert.True(t, IsTransient(status.Error(codes.Aborted, "contention")))
	assert.True(t, IsTransient(fmt.Errorf("send: %w", common.ErrorUnavailable)))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(errors.New("validation")))
	assert.False(t, IsTransient(common.ErrorNotFound))
}
