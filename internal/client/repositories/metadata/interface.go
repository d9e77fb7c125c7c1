// Package metadata is a small durable key/value area in the local database,
// used for cached session state and device-scoped settings.
package metadata

import "context"

// Keys currently stored.
const (
	KeySession   = "session"
	KeyPushToken = "push_token"
	KeyDeviceID  = "device_id"
)

type Repository interface {
	// Get returns the value for key, or nil if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
