package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memMeta struct {
	values map[string][]byte
}

func (m *memMeta) Get(_ context.Context, key string) ([]byte, error) {
	return m.values[key], nil
}

func (m *memMeta) Set(_ context.Context, key string, value []byte) error {
	m.values[key] = value
	return nil
}

func (m *memMeta) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func (m *memMeta) Clear(_ context.Context) error {
	m.values = map[string][]byte{}
	return nil
}

func TestEnsureDeviceID(t *testing.T) {
	meta := &memMeta{values: map[string][]byte{}}

	id, err := ensureDeviceID(context.Background(), meta)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	// Stable across launches.
	again, err := ensureDeviceID(context.Background(), meta)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}
