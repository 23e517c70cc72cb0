package middleware

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhive/config"
)

func newTestStorage(t *testing.T) *RedisStorage {
	t.Helper()
	mr := miniredis.RunT(t)
	storage := NewRedisStorage(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestRedisStorageMissingKey(t *testing.T) {
	t.Parallel()
	storage := newTestStorage(t)

	// fiber.Storage requires (nil, nil) for a missing key, not an error.
	val, err := storage.Get("rl:auth:10.0.0.1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestRedisStorageRoundTrip(t *testing.T) {
	t.Parallel()
	storage := newTestStorage(t)

	require.NoError(t, storage.Set("rl:auth:10.0.0.1", []byte("3"), time.Minute))

	val, err := storage.Get("rl:auth:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), val)

	require.NoError(t, storage.Delete("rl:auth:10.0.0.1"))
	val, err = storage.Get("rl:auth:10.0.0.1")
	require.NoError(t, err)
	assert.Nil(t, val)
}
