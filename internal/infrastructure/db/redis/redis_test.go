package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_NamesClientAndSizesPool(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := Connect(context.Background(), Config{Addr: mr.Addr(), RequestRate: 15})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	opts := client.Options()
	assert.Equal(t, "notes-server", opts.ClientName)
	assert.Equal(t, 15, opts.PoolSize)

	name, err := client.ClientGetName(context.Background()).Result()
	require.NoError(t, err)
	assert.Equal(t, "notes-server", name)
}

func TestConnect_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = Connect(context.Background(), Config{Addr: addr, Timeout: 200 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}

func TestPoolSize(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"explicit size wins", Config{PoolSize: 32, RequestRate: 100}, 32},
		{"derived from request rate", Config{RequestRate: 24.5}, 25},
		{"floor for small budgets", Config{RequestRate: 3}, minPoolSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, poolSize(tt.cfg))
		})
	}
}
