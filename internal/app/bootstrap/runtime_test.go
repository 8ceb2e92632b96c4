package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/elite-waitlist/internal/config"
	"github.com/wolfman30/elite-waitlist/internal/countdown"
	"github.com/wolfman30/elite-waitlist/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
	if client := BuildRedisClient(context.Background(), nil, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client for nil config")
	}
}

func TestBuildRedisClientVerifiesConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), true)
	require.NotNil(t, client)
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())
}

func TestBuildRedisClientUnreachableReturnsNil(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.New("error"), true)
	assert.Nil(t, client)
}

func TestBuildPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	if pool := BuildPostgresPool(context.Background(), "", logging.New("error")); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
	if pool := BuildPostgresPool(context.Background(), "::not a url::", logging.New("error")); pool != nil {
		t.Fatalf("expected nil pool for malformed URL")
	}
}

func TestBuildCountdownStoreSelection(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), false)
	defer client.Close()
	dir := filepath.Join(t.TempDir(), "state")

	tests := []struct {
		name     string
		kind     string
		backends CountdownBackends
		want     string
		wantErr  bool
	}{
		{name: "auto prefers redis", kind: "auto", backends: CountdownBackends{Redis: client, StateDir: dir}, want: StoreRedis},
		{name: "auto falls back to file", kind: "", backends: CountdownBackends{StateDir: dir}, want: StoreFile},
		{name: "auto falls back to memory", kind: "auto", want: StoreMemory},
		{name: "explicit memory", kind: "Memory", backends: CountdownBackends{Redis: client}, want: StoreMemory},
		{name: "explicit redis", kind: "redis", backends: CountdownBackends{Redis: client}, want: StoreRedis},
		{name: "redis without client", kind: "redis", wantErr: true},
		{name: "postgres without pool", kind: "postgres", wantErr: true},
		{name: "file without dir", kind: "file", wantErr: true},
		{name: "unknown", kind: "etcd", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, chosen, err := BuildCountdownStore(tt.kind, tt.backends, logging.New("error"))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, store)
			assert.Equal(t, tt.want, chosen)
		})
	}
}

func TestBuildCountdownStoreUnknownIsTyped(t *testing.T) {
	_, _, err := BuildCountdownStore("etcd", CountdownBackends{}, nil)
	require.ErrorIs(t, err, ErrUnknownStore)
}

func TestBuildCountdownStoreFileRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	store, _, err := BuildCountdownStore(StoreFile, CountdownBackends{StateDir: dir}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, countdown.DefaultKey, "1000"))
	value, ok, err := store.Load(ctx, countdown.DefaultKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1000", value)
}
