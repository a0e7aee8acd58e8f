package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)

	ctx := context.Background()
	st, err := NewRedis(ctx, srv.Addr(), "lager")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.Get(ctx, "orders")
	require.ErrorIs(t, err, ErrNoBlob)

	require.NoError(t, st.Put(ctx, "orders", []byte(`[{"id":"PO-1"}]`)))

	blob, err := st.Get(ctx, "orders")
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":"PO-1"}]`, string(blob))

	require.True(t, srv.Exists("lager:orders"))

	require.NoError(t, st.Delete(ctx, "orders"))
	_, err = st.Get(ctx, "orders")
	require.ErrorIs(t, err, ErrNoBlob)
}

func TestMemoryStoreIsolatesBlobs(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	blob := []byte(`{"theme":"dark"}`)
	require.NoError(t, st.Put(ctx, "settings", blob))

	blob[2] = 'X'

	stored, err := st.Get(ctx, "settings")
	require.NoError(t, err)
	require.JSONEq(t, `{"theme":"dark"}`, string(stored))

	stored[2] = 'Y'
	again, err := st.Get(ctx, "settings")
	require.NoError(t, err)
	require.JSONEq(t, `{"theme":"dark"}`, string(again))
}
