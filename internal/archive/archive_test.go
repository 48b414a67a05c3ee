package archive

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kittycore/internal/blob"
	"kittycore/internal/core"
	"kittycore/internal/host"
	"kittycore/internal/infra/blob/fs"
	memblob "kittycore/internal/infra/blob/memory"
	"kittycore/internal/infra/persistence/memory"
	"kittycore/internal/ledger"
)

func seeded(t *testing.T, owners ...core.AccountID) *memory.Store {
	t.Helper()
	store := memory.NewStore(core.NewDefaultRulesEngine(), 5)
	svc := core.NewService(store, host.NewChain([32]byte{0x3}), ledger.New(0))
	for _, owner := range owners {
		_, _, err := svc.CreateKitty(context.Background(), owner)
		require.NoError(t, err)
	}
	return store
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestArchiveAndRestore(t *testing.T) {
	ctx := context.Background()
	src := seeded(t, "alice", "alice", "bob")
	blobs := memblob.New()
	a := New(blobs, WithClock(fixedClock(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))))

	info, err := a.Archive(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/20260304T050607.000000000Z-0000000003.json", info.Key)
	assert.Equal(t, "application/json", info.ContentType)
	assert.Equal(t, "3", info.Metadata["kitties"])
	assert.Equal(t, "3", info.Metadata["counter"])

	dst := memory.NewStore(core.NewDefaultRulesEngine(), 5)
	restored, err := a.Restore(ctx, info.Key, dst)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), restored.Count)
	assert.Equal(t, src.ExportState(), dst.ExportState())
	assert.Equal(t, src.OwnedBy("alice"), dst.OwnedBy("alice"))
}

func TestLatestPicksNewestKey(t *testing.T) {
	ctx := context.Background()
	blobs := memblob.New()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		ts = ts.Add(time.Minute)
		return ts
	}
	a := New(blobs, WithClock(clock))

	_, err := a.Latest(ctx)
	require.ErrorIs(t, err, ErrNoSnapshots)

	_, err = a.Archive(ctx, seeded(t, "alice"))
	require.NoError(t, err)
	second, err := a.Archive(ctx, seeded(t, "alice", "bob"))
	require.NoError(t, err)

	latest, err := a.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Key, latest.Key)

	list, err := a.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestArchiveKeyCollision(t *testing.T) {
	ctx := context.Background()
	a := New(memblob.New(), WithClock(fixedClock(time.Unix(0, 0))))
	src := seeded(t, "alice")
	_, err := a.Archive(ctx, src)
	require.NoError(t, err)
	_, err = a.Archive(ctx, src)
	require.ErrorIs(t, err, blob.ErrExists)
}

func TestRestoreErrors(t *testing.T) {
	ctx := context.Background()
	blobs := memblob.New()
	a := New(blobs)

	_, err := a.Restore(ctx, "snapshots/missing.json", memory.NewStore(nil, 5))
	require.ErrorIs(t, err, blob.ErrNotFound)

	_, err = blobs.Put(ctx, "snapshots/garbage.json", strings.NewReader("{"), blob.PutOptions{})
	require.NoError(t, err)
	_, err = a.Restore(ctx, "snapshots/garbage.json", memory.NewStore(nil, 5))
	require.ErrorContains(t, err, "decode snapshot")

	info, err := a.Archive(ctx, seeded(t, "alice", "alice", "alice"))
	require.NoError(t, err)
	small := memory.NewStore(nil, 2)
	_, err = a.Restore(ctx, info.Key, small)
	require.Error(t, err)
	assert.Zero(t, small.KittyCount())
}

func TestArchiveOnFilesystem(t *testing.T) {
	ctx := context.Background()
	store, err := fs.New(t.TempDir())
	require.NoError(t, err)
	a := New(store)

	src := seeded(t, "carol")
	info, err := a.Archive(ctx, src)
	require.NoError(t, err)

	latest, err := a.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, info.Key, latest.Key)

	dst := memory.NewStore(nil, 5)
	_, err = a.Restore(ctx, latest.Key, dst)
	require.NoError(t, err)
	assert.Equal(t, src.ListKitties(), dst.ListKitties())
}
