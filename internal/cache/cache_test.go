package cache

import (
	"context"
	"testing"
	"time"

	"github.com/doesdev/oneclick-update/internal/channel"
	"github.com/doesdev/oneclick-update/internal/release"
	"github.com/stretchr/testify/require"
)

func newTestRepo() *Repo {
	releases := []*release.Release{{Tag: "v1.0.0"}}
	return NewRepo("doesdev/oneclick-release-test", false, releases, channel.Classify(releases, nil))
}

func TestBucketGetSet(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	_, ok := repo.Get(ctx, BucketChannel, "/download/win32")
	require.False(t, ok)

	repo.Set(BucketChannel, "/download/win32", "value")
	val, ok := repo.Get(ctx, BucketChannel, "/download/win32")
	require.True(t, ok)
	require.Equal(t, "value", val)

	// buckets are independent
	_, ok = repo.Get(ctx, BucketPlatform, "/download/win32")
	require.False(t, ok)
}

func TestExpired(t *testing.T) {
	repo := newTestRepo()

	require.False(t, repo.Expired(time.Hour))

	time.Sleep(5 * time.Millisecond)
	require.True(t, repo.Expired(time.Millisecond))
}

func TestStoreLoadAndSwap(t *testing.T) {
	store := NewStore(time.Minute)
	require.Equal(t, time.Minute, store.Interval())

	require.Nil(t, store.Load("doesdev/oneclick-release-test"))

	gen1 := newTestRepo()
	store.Swap(gen1)
	require.Same(t, gen1, store.Load("doesdev/oneclick-release-test"))

	gen2 := newTestRepo()
	store.Swap(gen2)
	require.Same(t, gen2, store.Load("doesdev/oneclick-release-test"))
}

func TestStoreKeysByRepoID(t *testing.T) {
	store := NewStore(time.Minute)
	gen := newTestRepo()
	store.Swap(gen)

	require.Nil(t, store.Load("someone/else"))
}
