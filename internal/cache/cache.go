package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/doesdev/oneclick-update/internal/channel"
	"github.com/doesdev/oneclick-update/internal/metrics"
	"github.com/doesdev/oneclick-update/internal/release"
	gocache "github.com/patrickmn/go-cache"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
)

// Bucket names one of the per-repository lookup caches.
type Bucket string

const (
	BucketChannel   Bucket = "channel"
	BucketPlatform  Bucket = "platform"
	BucketServerURL Bucket = "serverUrl"
	BucketVersion   Bucket = "version"
	BucketAsset     Bucket = "asset"
	BucketManifest  Bucket = "manifest"
)

var buckets = []Bucket{
	BucketChannel, BucketPlatform, BucketServerURL,
	BucketVersion, BucketAsset, BucketManifest,
}

// Repo is the cache state for one repository: the raw release list, the
// channel map, and the lookup buckets. A Repo is one cache generation; it
// is never cleared in place. Refresh builds a fresh Repo and the Store
// swaps it in atomically, so a reader never observes a mix of pre- and
// post-refresh entries.
type Repo struct {
	ID          string
	Private     bool
	Releases    []*release.Release
	Channels    *channel.Map
	lastRefresh time.Time
	lookups     map[Bucket]*gocache.Cache
}

// NewRepo creates a populated cache generation with lastRefresh set to now.
func NewRepo(id string, private bool, releases []*release.Release, channels *channel.Map) *Repo {
	r := &Repo{
		ID:          id,
		Private:     private,
		Releases:    releases,
		Channels:    channels,
		lastRefresh: time.Now(),
		lookups:     make(map[Bucket]*gocache.Cache, len(buckets)),
	}
	for _, b := range buckets {
		// entries live for the generation's lifetime, never individually
		r.lookups[b] = gocache.New(gocache.NoExpiration, 0)
	}
	return r
}

// Expired reports whether the refresh interval has elapsed since this
// generation was populated.
func (r *Repo) Expired(interval time.Duration) bool {
	return time.Since(r.lastRefresh) > interval
}

func (r *Repo) Get(ctx context.Context, b Bucket, key string) (any, bool) {
	val, ok := r.lookups[b].Get(key)
	mctx, _ := tag.New(ctx, tag.Upsert(metrics.TagCacheBucket, string(b)))
	if ok {
		stats.Record(mctx, metrics.CounterCacheHit.M(1))
	} else {
		stats.Record(mctx, metrics.CounterCacheMiss.M(1))
	}
	return val, ok
}

func (r *Repo) Set(b Bucket, key string, val any) {
	r.lookups[b].Set(key, val, gocache.NoExpiration)
}

// Store maps repository ids to their cache state. It is constructor
// injected and owned by the orchestrator; there is no process-global
// registry. Each repository slot is an atomic pointer so a refresh swaps
// the whole generation at once.
type Store struct {
	interval time.Duration

	mu    sync.Mutex
	repos map[string]*atomic.Pointer[Repo]
}

func NewStore(refreshInterval time.Duration) *Store {
	return &Store{
		interval: refreshInterval,
		repos:    make(map[string]*atomic.Pointer[Repo]),
	}
}

func (s *Store) Interval() time.Duration {
	return s.interval
}

// Load returns the current generation for the repository, or nil if no
// request has populated it yet.
func (s *Store) Load(repoID string) *Repo {
	return s.slot(repoID).Load()
}

// Swap publishes a new generation for the repository.
func (s *Store) Swap(r *Repo) {
	s.slot(r.ID).Store(r)
}

func (s *Store) slot(repoID string) *atomic.Pointer[Repo] {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.repos[repoID]
	if !ok {
		p = &atomic.Pointer[Repo]{}
		s.repos[repoID] = p
	}
	return p
}
