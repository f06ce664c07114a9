package resolve

import (
	"context"
	"regexp"
	"strings"

	"github.com/doesdev/oneclick-update/internal/cache"
	"github.com/doesdev/oneclick-update/internal/channel"
	"github.com/doesdev/oneclick-update/internal/release"
	"github.com/doesdev/oneclick-update/internal/version"
)

// Action is the intent of a request.
type Action string

const (
	ActionDownload Action = "download"
	ActionUpdate   Action = "update"
	ActionRelease  Action = "release"
)

var builtinPlatforms = map[string]bool{
	"win32":  true,
	"darwin": true,
	"linux":  true,
	"nupkg":  true,
}

// Resolver resolves channels, platforms, versions, and assets for request
// paths. Caller-registered platform filters take priority over built-ins
// and extend the set of valid platform names.
type Resolver struct {
	filters map[string]Filter
}

func New(filters map[string]Filter) *Resolver {
	if filters == nil {
		filters = make(map[string]Filter)
	}
	return &Resolver{filters: filters}
}

// ValidPlatform reports whether the name is a built-in platform or one
// registered by configuration.
func (rs *Resolver) ValidPlatform(name string) bool {
	if builtinPlatforms[name] {
		return true
	}
	_, ok := rs.filters[name]
	return ok
}

// Channel finds the release whose channel name best matches the request
// path: a non-empty channel name matches if it is a substring of the path,
// the name with the most "/"-separated segments wins, and an
// equal-specificity tie keeps the earliest channel in map insertion order.
// With no match the default channel is used; nil means no content.
func (rs *Resolver) Channel(ctx context.Context, repo *cache.Repo, pathLower string) *release.Release {
	if cached, ok := repo.Get(ctx, cache.BucketChannel, pathLower); ok {
		return cached.(*release.Release)
	}

	var best *release.Release
	for _, name := range repo.Channels.Names() {
		if name == channel.DefaultChannel || !strings.Contains(pathLower, name) {
			continue
		}
		rel, _ := repo.Channels.Get(name)
		if best == nil || segments(name) > segments(best.Channel) {
			best = rel
		}
	}

	if best == nil {
		best, _ = repo.Channels.Get(channel.DefaultChannel)
	}
	if best == nil {
		return nil
	}

	repo.Set(cache.BucketChannel, pathLower, best)
	return best
}

// Platform extracts the platform segment from the path, falling back to
// User-Agent inference when the segment is absent or not a known platform.
// The download action is never cached: its outcome can vary per request
// with the User-Agent header.
func (rs *Resolver) Platform(ctx context.Context, repo *cache.Repo, pathLower string, action Action, ch *release.Release, userAgent string) string {
	cacheable := action != ActionDownload
	if cacheable {
		if cached, ok := repo.Get(ctx, cache.BucketPlatform, pathLower); ok {
			return cached.(string)
		}
	}

	p := stripActionRoot(pathLower)
	if ch.Channel != "" {
		p = strings.Replace(p, "/"+ch.Channel, "", 1)
	}

	platform := firstSegment(p)
	if !rs.ValidPlatform(platform) {
		platform = guessPlatform(userAgent)
	}

	if platform != "" && cacheable {
		repo.Set(cache.BucketPlatform, pathLower, platform)
	}
	return platform
}

// Version parses the path segment after action, channel, and platform as a
// version and returns its normalized form, or "" when absent or invalid.
// Used for update and release actions only.
func (rs *Resolver) Version(ctx context.Context, repo *cache.Repo, pathLower string, ch *release.Release, platform string) string {
	if cached, ok := repo.Get(ctx, cache.BucketVersion, pathLower); ok {
		return cached.(string)
	}

	p := stripActionRoot(pathLower)
	if ch.Channel != "" {
		p = strings.Replace(p, "/"+ch.Channel, "", 1)
	}
	p = strings.Replace(p, "/"+platform, "", 1)

	v := version.Parse(firstSegment(p))
	if !v.Valid {
		return ""
	}

	repo.Set(cache.BucketVersion, pathLower, v.Normalized)
	return v.Normalized
}

func stripActionRoot(p string) string {
	if strings.HasPrefix(p, "/download") {
		return strings.TrimPrefix(p, "/download")
	}
	return strings.Replace(p, "/update", "", 1)
}

func firstSegment(p string) string {
	parts := strings.Split(p, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func segments(name string) int {
	return len(strings.Split(name, "/"))
}

var uaParenRe = regexp.MustCompile(`\((.+?)\)`)

func guessPlatform(userAgent string) string {
	m := uaParenRe.FindStringSubmatch(userAgent)
	if len(m) < 2 {
		return ""
	}
	uaPlatform := strings.ToLower(m[1])
	if strings.Contains(uaPlatform, "windows") {
		return "win32"
	}
	if strings.Contains(uaPlatform, "mac") {
		return "darwin"
	}
	return ""
}
