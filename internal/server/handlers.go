package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doesdev/oneclick-update/internal/cache"
	"github.com/doesdev/oneclick-update/internal/channel"
	"github.com/doesdev/oneclick-update/internal/events"
	"github.com/doesdev/oneclick-update/internal/manifest"
	"github.com/doesdev/oneclick-update/internal/metrics"
	"github.com/doesdev/oneclick-update/internal/release"
	"github.com/doesdev/oneclick-update/internal/resolve"
	"github.com/doesdev/oneclick-update/internal/upstream"
	"github.com/doesdev/oneclick-update/internal/version"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
)

// repoCache returns the current cache generation for the configured
// repository, refreshing it from GitHub when absent or expired. The
// refresh is serialized behind a semaphore and published with an atomic
// swap, so concurrent readers either see the old generation or the new
// one, never a mix.
func (s *Server) repoCache(ctx context.Context) (*cache.Repo, error) {
	repo := s.store.Load(s.config.Repo)
	if repo != nil && !repo.Expired(s.store.Interval()) {
		return repo, nil
	}

	if err := s.ghSemaphore.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("could not acquire refresh semaphore: %w", err)
	}
	defer s.ghSemaphore.Release(1)

	// another request may have refreshed while we waited
	repo = s.store.Load(s.config.Repo)
	if repo != nil && !repo.Expired(s.store.Interval()) {
		return repo, nil
	}

	var private bool
	if repo != nil {
		// visibility is probed once, then carried across generations
		private = repo.Private
	} else {
		p, err := upstream.IsPrivate(ctx, s.ghClient, s.config.Repo)
		if err != nil {
			return nil, err
		}
		private = p
		if private && s.config.ServerURL == "" {
			s.log.Warn("for private repos we recommend setting SERVER_URL; deriving it from request headers is not guaranteed to produce the correct return URL and adds per-request overhead")
		}
	}

	releases, err := upstream.ListReleases(ctx, s.ghClient, s.config.Repo)
	if err != nil {
		return nil, err
	}

	repo = cache.NewRepo(s.config.Repo, private, releases, channel.Classify(releases, nil))
	s.store.Swap(repo)
	stats.Record(ctx, metrics.CounterUpstreamRefresh.M(1))
	return repo, nil
}

type actionRequest struct {
	repo      *cache.Repo
	ch        *release.Release
	action    resolve.Action
	platform  string
	pathLower string
	serverURL string
	arch      string
	ext       string
	filename  string
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	pathLower := strings.ToLower(r.URL.Path)

	var action resolve.Action
	switch {
	case strings.HasPrefix(pathLower, "/update"):
		action = resolve.ActionUpdate
		if strings.Contains(pathLower, "releases") {
			action = resolve.ActionRelease
		}
	case strings.HasPrefix(pathLower, "/download"):
		action = resolve.ActionDownload
	default:
		s.noContent(w)
		return
	}

	repo, err := s.repoCache(r.Context())
	if err != nil {
		s.writeJSONError(w, r, http.StatusBadGateway, err, "could not fetch releases from GitHub")
		return
	}

	ch := s.resolver.Channel(r.Context(), repo, pathLower)
	if ch == nil {
		s.noContent(w)
		return
	}

	platform := s.resolver.Platform(r.Context(), repo, pathLower, action, ch, r.Header.Get("User-Agent"))
	if platform == "" {
		s.noContent(w)
		return
	}

	serverURL := s.config.ServerURL
	if serverURL == "" && (repo.Private || action == resolve.ActionRelease) {
		serverURL = s.serverURLFromRequest(r.Context(), repo, pathLower, r)
		if serverURL == "" && repo.Private {
			s.requestLogger(r).Error("unable to determine serverUrl for private repo")
			s.noContent(w)
			return
		}
	}

	q := r.URL.Query()
	req := &actionRequest{
		repo:      repo,
		ch:        ch,
		action:    action,
		platform:  platform,
		pathLower: pathLower,
		serverURL: serverURL,
		arch:      strings.ToLower(q.Get("arch")),
		ext:       strings.ToLower(strings.TrimPrefix(q.Get("filetype"), ".")),
		filename:  q.Get("filename"),
	}

	switch action {
	case resolve.ActionDownload:
		s.handleDownload(w, r, req)
	case resolve.ActionUpdate:
		s.handleUpdate(w, r, req)
	case resolve.ActionRelease:
		s.handleReleases(w, r, req)
	}
}

func (s *Server) selectAsset(ctx context.Context, req *actionRequest) *release.Asset {
	key := strings.Join([]string{
		req.ch.Channel, string(req.action), req.platform, req.arch, req.ext, req.filename,
	}, "|")
	if cached, ok := req.repo.Get(ctx, cache.BucketAsset, key); ok {
		return cached.(*release.Asset)
	}

	asset := s.resolver.SelectAsset(req.ch.Assets, req.platform, req.action, req.arch, req.ext, req.filename)
	if asset != nil {
		req.repo.Set(cache.BucketAsset, key, asset)
	}
	return asset
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, req *actionRequest) {
	asset := s.selectAsset(r.Context(), req)
	if asset == nil {
		s.noContent(w)
		return
	}

	redirectURL := asset.DownloadURL
	if req.repo.Private {
		signed, err := upstream.SignedAssetURL(r.Context(), s.config.Token, asset)
		if err != nil {
			s.writeJSONError(w, r, http.StatusBadGateway, err, "could not resolve signed download URL")
			return
		}
		redirectURL = signed
	}

	mctx, _ := tag.New(r.Context(), tag.Upsert(metrics.TagPlatform, req.platform))
	stats.Record(mctx, metrics.CounterDownloads.M(1))
	s.downloads.Publish(events.Download{
		Repo:     req.repo.ID,
		Channel:  req.ch.Channel,
		Platform: req.platform,
		Asset:    asset.Name,
		Time:     time.Now(),
	})

	http.Redirect(w, r, redirectURL, http.StatusFound)
}

type updateResponse struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, req *actionRequest) {
	requested := s.resolver.Version(r.Context(), req.repo, req.pathLower, req.ch, req.platform)
	latest := version.Parse(req.ch.Tag)
	if requested != "" && latest.Valid && requested == latest.Normalized {
		// already on the channel's latest
		s.noContent(w)
		return
	}

	asset := s.selectAsset(r.Context(), req)
	if asset == nil {
		s.noContent(w)
		return
	}

	assetURL := asset.DownloadURL
	if req.repo.Private {
		// point back at this server so each download mints a fresh
		// signed URL; signed URLs expire too quickly to embed
		parts := []string{"download"}
		if req.ch.Channel != "" {
			parts = append(parts, req.ch.Channel)
		}
		parts = append(parts, req.platform)
		u, err := url.JoinPath(req.serverURL, parts...)
		if err != nil {
			s.writeJSONError(w, r, http.StatusInternalServerError, err, "could not build download URL")
			return
		}
		assetURL = u
	}

	s.writeJSON(w, &updateResponse{
		Name:  req.ch.Tag,
		Notes: req.ch.Body,
		Title: req.ch.Title,
		URL:   assetURL,
	})
}

func (s *Server) handleReleases(w http.ResponseWriter, r *http.Request, req *actionRequest) {
	asset := s.selectAsset(r.Context(), req)
	if asset == nil {
		s.noContent(w)
		return
	}

	var body string
	if cached, ok := req.repo.Get(r.Context(), cache.BucketManifest, req.pathLower); ok {
		body = cached.(string)
	} else {
		raw, err := upstream.FetchAssetBody(r.Context(), s.config.Token, asset, req.repo.Private)
		if err != nil {
			s.writeJSONError(w, r, http.StatusBadGateway, err, "could not fetch RELEASES manifest")
			return
		}
		body = manifest.Rewrite(raw, req.ch, req.repo.Private, req.serverURL)
		req.repo.Set(cache.BucketManifest, req.pathLower, body)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

// serverURLFromRequest derives the externally visible base URL from the
// Host header; the scheme is http only when the connection's local or
// remote port is 80.
func (s *Server) serverURLFromRequest(ctx context.Context, repo *cache.Repo, pathLower string, r *http.Request) string {
	if cached, ok := repo.Get(ctx, cache.BucketServerURL, pathLower); ok {
		return cached.(string)
	}

	if r.Host == "" {
		return ""
	}

	scheme := "https"
	if remotePort(r.RemoteAddr) == "80" || localPort(r) == "80" {
		scheme = "http"
	}

	serverURL := scheme + "://" + r.Host
	repo.Set(cache.BucketServerURL, pathLower, serverURL)
	return serverURL
}

func remotePort(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	return port
}

func localPort(r *http.Request) string {
	addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr)
	if !ok {
		return ""
	}
	return remotePort(addr.String())
}
