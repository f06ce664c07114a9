package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/doesdev/oneclick-update/internal/release"
	"github.com/google/go-github/v59/github"
	"github.com/hashicorp/go-retryablehttp"
)

var (
	defaultRetryableClient     *retryablehttp.Client
	defaultRetryableClientInit sync.Once
)

func getDefaultRetryableClient() *retryablehttp.Client {
	defaultRetryableClientInit.Do(func() {
		defaultRetryableClient = retryablehttp.NewClient()
		defaultRetryableClient.Logger = nil
		defaultRetryableClient.HTTPClient.Timeout = time.Minute
	})
	return defaultRetryableClient
}

// noRedirectClient stops at the first redirect so the Location header can
// be read back. Signed URLs for private assets come from that header.
var noRedirectClient = &http.Client{
	Timeout: time.Minute,
	CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func SplitRepo(fullRepo string) (string, string) {
	owner, repo, found := strings.Cut(fullRepo, "/")
	if !found {
		return "", ""
	}
	return owner, repo
}

// IsPrivate reports the repository's visibility. Errors (not found,
// inaccessible) propagate to the caller; there is no retry here.
func IsPrivate(ctx context.Context, ghClient *github.Client, fullRepo string) (bool, error) {
	owner, repo := SplitRepo(fullRepo)
	ghRepo, _, err := ghClient.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return false, fmt.Errorf("repo not found on GitHub: %s: %w", fullRepo, err)
	}
	return ghRepo.GetPrivate(), nil
}

// ListReleases fetches all releases for the repository, dropping drafts.
func ListReleases(ctx context.Context, ghClient *github.Client, fullRepo string) ([]*release.Release, error) {
	owner, repo := SplitRepo(fullRepo)
	ret := make([]*github.RepositoryRelease, 0)
	opts := &github.ListOptions{Page: 1, PerPage: 100}
	for {
		releases, resp, err := ghClient.Repositories.ListReleases(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		ret = append(ret, releases...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return release.FromGitHub(ret), nil
}

// SignedAssetURL exchanges a private asset's API URL for a short-lived
// signed download URL by requesting the asset without following the
// redirect and echoing its Location header.
func SignedAssetURL(ctx context.Context, token string, asset *release.Asset) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.APIURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/octet-stream")
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	res, err := noRedirectClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	location := res.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("no signed URL for asset %s (status %d)", asset.Name, res.StatusCode)
	}
	return location, nil
}

// FetchAssetBody downloads an asset's raw contents, used for RELEASES
// manifest files. Private assets go through the signed-URL exchange first;
// the signed URL itself must be fetched without auth headers.
func FetchAssetBody(ctx context.Context, token string, asset *release.Asset, private bool) (string, error) {
	url := asset.DownloadURL
	if private {
		signed, err := SignedAssetURL(ctx, token, asset)
		if err != nil {
			return "", err
		}
		url = signed
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	res, err := getDefaultRetryableClient().Do(req)
	if err != nil {
		return "", err
	}
	body, err := io.ReadAll(res.Body)
	_ = res.Body.Close()
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching asset %s failed with status %d", asset.Name, res.StatusCode)
	}
	return string(body), nil
}
