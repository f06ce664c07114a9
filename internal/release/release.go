package release

import (
	"github.com/google/go-github/v59/github"
)

// Asset is a single downloadable binary attached to a release.
type Asset struct {
	ID          int64
	Name        string
	Size        int
	DownloadURL string
	// APIURL is the GitHub API endpoint for the asset; fetching it with a
	// token and an octet-stream Accept header yields a short-lived signed
	// URL for private repositories.
	APIURL string
}

// Release is one tagged release ingested from the upstream API. It is
// immutable after ingestion except for Channel, which the classifier
// assigns exactly once per cache generation.
type Release struct {
	Tag        string
	Title      string
	Body       string
	Prerelease bool
	Channel    string
	Assets     []*Asset
}

// AssetByName returns the asset with the exact filename, or nil.
func (r *Release) AssetByName(name string) *Asset {
	for _, a := range r.Assets {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// FromGitHub converts upstream repository releases into the internal
// model. Draft releases are dropped here so no later stage sees them.
func FromGitHub(ghReleases []*github.RepositoryRelease) []*Release {
	releases := make([]*Release, 0, len(ghReleases))
	for _, ghr := range ghReleases {
		if ghr.GetDraft() {
			continue
		}
		r := &Release{
			Tag:        ghr.GetTagName(),
			Title:      ghr.GetName(),
			Body:       ghr.GetBody(),
			Prerelease: ghr.GetPrerelease(),
			Assets:     make([]*Asset, 0, len(ghr.Assets)),
		}
		for _, gha := range ghr.Assets {
			r.Assets = append(r.Assets, &Asset{
				ID:          gha.GetID(),
				Name:        gha.GetName(),
				Size:        gha.GetSize(),
				DownloadURL: gha.GetBrowserDownloadURL(),
				APIURL:      gha.GetURL(),
			})
		}
		releases = append(releases, r)
	}
	return releases
}
