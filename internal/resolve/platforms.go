package resolve

import (
	"regexp"
	"sort"
	"strings"

	"github.com/doesdev/oneclick-update/internal/release"
)

// Filter picks the best-matching asset for one platform, or nil when none
// qualifies. Caller-registered filters are tried before the built-in one
// for the same platform name.
type Filter func(assets []*release.Asset, action Action, arch, ext string) *release.Asset

var builtinFilters = map[string]Filter{
	"win32":  win32Filter,
	"darwin": darwinFilter,
	"linux":  linuxFilter,
	"nupkg":  nupkgFilter,
}

// SelectAsset resolves a single asset. An explicit filename matching an
// asset by exact name wins immediately, bypassing the platform heuristics.
// No filter for the platform means no asset, which is a miss rather than
// an error.
func (rs *Resolver) SelectAsset(assets []*release.Asset, platform string, action Action, arch, ext, filename string) *release.Asset {
	if filename != "" {
		for _, a := range assets {
			if a.Name == filename {
				return a
			}
		}
	}

	if f, ok := rs.filters[platform]; ok {
		if a := f(assets, action, arch, ext); a != nil {
			return a
		}
	}
	if f, ok := builtinFilters[platform]; ok {
		return f(assets, action, arch, ext)
	}
	return nil
}

// filterExt keeps assets whose filename's final dot-delimited segment
// equals ext. Asset names are matched as stored; hints are expected to
// arrive lowercased.
func filterExt(assets []*release.Asset, ext string) []*release.Asset {
	ext = strings.TrimPrefix(ext, ".")
	matched := make([]*release.Asset, 0, len(assets))
	for _, a := range assets {
		if i := strings.LastIndex(a.Name, "."); i >= 0 && a.Name[i+1:] == ext {
			matched = append(matched, a)
		}
	}
	return matched
}

// firstForArch breaks a tie by architecture: assets whose filename
// contains "64" are grouped after the rest, an "x64" hint takes the last
// element and anything else the first. This is filename-substring
// detection, not a CPU-architecture parser; keep it as-is.
func firstForArch(assets []*release.Asset, arch string) *release.Asset {
	if len(assets) == 0 {
		return nil
	}
	sorted := make([]*release.Asset, len(assets))
	copy(sorted, assets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return !strings.Contains(sorted[i].Name, "64") && strings.Contains(sorted[j].Name, "64")
	})
	if arch == "x64" {
		return sorted[len(sorted)-1]
	}
	return sorted[0]
}

func pickOne(assets []*release.Asset, arch string) *release.Asset {
	if len(assets) == 0 {
		return nil
	}
	if len(assets) == 1 {
		return assets[0]
	}
	return firstForArch(assets, arch)
}

func win32Filter(assets []*release.Asset, action Action, arch, ext string) *release.Asset {
	switch action {
	case ActionDownload, ActionUpdate:
		if ext == "" {
			ext = "exe"
		}
		return pickOne(filterExt(assets, ext), arch)
	case ActionRelease:
		manifests := make([]*release.Asset, 0, 1)
		for _, a := range assets {
			if strings.HasPrefix(a.Name, "RELEASES") {
				manifests = append(manifests, a)
			}
		}
		return pickOne(manifests, arch)
	}
	return nil
}

var macNameRe = regexp.MustCompile(`(?i)mac|osx|darwin`)

func darwinFilter(assets []*release.Asset, action Action, arch, ext string) *release.Asset {
	exts := []string{"dmg", "pkg", "zip"}
	switch action {
	case ActionUpdate:
		// differential updates ship as zip; symbol bundles never qualify
		exts = []string{"zip"}
		withoutSymbols := make([]*release.Asset, 0, len(assets))
		for _, a := range assets {
			if !strings.Contains(a.Name, "symbols") {
				withoutSymbols = append(withoutSymbols, a)
			}
		}
		assets = withoutSymbols
	case ActionDownload:
		if ext != "" {
			exts = []string{ext}
		}
	default:
		return nil
	}

	for _, e := range exts {
		matched := filterExt(assets, e)
		if e == "zip" && len(matched) > 1 {
			named := make([]*release.Asset, 0, len(matched))
			for _, a := range matched {
				if macNameRe.MatchString(a.Name) {
					named = append(named, a)
				}
			}
			if len(named) > 0 {
				matched = named
			}
		}
		if a := pickOne(matched, arch); a != nil {
			return a
		}
	}
	return nil
}

func linuxFilter(assets []*release.Asset, action Action, arch, ext string) *release.Asset {
	if action != ActionDownload && action != ActionUpdate {
		return nil
	}
	exts := []string{"deb", "rpm", "AppImage", "gz", "zip"}
	if ext != "" {
		exts = []string{ext}
	}

	for _, e := range exts {
		matched := filterExt(assets, e)
		if e == "zip" {
			named := make([]*release.Asset, 0, len(matched))
			for _, a := range matched {
				if strings.Contains(a.Name, "linux") {
					named = append(named, a)
				}
			}
			matched = named
		}
		if a := pickOne(matched, arch); a != nil {
			return a
		}
	}
	return nil
}

func nupkgFilter(assets []*release.Asset, _ Action, _, _ string) *release.Asset {
	matched := filterExt(assets, "nupkg")
	if len(matched) == 0 {
		return nil
	}
	return matched[0]
}
