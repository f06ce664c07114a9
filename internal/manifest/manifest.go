// Package manifest rewrites differential-update (RELEASES) manifests so
// their package tokens resolve outside the origin repository.
package manifest

import (
	"net/url"
	"strings"

	"github.com/doesdev/oneclick-update/internal/release"
	"github.com/doesdev/oneclick-update/internal/version"
)

// Rewrite replaces the filename token of each manifest record with a
// resolvable URL. Records are newline-separated with exactly three
// space-separated fields: hash, token, size. For public repositories a
// token naming one of the channel release's assets becomes that asset's
// download URL; anything else becomes a same-origin
// /download/[{channel}/]nupkg/{version}/{token} URL under serverURL.
// Hash and size fields, record order, and the separator convention pass
// through untouched; malformed records are left as-is.
func Rewrite(raw string, ch *release.Release, private bool, serverURL string) string {
	ver := version.Parse(ch.Tag).Normalized

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		fields := strings.Split(line, " ")
		if len(fields) != 3 {
			continue
		}
		fields[1] = resolveToken(fields[1], ch, private, serverURL, ver)
		lines[i] = strings.Join(fields, " ")
	}
	return strings.Join(lines, "\n")
}

func resolveToken(token string, ch *release.Release, private bool, serverURL, ver string) string {
	if !private {
		if a := ch.AssetByName(token); a != nil {
			return a.DownloadURL
		}
	}

	parts := []string{"download"}
	if ch.Channel != "" {
		parts = append(parts, strings.Split(ch.Channel, "/")...)
	}
	parts = append(parts, "nupkg", ver, token)
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(serverURL, "/") + "/" + strings.Join(parts, "/")
}
