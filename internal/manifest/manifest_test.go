package manifest

import (
	"testing"

	"github.com/doesdev/oneclick-update/internal/release"
	"github.com/stretchr/testify/require"
)

func channelRelease(tag string, names ...string) *release.Release {
	r := &release.Release{Tag: tag}
	for _, n := range names {
		r.Assets = append(r.Assets, &release.Asset{
			Name:        n,
			DownloadURL: "https://github.com/doesdev/oneclick-release-test/releases/download/" + tag + "/" + n,
		})
	}
	return r
}

func TestRewritePublicAssetURL(t *testing.T) {
	ch := channelRelease("v1.2.3", "myapp-1.2.3-full.nupkg")
	raw := "ABCDEF0123456789 myapp-1.2.3-full.nupkg 12345\n"

	out := Rewrite(raw, ch, false, "")

	want := "ABCDEF0123456789 " + ch.Assets[0].DownloadURL + " 12345\n"
	require.Equal(t, want, out)
}

func TestRewritePreservesOrderAndFields(t *testing.T) {
	ch := channelRelease("v1.2.3", "app-1.2.3-delta.nupkg", "app-1.2.3-full.nupkg")
	raw := "AAAA app-1.2.3-delta.nupkg 100\nBBBB app-1.2.3-full.nupkg 200"

	out := Rewrite(raw, ch, false, "")

	want := "AAAA " + ch.Assets[0].DownloadURL + " 100\n" +
		"BBBB " + ch.Assets[1].DownloadURL + " 200"
	require.Equal(t, want, out)
}

func TestRewriteUnknownTokenUsesServerURL(t *testing.T) {
	ch := channelRelease("v1.2.3")
	raw := "AAAA other-1.0.0-full.nupkg 100"

	out := Rewrite(raw, ch, false, "https://updates.example.com")

	require.Equal(t, "AAAA https://updates.example.com/download/nupkg/1.2.3/other-1.0.0-full.nupkg 100", out)
}

func TestRewritePrivateAlwaysUsesServerURL(t *testing.T) {
	ch := channelRelease("v1.2.3", "app-1.2.3-full.nupkg")
	raw := "AAAA app-1.2.3-full.nupkg 100"

	out := Rewrite(raw, ch, true, "https://updates.example.com")

	require.Equal(t, "AAAA https://updates.example.com/download/nupkg/1.2.3/app-1.2.3-full.nupkg 100", out)
}

func TestRewriteIncludesChannelSegment(t *testing.T) {
	ch := channelRelease("v1.2.3-beta.1")
	ch.Channel = "beta"
	raw := "AAAA app-1.2.3-full.nupkg 100"

	out := Rewrite(raw, ch, true, "https://updates.example.com")

	require.Equal(t, "AAAA https://updates.example.com/download/beta/nupkg/1.2.3-beta.1/app-1.2.3-full.nupkg 100", out)
}

func TestRewritePercentEncodesToken(t *testing.T) {
	ch := channelRelease("v1.2.3")
	raw := "AAAA app%1.nupkg 100"

	out := Rewrite(raw, ch, true, "https://updates.example.com")

	require.Equal(t, "AAAA https://updates.example.com/download/nupkg/1.2.3/app%251.nupkg 100", out)
}

func TestRewriteLeavesMalformedRecordsAlone(t *testing.T) {
	ch := channelRelease("v1.2.3")
	raw := "not a manifest line at all\n\nAAAA app.nupkg 100"

	out := Rewrite(raw, ch, true, "https://updates.example.com")

	require.Equal(t, "not a manifest line at all\n\nAAAA https://updates.example.com/download/nupkg/1.2.3/app.nupkg 100", out)
}
