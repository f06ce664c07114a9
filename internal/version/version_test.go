package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	v := Parse("v1.2.3-beta.1")
	require.True(t, v.Valid)
	require.Equal(t, "1.2.3-beta.1", v.Normalized)
	require.Equal(t, []string{"beta", "1"}, v.Prerelease)

	v = Parse("2.0.0")
	require.True(t, v.Valid)
	require.Equal(t, "2.0.0", v.Normalized)
	require.Nil(t, v.Prerelease)

	v = Parse("v1.2.3+vendor-a")
	require.True(t, v.Valid)
	require.Equal(t, "1.2.3", v.Normalized)
}

func TestParseInvalid(t *testing.T) {
	for _, tag := range []string{"", "1.2", "01.2.3", "not-a-version", "v1.2.3.4", "version1.2.3"} {
		v := Parse(tag)
		require.False(t, v.Valid, "tag %q should be invalid", tag)
		require.Empty(t, v.Normalized)
	}
}

func TestParseMemoized(t *testing.T) {
	require.Same(t, Parse("v3.2.1"), Parse("v3.2.1"))
}

func TestMajorDominates(t *testing.T) {
	// a strictly greater major wins regardless of pre-release suffixes
	pairs := [][2]string{
		{"2.0.0", "1.999.999"},
		{"2.0.0-beta.1", "1.999.999"},
		{"2.0.0-alpha", "1.0.0"},
		{"v10.0.0", "9.9.9-rc.5"},
	}
	for _, p := range pairs {
		require.True(t, Parse(p[0]).GreaterThan(Parse(p[1])), "%s > %s", p[0], p[1])
		require.False(t, Parse(p[1]).GreaterThan(Parse(p[0])), "%s !> %s", p[1], p[0])
	}
}

func TestMinorAndPatchOrdering(t *testing.T) {
	require.True(t, Parse("1.3.0").GreaterThan(Parse("1.2.999")))
	require.True(t, Parse("1.2.4").GreaterThan(Parse("1.2.3")))
	require.False(t, Parse("1.2.3").GreaterThan(Parse("1.2.3")))
}

func TestPrereleasePrecedence(t *testing.T) {
	// numeric pre-release tokens order by weighted position
	require.True(t, Parse("1.2.3-beta.2").GreaterThan(Parse("1.2.3-beta.1")))
	// the alpha token carries a penalty, so stable orders above it
	require.True(t, Parse("1.2.3").GreaterThan(Parse("1.2.3-alpha")))
	require.True(t, Parse("1.2.3-beta").GreaterThan(Parse("1.2.3-alpha")))
}

func TestEqualByNormalizedForm(t *testing.T) {
	require.True(t, Parse("v1.2.3").Equal(Parse("1.2.3")))
	require.False(t, Parse("1.2.3").Equal(Parse("1.2.3-beta")))
	require.False(t, Parse("1.2.3").GreaterThan(Parse("v1.2.3")))
}

func TestNormalizedIsIdempotent(t *testing.T) {
	for _, tag := range []string{"v1.2.3", "1.0.0-beta.1", "v9.9.9-rc.2+meta", "0.0.1-alpha"} {
		v := Parse(tag)
		rv := Parse(v.Normalized)
		require.True(t, rv.Valid)
		require.True(t, rv.Equal(v))
		require.False(t, rv.GreaterThan(v))
		require.False(t, v.GreaterThan(rv))
	}
}

func TestInvalidNeverCompares(t *testing.T) {
	bad := Parse("garbage")
	require.False(t, bad.Equal(bad))
	require.False(t, bad.GreaterThan(bad))
	require.False(t, bad.GreaterThan(Parse("1.0.0")))
	require.False(t, Parse("1.0.0").Equal(bad))
}
