package videoref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_EquivalentEncodings(t *testing.T) {
	want := Ref("https://www.youtube.com/watch?v=abc123")

	inputs := []string{
		"https://www.youtube.com/embed/abc123",
		"https://www.youtube.com/embed/abc123?rel=0&autoplay=1",
		"//www.youtube.com/embed/abc123",
		"https://www.youtube-nocookie.com/embed/abc123",
		"https://youtu.be/abc123",
		"https://youtu.be/abc123?t=42",
		"https://www.youtube.com/watch?v=abc123",
		"https://m.youtube.com/watch?v=abc123&list=PL1",
		"http://youtube.com/watch?feature=share&v=abc123",
		"https://www.youtube.com/watch?v=abc123&amp;t=5",
		"https://cdn.embedly.com/widgets/media.html?url=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3Dabc123&type=text%2Fhtml",
		"//cdn.embedly.com/widgets/media.html?src=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3Dabc123",
		"https://cdn.embedly.com/widgets/media.html?url=https%253A%252F%252Fwww.youtube.com%252Fwatch%253Fv%253Dabc123",
		"  https://youtu.be/abc123  ",
	}
	for _, in := range inputs {
		got, ok := Normalize(in)
		if assert.True(t, ok, "Normalize(%q) rejected", in) {
			assert.Equal(t, want, got, "Normalize(%q)", in)
		}
	}
}

func TestNormalize_Rejects(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"not a url",
		"::::",
		"https://vimeo.com/12345",
		"https://www.youtube.com/",
		"https://www.youtube.com/channel/UC123",
		"https://www.youtube.com/embed/",
		"https://youtu.be/",
		"https://www.youtube.com/watch?v=bad%20id",
		"javascript:alert(1)",
		"ftp://youtu.be/abc123",
		"https://cdn.embedly.com/widgets/media.html?url=https%3A%2F%2Fvimeo.com%2F1",
		"https://cdn.embedly.com/widgets/media.html",
		"https://notyoutube.com/watch?v=abc123",
	}
	for _, in := range inputs {
		got, ok := Normalize(in)
		assert.False(t, ok, "Normalize(%q) = %q, want rejection", in, got)
		assert.Empty(t, got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range []string{
		"https://youtu.be/x_Y-z9",
		"https://www.youtube.com/embed/x_Y-z9",
		"https://cdn.embedly.com/widgets/media.html?url=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3Dx_Y-z9",
	} {
		first, ok := Normalize(in)
		require.True(t, ok, in)
		second, ok := Normalize(first.String())
		require.True(t, ok, first)
		assert.Equal(t, first, second)
	}
}

func TestNormalize_WrapperUnwrapsOnce(t *testing.T) {
	// An embedly wrapper around another embedly wrapper is not followed.
	inner := "https://cdn.embedly.com/widgets/media.html?url=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3Dabc123"
	outer := "https://cdn.embedly.com/widgets/media.html?url=" + urlEscape(inner) + "&note=youtube.com/watch"
	_, ok := Normalize(outer)
	assert.False(t, ok)
}

func TestRef_ID(t *testing.T) {
	ref, ok := Normalize("https://youtu.be/abc123")
	require.True(t, ok)
	assert.Equal(t, "abc123", ref.ID())
}

func TestMatchesHost(t *testing.T) {
	assert.True(t, MatchesHost("https://www.youtube.com/embed/abc"))
	assert.True(t, MatchesHost("//youtu.be/abc"))
	assert.True(t, MatchesHost("https://www.youtube-nocookie.com/embed/abc"))
	assert.True(t, MatchesHost("https://cdn.embedly.com/widgets/media.html?url=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3Dabc"))
	assert.False(t, MatchesHost("https://cdn.embedly.com/widgets/media.html?url=https%3A%2F%2Fvimeo.com%2F1"))
	assert.False(t, MatchesHost("https://lms.example.edu/d2l/le/content/1/viewContent/2/View"))
	assert.False(t, MatchesHost("about:blank"))
	assert.False(t, MatchesHost(""))
}

func TestFromID(t *testing.T) {
	ref, ok := FromID("dQw4w9WgXcQ")
	require.True(t, ok)
	assert.Equal(t, Ref("https://www.youtube.com/watch?v=dQw4w9WgXcQ"), ref)

	for _, bad := range []string{"", "../etc", "a/b", "id?x=1", "a b"} {
		_, ok := FromID(bad)
		assert.False(t, ok, "FromID(%q)", bad)
	}
}
