package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSites_TemplatesHaveOnePlaceholder(t *testing.T) {
	for _, s := range Sites {
		assert.Equal(t, 1, strings.Count(s.Template, placeholder), s.Key)
		assert.True(t, strings.HasPrefix(s.Home, "https://"), s.Key)
	}
}

func TestSearchURL_EscapesOnce(t *testing.T) {
	yt, ok := LookupSite("youtube")
	require.True(t, ok)

	assert.Equal(t, "https://www.youtube.com/results?search_query=lofi+beats", yt.SearchURL("lofi beats"))
	assert.Equal(t, "https://www.youtube.com/results?search_query=100%25+%26+more", yt.SearchURL("100% & more"))
	// Already-escaped input is escaped again exactly once, never decoded.
	assert.Equal(t, "https://www.youtube.com/results?search_query=a%252Bb", yt.SearchURL("a%2Bb"))
}

func TestLookupSite_Unknown(t *testing.T) {
	_, ok := LookupSite("myspace")
	assert.False(t, ok)
}

func TestHomePages(t *testing.T) {
	pages := HomePages()
	assert.Len(t, pages, len(Sites))
	assert.Equal(t, "https://stackoverflow.com", pages["stack overflow"])
}

func TestIsLikelyURL(t *testing.T) {
	yes := []string{
		"http://localhost:8080",
		"https://go.dev",
		"www.example",
		"example.com",
		"sub.example.co.uk",
		"example.com/path?q=1",
		"EXAMPLE.COM",
		"my-site.io",
		"notes.txt", // known false positive
	}
	no := []string{
		"spotify",
		"visual studio code",
		"3.14",
		"v1.2",
		"localhost",
		"",
	}
	for _, s := range yes {
		assert.True(t, IsLikelyURL(s), s)
	}
	for _, s := range no {
		assert.False(t, IsLikelyURL(s), s)
	}
}

func TestWithScheme(t *testing.T) {
	assert.Equal(t, "https://example.com", WithScheme("example.com"))
	assert.Equal(t, "https://www.example.com", WithScheme("www.example.com"))
	assert.Equal(t, "http://example.com", WithScheme("http://example.com"))
	assert.Equal(t, "HTTPS://example.com", WithScheme("HTTPS://example.com"))
	assert.Equal(t, "ftp://files.example.com", WithScheme("ftp://files.example.com"))
}
