package command

import (
	"net/url"
	"regexp"
	"strings"
)

// placeholder marks where escaped search terms go in a Site template.
const placeholder = "{query}"

// Site is a search destination the classifier recognizes by name.
type Site struct {
	Key      string // lowercase name as spoken, e.g. "stack overflow"
	Template string // search URL containing placeholder exactly once
	Home     string // landing page, used to seed the websites registry
}

// Sites is the fixed search table. Order decides which entry claims a query
// that more than one pattern could match.
var Sites = []Site{
	{Key: "youtube", Template: "https://www.youtube.com/results?search_query={query}", Home: "https://www.youtube.com"},
	{Key: "google", Template: "https://www.google.com/search?q={query}", Home: "https://www.google.com"},
	{Key: "bing", Template: "https://www.bing.com/search?q={query}", Home: "https://www.bing.com"},
	{Key: "duckduckgo", Template: "https://duckduckgo.com/?q={query}", Home: "https://duckduckgo.com"},
	{Key: "amazon", Template: "https://www.amazon.com/s?k={query}", Home: "https://www.amazon.com"},
	{Key: "wikipedia", Template: "https://en.wikipedia.org/w/index.php?search={query}", Home: "https://en.wikipedia.org"},
	{Key: "github", Template: "https://github.com/search?q={query}", Home: "https://github.com"},
	{Key: "stack overflow", Template: "https://stackoverflow.com/search?q={query}", Home: "https://stackoverflow.com"},
}

// DefaultSearchSite is the table entry used for generic web searches.
const DefaultSearchSite = "google"

// LookupSite returns the table entry for key.
func LookupSite(key string) (Site, bool) {
	for _, s := range Sites {
		if s.Key == key {
			return s, true
		}
	}
	return Site{}, false
}

// SearchURL escapes terms once (spaces become "+") and substitutes them for
// the template placeholder.
func (s Site) SearchURL(terms string) string {
	return strings.Replace(s.Template, placeholder, url.QueryEscape(terms), 1)
}

// HomePages maps every table key to its landing page.
func HomePages() map[string]string {
	out := make(map[string]string, len(Sites))
	for _, s := range Sites {
		out[s.Key] = s.Home
	}
	return out
}

// domainPattern matches label.label.tld shapes with an alphabetic TLD of at
// least two letters, followed by a path, a word boundary or the end.
var domainPattern = regexp.MustCompile(`^([a-z0-9_-]+\.)+[a-z]{2,}(/|$|\b)`)

// schemePattern matches an explicit URL scheme such as "https://".
var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// IsLikelyURL is a heuristic, not a validator. "notes.txt" counts as a URL
// and "localhost" does not; both are accepted imprecisions.
func IsLikelyURL(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "www.") {
		return true
	}
	return domainPattern.MatchString(lower)
}

// WithScheme prefixes raw with https:// unless it already names a scheme.
func WithScheme(raw string) string {
	if schemePattern.MatchString(raw) {
		return raw
	}
	return "https://" + raw
}
