package command

import "strings"

// Catalog is the read-only view of the registries the classifier needs.
type Catalog interface {
	App(name string) (string, bool)
	Website(name string) (string, bool)
}

// rule inspects a query and returns a Command when it matches. A nil
// Command with a nil error means "no match, try the next rule".
type rule struct {
	name  string
	match func(c *Classifier, query string) (Command, error)
}

// rules run in priority order; several prefixes overlap, so the order is
// part of the grammar.
var rules = []rule{
	{name: "note", match: (*Classifier).matchNote},
	{name: "site_search", match: (*Classifier).matchSiteSearch},
	{name: "open", match: (*Classifier).matchOpen},
	{name: "search", match: (*Classifier).matchSearch},
}

var (
	notePrefixes   = []string{"note:", "remember:"}
	searchPrefixes = []string{"search ", "google ", "find "}
)

const openPrefix = "open "

// Classifier turns raw queries into Commands.
type Classifier struct {
	catalog Catalog
}

// NewClassifier creates a classifier backed by catalog.
func NewClassifier(catalog Catalog) *Classifier {
	return &Classifier{catalog: catalog}
}

// Classify returns the first matching Command, or Unclassified. The error is
// a *ValidationError when the query names a command but leaves out its
// argument.
func (c *Classifier) Classify(query string) (Command, error) {
	for _, r := range rules {
		cmd, err := r.match(c, query)
		if err != nil {
			return nil, err
		}
		if cmd != nil {
			return cmd, nil
		}
	}
	return Unclassified{}, nil
}

func (c *Classifier) matchNote(query string) (Command, error) {
	for _, p := range notePrefixes {
		if hasPrefixFold(query, p) {
			text := strings.TrimSpace(query[len(p):])
			if text == "" {
				return nil, &ValidationError{Message: "Note cannot be empty."}
			}
			return Note{Text: text}, nil
		}
	}
	return nil, nil
}

// matchSiteSearch tests the whole query against every site's patterns.
func (c *Classifier) matchSiteSearch(query string) (Command, error) {
	for _, site := range Sites {
		patterns := []string{
			"open " + site.Key + " ",
			"search " + site.Key + " for ",
			"search " + site.Key + " ",
		}
		if site.Key == "google" {
			patterns = append(patterns, "google ")
		}

		for _, p := range patterns {
			if !hasPrefixFold(query, p) {
				continue
			}
			if terms := strings.TrimSpace(query[len(p):]); terms != "" {
				return SiteSearch{Site: site.Key, Terms: terms}, nil
			}
		}

		if strings.EqualFold(strings.TrimSpace(query), "open "+site.Key) {
			if _, ok := c.catalog.Website(site.Key); ok {
				return OpenKnownSite{Site: site.Key, Label: site.Key}, nil
			}
		}
	}
	return nil, nil
}

func (c *Classifier) matchOpen(query string) (Command, error) {
	if !hasPrefixFold(query, openPrefix) {
		return nil, nil
	}
	target, err := targetAfter(query, openPrefix)
	if err != nil {
		return nil, err
	}

	if _, ok := c.catalog.App(target); ok {
		return OpenApp{Name: target}, nil
	}
	if _, ok := c.catalog.Website(target); ok {
		return OpenKnownSite{Site: strings.ToLower(target), Label: target}, nil
	}
	if IsLikelyURL(target) {
		return OpenURL{URL: target}, nil
	}
	return UnknownApp{Name: target}, nil
}

func (c *Classifier) matchSearch(query string) (Command, error) {
	for _, p := range searchPrefixes {
		if !hasPrefixFold(query, p) {
			continue
		}
		target, err := targetAfter(query, p)
		if err != nil {
			return nil, err
		}
		return GenericSearch{Terms: target}, nil
	}
	return nil, nil
}

func targetAfter(query, prefix string) (string, error) {
	target := strings.TrimSpace(query[len(prefix):])
	if target == "" {
		return "", &ValidationError{Message: "Please specify what to open or search for."}
	}
	return target, nil
}

// hasPrefixFold is strings.HasPrefix ignoring ASCII case. Prefixes are
// ASCII, so a byte-length slice of s is safe to compare.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
