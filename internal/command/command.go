// Package command classifies raw assistant queries into local commands.
//
// Classification is a pure function of the query text and read-only lookups
// against the known applications and websites. It never launches anything;
// the dispatch package executes the Command it returns.
package command

import "fmt"

// Kind names a Command variant. It is stable and used in logs and history.
type Kind string

const (
	KindNote          Kind = "note"
	KindSiteSearch    Kind = "site_search"
	KindOpenKnownSite Kind = "open_known_site"
	KindOpenApp       Kind = "open_app"
	KindOpenURL       Kind = "open_url"
	KindGenericSearch Kind = "generic_search"
	KindUnknownApp    Kind = "unknown_app"
	KindUnclassified  Kind = "unclassified"
)

// Command is the classified intent of a query. The set of implementations
// is closed to this package.
type Command interface {
	Kind() Kind
	isCommand()
}

// Note appends Text to the note log.
type Note struct {
	Text string
}

// SiteSearch searches Site (a key of the site table) for Terms.
type SiteSearch struct {
	Site  string
	Terms string
}

// OpenKnownSite opens the URL saved for Site in the websites registry.
// Label is the name as the user typed it.
type OpenKnownSite struct {
	Site  string
	Label string
}

// OpenApp launches the application saved under Name.
type OpenApp struct {
	Name string
}

// OpenURL opens a string that looks like a web address.
type OpenURL struct {
	URL string
}

// GenericSearch runs Terms through the default search engine.
type GenericSearch struct {
	Terms string
}

// UnknownApp means "open <Name>" matched nothing; the user has to teach the
// application path.
type UnknownApp struct {
	Name string
}

// Unclassified queries go to the conversation backend.
type Unclassified struct{}

func (Note) Kind() Kind          { return KindNote }
func (SiteSearch) Kind() Kind    { return KindSiteSearch }
func (OpenKnownSite) Kind() Kind { return KindOpenKnownSite }
func (OpenApp) Kind() Kind       { return KindOpenApp }
func (OpenURL) Kind() Kind       { return KindOpenURL }
func (GenericSearch) Kind() Kind { return KindGenericSearch }
func (UnknownApp) Kind() Kind    { return KindUnknownApp }
func (Unclassified) Kind() Kind  { return KindUnclassified }

func (Note) isCommand()          {}
func (SiteSearch) isCommand()    {}
func (OpenKnownSite) isCommand() {}
func (OpenApp) isCommand()       {}
func (OpenURL) isCommand()       {}
func (GenericSearch) isCommand() {}
func (UnknownApp) isCommand()    {}
func (Unclassified) isCommand()  {}

// Describe returns a short human-readable summary of c for logs and the CLI.
func Describe(c Command) string {
	switch c := c.(type) {
	case Note:
		return fmt.Sprintf("note %q", c.Text)
	case SiteSearch:
		return fmt.Sprintf("search %s for %q", c.Site, c.Terms)
	case OpenKnownSite:
		return fmt.Sprintf("open website %s", c.Site)
	case OpenApp:
		return fmt.Sprintf("launch app %s", c.Name)
	case OpenURL:
		return fmt.Sprintf("open url %s", c.URL)
	case GenericSearch:
		return fmt.Sprintf("web search %q", c.Terms)
	case UnknownApp:
		return fmt.Sprintf("unknown app %s", c.Name)
	default:
		return "forward to conversation"
	}
}

// ValidationError reports a query that matched a command grammar but is
// missing required text. The message is safe to show to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
