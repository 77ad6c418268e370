package registry

// Catalog joins the applications and websites stores for read-only lookups
// by the command classifier.
type Catalog struct {
	Apps     *Store
	Websites *Store
}

// App returns the executable path saved for name.
func (c Catalog) App(name string) (string, bool) {
	if c.Apps == nil {
		return "", false
	}
	return c.Apps.Lookup(name)
}

// Website returns the URL saved for name.
func (c Catalog) Website(name string) (string, bool) {
	if c.Websites == nil {
		return "", false
	}
	return c.Websites.Lookup(name)
}
