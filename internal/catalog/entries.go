package catalog

// DefaultEntries builds the full command table described in spec §4.8: the
// flat commands plus the page and auth groups. Both the interactive CLI and
// the batch runner construct their Catalog from this table.
func DefaultEntries() []Entry {
	return []Entry{
		{ID: "navigate", CanonicalName: "navigate", BatchEnabled: true, Handler: navigateHandler},
		{ID: "click", CanonicalName: "click", BatchEnabled: true, Handler: clickHandler},
		{ID: "fill", CanonicalName: "fill", BatchEnabled: true, Handler: fillHandler},
		{ID: "wait", CanonicalName: "wait", BatchEnabled: true, Handler: waitHandler},
		{ID: "screenshot", CanonicalName: "screenshot", BatchEnabled: true, Handler: screenshotHandler},

		{ID: "page.text", CanonicalName: "page.text", BatchEnabled: true, Handler: pageTextHandler},
		{ID: "page.html", CanonicalName: "page.html", BatchEnabled: true, Handler: pageHTMLHandler},
		{ID: "page.eval", CanonicalName: "page.eval", BatchEnabled: true, Handler: pageEvalHandler},
		{ID: "page.elements", CanonicalName: "page.elements", BatchEnabled: true, Handler: pageElementsHandler},
		{ID: "page.snapshot", CanonicalName: "page.snapshot", BatchEnabled: true, Handler: pageSnapshotHandler},
		{ID: "page.console", CanonicalName: "page.console", BatchEnabled: true, Handler: pageConsoleHandler},
		{ID: "page.read", CanonicalName: "page.read", BatchEnabled: true, Handler: pageReadHandler},
		{ID: "page.coords", CanonicalName: "page.coords", BatchEnabled: true, Handler: pageCoordsHandler},
		{ID: "page.coords_all", CanonicalName: "page.coords_all", BatchEnabled: true, Handler: pageCoordsAllHandler},

		{ID: "auth.save", CanonicalName: "auth.save", BatchEnabled: true, Handler: authSaveHandler},
		{ID: "auth.list", CanonicalName: "auth.list", BatchEnabled: true, Handler: authListHandler},

		{ID: "stats", CanonicalName: "stats", BatchEnabled: true, Handler: statsHandler},
	}
}
