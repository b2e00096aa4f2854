// factory.go — the connection.Factory implementation: turns a __create__
// event's (type, guid, initializer) into a concrete typed object. The spec
// is agnostic between a vtable-style interface and a tagged enum; this
// implementation keeps connection.Object as the minimal shared contract and
// a type switch here as the "tagged enum" side of that choice (see
// DESIGN.md's Open Question decision).
package objects

import (
	"encoding/json"
	"fmt"

	"github.com/dev-console/pwgo/internal/channel"
	"github.com/dev-console/pwgo/internal/connection"
)

// genericOwner wraps a bare channel.Owner for object types this package does
// not (yet) give dedicated behavior, so unrecognized-but-valid types still
// round-trip through the registry instead of aborting creation.
type genericOwner struct {
	owner *channel.Owner
}

func (g *genericOwner) ChannelOwner() *channel.Owner { return g.owner }

// NewFactory returns the connection.Factory wired to this package's object
// types, bound to conn for objects that need to send further messages.
func NewFactory(conn *connection.Connection) connection.Factory {
	return func(parent *channel.Owner, typeName, guid string, initializer json.RawMessage) (connection.Object, error) {
		owner := channel.NewOwner(parent, guid, typeName, initializer)

		switch typeName {
		case "Playwright":
			chromium, firefox, webkit := parsePlaywrightInitializer(initializer)
			return &Playwright{owner: owner, conn: conn, ChromiumGUID: chromium, FirefoxGUID: firefox, WebKitGUID: webkit}, nil

		case "BrowserType":
			return &BrowserType{owner: owner, conn: conn}, nil

		case "Browser":
			return &Browser{owner: owner, conn: conn}, nil

		case "Page":
			mainFrame, err := extractMainFrameGUID(initializer)
			if err != nil {
				return nil, fmt.Errorf("objects: create Page: %w", err)
			}
			return NewPage(owner, conn, mainFrame), nil

		case "Frame":
			return &Frame{owner: owner, conn: conn}, nil

		case "BrowserContext":
			return &BrowserContext{owner: owner, conn: conn}, nil

		case "Route":
			return &Route{owner: owner, conn: conn}, nil

		case "Download":
			url, suggested := parseDownloadInitializer(initializer)
			return &Download{owner: owner, conn: conn, URLValue: url, SuggestedFN: suggested}, nil

		case "Dialog":
			typ, message, defaultValue := parseDialogInitializer(initializer)
			return &Dialog{owner: owner, conn: conn, TypeValue: typ, MessageText: message, DefaultText: defaultValue}, nil

		default:
			// Unknown-but-valid object types (Request, Response,
			// ElementHandle, ...) still need a registry entry so later
			// events/dispose for their GUID resolve; they just don't get
			// typed method wrappers in this package.
			return &genericOwner{owner: owner}, nil
		}
	}
}

func extractMainFrameGUID(initializer json.RawMessage) (string, error) {
	var payload struct {
		MainFrame struct {
			GUID string `json:"guid"`
		} `json:"mainFrame"`
	}
	if err := json.Unmarshal(initializer, &payload); err != nil {
		return "", fmt.Errorf("decode Page initializer: %w", err)
	}
	return payload.MainFrame.GUID, nil
}
