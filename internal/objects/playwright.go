// playwright.go — the top-level Playwright object. The driver creates this
// unprompted as its very first __create__ event, with a driver-assigned guid
// the caller cannot predict; callers locate it via
// connection.WaitForObjectType instead of a known guid.
package objects

import (
	"encoding/json"

	"github.com/dev-console/pwgo/internal/channel"
	"github.com/dev-console/pwgo/internal/connection"
)

// Playwright is the root driver object, carrying the three BrowserType
// handles.
type Playwright struct {
	owner *channel.Owner
	conn  *connection.Connection

	ChromiumGUID string
	FirefoxGUID  string
	WebKitGUID   string
}

// ChannelOwner implements connection.Object.
func (p *Playwright) ChannelOwner() *channel.Owner { return p.owner }

// BrowserType resolves one of the cached BrowserType handles by name
// ("chromium", "firefox", "webkit").
func (p *Playwright) BrowserType(name string) (string, bool) {
	switch name {
	case "chromium":
		return p.ChromiumGUID, p.ChromiumGUID != ""
	case "firefox":
		return p.FirefoxGUID, p.FirefoxGUID != ""
	case "webkit":
		return p.WebKitGUID, p.WebKitGUID != ""
	default:
		return "", false
	}
}

func parsePlaywrightInitializer(raw json.RawMessage) (chromium, firefox, webkit string) {
	var payload struct {
		Chromium struct {
			GUID string `json:"guid"`
		} `json:"chromium"`
		Firefox struct {
			GUID string `json:"guid"`
		} `json:"firefox"`
		Webkit struct {
			GUID string `json:"guid"`
		} `json:"webkit"`
	}
	_ = json.Unmarshal(raw, &payload)
	return payload.Chromium.GUID, payload.Firefox.GUID, payload.Webkit.GUID
}
