package cookietap

import "time"

// Browser identifies a cookie source family.
type Browser string

const (
	// BrowserChrome is Google Chrome.
	BrowserChrome Browser = "chrome"
	// BrowserChromium is Chromium.
	BrowserChromium Browser = "chromium"
	// BrowserEdge is Microsoft Edge.
	BrowserEdge Browser = "edge"
	// BrowserBrave is Brave Browser.
	BrowserBrave Browser = "brave"
	// BrowserVivaldi is Vivaldi.
	BrowserVivaldi Browser = "vivaldi"
	// BrowserOpera is Opera.
	BrowserOpera Browser = "opera"

	// BrowserFirefox is Mozilla Firefox.
	BrowserFirefox Browser = "firefox"

	// BrowserSafari is Apple Safari (macOS only).
	BrowserSafari Browser = "safari"
)

// DefaultBrowsers returns the fixed visit order. The first browser that
// carries a given cookie name wins during the merge, so the order matters.
func DefaultBrowsers() []Browser {
	return []Browser{
		BrowserChrome,
		BrowserEdge,
		BrowserBrave,
		BrowserChromium,
		BrowserVivaldi,
		BrowserOpera,
		BrowserFirefox,
		BrowserSafari,
	}
}

// BrowserConfig describes one discovered cookie store. Configs are resolved
// fresh on every call and never mutated afterwards.
type BrowserConfig struct {
	Browser   Browser
	Profile   string
	CookiesDB string

	// Chromium-family key retrieval metadata. UserDataDir locates the
	// "Local State" file on Windows; the Safe Storage pair names the
	// keychain/keyring entry on macOS and Linux.
	UserDataDir        string
	SafeStorageService string
	SafeStorageAccount string
}

// Cookie is a recovered cookie. Within one Get call at most one Cookie per
// distinct name survives.
type Cookie struct {
	Name  string
	Value string
}

// Result is returned by Get. Warnings carry every per-browser and per-row
// failure in encounter order; they never make the call itself fail.
type Result struct {
	Cookies  []Cookie
	Warnings []string
}

// Options configures cookie extraction.
type Options struct {
	// URL supplies the target host for domain filtering. It is the only
	// input whose failure aborts the whole call.
	URL string

	// Names is a case-insensitive allowlist of cookie names (empty means
	// "all names").
	Names []string

	// Browsers restricts and orders the sources. If empty,
	// DefaultBrowsers() is used.
	Browsers []Browser

	// Timeout bounds each OS secret-store helper call (keychain/keyring).
	Timeout time.Duration

	// Keys overrides the platform secret-key provider. Nil selects the
	// implementation for the running OS.
	Keys KeyProvider
}
