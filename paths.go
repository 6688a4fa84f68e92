package cookietap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-ini/ini"
)

type chromiumVendor struct {
	label string

	// "Safe Storage" secret identifier.
	safeStorageService string
	safeStorageAccount string
}

func chromiumVendorFor(b Browser) (chromiumVendor, bool) {
	switch b {
	case BrowserChrome:
		return chromiumVendor{label: "Chrome", safeStorageService: "Chrome Safe Storage", safeStorageAccount: "Chrome"}, true
	case BrowserChromium:
		return chromiumVendor{label: "Chromium", safeStorageService: "Chromium Safe Storage", safeStorageAccount: "Chromium"}, true
	case BrowserEdge:
		return chromiumVendor{label: "Microsoft Edge", safeStorageService: "Microsoft Edge Safe Storage", safeStorageAccount: "Microsoft Edge"}, true
	case BrowserBrave:
		return chromiumVendor{label: "Brave", safeStorageService: "Brave Safe Storage", safeStorageAccount: "Brave"}, true
	case BrowserVivaldi:
		return chromiumVendor{label: "Vivaldi", safeStorageService: "Vivaldi Safe Storage", safeStorageAccount: "Vivaldi"}, true
	case BrowserOpera:
		return chromiumVendor{label: "Opera", safeStorageService: "Opera Safe Storage", safeStorageAccount: "Opera"}, true
	default:
		return chromiumVendor{}, false
	}
}

// resolveBrowserConfigs probes the well-known per-OS locations of the given
// browsers and returns one config per existing cookie database, in browser
// order. Purely filesystem-state dependent: no caching, no content checks.
func resolveBrowserConfigs(browsers []Browser) ([]BrowserConfig, []string) {
	var configs []BrowserConfig
	var warnings []string

	for _, b := range browsers {
		switch b {
		case BrowserFirefox:
			found := firefoxConfigsFromRoots(firefoxRoots())
			if len(found) == 0 {
				warnings = append(warnings, "cookietap: Firefox cookie store not found")
				continue
			}
			configs = append(configs, found...)
		case BrowserSafari:
			found := safariConfigs()
			if len(found) == 0 {
				warnings = append(warnings, "cookietap: Safari cookie store not found")
				continue
			}
			configs = append(configs, found...)
		default:
			vendor, ok := chromiumVendorFor(b)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("cookietap: unsupported browser %q", b))
				continue
			}
			var found []BrowserConfig
			for _, root := range chromiumUserDataDirs(b) {
				found = append(found, chromiumConfigsFromRoot(b, vendor, root)...)
			}
			if len(found) == 0 {
				warnings = append(warnings, fmt.Sprintf("cookietap: %s cookie store not found", vendor.label))
				continue
			}
			configs = append(configs, found...)
		}
	}
	return configs, warnings
}

// chromiumConfigsFromRoot enumerates the profiles of one install root.
// Profile names come from the Local State info_cache; a root without a
// parsable Local State still gets the Default profile probed.
func chromiumConfigsFromRoot(b Browser, vendor chromiumVendor, root string) []BrowserConfig {
	var configs []BrowserConfig
	for _, profDir := range chromiumProfileDirs(root) {
		for _, dbPath := range []string{
			filepath.Join(root, profDir, "Network", "Cookies"),
			filepath.Join(root, profDir, "Cookies"),
		} {
			if !fileExists(dbPath) {
				continue
			}
			configs = append(configs, BrowserConfig{
				Browser:            b,
				Profile:            profDir,
				CookiesDB:          dbPath,
				UserDataDir:        root,
				SafeStorageService: vendor.safeStorageService,
				SafeStorageAccount: vendor.safeStorageAccount,
			})
		}
	}
	return configs
}

func chromiumProfileDirs(root string) []string {
	localStateBytes, err := os.ReadFile(filepath.Join(root, "Local State"))
	if err != nil {
		return []string{"Default"}
	}

	var localState struct {
		Profile struct {
			InfoCache map[string]json.RawMessage `json:"info_cache"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(localStateBytes, &localState); err != nil {
		return []string{"Default"}
	}
	if len(localState.Profile.InfoCache) == 0 {
		return []string{"Default"}
	}

	dirs := make([]string, 0, len(localState.Profile.InfoCache))
	for dir := range localState.Profile.InfoCache {
		dirs = append(dirs, dir)
	}
	// Map order is random; keep resolution deterministic.
	sort.Strings(dirs)
	return dirs
}

// firefoxConfigsFromRoots walks each root's profiles.ini and yields one
// config per profile whose cookies.sqlite exists.
func firefoxConfigsFromRoots(roots []string) []BrowserConfig {
	var configs []BrowserConfig
	for _, root := range roots {
		cfg, err := ini.Load(filepath.Join(root, "profiles.ini"))
		if err != nil {
			continue
		}

		for _, secName := range cfg.SectionStrings() {
			if !strings.HasPrefix(secName, "Profile") {
				continue
			}
			sec := cfg.Section(secName)
			profPath := filepath.FromSlash(sec.Key("Path").String())
			if profPath == "" {
				continue
			}
			if sec.Key("IsRelative").String() == "1" {
				profPath = filepath.Join(root, profPath)
			}
			dbPath := filepath.Join(profPath, "cookies.sqlite")
			if !fileExists(dbPath) {
				continue
			}

			profile := sec.Key("Name").String()
			if profile == "" {
				profile = filepath.Base(profPath)
			}
			configs = append(configs, BrowserConfig{
				Browser:   BrowserFirefox,
				Profile:   profile,
				CookiesDB: dbPath,
			})
		}
	}
	return configs
}
