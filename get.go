package cookietap

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// ErrNoHost is returned when the target URL does not contain a hostname.
var ErrNoHost = errors.New("cookietap: URL must include a host")

// resolveConfigs is swapped in tests to point at fixture stores.
var resolveConfigs = resolveBrowserConfigs

// Get extracts cookies for the host of opts.URL from every resolved browser
// store, merging them first-seen-wins in the fixed browser order. All
// per-browser and per-row failures are reported through Result.Warnings; the
// only hard error is a malformed or host-less URL.
func Get(ctx context.Context, opts Options) (Result, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}

	host, err := targetHost(opts.URL)
	if err != nil {
		return Result{}, err
	}

	allow := allowlistNames(opts.Names)

	browsers := opts.Browsers
	if len(browsers) == 0 {
		browsers = DefaultBrowsers()
	}
	browsers = slices.Compact(browsers)

	keys := opts.Keys
	if keys == nil {
		keys = platformKeyProvider()
	}

	var res Result

	reader, err := newStoreReader(sqliteDriverName)
	if err != nil {
		// Without the SQL engine no database-backed browser can be read.
		res.Warnings = append(res.Warnings, fmt.Sprintf("cookietap: cookie databases unavailable: %v", err))
		reader = nil
	}

	configs, warnings := resolveConfigs(browsers)
	res.Warnings = append(res.Warnings, warnings...)

	keyCache := make(map[string][][]byte)
	seen := make(map[string]struct{})

	for _, cfg := range configs {
		var cookies []Cookie
		var cfgWarnings []string

		switch cfg.Browser {
		case BrowserFirefox:
			if reader == nil {
				continue
			}
			cookies, cfgWarnings = readFirefoxConfig(ctx, reader, cfg, host)
		case BrowserSafari:
			cookies, cfgWarnings = readSafariConfig(ctx, cfg, host)
		default:
			if reader == nil {
				continue
			}
			candidates, keyWarnings := chromiumKeysFor(ctx, keys, keyCache, cfg, opts.Timeout)
			cfgWarnings = append(cfgWarnings, keyWarnings...)
			var readWarnings []string
			cookies, readWarnings = readChromiumConfig(ctx, reader, cfg, host, candidates)
			cfgWarnings = append(cfgWarnings, readWarnings...)
		}

		res.Warnings = append(res.Warnings, cfgWarnings...)

		for _, c := range cookies {
			if c.Name == "" || c.Value == "" {
				continue
			}
			if allow != nil {
				if _, ok := allow[strings.ToLower(c.Name)]; !ok {
					continue
				}
			}
			if _, dup := seen[c.Name]; dup {
				continue
			}
			seen[c.Name] = struct{}{}
			res.Cookies = append(res.Cookies, c)
		}
	}

	return res, nil
}

func targetHost(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("cookietap: invalid URL: %w", err)
	}
	host := normalizeHost(u.Hostname())
	if host == "" {
		return "", ErrNoHost
	}
	return host, nil
}

func allowlistNames(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	allow := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		allow[name] = struct{}{}
	}
	if len(allow) == 0 {
		return nil
	}
	return allow
}

// chromiumKeysFor fetches candidate keys once per (browser, user data dir)
// and replays the cached candidates for further profiles of the same install.
func chromiumKeysFor(ctx context.Context, provider KeyProvider, cache map[string][][]byte, cfg BrowserConfig, timeout time.Duration) ([][]byte, []string) {
	cacheKey := string(cfg.Browser) + "\x00" + cfg.UserDataDir
	if candidates, ok := cache[cacheKey]; ok {
		return candidates, nil
	}

	candidates, err := provider.ChromiumKeys(ctx, cfg, timeout)
	cache[cacheKey] = candidates
	if err != nil {
		return candidates, []string{fmt.Sprintf("cookietap: %s key retrieval failed: %v", cfg.Browser, err)}
	}
	return candidates, nil
}

func readChromiumConfig(ctx context.Context, reader *storeReader, cfg BrowserConfig, host string, keys [][]byte) ([]Cookie, []string) {
	rows, err := reader.chromiumRows(ctx, cfg.CookiesDB, host, time.Now())
	if err != nil {
		return nil, []string{fmt.Sprintf("cookietap: failed to read %s cookies (profile %q): %v", cfg.Browser, cfg.Profile, err)}
	}

	var warnings []string
	var out []Cookie
	for _, row := range rows {
		if !hostMatchesCookieDomain(host, row.hostKey) {
			continue
		}

		value := row.value
		if value == "" {
			if len(row.encryptedValue) == 0 || len(keys) == 0 {
				continue
			}
			decrypted, err := decryptCookieValue(row.encryptedValue, keys)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("cookietap: %s cookie %q (%s): %v", cfg.Browser, row.name, row.hostKey, err))
				continue
			}
			value = decrypted
		}

		out = append(out, Cookie{Name: row.name, Value: value})
	}
	return out, warnings
}

func readFirefoxConfig(ctx context.Context, reader *storeReader, cfg BrowserConfig, host string) ([]Cookie, []string) {
	rows, err := reader.firefoxRows(ctx, cfg.CookiesDB, host, time.Now())
	if err != nil {
		return nil, []string{fmt.Sprintf("cookietap: failed to read Firefox cookies (profile %q): %v", cfg.Profile, err)}
	}

	var out []Cookie
	for _, row := range rows {
		if !hostMatchesCookieDomain(host, row.host) {
			continue
		}
		out = append(out, Cookie{Name: row.name, Value: row.value})
	}
	return out, nil
}
