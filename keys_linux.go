//go:build linux

package cookietap

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

func platformKeyProvider() KeyProvider { return linuxKeyProvider{} }

// keyringGet is swapped in tests.
var keyringGet = keyring.Get

// linuxKeyProvider derives a candidate key from the Secret Service entry
// when one exists, and always appends the two well-known fallbacks: older or
// keyring-less Chromium installs encrypt with the literal password "peanuts"
// or with the empty string.
type linuxKeyProvider struct{}

func (linuxKeyProvider) ChromiumKeys(ctx context.Context, cfg BrowserConfig, timeout time.Duration) ([][]byte, error) {
	var keys [][]byte

	if password := strings.TrimSpace(os.Getenv(envSafeStoragePassword(cfg.Browser))); password != "" {
		keys = append(keys, deriveSafeStorageKey(password, iterationsLinux))
	} else if password, err := keyringPassword(ctx, timeout, cfg.SafeStorageService, cfg.SafeStorageAccount); err == nil && password != "" {
		keys = append(keys, deriveSafeStorageKey(password, iterationsLinux))
	}

	keys = append(keys,
		deriveSafeStorageKey("peanuts", iterationsLinux),
		deriveSafeStorageKey("", iterationsLinux),
	)
	return keys, nil
}

// keyringPassword bounds the blocking go-keyring lookup: the D-Bus Secret
// Service can hang on locked or headless sessions.
func keyringPassword(ctx context.Context, timeout time.Duration, service, account string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type lookup struct {
		password string
		err      error
	}
	ch := make(chan lookup, 1)
	go func() {
		password, err := keyringGet(service, account)
		ch <- lookup{password: password, err: err}
	}()

	select {
	case l := <-ch:
		if l.err != nil {
			return "", l.err
		}
		return strings.TrimSpace(l.password), nil
	case <-cctx.Done():
		return "", cctx.Err()
	}
}
