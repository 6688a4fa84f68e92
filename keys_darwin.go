//go:build darwin

package cookietap

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

func platformKeyProvider() KeyProvider { return darwinKeyProvider{} }

// darwinKeyProvider reads the browser's Safe Storage password from the macOS
// keychain via the `security` helper and derives a single candidate key.
type darwinKeyProvider struct{}

func (darwinKeyProvider) ChromiumKeys(ctx context.Context, cfg BrowserConfig, timeout time.Duration) ([][]byte, error) {
	password := strings.TrimSpace(os.Getenv(envSafeStoragePassword(cfg.Browser)))
	if password == "" {
		var err error
		password, err = keychainPassword(ctx, timeout, cfg.SafeStorageService, cfg.SafeStorageAccount)
		if err != nil {
			return nil, fmt.Errorf("keychain lookup (%s): %w", cfg.SafeStorageService, err)
		}
	}
	if password == "" {
		return nil, fmt.Errorf("keychain returned an empty %s password", cfg.SafeStorageService)
	}

	return [][]byte{deriveSafeStorageKey(password, iterationsMacOS)}, nil
}

func keychainPassword(ctx context.Context, timeout time.Duration, service, account string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout, stderr, err := execCapture(cctx, "security", []string{
		"find-generic-password",
		"-w",
		"-a", account,
		"-s", service,
	})
	if err != nil {
		if stderr != "" {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr))
		}
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}
