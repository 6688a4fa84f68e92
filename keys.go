package cookietap

import (
	"context"
	"strings"
	"time"
)

// KeyProvider produces candidate master keys for a Chromium-family cookie
// store. Candidates are ordered: the decryptor tries each in turn and keeps
// the first that works. The platform implementation is selected once per
// process by build tags; callers may substitute their own via Options.Keys.
type KeyProvider interface {
	ChromiumKeys(ctx context.Context, cfg BrowserConfig, timeout time.Duration) ([][]byte, error)
}

// envSafeStoragePassword names the env var that overrides the Safe Storage
// password for a browser, e.g. COOKIETAP_CHROME_SAFE_STORAGE_PASSWORD.
// Escape hatch for deterministic tooling/CI.
func envSafeStoragePassword(b Browser) string {
	return "COOKIETAP_" + strings.ToUpper(string(b)) + "_SAFE_STORAGE_PASSWORD"
}
