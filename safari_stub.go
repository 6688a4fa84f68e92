//go:build !darwin

package cookietap

import "context"

func readSafariConfig(_ context.Context, _ BrowserConfig, _ string) ([]Cookie, []string) {
	return nil, []string{"cookietap: Safari supported on macOS only"}
}
