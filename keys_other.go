//go:build !darwin && !linux && !windows

package cookietap

import (
	"context"
	"errors"
	"time"
)

func platformKeyProvider() KeyProvider { return unsupportedKeyProvider{} }

type unsupportedKeyProvider struct{}

func (unsupportedKeyProvider) ChromiumKeys(context.Context, BrowserConfig, time.Duration) ([][]byte, error) {
	return nil, errors.New("chromium key retrieval unsupported on this OS")
}
