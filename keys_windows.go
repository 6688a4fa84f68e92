//go:build windows

package cookietap

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

func platformKeyProvider() KeyProvider { return windowsKeyProvider{} }

const dpapiKeyPrefix = "DPAPI"

// windowsKeyProvider reads the base64 master key from the browser's
// "Local State" file and unprotects it with the current user's DPAPI. The
// unprotected bytes are the AES key as-is; no further derivation happens.
type windowsKeyProvider struct{}

func (windowsKeyProvider) ChromiumKeys(_ context.Context, cfg BrowserConfig, _ time.Duration) ([][]byte, error) {
	if cfg.UserDataDir == "" {
		return nil, errors.New("user data dir unknown; cannot locate Local State")
	}
	key, err := windowsMasterKey(cfg.UserDataDir)
	if err != nil {
		return nil, fmt.Errorf("master key read (%s): %w", cfg.Browser, err)
	}
	return [][]byte{key}, nil
}

func windowsMasterKey(userDataDir string) ([]byte, error) {
	stateBytes, err := os.ReadFile(filepath.Join(userDataDir, "Local State"))
	if err != nil {
		return nil, err
	}

	var localState struct {
		OSCrypt struct {
			EncryptedKey string `json:"encrypted_key"`
		} `json:"os_crypt"`
	}
	if err := json.Unmarshal(stateBytes, &localState); err != nil {
		return nil, err
	}
	encB64 := strings.TrimSpace(localState.OSCrypt.EncryptedKey)
	if encB64 == "" {
		return nil, errors.New("Local State missing os_crypt.encrypted_key")
	}
	enc, err := base64.StdEncoding.DecodeString(encB64)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(enc, []byte(dpapiKeyPrefix)) {
		return nil, errors.New("encrypted_key missing DPAPI prefix")
	}
	return dpapiUnprotect(enc[len(dpapiKeyPrefix):])
}

func dpapiUnprotect(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty DPAPI input")
	}

	var outBlob dataBlob
	if err := cryptUnprotectData(newBlob(data), &outBlob); err != nil {
		return nil, err
	}
	defer func() {
		_, _ = windows.LocalFree(windows.Handle(unsafe.Pointer(outBlob.pbData))) //nolint:gosec // Windows API requires this.
	}()
	return outBlob.bytes(), nil
}

type dataBlob struct {
	cbData uint32
	pbData *byte
}

func newBlob(d []byte) *dataBlob {
	if len(d) == 0 {
		return &dataBlob{}
	}
	return &dataBlob{pbData: &d[0], cbData: uint32(len(d))}
}

func (b *dataBlob) bytes() []byte {
	if b == nil || b.cbData == 0 || b.pbData == nil {
		return nil
	}
	out := make([]byte, b.cbData)
	copy(out, (*[1 << 30]byte)(unsafe.Pointer(b.pbData))[:b.cbData:b.cbData])
	return out
}

func cryptUnprotectData(in *dataBlob, out *dataBlob) error {
	// The x/sys wrapper is awkward for raw blobs; call the proc directly.
	dll := windows.NewLazySystemDLL("Crypt32.dll")
	proc := dll.NewProc("CryptUnprotectData")
	const cryptprotectUIForbidden = 0x1
	r, _, e := proc.Call(
		uintptr(unsafe.Pointer(in)),
		0,
		0,
		0,
		0,
		cryptprotectUIForbidden,
		uintptr(unsafe.Pointer(out)),
	)
	if r == 0 {
		return e
	}
	return nil
}
