package cookietap

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openTestSQLite(t *testing.T, path string) *sql.DB {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=rwc")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func pkcs7Pad(t *testing.T, b []byte) []byte {
	t.Helper()
	paddingLen := aes.BlockSize - (len(b) % aes.BlockSize)
	if paddingLen == 0 {
		paddingLen = aes.BlockSize
	}
	out := make([]byte, 0, len(b)+paddingLen)
	out = append(out, b...)
	for i := 0; i < paddingLen; i++ {
		out = append(out, byte(paddingLen))
	}
	return out
}

func encryptAESCBCForTest(t *testing.T, tag string, key []byte, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	padded := pkcs7Pad(t, plaintext)
	ciphertext := make([]byte, len(padded))
	cbc := cipher.NewCBCEncrypter(block, []byte(safeStorageIV))
	cbc.CryptBlocks(ciphertext, padded)
	return append([]byte(tag), ciphertext...)
}

func encryptAESGCMForTest(t *testing.T, tag string, key []byte, nonce []byte, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatal(err)
	}
	ciphertextAndTag := aesgcm.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(tag)+len(nonce)+len(ciphertextAndTag))
	out = append(out, []byte(tag)...)
	out = append(out, nonce...)
	out = append(out, ciphertextAndTag...)
	return out
}

type chromiumSeedRow struct {
	hostKey   string
	name      string
	value     string
	encrypted []byte
	expires   int64
}

func createChromiumCookiesDB(t *testing.T, rows []chromiumSeedRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Cookies")
	db := openTestSQLite(t, path)
	if _, err := db.Exec(`CREATE TABLE cookies(host_key TEXT, name TEXT, value TEXT, encrypted_value BLOB, path TEXT, expires_utc INTEGER, is_secure INTEGER, is_httponly INTEGER)`); err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if _, err := db.Exec(
			`INSERT INTO cookies(host_key,name,value,encrypted_value,path,expires_utc,is_secure,is_httponly) VALUES(?,?,?,?,?,?,?,?)`,
			r.hostKey, r.name, r.value, r.encrypted, "/", r.expires, 1, 1,
		); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

type firefoxSeedRow struct {
	host   string
	name   string
	value  string
	expiry int64
}

func createFirefoxCookiesDB(t *testing.T, rows []firefoxSeedRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.sqlite")
	db := openTestSQLite(t, path)
	if _, err := db.Exec(`CREATE TABLE moz_cookies(host TEXT, name TEXT, value TEXT, path TEXT, expiry INTEGER, isSecure INTEGER, isHttpOnly INTEGER, sameSite INTEGER)`); err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if _, err := db.Exec(
			`INSERT INTO moz_cookies(host,name,value,path,expiry,isSecure,isHttpOnly,sameSite) VALUES(?,?,?,?,?,?,?,?)`,
			r.host, r.name, r.value, "/", r.expiry, 1, 1, 0,
		); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func futureChromiumExpiry(t *testing.T) int64 {
	t.Helper()
	return time.Now().Add(24*time.Hour).UnixMicro() + chromiumEpochOffsetMicros
}

func pastChromiumExpiry(t *testing.T) int64 {
	t.Helper()
	return time.Now().Add(-24*time.Hour).UnixMicro() + chromiumEpochOffsetMicros
}

// stubConfigs pins Get's browser resolution to the given fixture stores.
func stubConfigs(t *testing.T, configs ...BrowserConfig) {
	t.Helper()
	orig := resolveConfigs
	resolveConfigs = func([]Browser) ([]BrowserConfig, []string) { return configs, nil }
	t.Cleanup(func() { resolveConfigs = orig })
}

type staticKeyProvider struct {
	keys [][]byte
	err  error
}

func (p staticKeyProvider) ChromiumKeys(context.Context, BrowserConfig, time.Duration) ([][]byte, error) {
	return p.keys, p.err
}
