package cookietap

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1" //nolint:gosec // Chromium's Safe Storage KDF is PBKDF2-SHA1 ("saltysalt").
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

const (
	versionTagLen = 3

	tagV10 = "v10"
	tagV11 = "v11"
	tagV20 = "v20"

	safeStorageSalt   = "saltysalt"
	safeStorageKeyLen = 16
	safeStorageIV     = "                " // 16 spaces

	// PBKDF2 iteration counts differ per platform.
	iterationsMacOS = 1003
	iterationsLinux = 1

	gcmNonceLen = 12
	gcmTagLen   = 16
	gcmKeyLen   = 32
)

var errAllKeysFailed = errors.New("no candidate key recovered a value")

// deriveSafeStorageKey turns a Safe Storage password into a 16-byte AES key.
func deriveSafeStorageKey(password string, iterations int) []byte {
	return pbkdf2.Key([]byte(password), []byte(safeStorageSalt), iterations, safeStorageKeyLen, sha1.New)
}

// decryptCookieValue recovers the plaintext of an encrypted cookie blob by
// trying each candidate key in order. The cipher scheme is selected purely
// from the blob's 3-byte version tag: v10/v11 are AES-CBC, v20 is AES-GCM.
func decryptCookieValue(encrypted []byte, keys [][]byte) (string, error) {
	if len(encrypted) < versionTagLen {
		return "", fmt.Errorf("encrypted value too short (%d bytes)", len(encrypted))
	}

	tag := string(encrypted[:versionTagLen])
	switch tag {
	case tagV10, tagV11:
		return decryptCBCValue(encrypted[versionTagLen:], keys)
	case tagV20:
		return decryptGCMValue(encrypted[versionTagLen:], keys)
	default:
		return "", fmt.Errorf("unrecognized version tag %q", tag)
	}
}

func decryptCBCValue(ciphertext []byte, keys [][]byte) (string, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("cipher input not full blocks (%d bytes)", len(ciphertext))
	}

	for _, key := range keys {
		plain, err := aesCBCDecrypt(ciphertext, key)
		if err != nil {
			continue
		}
		if value, ok := decodeCookiePlaintext(plain); ok {
			return value, nil
		}
	}
	return "", errAllKeysFailed
}

func aesCBCDecrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(ciphertext))
	cbc := cipher.NewCBCDecrypter(block, []byte(safeStorageIV))
	cbc.CryptBlocks(out, ciphertext)

	return removePKCS7Padding(out)
}

func decryptGCMValue(payload []byte, keys [][]byte) (string, error) {
	if len(payload) < gcmNonceLen+gcmTagLen {
		return "", fmt.Errorf("encrypted value too short for GCM (%d bytes)", len(payload))
	}
	nonce := payload[:gcmNonceLen]
	ciphertextAndTag := payload[gcmNonceLen:]

	for _, key := range keys {
		block, err := aes.NewCipher(normalizeGCMKey(key))
		if err != nil {
			continue
		}
		aesgcm, err := cipher.NewGCM(block)
		if err != nil {
			continue
		}
		plain, err := aesgcm.Open(nil, nonce, ciphertextAndTag, nil)
		if err != nil {
			continue
		}
		if value, ok := decodeCookiePlaintext(plain); ok {
			return value, nil
		}
	}
	return "", errAllKeysFailed
}

// normalizeGCMKey forces a candidate key to exactly 32 bytes: longer keys
// are truncated, shorter keys are zero-padded on the right.
func normalizeGCMKey(key []byte) []byte {
	out := make([]byte, gcmKeyLen)
	copy(out, key)
	return out
}

// decodeCookiePlaintext applies the hash-prefix heuristic and validates the
// result. Newer Chromium versions prepend a 32-byte hash to the cookie
// value; its presence is detected by control characters in the decrypted
// buffer. This is approximate: a legitimately binary cookie value longer
// than 32 bytes would also be stripped.
func decodeCookiePlaintext(plain []byte) (string, bool) {
	if hasControlBytes(plain) && len(plain) > 32 {
		plain = plain[32:]
	}
	if len(plain) == 0 {
		return "", false
	}
	if !utf8.Valid(plain) || hasControlBytes(plain) {
		return "", false
	}
	return string(plain), true
}

func hasControlBytes(b []byte) bool {
	for _, c := range b {
		if c < 0x20 {
			return true
		}
	}
	return false
}

func removePKCS7Padding(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return b, nil
	}
	paddingLen := int(b[len(b)-1])
	if paddingLen <= 0 || paddingLen > aes.BlockSize || paddingLen > len(b) {
		return nil, fmt.Errorf("invalid padding length: %d", paddingLen)
	}
	for _, p := range b[len(b)-paddingLen:] {
		if int(p) != paddingLen {
			return nil, errors.New("invalid padding bytes")
		}
	}
	return b[:len(b)-paddingLen], nil
}
