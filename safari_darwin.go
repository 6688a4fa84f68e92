//go:build darwin

package cookietap

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// readSafariConfig parses a Cookies.binarycookies store. Values are stored
// in plaintext, so no key retrieval or decryption is involved.
func readSafariConfig(ctx context.Context, cfg BrowserConfig, host string) ([]Cookie, []string) {
	records, err := safariReadBinaryCookies(ctx, cfg.CookiesDB)
	if err != nil {
		return nil, []string{fmt.Sprintf("cookietap: failed to read Safari cookies: %v", err)}
	}

	now := time.Now()
	var out []Cookie
	for _, rec := range records {
		if rec.name == "" || rec.value == "" {
			continue
		}
		if !hostMatchesCookieDomain(host, rec.domain) {
			continue
		}
		if rec.expires != 0 && safariTime(rec.expires).Before(now) {
			continue
		}
		out = append(out, Cookie{Name: rec.name, Value: rec.value})
	}
	return out, nil
}

type safariRecord struct {
	domain  string
	name    string
	path    string
	value   string
	expires float64
}

type safariFileHeader struct {
	Magic    [4]byte
	NumPages int32
}

type safariPageHeader struct {
	Header     [4]byte
	NumCookies int32
}

type safariCookieHeader struct {
	Size           int32
	Unknown1       int32
	Flags          int32
	Unknown2       int32
	DomainOffset   int32
	NameOffset     int32
	PathOffset     int32
	ValueOffset    int32
	End            [8]byte
	ExpirationDate float64
	CreationDate   float64
}

func safariReadBinaryCookies(ctx context.Context, filename string) ([]safariRecord, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var header safariFileHeader
	if err := binary.Read(f, binary.BigEndian, &header); err != nil {
		return nil, err
	}
	if string(header.Magic[:]) != "cook" {
		return nil, fmt.Errorf("unexpected magic %q", string(header.Magic[:]))
	}

	pageSizes := make([]int32, header.NumPages)
	if err := binary.Read(f, binary.BigEndian, &pageSizes); err != nil {
		return nil, err
	}

	var out []safariRecord
	for i, size := range pageSizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := safariReadPage(f, i, size)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}

	// checksum (ignored)
	var checksum [8]byte
	_ = binary.Read(f, binary.BigEndian, &checksum)

	return out, nil
}

func safariReadPage(r io.Reader, page int, pageSize int32) ([]safariRecord, error) {
	b := make([]byte, pageSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	br := bytes.NewReader(b)

	var header safariPageHeader
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}

	want := [4]byte{0x00, 0x00, 0x01, 0x00}
	if header.Header != want {
		return nil, fmt.Errorf("page %d: unexpected header %v", page, header.Header)
	}

	offsets := make([]int32, header.NumCookies)
	if err := binary.Read(br, binary.LittleEndian, &offsets); err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}

	out := make([]safariRecord, 0, len(offsets))
	for i, off := range offsets {
		if _, err := br.Seek(int64(off), io.SeekStart); err != nil {
			return nil, fmt.Errorf("page %d cookie %d: %w", page, i, err)
		}
		rec, err := safariReadRecord(br)
		if err != nil {
			return nil, fmt.Errorf("page %d cookie %d: %w", page, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func safariReadRecord(r io.ReadSeeker) (safariRecord, error) {
	start, _ := r.Seek(0, io.SeekCurrent)

	var h safariCookieHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return safariRecord{}, err
	}

	domain, err := safariReadString(r, "domain", start, h.DomainOffset)
	if err != nil {
		return safariRecord{}, err
	}
	name, err := safariReadString(r, "name", start, h.NameOffset)
	if err != nil {
		return safariRecord{}, err
	}
	path, err := safariReadString(r, "path", start, h.PathOffset)
	if err != nil {
		return safariRecord{}, err
	}
	value, err := safariReadString(r, "value", start, h.ValueOffset)
	if err != nil {
		return safariRecord{}, err
	}

	return safariRecord{
		domain:  domain,
		name:    name,
		path:    path,
		value:   value,
		expires: h.ExpirationDate,
	}, nil
}

func safariReadString(r io.ReadSeeker, field string, start int64, offset int32) (string, error) {
	if offset <= 0 {
		return "", errors.New("invalid offset")
	}
	if _, err := r.Seek(start+int64(offset), io.SeekStart); err != nil {
		return "", fmt.Errorf("seek %q: %w", field, err)
	}
	br := bufio.NewReader(r)
	s, err := br.ReadString(0)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", field, err)
	}
	return strings.TrimSuffix(s, "\x00"), nil
}

func safariTime(secsSince2001 float64) time.Time {
	// Safari stores seconds since 2001-01-01 00:00:00 UTC.
	const macEpoch = int64(978307200)
	sec := int64(secsSince2001)
	nsec := int64((secsSince2001 - float64(sec)) * 1e9)
	return time.Unix(macEpoch+sec, nsec).UTC()
}
