package cookietap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewStoreReader_UnknownDriver(t *testing.T) {
	if _, err := newStoreReader("no-such-driver"); err == nil {
		t.Fatal("expected error for unregistered driver")
	}
	if _, err := newStoreReader(sqliteDriverName); err != nil {
		t.Fatal(err)
	}
}

func TestChromiumRows_ExpiryFilter(t *testing.T) {
	dbPath := createChromiumCookiesDB(t, []chromiumSeedRow{
		{hostKey: ".example.com", name: "session", value: "keep-session", expires: 0},
		{hostKey: ".example.com", name: "future", value: "keep-future", expires: futureChromiumExpiry(t)},
		{hostKey: ".example.com", name: "stale", value: "drop", expires: pastChromiumExpiry(t)},
	})

	reader, err := newStoreReader(sqliteDriverName)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := reader.chromiumRows(context.Background(), dbPath, "example.com", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 2 {
		t.Fatalf("want 2 rows got %d", len(rows))
	}
	for _, r := range rows {
		if r.name == "stale" {
			t.Fatal("expired row survived the filter")
		}
	}
}

func TestChromiumRows_HostFilter(t *testing.T) {
	dbPath := createChromiumCookiesDB(t, []chromiumSeedRow{
		{hostKey: ".example.com", name: "mine", value: "v"},
		{hostKey: "www.example.com", name: "exact", value: "v"},
		{hostKey: "notexample.com", name: "other", value: "v"},
	})

	reader, err := newStoreReader(sqliteDriverName)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := reader.chromiumRows(context.Background(), dbPath, "www.example.com", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 2 {
		t.Fatalf("want 2 rows got %d: %#v", len(rows), rows)
	}
	for _, r := range rows {
		if r.name == "other" {
			t.Fatal("row for an unrelated host survived the filter")
		}
	}
}

func TestFirefoxRows_ExpiryFilter(t *testing.T) {
	now := time.Now()
	dbPath := createFirefoxCookiesDB(t, []firefoxSeedRow{
		{host: ".example.com", name: "session", value: "keep", expiry: 0},
		{host: ".example.com", name: "future", value: "keep", expiry: now.Add(24 * time.Hour).Unix()},
		{host: ".example.com", name: "stale", value: "drop", expiry: now.Add(-24 * time.Hour).Unix()},
	})

	reader, err := newStoreReader(sqliteDriverName)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := reader.firefoxRows(context.Background(), dbPath, "example.com", now)
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 2 {
		t.Fatalf("want 2 rows got %d", len(rows))
	}
	for _, r := range rows {
		if r.name == "stale" {
			t.Fatal("expired row survived the filter")
		}
	}
}

func TestChromiumRows_CorruptDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "Cookies")
	if err := os.WriteFile(dbPath, []byte("this is not a sqlite database"), 0o644); err != nil {
		t.Fatal(err)
	}

	reader, err := newStoreReader(sqliteDriverName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reader.chromiumRows(context.Background(), dbPath, "example.com", time.Now()); err == nil {
		t.Fatal("expected error for corrupt database")
	}
}

func TestChromiumRows_MissingDatabase(t *testing.T) {
	reader, err := newStoreReader(sqliteDriverName)
	if err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(t.TempDir(), "nope", "Cookies")
	if _, err := reader.chromiumRows(context.Background(), missing, "example.com", time.Now()); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestOpenSnapshot_CleansUpTempDir(t *testing.T) {
	dbPath := createChromiumCookiesDB(t, []chromiumSeedRow{
		{hostKey: ".example.com", name: "a", value: "b"},
	})

	before := countSnapshotDirs(t)

	reader, err := newStoreReader(sqliteDriverName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reader.chromiumRows(context.Background(), dbPath, "example.com", time.Now()); err != nil {
		t.Fatal(err)
	}

	if after := countSnapshotDirs(t); after > before {
		t.Fatalf("snapshot dirs leaked: before=%d after=%d", before, after)
	}
}

func countSnapshotDirs(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "cookietap-*"))
	if err != nil {
		t.Fatal(err)
	}
	return len(matches)
}
