package cookietap

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go).
)

const sqliteDriverName = "sqlite"

// Microseconds between 1601-01-01 (the Chromium epoch) and 1970-01-01.
const chromiumEpochOffsetMicros = int64(11644473600000000)

// storeReader reads cookie rows out of browser SQLite databases. The SQL
// driver is injected at construction instead of assumed globally; a missing
// driver is the single initialization failure mode and disables every
// database-backed browser for the call.
type storeReader struct {
	driverName string
}

func newStoreReader(driverName string) (*storeReader, error) {
	if !slices.Contains(sql.Drivers(), driverName) {
		return nil, fmt.Errorf("sql driver %q is not registered", driverName)
	}
	return &storeReader{driverName: driverName}, nil
}

// openSnapshot copies the database (and WAL/SHM sidecars, which may hold
// recent writes) into a private temp directory before opening it, so a
// browser holding the original locked never sees us and we never corrupt it.
// The returned cleanup closes the handle and removes the snapshot; it must
// run on every exit path.
func (sr *storeReader) openSnapshot(ctx context.Context, dbPath string) (*sql.DB, func(), error) {
	dir, err := os.MkdirTemp("", "cookietap-")
	if err != nil {
		return nil, nil, err
	}
	removeDir := func() { _ = os.RemoveAll(dir) }

	snap := filepath.Join(dir, filepath.Base(dbPath))
	if err := copyFile(dbPath, snap); err != nil {
		removeDir()
		return nil, nil, fmt.Errorf("snapshot cookies DB: %w", err)
	}
	_ = copyFileIfExists(dbPath+"-wal", snap+"-wal")
	_ = copyFileIfExists(dbPath+"-shm", snap+"-shm")

	db, err := sql.Open(sr.driverName, "file:"+filepath.ToSlash(snap)+"?mode=ro")
	if err != nil {
		removeDir()
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		removeDir()
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
		removeDir()
	}
	return db, cleanup, nil
}

type chromiumRow struct {
	hostKey        string
	name           string
	value          string
	encryptedValue []byte
	path           string
	expiresUTC     int64
	isSecure       bool
	isHTTPOnly     bool
}

// chromiumRows returns the non-expired rows matching host from a
// Chromium-family cookies database. Expiry is microseconds since the
// Chromium epoch; zero means "session cookie" and is never filtered.
func (sr *storeReader) chromiumRows(ctx context.Context, dbPath, host string, now time.Time) ([]chromiumRow, error) {
	db, cleanup, err := sr.openSnapshot(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	where, args := hostWhereClause("host_key", host)
	query := `SELECT host_key, name, value, encrypted_value, path, expires_utc, is_secure, is_httponly FROM cookies WHERE (` + where + `)`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cutoff := now.UnixMicro() + chromiumEpochOffsetMicros

	var out []chromiumRow
	for rows.Next() {
		var r chromiumRow
		var encrypted []byte
		var expires sql.NullInt64
		var secure sql.NullInt64
		var httpOnly sql.NullInt64

		if err := rows.Scan(&r.hostKey, &r.name, &r.value, &encrypted, &r.path, &expires, &secure, &httpOnly); err != nil {
			return nil, err
		}
		r.encryptedValue = encrypted
		if expires.Valid {
			r.expiresUTC = expires.Int64
		}
		r.isSecure = secure.Valid && secure.Int64 == 1
		r.isHTTPOnly = httpOnly.Valid && httpOnly.Int64 == 1

		if r.expiresUTC != 0 && r.expiresUTC < cutoff {
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type firefoxRow struct {
	host   string
	name   string
	value  string
	path   string
	expiry int64
}

// firefoxRows returns the non-expired rows matching host from a Firefox
// cookies.sqlite database. Values are stored in plaintext; expiry is Unix
// seconds with zero meaning "session cookie".
func (sr *storeReader) firefoxRows(ctx context.Context, dbPath, host string, now time.Time) ([]firefoxRow, error) {
	db, cleanup, err := sr.openSnapshot(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	where, args := hostWhereClause("host", host)
	query := `SELECT host, name, value, path, expiry FROM moz_cookies WHERE (` + where + `)`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cutoff := now.Unix()

	var out []firefoxRow
	for rows.Next() {
		var r firefoxRow
		var expiry sql.NullInt64

		if err := rows.Scan(&r.host, &r.name, &r.value, &r.path, &expiry); err != nil {
			return nil, err
		}
		if expiry.Valid {
			r.expiry = expiry.Int64
		}

		if r.expiry != 0 && r.expiry < cutoff {
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// hostWhereClause narrows the query to rows that could match host, so
// non-matching rows are skipped before any decryption work. Hosts are bound
// as placeholders, never spliced into the SQL.
func hostWhereClause(column, host string) (string, []any) {
	host = normalizeHost(host)
	if host == "" {
		return "1=0", nil
	}

	var clauses []string
	var args []any
	for _, candidate := range expandHostCandidates(host) {
		clauses = append(clauses, column+" = ?", column+" = ?", column+" LIKE ?")
		args = append(args, candidate, "."+candidate, "%."+candidate)
	}
	return strings.Join(clauses, " OR "), args
}
