package browser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ardent-labs/sleuth/internal/model"
	"github.com/ardent-labs/sleuth/internal/parse"

	_ "modernc.org/sqlite"
)

// MaxVisits caps the rows read from a single history database
const MaxVisits = 20000

// seconds between 1970-01-01 and 2001-01-01, the epoch of Safari
const safariEpoch = 978307200

// Visit is a history entry. Time is the last visit of the URL.
type Visit struct {
	URL     string
	Title   string
	Time    time.Time
	Browser string
	Profile string
}

var queries = map[Kind]string{
	Chromium: `SELECT url, COALESCE(title, ''), last_visit_time FROM urls ORDER BY last_visit_time DESC LIMIT ?`,
	Firefox:  `SELECT url, COALESCE(title, ''), COALESCE(last_visit_date, 0) FROM moz_places WHERE last_visit_date IS NOT NULL ORDER BY last_visit_date DESC LIMIT ?`,
	Safari:   `SELECT i.url, COALESCE(v.title, ''), v.visit_time FROM history_visits v JOIN history_items i ON i.id = v.history_item ORDER BY v.visit_time DESC LIMIT ?`,
}

// History reads the visits of every profile of b. A profile which cannot be
// read does not stop the others; the errors are joined.
func History(ctx context.Context, b Browser) ([]Visit, error) {
	var ret []Visit
	var errs []error
	for _, db := range b.HistoryFiles() {
		visits, err := ReadHistory(ctx, b.Kind, db)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		profile := filepath.Base(filepath.Dir(db))
		for i := range visits {
			visits[i].Browser = b.Name
			visits[i].Profile = profile
		}
		ret = append(ret, visits...)
	}
	return ret, errors.Join(errs...)
}

// ReadHistory queries the history database at path. The browser keeps the
// database locked while running, so it is copied to a temporary file first;
// the copy is always removed.
func ReadHistory(ctx context.Context, kind Kind, path string) ([]Visit, error) {
	query, ok := queries[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported browser kind %q", kind)
	}

	tmp, cleanup, err := copyDB(path)
	if err != nil {
		return nil, fmt.Errorf("copy %s: %w", path, err)
	}
	defer cleanup()

	db, err := sql.Open("sqlite", tmp)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query, MaxVisits)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", path, err)
	}
	defer rows.Close()

	var ret []Visit
	for rows.Next() {
		var v Visit
		switch kind {
		case Safari:
			var sec float64
			if err := rows.Scan(&v.URL, &v.Title, &sec); err != nil {
				return nil, err
			}
			if sec > 0 {
				v.Time = model.KnownTime(time.Unix(safariEpoch+int64(sec), 0).UTC())
			}
		default:
			var usec int64
			if err := rows.Scan(&v.URL, &v.Title, &usec); err != nil {
				return nil, err
			}
			v.Time = visitTime(kind, usec)
		}
		ret = append(ret, v)
	}
	return ret, rows.Err()
}

func visitTime(kind Kind, usec int64) time.Time {
	if usec <= 0 {
		return time.Time{}
	}
	switch kind {
	case Chromium:
		// microseconds since 1601-01-01
		return parse.FileTime(uint64(usec) * 10)
	case Firefox:
		return model.KnownTime(time.UnixMicro(usec).UTC())
	}
	return time.Time{}
}

// copyDB copies the database and its write ahead log into a temporary
// directory.
func copyDB(path string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "sleuth-history-*")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("removing history copy", "dir", dir, "error", err)
		}
	}
	dst := filepath.Join(dir, "history.sqlite")
	if err := copyFile(path, dst); err != nil {
		cleanup()
		return "", func() {}, err
	}
	if err := copyFile(path+"-wal", dst+"-wal"); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("history wal not copied", "path", path, "error", err)
	}
	return dst, cleanup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
