/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	applog "posterkit/internal/log"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	// JournalFileName is used when the sqlite DSN names a directory.
	JournalFileName = "journal.sqlite"
)

// language=SQL
// dialect=SQLite
const createJournalSQLite = `CREATE TABLE IF NOT EXISTS journal (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	doc_id  TEXT NOT NULL,
	ts      TEXT NOT NULL,
	reason  TEXT NOT NULL,
	data    TEXT NOT NULL
)`

// language=SQL
// dialect=PostgreSQL
const createJournalPostgres = `CREATE TABLE IF NOT EXISTS journal (
	id      BIGSERIAL PRIMARY KEY,
	doc_id  TEXT NOT NULL,
	ts      TEXT NOT NULL,
	reason  TEXT NOT NULL,
	data    TEXT NOT NULL
)`

// language=SQL
const createJournalIndexSQL = `CREATE INDEX IF NOT EXISTS journal_doc_id ON journal(doc_id, id)`

// language=SQL
const insertJournalSQL = `INSERT INTO journal(doc_id, ts, reason, data) VALUES (?, ?, ?, ?)`

// language=SQL
const selectLatestJournalSQL = `SELECT id, doc_id, ts, reason, data FROM journal WHERE doc_id = ? ORDER BY id DESC LIMIT 1`

// language=SQL
const selectLatestAnyJournalSQL = `SELECT id, doc_id, ts, reason, data FROM journal ORDER BY id DESC LIMIT 1`

// language=SQL
const listJournalSQL = `SELECT id, doc_id, ts, reason, data FROM journal WHERE doc_id = ? ORDER BY id DESC LIMIT ?`

// language=SQL
const pruneJournalSQL = `DELETE FROM journal WHERE doc_id = ? AND id NOT IN (
	SELECT id FROM journal WHERE doc_id = ? ORDER BY id DESC LIMIT ?
)`

// Entry is one journaled snapshot.
type Entry struct {
	ID     int64
	DocID  string
	TS     time.Time
	Reason string
	Data   string
}

// Journal persists committed history snapshots so a crashed session can be
// recovered. It is safe for concurrent use.
type Journal struct {
	db     *sql.DB
	driver string
	l      *slog.Logger
}

// SQLiteDSN turns a file path into the sqlite URI used by the journal.
// Values that already look like a URI are returned unchanged.
func SQLiteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
}

// Option tunes OpenJournal.
type Option func(*openOptions)

type openOptions struct {
	password string
}

// WithPassword supplies the Postgres password kept outside the DSN (for
// example in the OS keyring). A password written in the DSN wins. SQLite
// ignores it.
func WithPassword(pw string) Option {
	return func(o *openOptions) { o.password = pw }
}

// pgxConfig parses a Postgres DSN (URL or key=value form) and fills in
// password when the DSN carries none.
func pgxConfig(dsn, password string) (*pgx.ConnConfig, error) {
	cc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cc.Password == "" {
		cc.Password = password
	}
	return cc, nil
}

// OpenJournal opens (and creates if needed) a journal. Driver is "sqlite"
// (default) or "pgx". For sqlite the DSN may be a plain file path or a
// directory, in which case JournalFileName is used inside it.
func OpenJournal(ctx context.Context, driver, dsn string, opts ...Option) (*Journal, error) {
	var o openOptions
	for _, fn := range opts {
		fn(&o)
	}
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		driver = DriverSQLite
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "journal_open").With(slog.String("driver", driver))
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("journal dsn is required")
	}

	var (
		db  *sql.DB
		err error
		ddl string
	)
	switch driver {
	case DriverSQLite:
		if !strings.HasPrefix(dsn, "file:") {
			if fi, statErr := os.Stat(dsn); statErr == nil && fi.IsDir() {
				dsn = filepath.Join(dsn, JournalFileName)
			}
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create journal dir: %w", err)
			}
		}
		db, err = sql.Open("sqlite", SQLiteDSN(dsn))
		if err != nil {
			l.Error("sqlite open failed", slog.Any("err", err))
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			l.Error("enable WAL failed", slog.Any("err", err))
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
		ddl = createJournalSQLite
	case DriverPostgres:
		cc, perr := pgxConfig(dsn, o.password)
		if perr != nil {
			l.Error("postgres dsn invalid", slog.Any("err", perr))
			return nil, fmt.Errorf("parse postgres dsn: %w", perr)
		}
		db = stdlib.OpenDB(*cc)
		db.SetMaxOpenConns(4)
		db.SetConnMaxIdleTime(5 * time.Minute)
		ddl = createJournalPostgres
	default:
		return nil, fmt.Errorf("unsupported journal driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		l.Error("journal ping failed", slog.Any("err", err))
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	for _, q := range []string{ddl, createJournalIndexSQL} {
		if _, err := db.ExecContext(ctx, q); err != nil {
			_ = db.Close()
			l.Error("ensure journal schema failed", slog.Any("err", err))
			return nil, fmt.Errorf("create journal schema: %w", err)
		}
	}
	l.Debug("journal ready")
	return &Journal{db: db, driver: driver, l: applog.WithComponent("storage")}, nil
}

// Driver reports the database/sql driver name in use.
func (j *Journal) Driver() string { return j.driver }

// Close releases the database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// rebind rewrites ? placeholders to $n for Postgres.
func (j *Journal) rebind(q string) string {
	if j.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save appends a snapshot for docID.
func (j *Journal) Save(ctx context.Context, docID, reason, data string, ts time.Time) error {
	if docID == "" {
		return errors.New("journal: doc id is required")
	}
	_, err := j.db.ExecContext(ctx, j.rebind(insertJournalSQL), docID, ts.UTC().Format(time.RFC3339Nano), reason, data)
	if err != nil {
		return fmt.Errorf("journal save: %w", err)
	}
	return nil
}

// Latest returns the newest entry for docID, or across all documents when
// docID is empty. ok is false when the journal holds nothing.
func (j *Journal) Latest(ctx context.Context, docID string) (e Entry, ok bool, err error) {
	var row *sql.Row
	if docID == "" {
		row = j.db.QueryRowContext(ctx, selectLatestAnyJournalSQL)
	} else {
		row = j.db.QueryRowContext(ctx, j.rebind(selectLatestJournalSQL), docID)
	}
	e, err = scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("journal latest: %w", err)
	}
	return e, true, nil
}

// List returns up to limit most recent entries for docID, newest first.
func (j *Journal) List(ctx context.Context, docID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, j.rebind(listJournalSQL), docID, limit)
	if err != nil {
		return nil, fmt.Errorf("journal list: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("journal list: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep entries for docID and deletes the rest.
func (j *Journal) Prune(ctx context.Context, docID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := j.db.ExecContext(ctx, j.rebind(pruneJournalSQL), docID, docID, keep)
	if err != nil {
		return 0, fmt.Errorf("journal prune: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		j.l.Debug("journal pruned", slog.String("doc", docID), slog.Int64("deleted", n))
	}
	return n, nil
}

func scanEntry(scan func(dest ...any) error) (Entry, error) {
	var (
		e     Entry
		tsStr string
	)
	if err := scan(&e.ID, &e.DocID, &tsStr, &e.Reason, &e.Data); err != nil {
		return Entry{}, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, tsStr); err == nil {
		e.TS = ts
	}
	return e, nil
}
