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
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal(context.Background(), "", filepath.Join(t.TempDir(), "j.sqlite"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_SaveLatest(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	if _, ok, err := j.Latest(ctx, ""); err != nil || ok {
		t.Fatalf("empty journal: ok=%v err=%v", ok, err)
	}
	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := j.Save(ctx, "doc-a", "edit", fmt.Sprintf(`{"n":%d}`, i), now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := j.Save(ctx, "doc-b", "init", `{"n":99}`, now); err != nil {
		t.Fatalf("save: %v", err)
	}
	e, ok, err := j.Latest(ctx, "doc-a")
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if e.Data != `{"n":2}` || e.Reason != "edit" || e.DocID != "doc-a" {
		t.Fatalf("latest: got %+v", e)
	}
	if !e.TS.Equal(now.Add(2 * time.Second).UTC()) {
		t.Fatalf("ts: got %v", e.TS)
	}
	latest, ok, err := j.Latest(ctx, "")
	if err != nil || !ok || latest.DocID != "doc-b" {
		t.Fatalf("latest any: got %+v ok=%v err=%v", latest, ok, err)
	}
}

func TestJournal_Prune(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	for i := 0; i < 10; i++ {
		if err := j.Save(ctx, "d", "edit", fmt.Sprint(i), time.Now()); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	_ = j.Save(ctx, "other", "edit", "x", time.Now())
	n, err := j.Prune(ctx, "d", 4)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 6 {
		t.Fatalf("deleted: got %d want 6", n)
	}
	list, err := j.List(ctx, "d", 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 4 || list[0].Data != "9" || list[3].Data != "6" {
		t.Fatalf("remaining: got %+v", list)
	}
	if rest, _ := j.List(ctx, "other", 10); len(rest) != 1 {
		t.Fatalf("other document must be untouched, got %d", len(rest))
	}
}

func TestJournal_DirectoryDSN(t *testing.T) {
	dir := t.TempDir()
	j, err := OpenJournal(context.Background(), "sqlite", dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = j.Close() }()
	if j.Driver() != DriverSQLite {
		t.Fatalf("driver: got %s", j.Driver())
	}
}

func TestJournal_Rebind(t *testing.T) {
	j := &Journal{driver: DriverPostgres}
	got := j.rebind(pruneJournalSQL)
	want := `DELETE FROM journal WHERE doc_id = $1 AND id NOT IN (
	SELECT id FROM journal WHERE doc_id = $2 ORDER BY id DESC LIMIT $3
)`
	if got != want {
		t.Fatalf("rebind:\n got %s\nwant %s", got, want)
	}
	s := &Journal{driver: DriverSQLite}
	if s.rebind(insertJournalSQL) != insertJournalSQL {
		t.Fatalf("sqlite queries must not be rewritten")
	}
}

func TestOpenJournal_Errors(t *testing.T) {
	if _, err := OpenJournal(context.Background(), "sqlite", ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	if _, err := OpenJournal(context.Background(), "mysql", "x"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestPgxConfig_InjectsPassword(t *testing.T) {
	t.Setenv("PGPASSWORD", "")
	t.Setenv("PGPASSFILE", filepath.Join(t.TempDir(), "none"))

	cc, err := pgxConfig("postgres://poster@db.example:5432/journal", "from-keyring")
	if err != nil {
		t.Fatalf("parse url dsn: %v", err)
	}
	if cc.Password != "from-keyring" || cc.User != "poster" || cc.Database != "journal" {
		t.Fatalf("url dsn: user=%q db=%q password=%q", cc.User, cc.Database, cc.Password)
	}

	cc, err = pgxConfig("host=db.example user=poster password=inline dbname=journal", "from-keyring")
	if err != nil {
		t.Fatalf("parse keyword dsn: %v", err)
	}
	if cc.Password != "inline" {
		t.Fatalf("password in the dsn must win, got %q", cc.Password)
	}

	if _, err := pgxConfig("postgres://%zz", "x"); err == nil {
		t.Fatalf("expected error for malformed dsn")
	}
}

func TestOpenJournal_SQLiteIgnoresPassword(t *testing.T) {
	j, err := OpenJournal(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "j.sqlite"), WithPassword("unused"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = j.Close()
}
