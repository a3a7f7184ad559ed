/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"posterkit/internal/clipboard"
	"posterkit/internal/config"
	"posterkit/internal/editor"
)

func newDoc(t *testing.T) *editor.Document {
	t.Helper()
	return newDocWith(t, nil)
}

func newDocWith(t *testing.T, sys clipboard.System) *editor.Document {
	t.Helper()
	cfg := config.Defaults()
	cfg.History.DebounceMs = 60_000
	d, err := editor.New(editor.Options{Config: cfg, System: sys})
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestDispatch_FollowsControls(t *testing.T) {
	ctx := context.Background()
	d := newDoc(t)

	if Enabled("undo", d.Controls()) {
		t.Fatalf("undo must be disabled on a fresh document")
	}
	if err := Dispatch(ctx, d, "delete"); err != nil {
		t.Fatalf("disabled delete: %v", err)
	}

	if err := Dispatch(ctx, d, "add-text"); err != nil {
		t.Fatalf("add-text: %v", err)
	}
	if n := len(d.Canvas().DesignObjects()); n != 1 {
		t.Fatalf("objects: got %d want 1", n)
	}
	if _, err := d.History().Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !Enabled("undo", d.Controls()) {
		t.Fatalf("undo must be enabled after a commit")
	}
	if err := Dispatch(ctx, d, "undo"); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if n := len(d.Canvas().DesignObjects()); n != 0 {
		t.Fatalf("objects after undo: got %d want 0", n)
	}
	if err := Dispatch(ctx, d, "bogus"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestDispatch_PasteFromAnotherDocument(t *testing.T) {
	ctx := context.Background()
	shared := &clipboard.Memory{}
	a, b := newDocWith(t, shared), newDocWith(t, shared)

	if err := Dispatch(ctx, a, "add-rect"); err != nil {
		t.Fatalf("add-rect: %v", err)
	}
	if err := Dispatch(ctx, a, "copy"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if err := Dispatch(ctx, b, "paste"); err != nil {
		t.Fatalf("paste: %v", err)
	}
	if n := len(b.Canvas().DesignObjects()); n != 1 {
		t.Fatalf("objects in second document: got %d want 1", n)
	}
}

func TestVisiblePanels(t *testing.T) {
	d := newDoc(t)
	if diff := cmp.Diff([]string{"canvas"}, VisiblePanels(d.Controls().Tokens)); diff != "" {
		t.Fatalf("empty selection panels (-want +got):\n%s", diff)
	}
	d.AddText("Hi")
	want := []string{"canvas", "arrange", "text"}
	if diff := cmp.Diff(want, VisiblePanels(d.Controls().Tokens)); diff != "" {
		t.Fatalf("text panels (-want +got):\n%s", diff)
	}
}

func TestActions_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range Actions() {
		if seen[a.ID] {
			t.Fatalf("duplicate action %q", a.ID)
		}
		seen[a.ID] = true
	}
}
