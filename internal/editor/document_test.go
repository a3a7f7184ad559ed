/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"posterkit/internal/clipboard"
	"posterkit/internal/config"
	"posterkit/internal/scene"
	"posterkit/internal/storage"
)

func newTestDoc(t *testing.T, mut func(*Options)) *Document {
	t.Helper()
	cfg := config.Defaults()
	cfg.History.DebounceMs = 60_000
	opts := Options{Config: cfg}
	if mut != nil {
		mut(&opts)
	}
	d, err := New(opts)
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func flush(t *testing.T, d *Document) {
	t.Helper()
	if _, err := d.History().Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestDocument_HistoryScenario(t *testing.T) {
	ctx := context.Background()
	d := newTestDoc(t, nil)
	if got := d.History().Len(); got != 1 {
		t.Fatalf("initial len: got %d want 1", got)
	}
	d.AddText("Hello")
	flush(t, d)
	if got := d.History().Len(); got != 2 {
		t.Fatalf("after text: got %d want 2", got)
	}
	d.AddRect()
	flush(t, d)
	if got := d.History().Len(); got != 3 {
		t.Fatalf("after rect: got %d want 3", got)
	}

	for i := 0; i < 2; i++ {
		if ok, err := d.Undo(ctx); !ok || err != nil {
			t.Fatalf("undo %d: ok=%v err=%v", i, ok, err)
		}
	}
	if c := d.History().Cursor(); c != 0 {
		t.Fatalf("cursor: got %d want 0", c)
	}
	if n := len(d.Canvas().DesignObjects()); n != 0 {
		t.Fatalf("objects after undo: got %d want 0", n)
	}
	if ok, _ := d.Undo(ctx); ok {
		t.Fatalf("undo past the first entry must be a no-op")
	}
	if ok, err := d.Redo(ctx); !ok || err != nil {
		t.Fatalf("redo: ok=%v err=%v", ok, err)
	}
	objs := d.Canvas().DesignObjects()
	if len(objs) != 1 || objs[0].Type() != scene.KindTextbox {
		t.Fatalf("after redo: got %v", objs)
	}

	// A new edit drops the redo tail.
	d.AddRect()
	flush(t, d)
	if got := d.History().Len(); got != 3 {
		t.Fatalf("after divergent edit: got %d want 3", got)
	}
	if d.History().CanRedo() {
		t.Fatalf("redo must be unavailable after a divergent edit")
	}
}

func TestDocument_RapidFillChangesCoalesce(t *testing.T) {
	ctx := context.Background()
	d := newTestDoc(t, nil)
	txt := d.AddText("Hello")
	flush(t, d)
	orig := txt.Fill.Color

	for _, c := range []string{"#ff0000", "#00ff00", "#0000ff"} {
		if !d.SetTextColor(c) {
			t.Fatalf("SetTextColor(%s) rejected", c)
		}
	}
	flush(t, d)
	if got := d.History().Len(); got != 3 {
		t.Fatalf("after fill changes: got %d want 3", got)
	}

	if ok, err := d.Undo(ctx); !ok || err != nil {
		t.Fatalf("undo: ok=%v err=%v", ok, err)
	}
	objs := d.Canvas().DesignObjects()
	if len(objs) != 1 {
		t.Fatalf("objects after undo: got %d want 1", len(objs))
	}
	if got := objs[0].(*scene.Text).Fill.Color; got != orig {
		t.Fatalf("fill after undo: got %q want %q", got, orig)
	}
	if ok, err := d.Undo(ctx); !ok || err != nil {
		t.Fatalf("second undo: ok=%v err=%v", ok, err)
	}
	if n := len(d.Canvas().DesignObjects()); n != 0 || d.History().Cursor() != 0 {
		t.Fatalf("after second undo: objects=%d cursor=%d", n, d.History().Cursor())
	}
}

func TestDocument_PasteEnabledByPlatformClipboard(t *testing.T) {
	ctx := context.Background()
	shared := &clipboard.Memory{}
	a := newTestDoc(t, func(o *Options) { o.System = shared })
	b := newTestDoc(t, func(o *Options) { o.System = shared })

	a.AddRect()
	if ok, err := a.Copy(ctx); !ok || err != nil {
		t.Fatalf("copy: ok=%v err=%v", ok, err)
	}
	if !b.Controls().CanPaste {
		t.Fatalf("paste must be enabled when a platform clipboard is attached")
	}
	if ok, err := b.Paste(ctx); !ok || err != nil {
		t.Fatalf("cross-document paste: ok=%v err=%v", ok, err)
	}
	if n := len(b.Canvas().DesignObjects()); n != 1 {
		t.Fatalf("objects in second document: got %d want 1", n)
	}

	local := newTestDoc(t, nil)
	if local.Controls().CanPaste {
		t.Fatalf("paste must stay disabled without a buffer or platform clipboard")
	}
}

func TestDocument_DeleteCompositeRefreshesControls(t *testing.T) {
	d := newTestDoc(t, nil)
	r1, r2 := d.AddRect(), d.AddRect()
	d.Canvas().SetActiveObject(scene.NewActiveSelection(r1, r2))
	var last Controls
	d.OnControls(func(c Controls) { last = c })
	if !last.CanCopy || !last.Tokens.Has("multi") {
		t.Fatalf("controls for composite: %+v", last)
	}
	if !d.Delete() {
		t.Fatalf("delete rejected")
	}
	if last.CanCopy || last.CanGroup || last.Tokens.Has("activeselection") || !last.Tokens.Has("none") {
		t.Fatalf("controls after delete: %+v", last)
	}
}

func TestDocument_OverlayChangesDoNotSchedule(t *testing.T) {
	d := newTestDoc(t, nil)
	d.Canvas().Resize(800, 600)
	if d.History().Pending() {
		t.Fatalf("overlay resize must not schedule a capture")
	}
}

func TestDocument_CopyPaste(t *testing.T) {
	ctx := context.Background()
	d := newTestDoc(t, nil)
	if ok, err := d.Copy(ctx); ok || err != nil {
		t.Fatalf("copy without selection: ok=%v err=%v", ok, err)
	}
	r := d.AddRect()
	flush(t, d)
	if ok, err := d.Copy(ctx); !ok || err != nil {
		t.Fatalf("copy: ok=%v err=%v", ok, err)
	}
	if !d.Controls().CanPaste {
		t.Fatalf("paste should be enabled after copy")
	}
	if ok, err := d.Paste(ctx); !ok || err != nil {
		t.Fatalf("paste: ok=%v err=%v", ok, err)
	}
	objs := d.Canvas().DesignObjects()
	if len(objs) != 2 {
		t.Fatalf("objects: got %d want 2", len(objs))
	}
	p := objs[1]
	if p.Base().Left != r.Left+24 || p.Base().Top != r.Top+24 {
		t.Fatalf("paste offset: got (%v,%v) from (%v,%v)", p.Base().Left, p.Base().Top, r.Left, r.Top)
	}
	if scene.ID(p) == "" || scene.ID(p) == scene.ID(r) {
		t.Fatalf("pasted object needs a fresh id, got %q", scene.ID(p))
	}
	if d.Canvas().ActiveObject() != p {
		t.Fatalf("pasted object should be selected")
	}
	flush(t, d)
	if got := d.History().Len(); got != 3 {
		t.Fatalf("history: got %d want 3", got)
	}
}

func TestDocument_ControlsFollowSelection(t *testing.T) {
	d := newTestDoc(t, nil)
	var last Controls
	calls := 0
	d.OnControls(func(c Controls) { last = c; calls++ })
	if calls != 1 || last.CanCopy {
		t.Fatalf("initial controls: calls=%d %+v", calls, last)
	}
	txt := d.AddText("x")
	if !last.CanCopy || !last.Tokens.Has("text") || !last.Tokens.Has("single") {
		t.Fatalf("controls after selecting text: %+v", last)
	}
	r := d.AddRect()
	d.Canvas().SetActiveObject(scene.NewActiveSelection(txt, r))
	if !last.CanGroup || last.CanUngroup || !last.Tokens.Has("multi") {
		t.Fatalf("controls for composite: %+v", last)
	}
	d.Canvas().DiscardActiveObject()
	if last.CanCopy || !last.Tokens.Has("none") {
		t.Fatalf("controls after clear: %+v", last)
	}
	flush(t, d)
	if !last.CanUndo {
		t.Fatalf("undo should be enabled after a capture")
	}
}

func TestDocument_UndoClearsTouchBuffer(t *testing.T) {
	ctx := context.Background()
	d := newTestDoc(t, nil)
	a := d.AddRect()
	b := d.AddText("b")
	flush(t, d)
	d.Merger().SetMode(true)
	touch := scene.Pointer{Type: "touchstart", Touches: 1}
	d.Canvas().PointerDown(touch, a)
	d.Canvas().PointerDown(touch, b)
	if n := len(d.Merger().Buffer()); n != 2 {
		t.Fatalf("buffer: got %d want 2", n)
	}
	d.SetOpacity(0.5)
	flush(t, d)
	if ok, err := d.Undo(ctx); !ok || err != nil {
		t.Fatalf("undo: ok=%v err=%v", ok, err)
	}
	if n := len(d.Merger().Buffer()); n != 0 {
		t.Fatalf("buffer after undo: got %d want 0", n)
	}
}

func TestDocument_JournalAndRecover(t *testing.T) {
	ctx := context.Background()
	j, err := storage.OpenJournal(ctx, "sqlite", filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	first := newTestDoc(t, func(o *Options) { o.Journal = j })
	first.AddText("survives")
	flush(t, first)
	first.SetBackground("#ffcc00")
	if got := first.Journaled(); got != 3 {
		t.Fatalf("journaled: got %d want 3", got)
	}

	second := newTestDoc(t, func(o *Options) { o.Journal = j })
	if err := second.Recover(ctx, first.ID()); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if second.ID() != first.ID() {
		t.Fatalf("recovered document should adopt id %s, got %s", first.ID(), second.ID())
	}
	objs := second.Canvas().DesignObjects()
	if len(objs) != 1 || objs[0].(*scene.Text).Text != "survives" {
		t.Fatalf("recovered objects: %v", objs)
	}
	if bg := second.Canvas().Background(); bg != "#ffcc00" {
		t.Fatalf("background: got %s", bg)
	}
	if st := second.History().Status(); st.Len != 1 || st.CanUndo {
		t.Fatalf("history after recover: %+v", st)
	}
}

func TestDocument_RecoverWithoutJournal(t *testing.T) {
	d := newTestDoc(t, nil)
	if err := d.Recover(context.Background(), ""); !errors.Is(err, ErrNoJournal) {
		t.Fatalf("got %v want ErrNoJournal", err)
	}
}

type sink struct{ names []string }

func (s *sink) Event(name string, _ map[string]any) { s.names = append(s.names, name) }

func TestDocument_Events(t *testing.T) {
	ctx := context.Background()
	s := &sink{}
	d := newTestDoc(t, func(o *Options) { o.Events = s })
	d.AddRect()
	flush(t, d)
	_, _ = d.Undo(ctx)
	_, _ = d.Redo(ctx)
	want := []string{"history.undo", "history.redo"}
	if len(s.names) != len(want) || s.names[0] != want[0] || s.names[1] != want[1] {
		t.Fatalf("events: got %v want %v", s.names, want)
	}
}

func TestDocument_Autosave(t *testing.T) {
	ctx := context.Background()
	d := newTestDoc(t, nil)
	if err := d.Autosave(ctx); !errors.Is(err, ErrNoJournal) {
		t.Fatalf("got %v want ErrNoJournal", err)
	}

	j, err := storage.OpenJournal(ctx, "", t.TempDir())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	d = newTestDoc(t, func(o *Options) { o.Journal = j })
	d.AddRect()
	if err := d.Autosave(ctx); err != nil {
		t.Fatalf("autosave: %v", err)
	}
	e, ok, err := j.Latest(ctx, d.ID())
	if err != nil || !ok || e.Reason != "crash" {
		t.Fatalf("latest: %+v ok=%v err=%v", e, ok, err)
	}
	if d.History().Len() != 1 {
		t.Fatalf("autosave must not touch history, len %d", d.History().Len())
	}
}
