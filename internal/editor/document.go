/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor is the document context of a poster: it owns the scene
// graph and wires history, clipboard, touch multi-select, control state and
// the crash-recovery journal around it. Every command goes through a
// Document; there is no package-level state.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"posterkit/internal/clipboard"
	"posterkit/internal/config"
	"posterkit/internal/imagefx"
	applog "posterkit/internal/log"
	"posterkit/internal/scene"
	"posterkit/internal/selection"
	"posterkit/internal/snapshot"
	"posterkit/internal/storage"
	"posterkit/internal/touch"
	"posterkit/internal/undo"
)

var (
	// ErrNoImageSelected is returned by image effects when the active object is not an image.
	ErrNoImageSelected = errors.New("editor: select an image first")
	// ErrNoJournal is returned by Recover when no journal is configured.
	ErrNoJournal = errors.New("editor: no journal configured")
	// ErrNothingToRecover is returned by Recover when the journal is empty.
	ErrNothingToRecover = errors.New("editor: nothing to recover")
)

// Notice is a user-facing message about a precondition that was not met.
type Notice struct {
	Code    string
	Message string
}

// Notifier receives notices.
type Notifier func(Notice)

// Controls is the enablement state of the editing controls.
type Controls struct {
	CanUndo    bool
	CanRedo    bool
	CanCopy    bool
	CanPaste   bool
	CanGroup   bool
	CanUngroup bool
	Tokens     selection.TokenSet
}

// EventSink receives anonymous usage events; telemetry.Client satisfies it.
type EventSink interface {
	Event(name string, props map[string]any)
}

// Options configure a Document. Zero values select defaults.
type Options struct {
	Config config.AppConfig
	// DocID names the document in the journal; a random id is used when empty.
	DocID string
	// System is the platform clipboard; nil keeps copy/paste in process.
	System clipboard.System
	// LoadImage resolves image sources while materializing; nil uses imagefx.Check.
	LoadImage scene.ImageLoader
	Journal   *storage.Journal
	Events    EventSink
	Notifier  Notifier
}

// Document is one open poster.
type Document struct {
	cfg      config.AppConfig
	canvas   *scene.Canvas
	codec    *snapshot.Codec
	history  *undo.Manager
	clip     *clipboard.Engine
	merger   *touch.Merger
	decoder  scene.Decoder
	journal  *storage.Journal
	events   EventSink
	log      *slog.Logger
	unsubs   []func()

	mu        sync.Mutex
	docID     string
	notifier  Notifier
	listeners []func(Controls)
	journaled int
}

// New builds a document with an empty canvas and records the initial
// history entry.
func New(opts Options) (*Document, error) {
	cfg := opts.Config
	if cfg.ConfigVersion == 0 {
		cfg = config.Defaults()
	}
	load := opts.LoadImage
	if load == nil {
		load = imagefx.Check
	}
	codec, err := clipboard.NewCodec(cfg.Clipboard.Prefix)
	if err != nil {
		return nil, fmt.Errorf("clipboard codec: %w", err)
	}
	docID := opts.DocID
	if docID == "" {
		docID = uuid.NewString()
	}

	d := &Document{
		cfg:      cfg,
		canvas:   scene.NewCanvas(cfg.Canvas.Width, cfg.Canvas.Height, cfg.Canvas.Background),
		decoder:  scene.Decoder{LoadImage: load},
		journal:  opts.Journal,
		events:   opts.Events,
		log:      applog.WithComponent("editor").With(slog.String("doc", docID)),
		docID:    docID,
		notifier: opts.Notifier,
	}
	d.codec = snapshot.NewCodec(d.canvas, d.decoder)
	d.history = undo.NewManager(d.codec, undo.Config{
		Limit:    cfg.History.Limit,
		Debounce: cfg.History.Debounce(),
	})
	d.clip = clipboard.NewEngine(d.canvas, codec, clipboard.Options{
		System:       opts.System,
		Materializer: d.decoder,
		BaseOffset:   cfg.Clipboard.BaseOffset,
		StepOffset:   cfg.Clipboard.StepOffset,
		MaxOffset:    cfg.Clipboard.MaxOffset,
		Prepare:      func(o scene.Object) { o.Base().Set("id", uuid.NewString()) },
	})
	d.merger = touch.NewMerger(d.canvas)
	d.merger.Attach()

	d.codec.AfterRestore(func() {
		d.merger.Clear()
		d.refresh()
	})
	d.history.OnChange(func(undo.Status) { d.refresh() })
	d.history.OnCommit(d.commit)
	d.track()

	if err := d.history.Init(); err != nil {
		d.Close()
		return nil, err
	}
	d.log.Debug("document ready",
		slog.Float64("width", cfg.Canvas.Width), slog.Float64("height", cfg.Canvas.Height),
		slog.Bool("journal", d.journal != nil))
	return d, nil
}

// track schedules history captures for structural canvas events and keeps
// the controls in sync with the selection.
func (d *Document) track() {
	for _, name := range []scene.EventName{scene.ObjectAdded, scene.ObjectRemoved, scene.ObjectModified, scene.PathCreated} {
		d.unsubs = append(d.unsubs, d.canvas.On(name, func(ev scene.Event) {
			if ev.Target != nil && d.canvas.IsOverlay(ev.Target) {
				return
			}
			d.history.Schedule(string(ev.Name), undo.ScheduleOptions{})
		}))
	}
	d.unsubs = append(d.unsubs, d.canvas.On(scene.TextChanged, func(scene.Event) {
		d.history.Schedule(string(scene.TextChanged), undo.ScheduleOptions{})
	}))
	for _, name := range []scene.EventName{scene.SelectionCreated, scene.SelectionUpdated, scene.SelectionCleared} {
		d.unsubs = append(d.unsubs, d.canvas.On(name, func(scene.Event) { d.refresh() }))
	}
}

// Close stops pending captures and detaches every subscription. The journal
// is owned by the caller and stays open.
func (d *Document) Close() {
	d.history.Close()
	d.merger.Detach()
	for _, fn := range d.unsubs {
		fn()
	}
	d.unsubs = nil
}

func (d *Document) ID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.docID
}

func (d *Document) Canvas() *scene.Canvas        { return d.canvas }
func (d *Document) History() *undo.Manager       { return d.history }
func (d *Document) Clipboard() *clipboard.Engine { return d.clip }
func (d *Document) Merger() *touch.Merger        { return d.merger }
func (d *Document) Codec() *snapshot.Codec       { return d.codec }

// SetNotifier replaces the notice receiver.
func (d *Document) SetNotifier(fn Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifier = fn
}

// OnControls registers fn to receive the control state after every change.
// fn is called once right away.
func (d *Document) OnControls(fn func(Controls)) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
	fn(d.Controls())
}

// Controls computes the current control state.
func (d *Document) Controls() Controls {
	st := d.history.Status()
	return Controls{
		CanUndo:    st.CanUndo,
		CanRedo:    st.CanRedo,
		CanCopy:    len(d.canvas.ActiveObjects()) > 0,
		CanPaste:   d.clip.CanPaste() || d.clip.HasSystem(),
		CanGroup:   selection.CanGroup(d.canvas),
		CanUngroup: selection.CanUngroup(d.canvas),
		Tokens:     selection.Current(d.canvas),
	}
}

func (d *Document) refresh() {
	d.mu.Lock()
	fns := append([]func(Controls){}, d.listeners...)
	d.mu.Unlock()
	if len(fns) == 0 {
		return
	}
	c := d.Controls()
	for _, fn := range fns {
		fn(c)
	}
}

func (d *Document) notify(code, msg string) {
	d.mu.Lock()
	fn := d.notifier
	d.mu.Unlock()
	d.log.Info("notice", slog.String("code", code))
	if fn != nil {
		fn(Notice{Code: code, Message: msg})
	}
}

func (d *Document) event(name string, props map[string]any) {
	if d.events != nil {
		d.events.Event(name, props)
	}
}

// schedule requests a capture after a command.
func (d *Document) schedule(reason string) {
	d.history.Schedule(reason, undo.ScheduleOptions{})
}

func (d *Document) scheduleNow(reason string, force bool) {
	d.history.Schedule(reason, undo.ScheduleOptions{Immediate: true, Force: force})
}

// commit writes a new history entry to the journal.
func (d *Document) commit(reason string, s snapshot.Snapshot) {
	if d.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	id := d.ID()
	if err := d.journal.Save(ctx, id, reason, s.Data, s.TS); err != nil {
		d.log.Warn("journal write failed", slog.String("reason", reason), slog.Any("err", err))
		return
	}
	d.mu.Lock()
	d.journaled++
	d.mu.Unlock()
	if _, err := d.journal.Prune(ctx, id, d.cfg.Journal.Keep); err != nil {
		d.log.Warn("journal prune failed", slog.Any("err", err))
	}
}

// Undo restores the previous history entry.
func (d *Document) Undo(ctx context.Context) (bool, error) {
	ok, err := d.history.Undo(ctx)
	if ok {
		d.event("history.undo", nil)
	}
	return ok, err
}

// Redo restores the next history entry.
func (d *Document) Redo(ctx context.Context) (bool, error) {
	ok, err := d.history.Redo(ctx)
	if ok {
		d.event("history.redo", nil)
	}
	return ok, err
}

// Copy puts the selection on the clipboard. An empty selection is a no-op
// that reports false.
func (d *Document) Copy(ctx context.Context) (bool, error) {
	err := d.clip.Copy(ctx)
	if errors.Is(err, clipboard.ErrEmptySelection) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	d.event("clipboard.copy", nil)
	d.refresh()
	return true, nil
}

// Paste inserts the clipboard content with a cascading offset.
func (d *Document) Paste(ctx context.Context) (bool, error) {
	objs, err := d.clip.Paste(ctx)
	if errors.Is(err, clipboard.ErrNothingToPaste) {
		return false, nil
	}
	if err != nil {
		d.notify("paste-failed", "The clipboard content could not be pasted.")
		return false, err
	}
	d.schedule("paste")
	d.event("clipboard.paste", map[string]any{"objects": len(objs)})
	d.refresh()
	return true, nil
}

// Recover restores the newest journaled snapshot. An empty docID picks the
// newest entry of any document, and the document adopts that id. History
// restarts from the recovered state.
func (d *Document) Recover(ctx context.Context, docID string) error {
	if d.journal == nil {
		return ErrNoJournal
	}
	e, ok, err := d.journal.Latest(ctx, docID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNothingToRecover
	}
	if err := d.codec.Restore(ctx, snapshot.Snapshot{Data: e.Data, TS: e.TS}); err != nil {
		return fmt.Errorf("recover %s: %w", e.DocID, err)
	}
	d.mu.Lock()
	d.docID = e.DocID
	d.mu.Unlock()
	d.history.Reset()
	if _, err := d.history.CaptureNow("recover", true); err != nil {
		return err
	}
	d.log.Info("document recovered", slog.String("from", e.DocID), slog.String("reason", e.Reason), slog.Time("ts", e.TS))
	return nil
}

// Journaled reports how many entries this document wrote to the journal.
func (d *Document) Journaled() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.journaled
}

// Autosave writes the current design to the journal right away, tagged
// "crash". It does not touch the history log.
func (d *Document) Autosave(ctx context.Context) error {
	if d.journal == nil {
		return ErrNoJournal
	}
	s, err := d.codec.Capture()
	if err != nil {
		return err
	}
	return d.journal.Save(ctx, d.ID(), "crash", s.Data, s.TS)
}
