/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps the linear history log of a document: debounced
// captures, a bounded log with a cursor, and undo/redo through an explicit
// Idle/Restoring state machine.
package undo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	applog "posterkit/internal/log"
	"posterkit/internal/snapshot"
)

// ErrRestoreInProgress is returned by Undo and Redo while another restore runs.
var ErrRestoreInProgress = errors.New("undo: restore already in progress")

// Codec captures and restores document state.
type Codec interface {
	Capture() (snapshot.Snapshot, error)
	Restore(ctx context.Context, s snapshot.Snapshot) error
}

// Config controls depth and memory caps and capture coalescing.
type Config struct {
	// Limit is the maximum number of entries; the oldest are evicted first.
	Limit int
	// Debounce coalesces scheduled captures arriving within the window.
	Debounce time.Duration
	// MaxBytes optionally caps the summed size of all entries; 0 disables it.
	// When set it may evict below Limit. The newest entry is never evicted.
	MaxBytes int
}

// State of the restore state machine.
type State int

const (
	Idle State = iota
	Restoring
)

func (s State) String() string {
	if s == Restoring {
		return "restoring"
	}
	return "idle"
}

// ScheduleOptions tune a scheduled capture.
type ScheduleOptions struct {
	// Force records the capture even if it equals the entry at the cursor.
	Force bool
	// Immediate skips the debounce window.
	Immediate bool
}

// Status is the externally visible state, passed to change listeners.
type Status struct {
	Len     int
	Cursor  int
	CanUndo bool
	CanRedo bool
	State   State
}

type pending struct {
	reason string
	force  bool
}

// Manager is the history engine of one document. It is safe for concurrent use.
type Manager struct {
	cfg   Config
	codec Codec
	log   *slog.Logger

	mu         sync.Mutex
	entries    []snapshot.Snapshot
	cursor     int
	state      State
	totalBytes int
	timer      *time.Timer
	gen        uint64
	next       *pending
	onChange   []func(Status)
	onCommit   []func(reason string, s snapshot.Snapshot)
}

func NewManager(codec Codec, cfg Config) *Manager {
	if cfg.Limit <= 0 {
		cfg.Limit = 60
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	if cfg.MaxBytes < 0 {
		cfg.MaxBytes = 0
	}
	return &Manager{cfg: cfg, codec: codec, cursor: -1, log: applog.WithComponent("history")}
}

// OnChange registers fn to receive the status after every capture, restore or reset.
func (m *Manager) OnChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// OnCommit registers fn to receive every snapshot appended to the log.
func (m *Manager) OnCommit(fn func(reason string, s snapshot.Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCommit = append(m.onCommit, fn)
}

// Init records the forced initial entry of a freshly loaded document.
func (m *Manager) Init() error {
	_, err := m.CaptureNow("init", true)
	return err
}

// Schedule requests a capture tagged with reason. It is a no-op while a
// restore is running. Pending captures are replaced: the last request within
// the debounce window wins.
func (m *Manager) Schedule(reason string, opts ScheduleOptions) {
	m.mu.Lock()
	if m.state == Restoring {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	if opts.Immediate {
		m.mu.Unlock()
		if _, err := m.CaptureNow(reason, opts.Force); err != nil {
			m.log.Error("capture failed", slog.String("reason", reason), slog.Any("err", err))
		}
		return
	}
	m.gen++
	gen := m.gen
	m.next = &pending{reason: reason, force: opts.Force}
	m.timer = time.AfterFunc(m.cfg.Debounce, func() { m.fire(gen) })
	m.mu.Unlock()
}

func (m *Manager) fire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.next == nil {
		m.mu.Unlock()
		return
	}
	p := m.next
	m.next, m.timer = nil, nil
	m.mu.Unlock()
	if _, err := m.CaptureNow(p.reason, p.force); err != nil {
		m.log.Error("debounced capture failed", slog.String("reason", p.reason), slog.Any("err", err))
	}
}

// Flush runs a pending debounced capture now. It reports whether one was pending.
func (m *Manager) Flush() (bool, error) {
	m.mu.Lock()
	p := m.next
	m.stopTimerLocked()
	m.mu.Unlock()
	if p == nil {
		return false, nil
	}
	return m.CaptureNow(p.reason, p.force)
}

// Pending reports whether a debounced capture is armed.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next != nil
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.next = nil
	m.gen++
}

// CaptureNow captures the document and appends it unless it equals the entry
// at the cursor (and force is false). Entries after the cursor are discarded.
// It reports whether an entry was appended.
func (m *Manager) CaptureNow(reason string, force bool) (bool, error) {
	m.mu.Lock()
	if m.state == Restoring {
		m.mu.Unlock()
		return false, nil
	}
	s, err := m.codec.Capture()
	if err != nil {
		m.mu.Unlock()
		return false, fmt.Errorf("capture %q: %w", reason, err)
	}
	if !force && m.cursor >= 0 && m.entries[m.cursor].Equal(s) {
		m.mu.Unlock()
		return false, nil
	}
	if m.cursor < len(m.entries)-1 {
		for _, dropped := range m.entries[m.cursor+1:] {
			m.totalBytes -= len(dropped.Data)
		}
		m.entries = m.entries[:m.cursor+1]
	}
	m.entries = append(m.entries, s)
	m.totalBytes += len(s.Data)
	m.enforceCapsLocked()
	m.cursor = len(m.entries) - 1
	st := m.statusLocked()
	changed, committed := m.hooksLocked()
	m.mu.Unlock()

	m.log.Debug("history captured", slog.String("reason", reason), slog.Int("len", st.Len), slog.Bool("force", force))
	for _, fn := range committed {
		fn(reason, s)
	}
	for _, fn := range changed {
		fn(st)
	}
	return true, nil
}

func (m *Manager) enforceCapsLocked() {
	if over := len(m.entries) - m.cfg.Limit; over > 0 {
		for _, s := range m.entries[:over] {
			m.totalBytes -= len(s.Data)
		}
		m.entries = append([]snapshot.Snapshot{}, m.entries[over:]...)
	}
	if m.cfg.MaxBytes == 0 {
		return
	}
	// Memory cap: drop from the head but keep the newest entry.
	drop := 0
	for m.totalBytes > m.cfg.MaxBytes && len(m.entries)-drop > 1 {
		m.totalBytes -= len(m.entries[drop].Data)
		drop++
	}
	if drop > 0 {
		m.entries = append([]snapshot.Snapshot{}, m.entries[drop:]...)
	}
}

// Undo moves the cursor back one entry and restores it. It reports false when
// there is nothing to undo and ErrRestoreInProgress if a restore is running.
// A failed restore puts the cursor back where it was.
func (m *Manager) Undo(ctx context.Context) (bool, error) {
	return m.step(ctx, -1)
}

// Redo moves the cursor forward one entry and restores it.
func (m *Manager) Redo(ctx context.Context) (bool, error) {
	return m.step(ctx, +1)
}

func (m *Manager) step(ctx context.Context, delta int) (bool, error) {
	m.mu.Lock()
	if m.state == Restoring {
		m.mu.Unlock()
		return false, ErrRestoreInProgress
	}
	target := m.cursor + delta
	if m.cursor < 0 || target < 0 || target >= len(m.entries) {
		m.mu.Unlock()
		return false, nil
	}
	prev := m.cursor
	m.cursor = target
	m.state = Restoring
	m.stopTimerLocked()
	s := m.entries[target]
	m.mu.Unlock()

	err := m.codec.Restore(ctx, s)

	m.mu.Lock()
	m.state = Idle
	if err != nil {
		m.cursor = prev
	}
	st := m.statusLocked()
	changed, _ := m.hooksLocked()
	m.mu.Unlock()

	for _, fn := range changed {
		fn(st)
	}
	if err != nil {
		m.log.Warn("restore failed, cursor kept", slog.Int("cursor", prev), slog.Any("err", err))
		return false, err
	}
	return true, nil
}

// Reset empties the log and cancels any pending capture.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.stopTimerLocked()
	m.entries = nil
	m.cursor = -1
	m.totalBytes = 0
	st := m.statusLocked()
	changed, _ := m.hooksLocked()
	m.mu.Unlock()
	for _, fn := range changed {
		fn(st)
	}
}

// Close cancels any pending capture.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
}

// Status returns the current state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	return Status{
		Len:     len(m.entries),
		Cursor:  m.cursor,
		CanUndo: m.state == Idle && m.cursor > 0,
		CanRedo: m.state == Idle && m.cursor >= 0 && m.cursor < len(m.entries)-1,
		State:   m.state,
	}
}

func (m *Manager) hooksLocked() ([]func(Status), []func(string, snapshot.Snapshot)) {
	return append([]func(Status){}, m.onChange...), append([]func(string, snapshot.Snapshot){}, m.onCommit...)
}

func (m *Manager) CanUndo() bool { return m.Status().CanUndo }
func (m *Manager) CanRedo() bool { return m.Status().CanRedo }
func (m *Manager) Len() int      { return m.Status().Len }
func (m *Manager) Cursor() int   { return m.Status().Cursor }

// At returns the entry at index i.
func (m *Manager) At(i int) (snapshot.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.entries) {
		return snapshot.Snapshot{}, false
	}
	return m.entries[i], true
}

// Current returns the entry at the cursor.
func (m *Manager) Current() (snapshot.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor < 0 {
		return snapshot.Snapshot{}, false
	}
	return m.entries[m.cursor], true
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBytes, len(m.entries)
}
