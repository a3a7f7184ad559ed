/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package touch turns successive single-finger taps into one growing
// selection while multi-select mode is on.
package touch

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	applog "posterkit/internal/log"
	"posterkit/internal/scene"
)

// Graph is the view of the scene graph the merger needs.
type Graph interface {
	Contains(o scene.Object) bool
	ActiveObjects() []scene.Object
	SetActiveObject(o scene.Object)
	DiscardActiveObject()
	On(name scene.EventName, fn scene.Handler) func()
}

// IsTouchLike classifies the input behind an event. Touch point lists win,
// then the pointer type (string or numeric), then the raw event type prefix.
func IsTouchLike(p *scene.Pointer) bool {
	switch {
	case p == nil:
		return false
	case p.Touches > 0 || p.ChangedTouches > 0:
		return true
	case p.PointerType != "":
		return p.PointerType == "touch"
	case p.PointerKind != 0:
		return p.PointerKind == 2
	default:
		return strings.HasPrefix(p.Type, "touch")
	}
}

// Merger keeps the multi-select buffer in sync with canvas events.
type Merger struct {
	g   Graph
	log *slog.Logger

	mu               sync.Mutex
	mode             bool
	buffer           []scene.Object
	lastWasTouch     bool
	tapStartedOnItem bool
	syncing          bool
	unsubscribe      []func()
}

func NewMerger(g Graph) *Merger {
	return &Merger{g: g, log: applog.WithComponent("touch")}
}

// Attach subscribes to the canvas events. Calling it twice is a no-op.
func (m *Merger) Attach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		return
	}
	m.unsubscribe = []func(){
		m.g.On(scene.MouseDown, m.onMouseDown),
		m.g.On(scene.SelectionCreated, m.onSelection),
		m.g.On(scene.SelectionUpdated, m.onSelection),
		m.g.On(scene.SelectionCleared, m.onCleared),
		m.g.On(scene.ObjectRemoved, m.onRemoved),
	}
}

// Detach removes the subscriptions.
func (m *Merger) Detach() {
	m.mu.Lock()
	fns := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// SetMode switches multi-select mode; the buffer starts empty either way.
func (m *Merger) SetMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = on
	m.buffer = nil
}

func (m *Merger) Mode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Buffer returns the accumulated objects in tap order.
func (m *Merger) Buffer() []scene.Object {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.buffer)
}

// Clear empties the buffer.
func (m *Merger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = nil
}

func (m *Merger) existingLocked() []scene.Object {
	return slices.DeleteFunc(slices.Clone(m.buffer), func(o scene.Object) bool { return !m.g.Contains(o) })
}

func (m *Merger) onMouseDown(ev scene.Event) {
	touch := IsTouchLike(ev.Pointer)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastWasTouch = touch
	m.tapStartedOnItem = touch && ev.Target != nil
}

func (m *Merger) onSelection(ev scene.Event) {
	m.mu.Lock()
	if !m.mode || m.syncing || !IsTouchLike(ev.Pointer) {
		m.mu.Unlock()
		return
	}
	active := m.g.ActiveObjects()
	if len(active) == 0 {
		m.mu.Unlock()
		return
	}
	existing := m.existingLocked()
	merged := slices.Clone(existing)
	for _, o := range active {
		if !slices.Contains(merged, o) {
			merged = append(merged, o)
		}
	}
	if len(merged) == len(existing) {
		m.mu.Unlock()
		return
	}
	m.buffer = merged
	if len(merged) < 2 {
		m.mu.Unlock()
		return
	}
	m.syncing = true
	m.mu.Unlock()

	m.g.SetActiveObject(scene.NewActiveSelection(merged...))

	m.mu.Lock()
	m.syncing = false
	m.mu.Unlock()
	m.log.Debug("touch selection merged", slog.Int("members", len(merged)))
}

// onCleared purges the buffer on a tap into empty space, or on any explicit
// clear made with a non-touch pointer. Programmatic clears keep it.
func (m *Merger) onCleared(ev scene.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mode || m.syncing {
		return
	}
	touch := IsTouchLike(ev.Pointer) || m.lastWasTouch
	switch {
	case touch:
		if !m.tapStartedOnItem {
			m.buffer = nil
		}
	case ev.Pointer != nil:
		m.buffer = nil
	}
}

func (m *Merger) onRemoved(ev scene.Event) {
	m.mu.Lock()
	if len(m.buffer) == 0 {
		m.mu.Unlock()
		return
	}
	filtered := slices.DeleteFunc(m.existingLocked(), func(o scene.Object) bool { return o == ev.Target })
	if len(filtered) == len(m.buffer) {
		m.mu.Unlock()
		return
	}
	m.buffer = filtered
	if !m.mode {
		m.mu.Unlock()
		return
	}
	m.syncing = true
	m.mu.Unlock()

	switch len(filtered) {
	case 0:
		m.g.DiscardActiveObject()
	case 1:
		m.g.SetActiveObject(filtered[0])
	default:
		m.g.SetActiveObject(scene.NewActiveSelection(filtered...))
	}

	m.mu.Lock()
	m.syncing = false
	m.mu.Unlock()
}
