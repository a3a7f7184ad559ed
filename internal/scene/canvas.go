/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import (
	"slices"
	"sync"
)

// EventName identifies a canvas event.
type EventName string

const (
	ObjectAdded      EventName = "object:added"
	ObjectRemoved    EventName = "object:removed"
	ObjectModified   EventName = "object:modified"
	PathCreated      EventName = "path:created"
	TextChanged      EventName = "text:changed"
	SelectionCreated EventName = "selection:created"
	SelectionUpdated EventName = "selection:updated"
	SelectionCleared EventName = "selection:cleared"
	MouseDown        EventName = "mouse:down"
)

// Pointer describes the input event behind a canvas event. Different input
// stacks report touch differently, so every hint is kept.
type Pointer struct {
	Type           string // raw event type, e.g. "touchstart" or "mousedown"
	PointerType    string // "mouse", "pen" or "touch" when reported as a string
	PointerKind    int    // numeric pointer type; 2 means touch
	Touches        int
	ChangedTouches int
	X, Y           float64
}

// Event is delivered synchronously to subscribers after the canvas lock is
// released.
type Event struct {
	Name       EventName
	Target     Object
	Pointer    *Pointer
	Selected   []Object
	Deselected []Object
}

type Handler func(Event)

type subscription struct {
	id   int
	name EventName
	fn   Handler
}

// Canvas is an in-memory scene graph: an ordered object list holding design
// objects plus the overlay objects (paper shadow, paper, vignette, guides),
// the active selection and an event bus. It is safe for concurrent use.
type Canvas struct {
	mu       sync.RWMutex
	width    float64
	height   float64
	objects  []Object
	shadow   *Rect
	paper    *Rect
	vignette *Rect
	hguide   *Rect
	vguide   *Rect
	active   Object

	subMu  sync.RWMutex
	nextID int
	subs   []subscription
}

// NewCanvas creates a canvas of the given size with paper filled by bg.
func NewCanvas(width, height float64, bg string) *Canvas {
	c := &Canvas{width: width, height: height}
	c.shadow = overlayRect("paper-shadow", width, height)
	c.shadow.Fill = Solid(bg)
	c.shadow.Set("shadow", "rgba(0,0,0,0.25) 0 8px 24px")
	c.paper = overlayRect("paper", width, height)
	c.paper.Fill = Solid(bg)
	c.hguide = overlayRect("guide-h", width, 1)
	c.hguide.Top = height / 2
	c.hguide.Opacity = 0
	c.hguide.Fill = Solid("#ff2d55")
	c.vguide = overlayRect("guide-v", 1, height)
	c.vguide.Left = width / 2
	c.vguide.Opacity = 0
	c.vguide.Fill = Solid("#ff2d55")
	c.objects = []Object{c.shadow, c.paper, c.hguide, c.vguide}
	return c
}

func overlayRect(name string, w, h float64) *Rect {
	r := NewRect(w, h)
	r.Set("name", name)
	r.Set("selectable", false)
	r.Set("evented", false)
	return r
}

// On subscribes fn to events called name and returns the unsubscribe func.
func (c *Canvas) On(name EventName, fn Handler) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription{id: id, name: name, fn: fn})
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		c.subs = slices.DeleteFunc(c.subs, func(s subscription) bool { return s.id == id })
	}
}

func (c *Canvas) emit(events ...Event) {
	for _, ev := range events {
		c.subMu.RLock()
		var fns []Handler
		for _, s := range c.subs {
			if s.name == ev.Name {
				fns = append(fns, s.fn)
			}
		}
		c.subMu.RUnlock()
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// Size returns the canvas dimensions.
func (c *Canvas) Size() (float64, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width, c.height
}

// Resize changes the canvas size and stretches every overlay to match.
func (c *Canvas) Resize(width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
	for _, r := range []*Rect{c.shadow, c.paper, c.vignette} {
		if r != nil {
			r.Width, r.Height = width, height
		}
	}
	c.hguide.Width, c.hguide.Top = width, height/2
	c.vguide.Height, c.vguide.Left = height, width/2
}

// Background returns the paper fill color.
func (c *Canvas) Background() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paper.Fill.Color
}

// SetBackground fills the paper and its shadow with color.
func (c *Canvas) SetBackground(color string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paper.Fill = Solid(color)
	c.shadow.Fill = Solid(color)
}

// Vignette returns the vignette overlay, or nil.
func (c *Canvas) Vignette() *Rect {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vignette
}

// SetVignette replaces the vignette overlay; nil removes it. Overlay changes
// do not emit object events.
func (c *Canvas) SetVignette(v *Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vignette != nil {
		c.objects = slices.DeleteFunc(c.objects, func(o Object) bool { return o == c.vignette })
	}
	c.vignette = v
	if v != nil {
		v.Set("selectable", false)
		v.Set("evented", false)
		c.objects = append(c.objects, v)
	}
	c.orderOverlaysLocked()
}

// IsOverlay reports whether o is one of the canvas' own helper objects.
func (c *Canvas) IsOverlay(o Object) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isOverlayLocked(o)
}

func (c *Canvas) isOverlayLocked(o Object) bool {
	if o == nil {
		return false
	}
	r, ok := o.(*Rect)
	return ok && (r == c.shadow || r == c.paper || r == c.vignette || r == c.hguide || r == c.vguide)
}

// OrderOverlays puts the paper shadow at index 0, the paper at 1, the
// vignette (if any) at 2 and the guides on top.
func (c *Canvas) OrderOverlays() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orderOverlaysLocked()
}

func (c *Canvas) orderOverlaysLocked() {
	design := make([]Object, 0, len(c.objects))
	for _, o := range c.objects {
		if !c.isOverlayLocked(o) {
			design = append(design, o)
		}
	}
	out := make([]Object, 0, len(c.objects))
	out = append(out, c.shadow, c.paper)
	if c.vignette != nil {
		out = append(out, c.vignette)
	}
	out = append(out, design...)
	out = append(out, c.hguide, c.vguide)
	c.objects = out
}

// Add appends objects on top of the stack, below the guides.
func (c *Canvas) Add(objs ...Object) {
	c.mu.Lock()
	events := make([]Event, 0, len(objs))
	for _, o := range objs {
		if o == nil || c.isOverlayLocked(o) || slices.Contains(c.objects, o) {
			continue
		}
		c.objects = append(c.objects, o)
		events = append(events, Event{Name: ObjectAdded, Target: o})
	}
	c.orderOverlaysLocked()
	c.mu.Unlock()
	c.emit(events...)
}

// InsertAt places o at design index idx (0 is the bottom design object).
func (c *Canvas) InsertAt(o Object, idx int) {
	c.mu.Lock()
	design := c.designLocked()
	idx = max(0, min(idx, len(design)))
	design = slices.Insert(design, idx, o)
	c.replaceDesignLocked(design)
	c.mu.Unlock()
	c.emit(Event{Name: ObjectAdded, Target: o})
}

// Remove takes objects off the canvas. Removing the active object discards
// the selection first; removing a member of a composite selection drops it
// from that selection, and removing its last member clears the selection.
func (c *Canvas) Remove(objs ...Object) {
	c.mu.Lock()
	var events []Event
	for _, o := range objs {
		idx := slices.Index(c.objects, o)
		if idx < 0 || c.isOverlayLocked(o) {
			continue
		}
		switch a := c.active.(type) {
		case nil:
		case *ActiveSelection:
			n := len(a.Members)
			a.Members = slices.DeleteFunc(a.Members, func(m Object) bool { return m == o })
			if n > 0 && len(a.Members) == 0 {
				c.active = nil
				events = append(events, Event{Name: SelectionCleared, Deselected: []Object{o}})
			}
		default:
			if a == o {
				c.active = nil
				events = append(events, Event{Name: SelectionCleared, Deselected: []Object{o}})
			}
		}
		c.objects = slices.Delete(c.objects, idx, idx+1)
		events = append(events, Event{Name: ObjectRemoved, Target: o})
	}
	c.mu.Unlock()
	c.emit(events...)
}

// Objects returns every object in stacking order, overlays included.
func (c *Canvas) Objects() []Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.objects)
}

// DesignObjects returns the user's objects in stacking order.
func (c *Canvas) DesignObjects() []Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.designLocked()
}

func (c *Canvas) designLocked() []Object {
	out := make([]Object, 0, len(c.objects))
	for _, o := range c.objects {
		if !c.isOverlayLocked(o) {
			out = append(out, o)
		}
	}
	return out
}

func (c *Canvas) replaceDesignLocked(design []Object) {
	c.objects = append(slices.DeleteFunc(c.objects, func(o Object) bool { return !c.isOverlayLocked(o) }), design...)
	c.orderOverlaysLocked()
}

// IndexOf returns the design index of o, or -1.
func (c *Canvas) IndexOf(o Object) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Index(c.designLocked(), o)
}

// Contains reports whether o is on the canvas.
func (c *Canvas) Contains(o Object) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.objects, o)
}

// BringToFront moves o above every other design object.
func (c *Canvas) BringToFront(o Object) bool {
	return c.restack(o, func(design []Object, i int) int { return len(design) - 1 })
}

// SendToBack moves o below every other design object; the paper stays beneath.
func (c *Canvas) SendToBack(o Object) bool {
	return c.restack(o, func([]Object, int) int { return 0 })
}

// BringForward moves o one step up.
func (c *Canvas) BringForward(o Object) bool {
	return c.restack(o, func(design []Object, i int) int { return min(i+1, len(design)-1) })
}

// SendBackwards moves o one step down.
func (c *Canvas) SendBackwards(o Object) bool {
	return c.restack(o, func(_ []Object, i int) int { return max(i-1, 0) })
}

func (c *Canvas) restack(o Object, target func([]Object, int) int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	design := c.designLocked()
	i := slices.Index(design, o)
	if i < 0 {
		return false
	}
	j := target(design, i)
	if j == i {
		return false
	}
	design = slices.Delete(design, i, i+1)
	design = slices.Insert(design, j, o)
	c.replaceDesignLocked(design)
	return true
}

// ActiveObject returns the current selection: nil, a single object or an
// *ActiveSelection.
func (c *Canvas) ActiveObject() Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// ActiveObjects returns the selected objects, expanding a composite
// selection into its members.
func (c *Canvas) ActiveObjects() []Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return activeList(c.active)
}

func activeList(a Object) []Object {
	switch v := a.(type) {
	case nil:
		return nil
	case *ActiveSelection:
		return slices.Clone(v.Members)
	default:
		return []Object{v}
	}
}

// SetActiveObject makes o the selection.
func (c *Canvas) SetActiveObject(o Object) {
	c.selectWith(o, nil)
}

func (c *Canvas) selectWith(o Object, ptr *Pointer) {
	c.mu.Lock()
	prev := c.active
	if o == prev {
		c.mu.Unlock()
		return
	}
	if sel, ok := o.(*ActiveSelection); ok && len(sel.Members) > 0 {
		b := BoundingRect(sel)
		sel.Left, sel.Top, sel.Width, sel.Height = b.X, b.Y, b.W, b.H
	}
	c.active = o
	ev := Event{Name: SelectionCreated, Pointer: ptr, Selected: activeList(o)}
	if prev != nil {
		ev.Name = SelectionUpdated
		ev.Deselected = activeList(prev)
	}
	c.mu.Unlock()
	c.emit(ev)
}

// DiscardActiveObject clears the selection.
func (c *Canvas) DiscardActiveObject() {
	c.discardWith(nil)
}

func (c *Canvas) discardWith(ptr *Pointer) {
	c.mu.Lock()
	prev := c.active
	c.active = nil
	c.mu.Unlock()
	if prev != nil {
		c.emit(Event{Name: SelectionCleared, Pointer: ptr, Deselected: activeList(prev)})
	}
}

// PointerDown simulates a press on target (nil for empty canvas). A press on
// a design object selects it; a press on empty space clears the selection.
func (c *Canvas) PointerDown(ptr Pointer, target Object) {
	c.mu.RLock()
	selectable := target != nil && !c.isOverlayLocked(target) && target.Base().Interactive()
	c.mu.RUnlock()
	if !selectable {
		target = nil
	}
	c.emit(Event{Name: MouseDown, Target: target, Pointer: &ptr})
	if target == nil {
		c.discardWith(&ptr)
		return
	}
	// A press on a member of the composite selection keeps the selection.
	if sel, ok := c.ActiveObject().(*ActiveSelection); ok && slices.Contains(sel.Members, target) {
		return
	}
	c.selectWith(target, &ptr)
}

// FindTarget returns the topmost interactive design object under pt.
func (c *Canvas) FindTarget(pt Pt) Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	design := c.designLocked()
	for i := len(design) - 1; i >= 0; i-- {
		o := design[i]
		if o.Base().Interactive() && BoundingRect(o).Contains(pt) {
			return o
		}
	}
	return nil
}

// Update runs fn while holding the canvas lock. fn must not call back into
// the canvas.
func (c *Canvas) Update(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// NotifyModified reports that the user finished transforming o.
func (c *Canvas) NotifyModified(o Object) {
	c.emit(Event{Name: ObjectModified, Target: o})
}

// CommitPath adds a finished freehand stroke.
func (c *Canvas) CommitPath(p *Path) {
	c.Add(p)
	c.emit(Event{Name: PathCreated, Target: p})
}

// EditText replaces the content of t as in-place editing would.
func (c *Canvas) EditText(t *Text, s string) {
	c.mu.Lock()
	t.Text = s
	c.mu.Unlock()
	c.emit(Event{Name: TextChanged, Target: t})
}

// Serialize converts o to a record under the canvas read lock.
func (c *Canvas) Serialize(o Object, allow Allowlist) Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Serialize(o, allow)
}

// SerializeDesign serializes every design object in stacking order.
func (c *Canvas) SerializeDesign(allow Allowlist) []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	design := c.designLocked()
	out := make([]Record, len(design))
	for i, o := range design {
		out[i] = Serialize(o, allow)
	}
	return out
}
