/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package touch

import (
	"testing"

	"posterkit/internal/scene"
)

var tap = scene.Pointer{Type: "touchstart", Touches: 1}

func setup(t *testing.T) (*scene.Canvas, *Merger, []scene.Object) {
	t.Helper()
	c := scene.NewCanvas(1000, 1000, "#fff")
	objs := []scene.Object{scene.NewRect(10, 10), scene.NewText("b"), scene.NewImage("c.png", 10, 10)}
	c.Add(objs...)
	m := NewMerger(c)
	m.Attach()
	t.Cleanup(m.Detach)
	m.SetMode(true)
	return c, m, objs
}

func sameSet(got, want []scene.Object) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestIsTouchLike(t *testing.T) {
	cases := []struct {
		name string
		p    *scene.Pointer
		want bool
	}{
		{"nil", nil, false},
		{"touch list", &scene.Pointer{Type: "mousedown", Touches: 1}, true},
		{"changed touches", &scene.Pointer{ChangedTouches: 2}, true},
		{"pointer type touch", &scene.Pointer{Type: "pointerdown", PointerType: "touch"}, true},
		{"pointer type mouse wins over name", &scene.Pointer{Type: "touchstart", PointerType: "mouse"}, false},
		{"numeric touch", &scene.Pointer{PointerKind: 2}, true},
		{"numeric pen", &scene.Pointer{Type: "touchstart", PointerKind: 3}, false},
		{"type prefix", &scene.Pointer{Type: "touchend"}, true},
		{"mouse", &scene.Pointer{Type: "mousedown"}, false},
	}
	for _, c := range cases {
		if got := IsTouchLike(c.p); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestTapsAccumulate(t *testing.T) {
	c, m, objs := setup(t)
	for _, o := range objs {
		c.PointerDown(tap, o)
	}
	if !sameSet(m.Buffer(), objs) {
		t.Fatalf("buffer = %v", m.Buffer())
	}
	sel, ok := c.ActiveObject().(*scene.ActiveSelection)
	if !ok || !sameSet(sel.Members, objs) {
		t.Fatalf("active selection is %T", c.ActiveObject())
	}

	c.PointerDown(tap, nil)
	if len(m.Buffer()) != 0 || c.ActiveObject() != nil {
		t.Fatalf("empty-space tap did not start fresh: %v", m.Buffer())
	}
}

func TestTapOnMemberKeepsSelection(t *testing.T) {
	c, m, objs := setup(t)
	c.PointerDown(tap, objs[0])
	c.PointerDown(tap, objs[1])
	c.PointerDown(tap, objs[0])
	if !sameSet(m.Buffer(), objs[:2]) {
		t.Fatalf("buffer = %v", m.Buffer())
	}
	if len(c.ActiveObjects()) != 2 {
		t.Fatalf("selection collapsed to %d", len(c.ActiveObjects()))
	}
}

func TestModeOffReplacesSelection(t *testing.T) {
	c, m, objs := setup(t)
	m.SetMode(false)
	c.PointerDown(tap, objs[0])
	c.PointerDown(tap, objs[1])
	if len(m.Buffer()) != 0 {
		t.Fatalf("buffer filled with mode off")
	}
	if c.ActiveObject() != objs[1] {
		t.Fatalf("default tap should replace the selection")
	}
}

func TestMouseClicksDoNotMerge(t *testing.T) {
	c, m, objs := setup(t)
	click := scene.Pointer{Type: "mousedown", PointerType: "mouse"}
	c.PointerDown(tap, objs[0])
	c.PointerDown(click, objs[1])
	if c.ActiveObject() != objs[1] {
		t.Fatalf("mouse click should replace the selection")
	}
	c.PointerDown(click, nil)
	if len(m.Buffer()) != 0 {
		t.Fatalf("explicit mouse clear kept buffer %v", m.Buffer())
	}
}

func TestProgrammaticClearKeepsBuffer(t *testing.T) {
	c, m, objs := setup(t)
	c.PointerDown(tap, objs[0])
	c.PointerDown(tap, objs[1])
	c.DiscardActiveObject()
	if !sameSet(m.Buffer(), objs[:2]) {
		t.Fatalf("buffer = %v", m.Buffer())
	}
}

func TestRemovalPrunesAndReapplies(t *testing.T) {
	c, m, objs := setup(t)
	for _, o := range objs {
		c.PointerDown(tap, o)
	}
	c.Remove(objs[1])
	want := []scene.Object{objs[0], objs[2]}
	if !sameSet(m.Buffer(), want) || !sameSet(c.ActiveObjects(), want) {
		t.Fatalf("after removing B: buffer %v active %v", m.Buffer(), c.ActiveObjects())
	}
	c.Remove(objs[2])
	if c.ActiveObject() != objs[0] {
		t.Fatalf("singleton buffer should select the object directly, got %T", c.ActiveObject())
	}
	c.Remove(objs[0])
	if len(m.Buffer()) != 0 || c.ActiveObject() != nil {
		t.Fatalf("empty buffer should clear the selection")
	}
}
