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
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"posterkit/internal/imagefx"
	"posterkit/internal/scene"
)

// Aspect is a canvas size preset.
type Aspect struct {
	Key  string
	W, H float64
}

var aspects = map[string]Aspect{
	"1:1":  {"1:1", 1080, 1080},
	"4:3":  {"4:3", 1200, 900},
	"3:4":  {"3:4", 900, 1200},
	"9:16": {"9:16", 1080, 1920},
	"16:9": {"16:9", 1920, 1080},
	"A4P":  {"A4P", 2100, 2970},
	"A4L":  {"A4L", 2970, 2100},
	"A5P":  {"A5P", 1480, 2100},
	"A5L":  {"A5L", 2100, 1480},
}

// Aspects lists the preset keys in sorted order.
func Aspects() []string {
	keys := make([]string, 0, len(aspects))
	for k := range aspects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Align targets for AlignToCanvas.
const (
	AlignLeft    = "left"
	AlignCenterH = "centerH"
	AlignRight   = "right"
	AlignTop     = "top"
	AlignCenterV = "centerV"
	AlignBottom  = "bottom"
)

const duplicateOffset = 20

func withID(o scene.Object) scene.Object {
	o.Base().Set("id", uuid.NewString())
	return o
}

// place adds o centered on the canvas, selects it and schedules a capture.
func (d *Document) place(o scene.Object, reason string) {
	w, h := d.canvas.Size()
	p := o.Base()
	p.OriginX, p.OriginY = "center", "center"
	p.Left, p.Top = w/2, h/2
	d.canvas.Add(withID(o))
	d.canvas.SetActiveObject(o)
	d.schedule(reason)
}

// AddText adds a textbox in the middle of the canvas.
func (d *Document) AddText(s string) *scene.Text {
	w, _ := d.canvas.Size()
	t := scene.NewText(s)
	t.Width = w * 0.6
	t.FontFamily = "Inter"
	t.Fill = scene.Solid("#000000")
	d.place(t, "add-text")
	return t
}

// AddRect adds a rounded rectangle in the middle of the canvas.
func (d *Document) AddRect() *scene.Rect {
	w, h := d.canvas.Size()
	r := scene.NewRect(math.Round(w*0.45), math.Round(h*0.28))
	r.RX, r.RY = 12, 12
	r.Fill = scene.Solid("#ffffff")
	r.Stroke = "#111827"
	r.StrokeWidth = 2
	r.Set("cornerStyle", "circle")
	d.place(r, "add-rect")
	return r
}

// AddImage loads src and adds it centered, scaled down to fit 80% of the canvas.
func (d *Document) AddImage(ctx context.Context, src string) (*scene.Image, error) {
	img, err := imagefx.Load(ctx, src)
	if err != nil {
		d.notify("image-load", "The image could not be loaded.")
		return nil, err
	}
	b := img.Bounds()
	o := scene.NewImage(src, float64(b.Dx()), float64(b.Dy()))
	cw, ch := d.canvas.Size()
	if s := math.Min(cw*0.8/o.Width, ch*0.8/o.Height); s < 1 {
		o.ScaleX, o.ScaleY = s, s
	}
	d.place(o, "add-image")
	return o, nil
}

// selected returns the active objects ordered bottom to top.
func (d *Document) selected() []scene.Object {
	objs := d.canvas.ActiveObjects()
	slices.SortStableFunc(objs, func(a, b scene.Object) int { return d.canvas.IndexOf(a) - d.canvas.IndexOf(b) })
	return objs
}

func (d *Document) zorder(reason string, move func(scene.Object) bool, topFirst bool) bool {
	objs := d.selected()
	if len(objs) == 0 {
		return false
	}
	if topFirst {
		slices.Reverse(objs)
	}
	for _, o := range objs {
		move(o)
	}
	d.schedule(reason)
	return true
}

func (d *Document) BringToFront() bool {
	return d.zorder("zorder-front", d.canvas.BringToFront, false)
}

func (d *Document) SendToBack() bool {
	return d.zorder("zorder-back", d.canvas.SendToBack, true)
}

func (d *Document) BringForward() bool {
	return d.zorder("zorder-forward", d.canvas.BringForward, true)
}

func (d *Document) SendBackwards() bool {
	return d.zorder("zorder-backwards", d.canvas.SendBackwards, false)
}

// Delete removes the selected objects.
func (d *Document) Delete() bool {
	objs := d.canvas.ActiveObjects()
	if len(objs) == 0 {
		return false
	}
	d.canvas.Remove(objs...)
	d.canvas.DiscardActiveObject()
	d.schedule("delete")
	return true
}

// Duplicate clones the selection offset by 20px and selects the copies.
func (d *Document) Duplicate() bool {
	objs := d.selected()
	if len(objs) == 0 {
		return false
	}
	clones := make([]scene.Object, len(objs))
	for i, o := range objs {
		c := withID(scene.Clone(o))
		c.Base().Left += duplicateOffset
		c.Base().Top += duplicateOffset
		clones[i] = c
	}
	d.canvas.Add(clones...)
	if len(clones) > 1 {
		d.canvas.SetActiveObject(scene.NewActiveSelection(clones...))
	} else {
		d.canvas.SetActiveObject(clones[0])
	}
	d.schedule("duplicate")
	return true
}

// Group turns a selection of two or more objects into a group placed at the
// stacking position of its lowest member.
func (d *Document) Group() (*scene.Group, bool) {
	objs := d.selected()
	if len(objs) < 2 {
		d.refresh()
		return nil, false
	}
	idx := d.canvas.IndexOf(objs[0])
	b := scene.BoundingRect(objs[0])
	for _, o := range objs[1:] {
		b = b.Union(scene.BoundingRect(o))
	}

	d.merger.Clear()
	d.canvas.DiscardActiveObject()
	d.canvas.Remove(objs...)

	g := &scene.Group{Props: scene.DefaultProps(), Objects: objs}
	g.Left, g.Top, g.Width, g.Height = b.X, b.Y, b.W, b.H
	for _, o := range objs {
		p := o.Base()
		p.Left -= b.X
		p.Top -= b.Y
	}
	d.canvas.InsertAt(withID(g), idx)
	d.canvas.SetActiveObject(g)
	d.schedule("group")
	return g, true
}

// Ungroup puts the children of the active group back on the canvas where the
// group was and selects them.
func (d *Document) Ungroup() ([]scene.Object, bool) {
	g, ok := d.canvas.ActiveObject().(*scene.Group)
	if !ok {
		d.refresh()
		return nil, false
	}
	idx := d.canvas.IndexOf(g)
	d.canvas.Remove(g)

	children := slices.Clone(g.Objects)
	for i, o := range children {
		p := o.Base()
		p.Left = g.Left + p.Left*g.ScaleX
		p.Top = g.Top + p.Top*g.ScaleY
		p.ScaleX *= g.ScaleX
		p.ScaleY *= g.ScaleY
		d.canvas.InsertAt(o, idx+i)
	}
	switch len(children) {
	case 0:
	case 1:
		d.canvas.SetActiveObject(children[0])
	default:
		d.canvas.SetActiveObject(scene.NewActiveSelection(children...))
	}
	if d.merger.Mode() {
		d.merger.Clear()
	}
	d.schedule("ungroup")
	return children, true
}

// AlignToCanvas moves the selection so its bounding box touches the given
// canvas edge or center line. Positions are rounded to whole pixels.
func (d *Document) AlignToCanvas(where string) (bool, error) {
	active := d.canvas.ActiveObject()
	if active == nil {
		return false, nil
	}
	w, h := d.canvas.Size()
	br := scene.BoundingRect(active)
	var dx, dy float64
	switch where {
	case AlignLeft:
		dx = -br.X
	case AlignCenterH:
		dx = w/2 - (br.X + br.W/2)
	case AlignRight:
		dx = w - (br.X + br.W)
	case AlignTop:
		dy = -br.Y
	case AlignCenterV:
		dy = h/2 - (br.Y + br.H/2)
	case AlignBottom:
		dy = h - (br.Y + br.H)
	default:
		return false, fmt.Errorf("unknown alignment %q", where)
	}
	targets := []scene.Object{active}
	if sel, ok := active.(*scene.ActiveSelection); ok {
		targets = append(targets, sel.Members...)
	}
	d.canvas.Update(func() {
		for _, o := range targets {
			p := o.Base()
			p.Left = math.Round(p.Left + dx)
			p.Top = math.Round(p.Top + dy)
		}
	})
	d.schedule("align-" + where)
	return true, nil
}

// SetBackground fills the paper with color.
func (d *Document) SetBackground(color string) {
	d.canvas.SetBackground(color)
	d.scheduleNow("background", false)
}

// SetVignette adds or replaces the radial vignette overlay. Strength is the
// edge opacity, capped at 0.9.
func (d *Document) SetVignette(color string, strength float64) error {
	r, g, b, err := parseHex(color)
	if err != nil {
		return err
	}
	strength = math.Max(0, math.Min(0.9, strength))
	w, h := d.canvas.Size()
	cx, cy := w/2, h/2
	v := scene.NewRect(w, h)
	v.Fill = scene.Paint{Gradient: &scene.Gradient{
		Type:  "radial",
		X1:    cx,
		Y1:    cy,
		R1:    math.Min(w, h) * 0.25,
		X2:    cx,
		Y2:    cy,
		R2:    math.Max(w, h) * 0.75,
		Stops: []scene.ColorStop{
			{Offset: 0, Color: rgba(r, g, b, 0)},
			{Offset: 1, Color: rgba(r, g, b, strength)},
		},
	}}
	d.canvas.SetVignette(v)
	d.scheduleNow("vignette", false)
	return nil
}

// RemoveVignette drops the vignette overlay; it reports false if there was none.
func (d *Document) RemoveVignette() bool {
	if d.canvas.Vignette() == nil {
		return false
	}
	d.canvas.SetVignette(nil)
	d.scheduleNow("remove-vignette", false)
	return true
}

// SetAspect resizes the canvas to a preset.
func (d *Document) SetAspect(key string) error {
	a, ok := aspects[key]
	if !ok {
		return fmt.Errorf("unknown aspect %q", key)
	}
	d.canvas.Resize(a.W, a.H)
	d.scheduleNow("aspect-"+key, false)
	return nil
}

// NewDesign removes every design object. The background and vignette stay.
func (d *Document) NewDesign() {
	d.merger.Clear()
	d.canvas.DiscardActiveObject()
	d.canvas.Remove(d.canvas.DesignObjects()...)
	d.scheduleNow("new-design", true)
	d.event("document.new", nil)
}

func parseHex(s string) (r, g, b uint8, err error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q", s)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q", s)
	}
	return uint8(n >> 16), uint8(n >> 8), uint8(n), nil
}

func rgba(r, g, b uint8, a float64) string {
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, strconv.FormatFloat(a, 'f', -1, 64))
}
