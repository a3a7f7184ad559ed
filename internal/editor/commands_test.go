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
	"image"
	"image/color"
	"math"
	"testing"

	"posterkit/internal/imagefx"
	"posterkit/internal/scene"
)

func rectAt(x, y, w, h float64) *scene.Rect {
	r := scene.NewRect(w, h)
	r.Left, r.Top = x, y
	return r
}

func TestZOrder(t *testing.T) {
	d := newTestDoc(t, nil)
	a, b, c := rectAt(0, 0, 10, 10), rectAt(5, 5, 10, 10), rectAt(9, 9, 10, 10)
	d.Canvas().Add(a, b, c)
	d.Canvas().SetActiveObject(a)
	if !d.BringToFront() {
		t.Fatalf("bring to front reported nothing selected")
	}
	if got := d.Canvas().IndexOf(a); got != 2 {
		t.Fatalf("front: got index %d want 2", got)
	}
	d.SendBackwards()
	if got := d.Canvas().IndexOf(a); got != 1 {
		t.Fatalf("backwards: got index %d want 1", got)
	}
	d.SendToBack()
	if got := d.Canvas().IndexOf(a); got != 0 {
		t.Fatalf("back: got index %d want 0", got)
	}
	// Composite selections keep their relative order.
	d.Canvas().SetActiveObject(scene.NewActiveSelection(a, b))
	d.BringToFront()
	objs := d.Canvas().DesignObjects()
	if objs[0] != c || objs[1] != a || objs[2] != b {
		t.Fatalf("composite front: got %v", objs)
	}
	if !d.History().Pending() {
		t.Fatalf("z-order should schedule a capture")
	}
}

func TestDeleteAndDuplicate(t *testing.T) {
	d := newTestDoc(t, nil)
	if d.Delete() || d.Duplicate() {
		t.Fatalf("commands without selection must be no-ops")
	}
	a := rectAt(100, 100, 50, 50)
	d.Canvas().Add(a)
	d.Canvas().SetActiveObject(a)
	if !d.Duplicate() {
		t.Fatalf("duplicate failed")
	}
	objs := d.Canvas().DesignObjects()
	if len(objs) != 2 {
		t.Fatalf("objects: got %d want 2", len(objs))
	}
	dup := objs[1]
	if dup.Base().Left != 120 || dup.Base().Top != 120 || d.Canvas().ActiveObject() != dup {
		t.Fatalf("duplicate: got (%v,%v)", dup.Base().Left, dup.Base().Top)
	}
	d.Canvas().SetActiveObject(scene.NewActiveSelection(a, dup))
	if !d.Delete() {
		t.Fatalf("delete failed")
	}
	if n := len(d.Canvas().DesignObjects()); n != 0 || d.Canvas().ActiveObject() != nil {
		t.Fatalf("after delete: %d objects, active %v", n, d.Canvas().ActiveObject())
	}
}

func TestGroupUngroup(t *testing.T) {
	d := newTestDoc(t, nil)
	a, b := rectAt(100, 100, 50, 50), rectAt(300, 200, 50, 50)
	top := rectAt(0, 0, 10, 10)
	d.Canvas().Add(a, b, top)

	d.Canvas().SetActiveObject(a)
	if _, ok := d.Group(); ok {
		t.Fatalf("group needs two objects")
	}
	d.Canvas().SetActiveObject(scene.NewActiveSelection(b, a))
	g, ok := d.Group()
	if !ok {
		t.Fatalf("group failed")
	}
	if g.Left != 100 || g.Top != 100 || g.Width != 250 || g.Height != 150 {
		t.Fatalf("group bounds: %+v", g.Props)
	}
	if len(g.Objects) != 2 || g.Objects[0] != a || b.Left != 200 || b.Top != 100 {
		t.Fatalf("children: %v b at (%v,%v)", g.Objects, b.Left, b.Top)
	}
	objs := d.Canvas().DesignObjects()
	if len(objs) != 2 || objs[0] != g || objs[1] != top {
		t.Fatalf("stack after group: %v", objs)
	}
	if d.Canvas().ActiveObject() != g || !d.Controls().CanUngroup {
		t.Fatalf("group should be selected and ungroupable")
	}

	children, ok := d.Ungroup()
	if !ok || len(children) != 2 {
		t.Fatalf("ungroup: ok=%v %v", ok, children)
	}
	if a.Left != 100 || a.Top != 100 || b.Left != 300 || b.Top != 200 {
		t.Fatalf("positions after ungroup: a(%v,%v) b(%v,%v)", a.Left, a.Top, b.Left, b.Top)
	}
	objs = d.Canvas().DesignObjects()
	if len(objs) != 3 || objs[0] != a || objs[1] != b || objs[2] != top {
		t.Fatalf("stack after ungroup: %v", objs)
	}
	if _, ok := d.Canvas().ActiveObject().(*scene.ActiveSelection); !ok {
		t.Fatalf("children should be selected as a composite")
	}
}

func TestAlignToCanvas(t *testing.T) {
	d := newTestDoc(t, nil)
	r := rectAt(10.4, 10, 100, 50)
	d.Canvas().Add(r)
	d.Canvas().SetActiveObject(r)
	if ok, err := d.AlignToCanvas(AlignRight); !ok || err != nil {
		t.Fatalf("align: ok=%v err=%v", ok, err)
	}
	if r.Left != 1380 {
		t.Fatalf("right: got %v want 1380", r.Left)
	}
	d.AlignToCanvas(AlignCenterV)
	if r.Top != 1025 {
		t.Fatalf("centerV: got %v want 1025", r.Top)
	}
	if _, err := d.AlignToCanvas("diagonal"); err == nil {
		t.Fatalf("expected error for unknown alignment")
	}
}

func TestBackgroundVignetteAspect(t *testing.T) {
	d := newTestDoc(t, nil)
	d.SetBackground("#112233")
	if d.History().Len() != 2 || d.Canvas().Background() != "#112233" {
		t.Fatalf("background should capture immediately")
	}
	if err := d.SetVignette("#000", 2); err != nil {
		t.Fatalf("vignette: %v", err)
	}
	v := d.Canvas().Vignette()
	if v == nil || v.Fill.Gradient == nil {
		t.Fatalf("vignette overlay missing")
	}
	if got := v.Fill.Gradient.Stops[1].Color; got != "rgba(0,0,0,0.9)" {
		t.Fatalf("strength cap: got %s", got)
	}
	if d.History().Len() != 3 {
		t.Fatalf("vignette should capture immediately, len %d", d.History().Len())
	}
	if err := d.SetVignette("zzz", 0.5); err == nil {
		t.Fatalf("expected error for bad color")
	}
	if !d.RemoveVignette() || d.RemoveVignette() {
		t.Fatalf("remove vignette should succeed once")
	}
	if err := d.SetAspect("16:9"); err != nil {
		t.Fatalf("aspect: %v", err)
	}
	if w, h := d.Canvas().Size(); w != 1920 || h != 1080 {
		t.Fatalf("size: got %vx%v", w, h)
	}
	if err := d.SetAspect("2:1"); err == nil {
		t.Fatalf("expected error for unknown aspect")
	}
}

func TestNewDesignForcesCapture(t *testing.T) {
	d := newTestDoc(t, nil)
	d.NewDesign()
	if got := d.History().Len(); got != 2 {
		t.Fatalf("new design on empty doc: len %d want 2", got)
	}
	d.AddRect()
	_ = d.SetVignette("#ff0000", 0.4)
	d.NewDesign()
	if n := len(d.Canvas().DesignObjects()); n != 0 {
		t.Fatalf("objects: got %d", n)
	}
	if d.Canvas().Vignette() == nil {
		t.Fatalf("new design keeps the vignette")
	}
}

func TestPropertyCommits(t *testing.T) {
	d := newTestDoc(t, nil)
	txt := d.AddText("t")
	d.SetFontSize(2)
	if txt.FontSize != 8 {
		t.Fatalf("min font size: got %v", txt.FontSize)
	}
	d.SetFontSize(1000.4)
	if txt.FontSize != 512 {
		t.Fatalf("max font size: got %v", txt.FontSize)
	}
	d.ApplyTextProps(TextProps{FontFamily: "Roboto", FontSize: 40.6, Fill: "#ff0000", Stroke: "#00ff00", StrokeWidth: 0, Align: "center"})
	if txt.FontFamily != "Roboto" || txt.FontSize != 41 || txt.Fill.Color != "#ff0000" || txt.Stroke != "" || txt.TextAlign != "center" {
		t.Fatalf("text props: %+v", txt)
	}
	if d.SetTextAlign("diagonal") {
		t.Fatalf("unknown alignment must be rejected")
	}
	d.SetTextBackground("#ffffff", false)
	if txt.BackgroundColor != "#ffffff" {
		t.Fatalf("text background: %q", txt.BackgroundColor)
	}
	d.SetTextBackground("#ffffff", true)
	if txt.BackgroundColor != "" {
		t.Fatalf("text background none: %q", txt.BackgroundColor)
	}
	d.SetOpacity(3)
	if txt.Opacity != 1 {
		t.Fatalf("opacity: got %v", txt.Opacity)
	}
	if d.ApplyRectProps(RectProps{Fill: "#fff"}) {
		t.Fatalf("rect props must need a rect")
	}
	r := d.AddRect()
	d.ApplyRectProps(RectProps{Fill: "#abcdef", Stroke: "#000000", StrokeWidth: -1, Corner: 4})
	if r.Fill.Color != "#abcdef" || r.StrokeWidth != 0 || r.RX != 4 || r.RY != 4 {
		t.Fatalf("rect props: %+v", r)
	}
}

func testImageURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	img.SetNRGBA(w/2, h/2, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	url, err := imagefx.EncodePNG(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return url
}

func TestImageEffects(t *testing.T) {
	ctx := context.Background()
	var notices []Notice
	d := newTestDoc(t, func(o *Options) { o.Notifier = func(n Notice) { notices = append(notices, n) } })
	below := d.AddRect()
	src := testImageURL(t, 40, 20)
	img, err := d.AddImage(ctx, src)
	if err != nil {
		t.Fatalf("add image: %v", err)
	}
	d.AddRect()
	d.Canvas().SetActiveObject(img)
	img.Angle = 30
	img.ScaleX, img.ScaleY = 2, 3
	center := scene.CenterPoint(img)

	feathered, err := d.Feather(ctx, 4, imagefx.ShapeRect)
	if err != nil {
		t.Fatalf("feather: %v", err)
	}
	if d.Canvas().IndexOf(feathered) != 1 || d.Canvas().Contains(img) {
		t.Fatalf("feathered image must replace the original in place")
	}
	c := scene.CenterPoint(feathered)
	if math.Abs(c.X-center.X) > 1e-9 || math.Abs(c.Y-center.Y) > 1e-9 || feathered.Angle != 30 {
		t.Fatalf("center/angle: got %v %v want %v", c, feathered.Angle, center)
	}
	if w, h := scene.ScaledSize(feathered); w != 80 || h != 60 {
		t.Fatalf("displayed size: got %vx%v", w, h)
	}
	if feathered.String(keyOrigSrc) != src || feathered.String(keyMaskedSrc) != feathered.Src {
		t.Fatalf("derived sources not kept")
	}

	cleaned, err := d.RemoveBackground(ctx, 30)
	if err != nil {
		t.Fatalf("remove background: %v", err)
	}
	if cleaned.String(keyOrigSrc) != src {
		t.Fatalf("original source lost")
	}

	restored, err := d.RemoveFeather(ctx)
	if err != nil {
		t.Fatalf("remove feather: %v", err)
	}
	if restored.Src != src || restored.String(keyMaskedSrc) != "" {
		t.Fatalf("remove feather should restore the original")
	}

	cropped, err := d.Crop(ctx, image.Rect(0, 0, 10, 10))
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if cropped.Width != 10 || cropped.Height != 10 || d.Canvas().IndexOf(cropped) != 1 {
		t.Fatalf("crop: %vx%v at %d", cropped.Width, cropped.Height, d.Canvas().IndexOf(cropped))
	}

	d.Canvas().SetActiveObject(below)
	if _, err := d.Feather(ctx, 4, imagefx.ShapeCircle); !errors.Is(err, ErrNoImageSelected) {
		t.Fatalf("got %v want ErrNoImageSelected", err)
	}
	if len(notices) != 1 || notices[0].Code != "select-image" {
		t.Fatalf("notices: %v", notices)
	}
}

func TestRemoveFeatherNeedsOriginal(t *testing.T) {
	ctx := context.Background()
	d := newTestDoc(t, nil)
	if _, err := d.AddImage(ctx, testImageURL(t, 4, 4)); err != nil {
		t.Fatalf("add image: %v", err)
	}
	if _, err := d.RemoveFeather(ctx); !errors.Is(err, ErrNoOriginal) {
		t.Fatalf("got %v want ErrNoOriginal", err)
	}
}
