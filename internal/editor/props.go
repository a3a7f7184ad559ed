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
	"math"

	"posterkit/internal/scene"
)

const (
	minFontSize = 8
	maxFontSize = 512
)

func clampFontSize(v float64) float64 {
	return math.Max(minFontSize, math.Min(maxFontSize, math.Round(v)))
}

// TextProps is the full set of text attributes applied by ApplyTextProps.
// A stroke is only kept when StrokeWidth is positive.
type TextProps struct {
	FontFamily  string
	FontSize    float64
	Fill        string
	Stroke      string
	StrokeWidth float64
	Align       string
}

// RectProps is the set of rectangle attributes applied by ApplyRectProps.
type RectProps struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
	Corner      float64
}

func (d *Document) activeText() *scene.Text {
	t, _ := d.canvas.ActiveObject().(*scene.Text)
	return t
}

func (d *Document) activeTexts() []*scene.Text {
	var out []*scene.Text
	for _, o := range d.canvas.ActiveObjects() {
		if t, ok := o.(*scene.Text); ok {
			out = append(out, t)
		}
	}
	return out
}

// editTexts applies fn to the selected text objects and schedules a capture.
func (d *Document) editTexts(reason string, fn func(*scene.Text)) bool {
	texts := d.activeTexts()
	if len(texts) == 0 {
		return false
	}
	d.canvas.Update(func() {
		for _, t := range texts {
			fn(t)
		}
	})
	d.schedule(reason)
	return true
}

// ApplyTextProps sets every text attribute of the active text object.
func (d *Document) ApplyTextProps(p TextProps) bool {
	t := d.activeText()
	if t == nil {
		return false
	}
	d.canvas.Update(func() {
		if p.FontFamily != "" {
			t.FontFamily = p.FontFamily
		}
		t.FontSize = clampFontSize(p.FontSize)
		t.Fill = scene.Solid(p.Fill)
		t.StrokeWidth = math.Max(0, p.StrokeWidth)
		t.Stroke = ""
		if t.StrokeWidth > 0 {
			t.Stroke = p.Stroke
		}
		if p.Align != "" {
			t.TextAlign = p.Align
		}
		if t.Type() == scene.KindTextbox {
			t.Set("splitByGrapheme", false)
		}
	})
	d.schedule("text-props")
	return true
}

func (d *Document) SetTextColor(color string) bool {
	return d.editTexts("text-color", func(t *scene.Text) { t.Fill = scene.Solid(color) })
}

func (d *Document) SetFontFamily(family string) bool {
	return d.editTexts("font-family", func(t *scene.Text) { t.FontFamily = family })
}

// SetFontSize sets the font size, rounded and clamped to 8..512.
func (d *Document) SetFontSize(size float64) bool {
	size = clampFontSize(size)
	return d.editTexts("font-size", func(t *scene.Text) { t.FontSize = size })
}

func (d *Document) SetTextAlign(align string) bool {
	switch align {
	case "left", "center", "right", "justify":
	default:
		return false
	}
	return d.editTexts("text-align-"+align, func(t *scene.Text) { t.TextAlign = align })
}

func (d *Document) SetTextStroke(color string, width float64) bool {
	return d.editTexts("textbox-stroke-width", func(t *scene.Text) {
		t.StrokeWidth = math.Max(0, width)
		t.Stroke = ""
		if t.StrokeWidth > 0 {
			t.Stroke = color
		}
	})
}

// SetTextBackground sets the background of the active textbox; none clears it.
func (d *Document) SetTextBackground(color string, none bool) bool {
	t := d.activeText()
	if t == nil || t.Type() != scene.KindTextbox {
		return false
	}
	d.canvas.Update(func() {
		t.BackgroundColor = color
		if none {
			t.BackgroundColor = ""
		}
	})
	d.schedule("text-background")
	return true
}

// ApplyRectProps sets fill, stroke and corner radius of the active rectangle.
func (d *Document) ApplyRectProps(p RectProps) bool {
	r, ok := d.canvas.ActiveObject().(*scene.Rect)
	if !ok {
		return false
	}
	d.canvas.Update(func() {
		r.Fill = scene.Solid(p.Fill)
		r.Stroke = p.Stroke
		r.StrokeWidth = math.Max(0, p.StrokeWidth)
		r.RX, r.RY = p.Corner, p.Corner
	})
	d.schedule("rect-props")
	return true
}

// SetOpacity sets the opacity of every selected object, clamped to 0..1.
func (d *Document) SetOpacity(v float64) bool {
	objs := d.canvas.ActiveObjects()
	if len(objs) == 0 {
		return false
	}
	v = math.Max(0, math.Min(1, v))
	d.canvas.Update(func() {
		for _, o := range objs {
			o.Base().Opacity = v
		}
	})
	d.schedule("opacity")
	return true
}
