/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package scene is the live object graph of a poster design. It models design
// objects as a closed set of variants (text, image, rect, path, group and the
// transient active selection), serializes them to plain records that keep an
// allowlist of extra fields verbatim, and provides Canvas, the in-memory scene
// graph every other component talks to.
package scene

// Kind is the discriminant written to the "type" field of a serialized object.
type Kind string

const (
	KindTextbox         Kind = "textbox"
	KindIText           Kind = "i-text"
	KindText            Kind = "text"
	KindImage           Kind = "image"
	KindRect            Kind = "rect"
	KindPath            Kind = "path"
	KindGroup           Kind = "group"
	KindActiveSelection Kind = "activeSelection"
)

// IsTextKind reports whether k is one of the text-like subtypes.
func IsTextKind(k Kind) bool { return k == KindTextbox || k == KindIText || k == KindText }

// Object is a design object. The variant set is closed: *Text, *Image, *Rect,
// *Path, *Group and *ActiveSelection.
type Object interface {
	Type() Kind
	// Base exposes the attributes shared by every variant.
	Base() *Props
	sealed()
}

// Props are the attributes common to every object, named after their
// serialized keys. Extra holds allowlisted fields the engine carries without
// interpreting (ids, shadows, corner style, source references, ...).
type Props struct {
	Left, Top        float64
	Width, Height    float64
	ScaleX, ScaleY   float64
	Angle            float64
	SkewX, SkewY     float64
	FlipX, FlipY     bool
	OriginX, OriginY string
	Opacity          float64
	Fill             Paint
	Stroke           string
	StrokeWidth      float64
	Extra            map[string]any
}

// DefaultProps returns the attribute defaults of a freshly created object.
func DefaultProps() Props {
	return Props{ScaleX: 1, ScaleY: 1, Opacity: 1, OriginX: "left", OriginY: "top"}
}

// Get returns an extra field.
func (p *Props) Get(key string) (any, bool) {
	v, ok := p.Extra[key]
	return v, ok
}

// Set stores an extra field.
func (p *Props) Set(key string, v any) {
	if p.Extra == nil {
		p.Extra = make(map[string]any)
	}
	p.Extra[key] = v
}

// Delete removes an extra field.
func (p *Props) Delete(key string) { delete(p.Extra, key) }

// String returns an extra field as a string, or "" if absent or not a string.
func (p *Props) String(key string) string {
	s, _ := p.Extra[key].(string)
	return s
}

// Flag returns a boolean extra field, def when absent.
func (p *Props) Flag(key string, def bool) bool {
	if b, ok := p.Extra[key].(bool); ok {
		return b
	}
	return def
}

// Interactive reports whether the object receives pointer events.
func (p *Props) Interactive() bool { return p.Flag("evented", true) }

// ID returns the "id" extra field.
func ID(o Object) string { return o.Base().String("id") }

// Paint is a fill: either a plain CSS color or a gradient.
type Paint struct {
	Color    string
	Gradient *Gradient
}

// Solid returns a color paint.
func Solid(c string) Paint { return Paint{Color: c} }

// IsZero reports whether nothing has been set.
func (p Paint) IsZero() bool { return p.Color == "" && p.Gradient == nil }

// Gradient mirrors the canvas library's gradient descriptor.
type Gradient struct {
	Type       string // "linear" or "radial"
	X1, Y1, R1 float64
	X2, Y2, R2 float64
	Stops      []ColorStop
}

type ColorStop struct {
	Offset float64
	Color  string
}

// Text is a text object; Kind selects the text-like subtype.
type Text struct {
	Props
	Kind            Kind
	Text            string
	FontFamily      string
	FontSize        float64
	TextAlign       string
	BackgroundColor string
}

// NewText returns a textbox with default attributes.
func NewText(s string) *Text {
	return &Text{Props: DefaultProps(), Kind: KindTextbox, Text: s, FontSize: 64, TextAlign: "left"}
}

func (t *Text) Type() Kind {
	if IsTextKind(t.Kind) {
		return t.Kind
	}
	return KindTextbox
}
func (t *Text) Base() *Props { return &t.Props }
func (*Text) sealed()        {}

// Image is a raster object. Src is a URL or data URL; derived variants
// (__origSrc, __maskedSrc) live in Extra.
type Image struct {
	Props
	Src string
}

func NewImage(src string, w, h float64) *Image {
	img := &Image{Props: DefaultProps(), Src: src}
	img.Width, img.Height = w, h
	return img
}

func (*Image) Type() Kind     { return KindImage }
func (i *Image) Base() *Props { return &i.Props }
func (*Image) sealed()        {}

// Rect is a rectangle with optional rounded corners.
type Rect struct {
	Props
	RX, RY float64
}

func NewRect(w, h float64) *Rect {
	r := &Rect{Props: DefaultProps()}
	r.Width, r.Height = w, h
	return r
}

func (*Rect) Type() Kind     { return KindRect }
func (r *Rect) Base() *Props { return &r.Props }
func (*Rect) sealed()        {}

// Path is a committed freeform stroke. Segments are path commands such as
// ["M", 0, 0] or ["Q", 1, 2, 3, 4].
type Path struct {
	Props
	Segments [][]any
}

func (*Path) Type() Kind     { return KindPath }
func (p *Path) Base() *Props { return &p.Props }
func (*Path) sealed()        {}

// Group is a persistent container. Child positions are relative to the
// group's Left/Top.
type Group struct {
	Props
	Objects []Object
}

func (*Group) Type() Kind     { return KindGroup }
func (g *Group) Base() *Props { return &g.Props }
func (*Group) sealed()        {}

// ActiveSelection is the transient composite selection of several objects.
// It never lives in the object list.
type ActiveSelection struct {
	Props
	Members []Object
}

// NewActiveSelection builds a composite selection over members.
func NewActiveSelection(members ...Object) *ActiveSelection {
	return &ActiveSelection{Props: DefaultProps(), Members: append([]Object(nil), members...)}
}

func (*ActiveSelection) Type() Kind     { return KindActiveSelection }
func (a *ActiveSelection) Base() *Props { return &a.Props }
func (*ActiveSelection) sealed()        {}

// Clone returns a deep copy of o. Group children are cloned too; an active
// selection is cloned shallowly since its members are references.
func Clone(o Object) Object {
	switch v := o.(type) {
	case *Text:
		c := *v
		c.Props = cloneProps(v.Props)
		return &c
	case *Image:
		c := *v
		c.Props = cloneProps(v.Props)
		return &c
	case *Rect:
		c := *v
		c.Props = cloneProps(v.Props)
		return &c
	case *Path:
		c := *v
		c.Props = cloneProps(v.Props)
		c.Segments = make([][]any, len(v.Segments))
		for i, s := range v.Segments {
			c.Segments[i] = append([]any(nil), s...)
		}
		return &c
	case *Group:
		c := *v
		c.Props = cloneProps(v.Props)
		c.Objects = make([]Object, len(v.Objects))
		for i, ch := range v.Objects {
			c.Objects[i] = Clone(ch)
		}
		return &c
	case *ActiveSelection:
		c := *v
		c.Props = cloneProps(v.Props)
		c.Members = append([]Object(nil), v.Members...)
		return &c
	default:
		return nil
	}
}

func cloneProps(p Props) Props {
	out := p
	if p.Fill.Gradient != nil {
		g := *p.Fill.Gradient
		g.Stops = append([]ColorStop(nil), p.Fill.Gradient.Stops...)
		out.Fill.Gradient = &g
	}
	if p.Extra != nil {
		out.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			out.Extra[k] = copyValue(v)
		}
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = copyValue(x)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = copyValue(x)
		}
		return s
	default:
		return v
	}
}
