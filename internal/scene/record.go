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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownType is returned when a record names a type the scene cannot build.
var ErrUnknownType = errors.New("scene: unknown object type")

// Record is the plain serialized form of an object. Keys follow the canvas
// library's property names; encoding/json writes them in sorted order, so
// equal records encode to identical bytes.
type Record map[string]any

// Allowlist names extra fields preserved verbatim on serialization.
type Allowlist []string

// DefaultAllowlist is the set of non-standard fields history and clipboard
// carry along.
var DefaultAllowlist = Allowlist{
	"id", "name", "rx", "ry", "strokeUniform", "shadow", "charSpacing",
	"textBackgroundColor", "paintFirst", "globalCompositeOperation",
	"cornerStyle", "selectable", "evented", "__origSrc", "__maskedSrc",
	"splitByGrapheme", "fontURL",
}

func (a Allowlist) Has(key string) bool { return slices.Contains(a, key) }

// Serialize converts o to a record, copying allowlisted extras.
func Serialize(o Object, allow Allowlist) Record {
	rec := Record{"type": string(o.Type())}
	p := o.Base()
	rec["left"] = p.Left
	rec["top"] = p.Top
	rec["width"] = p.Width
	rec["height"] = p.Height
	rec["scaleX"] = p.ScaleX
	rec["scaleY"] = p.ScaleY
	rec["angle"] = p.Angle
	rec["skewX"] = p.SkewX
	rec["skewY"] = p.SkewY
	rec["flipX"] = p.FlipX
	rec["flipY"] = p.FlipY
	rec["originX"] = p.OriginX
	rec["originY"] = p.OriginY
	rec["opacity"] = p.Opacity
	rec["fill"] = encodePaint(p.Fill)
	rec["stroke"] = p.Stroke
	rec["strokeWidth"] = p.StrokeWidth

	switch v := o.(type) {
	case *Text:
		rec["text"] = v.Text
		rec["fontFamily"] = v.FontFamily
		rec["fontSize"] = v.FontSize
		rec["textAlign"] = v.TextAlign
		rec["backgroundColor"] = v.BackgroundColor
	case *Image:
		rec["src"] = v.Src
	case *Rect:
		rec["rx"] = v.RX
		rec["ry"] = v.RY
	case *Path:
		segs := make([]any, len(v.Segments))
		for i, s := range v.Segments {
			segs[i] = copyValue([]any(s))
		}
		rec["path"] = segs
	case *Group:
		rec["objects"] = serializeAll(v.Objects, allow)
	case *ActiveSelection:
		rec["objects"] = serializeAll(v.Members, allow)
	}

	for _, k := range allow {
		if _, taken := rec[k]; taken {
			continue
		}
		if v, ok := p.Extra[k]; ok {
			rec[k] = copyValue(v)
		}
	}
	return rec
}

func serializeAll(objs []Object, allow Allowlist) []any {
	out := make([]any, len(objs))
	for i, o := range objs {
		out[i] = map[string]any(Serialize(o, allow))
	}
	return out
}

func encodePaint(p Paint) any {
	if p.Gradient == nil {
		if p.Color == "" {
			return nil
		}
		return p.Color
	}
	g := p.Gradient
	coords := map[string]any{"x1": g.X1, "y1": g.Y1, "x2": g.X2, "y2": g.Y2}
	if g.Type == "radial" {
		coords["r1"] = g.R1
		coords["r2"] = g.R2
	}
	stops := make([]any, len(g.Stops))
	for i, s := range g.Stops {
		stops[i] = map[string]any{"offset": s.Offset, "color": s.Color}
	}
	return map[string]any{"type": g.Type, "coords": coords, "colorStops": stops}
}

var propKeys = []string{
	"type", "left", "top", "width", "height", "scaleX", "scaleY", "angle",
	"skewX", "skewY", "flipX", "flipY", "originX", "originY", "opacity",
	"fill", "stroke", "strokeWidth",
}

var variantKeys = map[Kind][]string{
	KindTextbox: {"text", "fontFamily", "fontSize", "textAlign", "backgroundColor"},
	KindIText:   {"text", "fontFamily", "fontSize", "textAlign", "backgroundColor"},
	KindText:    {"text", "fontFamily", "fontSize", "textAlign", "backgroundColor"},
	KindImage:   {"src"},
	KindRect:    {"rx", "ry"},
	KindPath:    {"path"},
	KindGroup:   {"objects"},
}

// Decode builds an object from a record. Extra fields outside allow are
// dropped. Active selections are never decoded.
func Decode(rec Record, allow Allowlist) (Object, error) {
	kind := Kind(str(rec, "type", ""))
	var o Object
	switch kind {
	case KindTextbox, KindIText, KindText:
		o = &Text{
			Kind:            kind,
			Text:            str(rec, "text", ""),
			FontFamily:      str(rec, "fontFamily", ""),
			FontSize:        num(rec, "fontSize", 40),
			TextAlign:       str(rec, "textAlign", "left"),
			BackgroundColor: str(rec, "backgroundColor", ""),
		}
	case KindImage:
		o = &Image{Src: str(rec, "src", "")}
	case KindRect:
		o = &Rect{RX: num(rec, "rx", 0), RY: num(rec, "ry", 0)}
	case KindPath:
		segs, err := decodeSegments(rec["path"])
		if err != nil {
			return nil, err
		}
		o = &Path{Segments: segs}
	case KindGroup:
		raw, _ := rec["objects"].([]any)
		g := &Group{Objects: make([]Object, 0, len(raw))}
		for i, r := range raw {
			child, ok := asRecord(r)
			if !ok {
				return nil, fmt.Errorf("scene: group child %d is not an object", i)
			}
			c, err := Decode(child, allow)
			if err != nil {
				return nil, err
			}
			g.Objects = append(g.Objects, c)
		}
		o = g
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, kind)
	}

	p := o.Base()
	p.Left = num(rec, "left", 0)
	p.Top = num(rec, "top", 0)
	p.Width = num(rec, "width", 0)
	p.Height = num(rec, "height", 0)
	p.ScaleX = num(rec, "scaleX", 1)
	p.ScaleY = num(rec, "scaleY", 1)
	p.Angle = num(rec, "angle", 0)
	p.SkewX = num(rec, "skewX", 0)
	p.SkewY = num(rec, "skewY", 0)
	p.FlipX = boolean(rec, "flipX")
	p.FlipY = boolean(rec, "flipY")
	p.OriginX = str(rec, "originX", "left")
	p.OriginY = str(rec, "originY", "top")
	p.Opacity = num(rec, "opacity", 1)
	p.Fill = decodePaint(rec["fill"])
	p.Stroke = str(rec, "stroke", "")
	p.StrokeWidth = num(rec, "strokeWidth", 0)

	consumed := variantKeys[kind]
	for k, v := range rec {
		if slices.Contains(propKeys, k) || slices.Contains(consumed, k) || !allow.Has(k) {
			continue
		}
		p.Set(k, copyValue(v))
	}
	return o, nil
}

func decodeSegments(v any) ([][]any, error) {
	raw, ok := v.([]any)
	if !ok && v != nil {
		return nil, fmt.Errorf("scene: path data is %T", v)
	}
	out := make([][]any, 0, len(raw))
	for i, s := range raw {
		seg, ok := s.([]any)
		if !ok {
			return nil, fmt.Errorf("scene: path segment %d is %T", i, s)
		}
		out = append(out, copyValue(seg).([]any))
	}
	return out, nil
}

func decodePaint(v any) Paint {
	switch t := v.(type) {
	case string:
		return Paint{Color: t}
	case map[string]any:
		return Paint{Gradient: decodeGradient(Record(t))}
	case Record:
		return Paint{Gradient: decodeGradient(t)}
	default:
		return Paint{}
	}
}

func decodeGradient(rec Record) *Gradient {
	g := &Gradient{Type: str(rec, "type", "linear")}
	if c, ok := asRecord(rec["coords"]); ok {
		g.X1, g.Y1, g.R1 = num(c, "x1", 0), num(c, "y1", 0), num(c, "r1", 0)
		g.X2, g.Y2, g.R2 = num(c, "x2", 0), num(c, "y2", 0), num(c, "r2", 0)
	}
	stops, _ := rec["colorStops"].([]any)
	for _, s := range stops {
		if sr, ok := asRecord(s); ok {
			g.Stops = append(g.Stops, ColorStop{Offset: num(sr, "offset", 0), Color: str(sr, "color", "")})
		}
	}
	return g
}

func asRecord(v any) (Record, bool) {
	switch t := v.(type) {
	case map[string]any:
		return Record(t), true
	case Record:
		return t, true
	default:
		return nil, false
	}
}

func num(rec Record, key string, def float64) float64 {
	switch v := rec[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return def
}

func str(rec Record, key, def string) string {
	if s, ok := rec[key].(string); ok {
		return s
	}
	return def
}

func boolean(rec Record, key string) bool {
	b, _ := rec[key].(bool)
	return b
}

// ImageLoader resolves an image source before the object enters the scene.
type ImageLoader func(ctx context.Context, src string) error

// Materializer turns records back into live objects.
type Materializer interface {
	Materialize(ctx context.Context, recs []Record) ([]Object, error)
}

// Decoder is the default Materializer. A nil Allow uses DefaultAllowlist.
type Decoder struct {
	Allow     Allowlist
	LoadImage ImageLoader
}

// Materialize decodes recs in order. Image sources are resolved through
// LoadImage when set; the first failure aborts the whole batch.
func (d Decoder) Materialize(ctx context.Context, recs []Record) ([]Object, error) {
	allow := d.Allow
	if allow == nil {
		allow = DefaultAllowlist
	}
	out := make([]Object, 0, len(recs))
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o, err := Decode(rec, allow)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if d.LoadImage != nil {
			if err := d.loadImages(ctx, o); err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func (d Decoder) loadImages(ctx context.Context, o Object) error {
	switch v := o.(type) {
	case *Image:
		return d.LoadImage(ctx, v.Src)
	case *Group:
		for _, c := range v.Objects {
			if err := d.loadImages(ctx, c); err != nil {
				return err
			}
		}
	}
	return nil
}
