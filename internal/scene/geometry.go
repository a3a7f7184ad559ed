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

// Plane geometry for object placement: affine transforms, bounding rects and
// the origin handling the canvas library applies to left/top.

import "math"

// Pt is a 2D point in canvas units.
type Pt struct{ X, Y float64 }

// Bounds is an axis-aligned rectangle defined by its min corner and size.
type Bounds struct {
	X, Y float64
	W, H float64
}

func (r Bounds) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

func (r Bounds) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

func (r Bounds) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Union returns the minimal rect containing both.
func (r Bounds) Union(o Bounds) Bounds {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Bounds{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Affine represents the matrix
// | a c e |
// | b d f |
// | 0 0 1 |
type Affine struct{ A, B, C, D, E, F float64 }

var Identity = Affine{A: 1, D: 1}

func (m Affine) Mul(n Affine) Affine {
	return Affine{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Affine) Apply(p Pt) Pt {
	return Pt{X: m.A*p.X + m.C*p.Y + m.E, Y: m.B*p.X + m.D*p.Y + m.F}
}

func Translate(tx, ty float64) Affine { return Affine{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine     { return Affine{A: sx, D: sy} }

// Rotate rotates by deg degrees, clockwise in screen coordinates.
func Rotate(deg float64) Affine {
	rad := deg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return Affine{A: c, B: s, C: -s, D: c}
}

// Skew applies horizontal then vertical skew, both in degrees.
func Skew(sx, sy float64) Affine {
	x := Affine{A: 1, C: math.Tan(sx * math.Pi / 180), D: 1}
	y := Affine{A: 1, B: math.Tan(sy * math.Pi / 180), D: 1}
	return x.Mul(y)
}

func originFactor(o string) float64 {
	switch o {
	case "center":
		return 0.5
	case "right", "bottom":
		return 1
	default:
		return 0
	}
}

// linear is the object's transform without translation.
func linear(p *Props) Affine {
	sx, sy := p.ScaleX, p.ScaleY
	if p.FlipX {
		sx = -sx
	}
	if p.FlipY {
		sy = -sy
	}
	return Rotate(p.Angle).Mul(Scale(sx, sy)).Mul(Skew(p.SkewX, p.SkewY))
}

// CenterPoint returns the canvas position of the object's center.
func CenterPoint(o Object) Pt {
	p := o.Base()
	off := Pt{(0.5 - originFactor(p.OriginX)) * p.Width, (0.5 - originFactor(p.OriginY)) * p.Height}
	d := linear(p).Apply(off)
	return Pt{p.Left + d.X, p.Top + d.Y}
}

// Transform maps object-local coordinates, centered on the object, to canvas
// coordinates.
func Transform(o Object) Affine {
	c := CenterPoint(o)
	return Translate(c.X, c.Y).Mul(linear(o.Base()))
}

// BoundingRect returns the axis-aligned bounds of o on the canvas. An active
// selection reports the union of its members.
func BoundingRect(o Object) Bounds {
	if sel, ok := o.(*ActiveSelection); ok && len(sel.Members) > 0 {
		r := BoundingRect(sel.Members[0])
		for _, m := range sel.Members[1:] {
			r = r.Union(BoundingRect(m))
		}
		return r
	}
	p := o.Base()
	m := Transform(o)
	hw, hh := p.Width/2, p.Height/2
	corners := [4]Pt{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		q := m.Apply(c)
		minX, maxX = math.Min(minX, q.X), math.Max(maxX, q.X)
		minY, maxY = math.Min(minY, q.Y), math.Max(maxY, q.Y)
	}
	return Bounds{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// SetPositionByCenter moves o so its center lands on c, keeping its origin.
func SetPositionByCenter(o Object, c Pt) {
	cur := CenterPoint(o)
	p := o.Base()
	p.Left += c.X - cur.X
	p.Top += c.Y - cur.Y
}

// ScaledSize returns the displayed width and height.
func ScaledSize(o Object) (float64, float64) {
	p := o.Base()
	return p.Width * math.Abs(p.ScaleX), p.Height * math.Abs(p.ScaleY)
}
