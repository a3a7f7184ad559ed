/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package imagefx

import (
	"errors"
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// ErrEmptyCrop is returned when a crop rectangle misses the image.
var ErrEmptyCrop = errors.New("imagefx: crop rectangle is empty")

// Shape selects the feather mask outline.
type Shape string

const (
	ShapeRect   Shape = "rect"
	ShapeCircle Shape = "circle"
)

// NRGBA copies img into a non-premultiplied buffer anchored at (0,0).
func NRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Crop returns the part of img inside r, given in image-local pixels.
func Crop(img image.Image, r image.Rectangle) (*image.NRGBA, error) {
	b := img.Bounds()
	r = r.Add(b.Min).Intersect(b)
	if r.Empty() {
		return nil, ErrEmptyCrop
	}
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, nil
}

// Feather fades the image edges over px pixels. A rect mask fades each side
// linearly; a circle mask keeps the inscribed disc and fades its outer px.
func Feather(img image.Image, px int, shape Shape) *image.NRGBA {
	out := NRGBA(img)
	if px <= 0 {
		return out
	}
	w, h := out.Rect.Dx(), out.Rect.Dy()
	fpx := float64(px)
	rMax := math.Min(float64(w), float64(h)) / 2
	rInner := math.Max(0, rMax-fpx)
	cx, cy := float64(w)/2, float64(h)/2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			var m float64
			if shape == ShapeCircle {
				d := math.Hypot(fx-cx, fy-cy)
				switch {
				case d >= rMax:
					m = 0
				case d <= rInner:
					m = 1
				default:
					m = 1 - (d-rInner)/(rMax-rInner)
				}
			} else {
				m = edge(fx, fpx) * edge(float64(w)-fx, fpx) * edge(fy, fpx) * edge(float64(h)-fy, fpx)
			}
			scaleAlpha(out, x, y, m)
		}
	}
	return out
}

// edge is the surviving alpha at distance d from a border faded over px.
func edge(d, px float64) float64 {
	if d >= px {
		return 1
	}
	return math.Max(0, d/px)
}

func scaleAlpha(img *image.NRGBA, x, y int, m float64) {
	if m >= 1 {
		return
	}
	i := img.PixOffset(x, y) + 3
	img.Pix[i] = uint8(math.Round(float64(img.Pix[i]) * m))
}

// RGB is an averaged color.
type RGB struct{ R, G, B float64 }

// SampleCorners averages the four size x size corner blocks of img.
func SampleCorners(img *image.NRGBA, size int) RGB {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	n := max(1, min(size, min(w, h)))
	if w == 0 || h == 0 {
		return RGB{255, 255, 255}
	}
	var sum RGB
	count := 0
	for _, c := range [4]image.Point{{0, 0}, {max(0, w-n), 0}, {0, max(0, h-n)}, {max(0, w-n), max(0, h-n)}} {
		for y := c.Y; y < c.Y+n; y++ {
			for x := c.X; x < c.X+n; x++ {
				i := img.PixOffset(x, y)
				sum.R += float64(img.Pix[i])
				sum.G += float64(img.Pix[i+1])
				sum.B += float64(img.Pix[i+2])
				count++
			}
		}
	}
	return RGB{sum.R / float64(count), sum.G / float64(count), sum.B / float64(count)}
}

// RemoveBackground clears pixels close to the corner color. Pixels within
// tolerance (summed channel distance, 0..765) turn transparent; the next 60
// units fade proportionally.
func RemoveBackground(img image.Image, tolerance int) *image.NRGBA {
	out := NRGBA(img)
	bg := SampleCorners(out, 8)
	hard := float64(max(0, min(765, tolerance)))
	soft := hard + 60
	for i := 0; i+3 < len(out.Pix); i += 4 {
		delta := math.Abs(float64(out.Pix[i])-bg.R) + math.Abs(float64(out.Pix[i+1])-bg.G) + math.Abs(float64(out.Pix[i+2])-bg.B)
		switch {
		case delta <= hard:
			out.Pix[i+3] = 0
		case delta < soft:
			ratio := (delta - hard) / (soft - hard)
			out.Pix[i+3] = uint8(math.Round(float64(out.Pix[i+3]) * ratio))
		}
	}
	return out
}

// Gray converts img to luminance, keeping alpha.
func Gray(img image.Image) *image.NRGBA {
	out := NRGBA(img)
	for i := 0; i+3 < len(out.Pix); i += 4 {
		l := 0.2126*float64(out.Pix[i]) + 0.7152*float64(out.Pix[i+1]) + 0.0722*float64(out.Pix[i+2])
		v := uint8(math.Round(l))
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = v, v, v
	}
	return out
}

// Scale resizes img by factor with Catmull-Rom resampling.
func Scale(img image.Image, factor float64) *image.NRGBA {
	b := img.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
