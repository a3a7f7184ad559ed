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

	"posterkit/internal/imagefx"
	"posterkit/internal/scene"
)

// ErrNoOriginal is returned by RemoveFeather when the image has no saved original.
var ErrNoOriginal = errors.New("editor: no original image saved")

const (
	keyOrigSrc   = "__origSrc"
	keyMaskedSrc = "__maskedSrc"
)

func (d *Document) activeImage() (*scene.Image, error) {
	img, ok := d.canvas.ActiveObject().(*scene.Image)
	if !ok {
		d.notify("select-image", "Select an image first.")
		return nil, ErrNoImageSelected
	}
	return img, nil
}

func (d *Document) load(ctx context.Context, src string) (image.Image, error) {
	img, err := imagefx.Load(ctx, src)
	if err != nil {
		d.notify("image-decode", "The image could not be processed.")
		return nil, err
	}
	return img, nil
}

type replacement struct {
	src      string
	width    int
	height   int
	orig     string
	masked   string
	keepFlip bool
}

// replaceImage swaps target for a new image at the same center, angle,
// displayed size and stacking position, then selects it.
func (d *Document) replaceImage(target *scene.Image, r replacement, reason string) *scene.Image {
	center := scene.CenterPoint(target)
	dispW, dispH := scene.ScaledSize(target)
	idx := d.canvas.IndexOf(target)

	n := scene.NewImage(r.src, float64(r.width), float64(r.height))
	n.OriginX, n.OriginY = "center", "center"
	n.Left, n.Top = center.X, center.Y
	n.Angle = target.Angle
	n.ScaleX = dispW / float64(r.width)
	n.ScaleY = dispH / float64(r.height)
	if r.keepFlip {
		n.FlipX, n.FlipY = target.FlipX, target.FlipY
		n.SkewX, n.SkewY = target.SkewX, target.SkewY
	}
	if id := scene.ID(target); id != "" {
		n.Set("id", id)
	}
	n.Set(keyOrigSrc, r.orig)
	if r.masked != "" {
		n.Set(keyMaskedSrc, r.masked)
	}

	d.canvas.Remove(target)
	if idx >= 0 {
		d.canvas.InsertAt(n, idx)
	} else {
		d.canvas.Add(n)
	}
	d.canvas.SetActiveObject(n)
	d.schedule(reason)
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Crop cuts r (in source pixels) out of the original image.
func (d *Document) Crop(ctx context.Context, r image.Rectangle) (*scene.Image, error) {
	target, err := d.activeImage()
	if err != nil {
		return nil, err
	}
	src := firstNonEmpty(target.String(keyOrigSrc), target.Src)
	img, err := d.load(ctx, src)
	if err != nil {
		return nil, err
	}
	out, err := imagefx.Crop(img, r)
	if err != nil {
		return nil, err
	}
	return d.finish(target, out, src, false, "crop")
}

// Feather fades the edges of the active image over px pixels.
func (d *Document) Feather(ctx context.Context, px int, shape imagefx.Shape) (*scene.Image, error) {
	target, err := d.activeImage()
	if err != nil {
		return nil, err
	}
	img, err := d.load(ctx, firstNonEmpty(target.String(keyMaskedSrc), target.Src))
	if err != nil {
		return nil, err
	}
	orig := firstNonEmpty(target.String(keyOrigSrc), target.Src)
	return d.finish(target, imagefx.Feather(img, px, shape), orig, false, "feather")
}

// RemoveBackground makes pixels close to the corner color transparent.
func (d *Document) RemoveBackground(ctx context.Context, tolerance int) (*scene.Image, error) {
	target, err := d.activeImage()
	if err != nil {
		return nil, err
	}
	img, err := d.load(ctx, firstNonEmpty(target.String(keyMaskedSrc), target.Src))
	if err != nil {
		return nil, err
	}
	orig := firstNonEmpty(target.String(keyOrigSrc), target.Src)
	return d.finish(target, imagefx.RemoveBackground(img, tolerance), orig, true, "remove-bg")
}

// RemoveFeather restores the original image saved by an earlier effect.
func (d *Document) RemoveFeather(ctx context.Context) (*scene.Image, error) {
	target, err := d.activeImage()
	if err != nil {
		return nil, err
	}
	orig := target.String(keyOrigSrc)
	if orig == "" {
		d.notify("no-original", "There is no saved original to restore.")
		return nil, ErrNoOriginal
	}
	img, err := d.load(ctx, orig)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return d.replaceImage(target, replacement{src: orig, width: b.Dx(), height: b.Dy(), orig: orig}, "remove-feather"), nil
}

func (d *Document) finish(target *scene.Image, out *image.NRGBA, orig string, keepFlip bool, reason string) (*scene.Image, error) {
	url, err := imagefx.EncodePNG(out)
	if err != nil {
		return nil, err
	}
	b := out.Bounds()
	if b.Empty() {
		return nil, imagefx.ErrEmptyCrop
	}
	return d.replaceImage(target, replacement{
		src:      url,
		width:    b.Dx(),
		height:   b.Dy(),
		orig:     orig,
		masked:   url,
		keepFlip: keepFlip,
	}, reason), nil
}
