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
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

var (
	white = color.NRGBA{255, 255, 255, 255}
	red   = color.NRGBA{255, 0, 0, 255}
)

func TestDataURLRoundTrip(t *testing.T) {
	img := solid(4, 3, red)
	img.SetNRGBA(1, 1, color.NRGBA{1, 2, 3, 200})
	url, err := EncodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	back, format, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format != "png" || back.Bounds().Dx() != 4 || back.Bounds().Dy() != 3 {
		t.Fatalf("format=%s bounds=%v", format, back.Bounds())
	}
	if got := color.NRGBAModel.Convert(back.At(1, 1)).(color.NRGBA); got != (color.NRGBA{1, 2, 3, 200}) {
		t.Fatalf("pixel = %v", got)
	}
}

func TestDecodeDataURLRejectsGarbage(t *testing.T) {
	for _, s := range []string{
		"hello",
		"data:image/png;base64",
		"data:image/png;base64,!!!",
		"data:image/png;base64,aGVsbG8=",
	} {
		if _, _, err := DecodeDataURL(s); !errors.Is(err, ErrBadDataURL) {
			t.Errorf("DecodeDataURL(%q) err = %v", s, err)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, solid(3, 3, white)); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	img, err := Load(context.Background(), path)
	if err != nil || img.Bounds().Dx() != 3 {
		t.Fatalf("load: %v", err)
	}
	if err := Check(context.Background(), filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestCrop(t *testing.T) {
	img := solid(10, 10, white)
	img.SetNRGBA(3, 3, red)
	out, err := Crop(img, image.Rect(2, 2, 6, 5))
	if err != nil {
		t.Fatal(err)
	}
	if out.Rect.Dx() != 4 || out.Rect.Dy() != 3 || out.NRGBAAt(1, 1) != red {
		t.Fatalf("crop = %v, pixel %v", out.Rect, out.NRGBAAt(1, 1))
	}
	if _, err := Crop(img, image.Rect(20, 20, 30, 30)); !errors.Is(err, ErrEmptyCrop) {
		t.Fatalf("expected ErrEmptyCrop, got %v", err)
	}
}

func TestFeatherRect(t *testing.T) {
	out := Feather(solid(10, 10, white), 2, ShapeRect)
	if a := out.NRGBAAt(5, 5).A; a != 255 {
		t.Fatalf("center alpha %d", a)
	}
	if a := out.NRGBAAt(0, 5).A; a != 64 {
		t.Fatalf("edge alpha %d", a)
	}
	if a := out.NRGBAAt(0, 0).A; a != 16 {
		t.Fatalf("corner alpha %d", a)
	}
	if a := Feather(solid(4, 4, white), 0, ShapeRect).NRGBAAt(0, 0).A; a != 255 {
		t.Fatalf("zero feather changed alpha: %d", a)
	}
}

func TestFeatherCircle(t *testing.T) {
	out := Feather(solid(20, 20, white), 4, ShapeCircle)
	if a := out.NRGBAAt(0, 0).A; a != 0 {
		t.Fatalf("corner alpha %d", a)
	}
	if a := out.NRGBAAt(10, 10).A; a != 255 {
		t.Fatalf("center alpha %d", a)
	}
	if a := out.NRGBAAt(10, 1).A; a == 0 || a == 255 {
		t.Fatalf("fade band alpha %d", a)
	}
}

func TestRemoveBackground(t *testing.T) {
	img := solid(20, 20, white)
	for y := 8; y < 12; y++ {
		for x := 8; x < 12; x++ {
			img.SetNRGBA(x, y, red)
		}
	}
	img.SetNRGBA(10, 15, color.NRGBA{200, 200, 200, 255}) // delta 165: inside the soft band for tolerance 120
	out := RemoveBackground(img, 120)
	if a := out.NRGBAAt(0, 0).A; a != 0 {
		t.Fatalf("background alpha %d", a)
	}
	if a := out.NRGBAAt(10, 10).A; a != 255 {
		t.Fatalf("subject alpha %d", a)
	}
	if a := out.NRGBAAt(10, 15).A; a != 191 {
		t.Fatalf("soft band alpha %d", a)
	}
}

func TestGrayAndScale(t *testing.T) {
	g := Gray(solid(2, 2, red))
	if px := g.NRGBAAt(0, 0); px.R != 54 || px.G != 54 || px.B != 54 || px.A != 255 {
		t.Fatalf("gray pixel %v", px)
	}
	s := Scale(solid(10, 6, white), 0.5)
	if s.Rect.Dx() != 5 || s.Rect.Dy() != 3 {
		t.Fatalf("scaled bounds %v", s.Rect)
	}
}
