/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package printsheet

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"

	"posterkit/internal/imagefx"
	applog "posterkit/internal/log"
)

// ErrNoCopiesFit is returned when not a single copy fits on the page.
var ErrNoCopiesFit = errors.New("no copies fit on the page: reduce the copy width or the margin")

// SheetOptions controls print sheet rendering.
// - Page: paper name (a3, a4, a5, letter, legal), default a4
// - MarginMm: values <= 0 fall back to MinMarginMm
// - CopyWidthMm: values <= 0 fall back to DefaultCopyWidthMm
// - Copies: total copies across all pages, default 1
// - Mono: render the copies in grayscale
type SheetOptions struct {
	Page        string
	MarginMm    float64
	CopyWidthMm float64
	Copies      int
	Mono        bool
}

// RenderSheet tiles the rendered design onto as many pages as needed and
// writes the PDF to w. Nothing is written when no copy fits.
func RenderSheet(w io.Writer, design image.Image, opt SheetOptions) (Plan, error) {
	if design == nil {
		return Plan{}, fmt.Errorf("design raster is nil")
	}
	b := design.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Plan{}, fmt.Errorf("design raster is empty")
	}
	name := opt.Page
	if name == "" {
		name = "a4"
	}
	page, err := PageByName(name)
	if err != nil {
		return Plan{}, err
	}
	copies := opt.Copies
	if copies <= 0 {
		copies = 1
	}

	plan := BestLayout(page, opt.MarginMm, opt.CopyWidthMm, float64(b.Dy())/float64(b.Dx()))
	if plan.Total == 0 {
		return plan, ErrNoCopiesFit
	}

	src := design
	if opt.Mono {
		src = imagefx.Gray(design)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return plan, fmt.Errorf("encode design: %w", err)
	}

	orient := "P"
	if plan.Orientation == Landscape {
		orient = "L"
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "mm",
		OrientationStr: orient,
		Size:           gofpdf.SizeType{Wd: page.W, Ht: page.H},
	})
	pdf.SetTitle("Print sheet", false)
	pdf.SetAuthor("PosterKit", false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("design", imgOpt, &buf)

	current := -1
	for _, s := range plan.Slots(copies) {
		if s.Page != current {
			pdf.AddPage()
			current = s.Page
		}
		pdf.ImageOptions("design", s.X, s.Y, plan.CopyW, plan.CopyH, false, imgOpt, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return plan, fmt.Errorf("render sheet: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return plan, fmt.Errorf("write pdf: %w", err)
	}
	applog.WithComponent("printsheet").Debug("sheet rendered",
		"page", plan.Page, "orientation", string(plan.Orientation),
		"cols", plan.Cols, "rows", plan.Rows, "copies", copies, "pages", plan.Pages(copies))
	return plan, nil
}

// ExportOptions controls single image exports.
type ExportOptions struct {
	Multiplier float64 // default 2
	Mono       bool
}

func prepare(img image.Image, opt ExportOptions) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("design raster is nil")
	}
	m := opt.Multiplier
	if m <= 0 {
		m = 2
	}
	out := image.Image(img)
	if m != 1 {
		out = imagefx.Scale(out, m)
	}
	if opt.Mono {
		out = imagefx.Gray(out)
	}
	if out.Bounds().Empty() {
		return nil, fmt.Errorf("design raster is empty")
	}
	return out, nil
}

// ExportPNG writes the design scaled by the multiplier as PNG.
func ExportPNG(w io.Writer, design image.Image, opt ExportOptions) error {
	img, err := prepare(design, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// ExportPDF writes a single page PDF whose page size matches the exported
// raster, one point per pixel of the unscaled design.
func ExportPDF(w io.Writer, design image.Image, opt ExportOptions) error {
	img, err := prepare(design, opt)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode design: %w", err)
	}
	pw := float64(design.Bounds().Dx())
	ph := float64(design.Bounds().Dy())
	// Page size is given as-is; orientation is implied by it
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		OrientationStr: "",
		Size:           gofpdf.SizeType{Wd: pw, Ht: ph},
	})
	pdf.SetTitle("Poster", false)
	pdf.SetAuthor("PosterKit", false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("design", imgOpt, &buf)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: pw, Ht: ph})
	pdf.ImageOptions("design", 0, 0, pw, ph, false, imgOpt, 0, "")
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
