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
	"fmt"
	"math"
	"strings"
)

// MinMarginMm is applied when the requested margin is not positive.
const MinMarginMm = 3.0

// DefaultCopyWidthMm is used when no copy width is given.
const DefaultCopyWidthMm = 80.0

// Page is a paper size in millimetres, portrait orientation.
type Page struct {
	Name string
	W, H float64
}

var pages = map[string]Page{
	"a3":     {Name: "a3", W: 297, H: 420},
	"a4":     {Name: "a4", W: 210, H: 297},
	"a5":     {Name: "a5", W: 148, H: 210},
	"letter": {Name: "letter", W: 215.9, H: 279.4},
	"legal":  {Name: "legal", W: 215.9, H: 355.6},
}

// PageByName looks up a paper size; names are case-insensitive.
func PageByName(name string) (Page, error) {
	p, ok := pages[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Page{}, fmt.Errorf("unknown page size %q", name)
	}
	return p, nil
}

type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Plan is a tiling of equally sized copies on one sheet.
type Plan struct {
	Page        string
	Orientation Orientation
	PageW       float64
	PageH       float64
	Margin      float64
	UsableW     float64
	UsableH     float64
	CopyW       float64
	CopyH       float64
	Cols        int
	Rows        int
	Total       int
	GapX        float64
	GapY        float64
	Waste       float64
}

// PlanLayout tiles copies of width copyW and aspect ratio h/w onto a page
// of the given size. Leftover space is spread evenly as gaps.
func PlanLayout(pageW, pageH, margin, copyW, ratio float64) Plan {
	usableW := pageW - 2*margin
	usableH := pageH - 2*margin
	copyH := copyW * ratio
	p := Plan{
		PageW: pageW, PageH: pageH, Margin: margin,
		UsableW: usableW, UsableH: usableH,
		CopyW: copyW, CopyH: copyH,
	}
	if usableW > 0 && usableH > 0 && copyW > 0 && copyH > 0 {
		p.Cols = int(math.Floor(usableW / copyW))
		p.Rows = int(math.Floor(usableH / copyH))
	}
	p.Total = p.Cols * p.Rows
	p.GapX = gap(usableW-float64(p.Cols)*copyW, p.Cols)
	p.GapY = gap(usableH-float64(p.Rows)*copyH, p.Rows)
	p.Waste = usableW*usableH - float64(p.Total)*copyW*copyH
	return p
}

func gap(leftover float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return leftover / float64(n+1)
}

// BestLayout plans both orientations and returns the one fitting more
// copies. Ties go to less waste, then to landscape.
func BestLayout(page Page, margin, copyW, ratio float64) Plan {
	if margin <= 0 {
		margin = MinMarginMm
	}
	if copyW <= 0 {
		copyW = DefaultCopyWidthMm
	}
	pt := PlanLayout(page.W, page.H, margin, copyW, ratio)
	pt.Page, pt.Orientation = page.Name, Portrait
	ls := PlanLayout(page.H, page.W, margin, copyW, ratio)
	ls.Page, ls.Orientation = page.Name, Landscape

	switch {
	case ls.Total > pt.Total:
		return ls
	case pt.Total > ls.Total:
		return pt
	case pt.Waste < ls.Waste:
		return pt
	default:
		return ls
	}
}

// Hint is a suggested copy width that yields Cols columns.
type Hint struct {
	Cols  int
	Width float64
}

// Hints suggests copy widths for 2, 3 and 4 columns across the usable
// width of p, rounded down to 0.1mm.
func Hints(p Plan) []Hint {
	out := make([]Hint, 0, 3)
	for n := 2; n <= 4; n++ {
		w := math.Floor(p.UsableW/float64(n)*10) / 10
		out = append(out, Hint{Cols: n, Width: w})
	}
	return out
}

// Slot is the top-left corner of one copy on a page, in millimetres.
type Slot struct {
	Page int
	X, Y float64
}

// Slots places copies row by row, adding pages until all are placed.
func (p Plan) Slots(copies int) []Slot {
	if p.Total == 0 || copies <= 0 {
		return nil
	}
	out := make([]Slot, 0, copies)
	for i := 0; i < copies; i++ {
		page := i / p.Total
		k := i % p.Total
		r, c := k/p.Cols, k%p.Cols
		out = append(out, Slot{
			Page: page,
			X:    p.Margin + p.GapX + float64(c)*(p.CopyW+p.GapX),
			Y:    p.Margin + p.GapY + float64(r)*(p.CopyH+p.GapY),
		})
	}
	return out
}

// Pages reports how many sheets are needed for copies.
func (p Plan) Pages(copies int) int {
	if p.Total == 0 || copies <= 0 {
		return 0
	}
	return (copies + p.Total - 1) / p.Total
}
