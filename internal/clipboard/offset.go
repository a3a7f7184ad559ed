/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package clipboard

// Offset is a paste displacement in canvas units.
type Offset struct{ X, Y float64 }

// Cycler hands out cascading paste offsets: Base, Base+Step, ... up to Max,
// then back to Base. X and Y advance independently.
type Cycler struct {
	base, step, max float64
	cur             Offset
}

// DefaultMaxOffset is the largest cascade offset when none is configured.
const DefaultMaxOffset = 240

// NewCycler returns a cycler. Non-positive values select the defaults
// (24, base, DefaultMaxOffset); a positive max below base is raised to base.
func NewCycler(base, step, max float64) *Cycler {
	if base <= 0 {
		base = 24
	}
	if step <= 0 {
		step = base
	}
	if max <= 0 {
		max = DefaultMaxOffset
	}
	if max < base {
		max = base
	}
	return &Cycler{base: base, step: step, max: max, cur: Offset{base, base}}
}

// Reset starts the cascade over.
func (c *Cycler) Reset() { c.cur = Offset{c.base, c.base} }

// Next returns the current offset and advances.
func (c *Cycler) Next() Offset {
	out := c.cur
	c.cur.X = c.advance(c.cur.X)
	c.cur.Y = c.advance(c.cur.Y)
	return out
}

func (c *Cycler) advance(v float64) float64 {
	if n := v + c.step; n <= c.max {
		return n
	}
	return c.base
}
