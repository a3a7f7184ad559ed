/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package snapshot captures the design into a canonical, comparable string and
// restores such strings back into the scene graph.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	applog "posterkit/internal/log"
	"posterkit/internal/scene"
)

// ErrCorrupt marks a snapshot whose payload cannot be parsed.
var ErrCorrupt = errors.New("snapshot: corrupt payload")

// Snapshot is an immutable, timestamped capture. Two snapshots are equal iff
// their Data strings are identical.
type Snapshot struct {
	Data string
	TS   time.Time
}

// Equal compares serialized forms only.
func (s Snapshot) Equal(o Snapshot) bool { return s.Data == o.Data }

// Payload is the decoded content of a snapshot.
type Payload struct {
	Objects        []scene.Record `json:"objects"`
	BackgroundFill *string        `json:"backgroundFill"`
	Vignette       scene.Record   `json:"vignette"`
}

// Encode renders p canonically: struct fields in declaration order and record
// keys sorted.
func Encode(p Payload) (string, error) {
	if p.Objects == nil {
		p.Objects = []scene.Record{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Parse decodes a snapshot's payload.
func Parse(s Snapshot) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(s.Data), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return p, nil
}

// Graph is the view of the scene graph the codec needs.
type Graph interface {
	DesignObjects() []scene.Object
	SerializeDesign(allow scene.Allowlist) []scene.Record
	Serialize(o scene.Object, allow scene.Allowlist) scene.Record
	Background() string
	SetBackground(color string)
	Vignette() *scene.Rect
	SetVignette(v *scene.Rect)
	Add(objs ...scene.Object)
	Remove(objs ...scene.Object)
	OrderOverlays()
	DiscardActiveObject()
}

// Codec captures and restores the design held by a Graph.
type Codec struct {
	graph Graph
	mat   scene.Materializer
	allow scene.Allowlist
	log   *slog.Logger
	now   func() time.Time

	mu    sync.Mutex
	hooks []func()
}

// NewCodec returns a codec using the default allowlist. A nil materializer
// uses scene.Decoder.
func NewCodec(g Graph, m scene.Materializer) *Codec {
	if m == nil {
		m = scene.Decoder{}
	}
	return &Codec{
		graph: g,
		mat:   m,
		allow: scene.DefaultAllowlist,
		log:   applog.WithComponent("snapshot"),
		now:   time.Now,
	}
}

// AfterRestore registers fn to run after every successful restore.
func (c *Codec) AfterRestore(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Payload reads the current design.
func (c *Codec) Payload() Payload {
	p := Payload{Objects: c.graph.SerializeDesign(c.allow)}
	if bg := c.graph.Background(); bg != "" {
		p.BackgroundFill = &bg
	}
	if v := c.graph.Vignette(); v != nil {
		p.Vignette = c.graph.Serialize(v, c.allow)
	}
	return p
}

// Capture serializes the design excluding overlays.
func (c *Codec) Capture() (Snapshot, error) {
	data, err := Encode(c.Payload())
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: encode: %w", err)
	}
	return Snapshot{Data: data, TS: c.now()}, nil
}

// Restore replaces the design with the content of s. Every object is
// materialized before the graph is touched, so a failed restore leaves the
// document as it was. A corrupt payload is logged and reported as ErrCorrupt.
func (c *Codec) Restore(ctx context.Context, s Snapshot) error {
	p, err := Parse(s)
	if err != nil {
		c.log.Warn("discarding unreadable snapshot", slog.Any("err", err), slog.Int("bytes", len(s.Data)))
		return err
	}

	var vignette *scene.Rect
	if p.Vignette != nil {
		objs, err := c.mat.Materialize(ctx, []scene.Record{p.Vignette})
		if err != nil {
			return fmt.Errorf("snapshot: vignette: %w", err)
		}
		r, ok := objs[0].(*scene.Rect)
		if !ok {
			c.log.Warn("vignette is not a rect", slog.String("type", string(objs[0].Type())))
			return fmt.Errorf("%w: vignette of type %s", ErrCorrupt, objs[0].Type())
		}
		vignette = r
	}
	objects, err := c.mat.Materialize(ctx, p.Objects)
	if err != nil {
		return fmt.Errorf("snapshot: objects: %w", err)
	}

	c.graph.Remove(c.graph.DesignObjects()...)
	if p.BackgroundFill != nil {
		c.graph.SetBackground(*p.BackgroundFill)
	}
	c.graph.SetVignette(vignette)
	c.graph.Add(objects...)
	c.graph.OrderOverlays()
	c.graph.DiscardActiveObject()

	c.mu.Lock()
	hooks := append([]func(){}, c.hooks...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	c.log.Debug("snapshot restored", slog.Int("objects", len(objects)), slog.Bool("vignette", vignette != nil))
	return nil
}
