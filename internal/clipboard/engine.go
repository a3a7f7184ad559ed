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

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	applog "posterkit/internal/log"
	"posterkit/internal/scene"
)

var (
	// ErrEmptySelection is returned by Copy when nothing is selected.
	ErrEmptySelection = errors.New("clipboard: nothing selected")
	// ErrNothingToPaste is returned by Paste when no payload with objects is available.
	ErrNothingToPaste = errors.New("clipboard: nothing to paste")
)

// Graph is the view of the scene graph the engine needs.
type Graph interface {
	ActiveObject() scene.Object
	ActiveObjects() []scene.Object
	Serialize(o scene.Object, allow scene.Allowlist) scene.Record
	Add(objs ...scene.Object)
	SetActiveObject(o scene.Object)
}

// Options configure an Engine. Zero values select the defaults.
type Options struct {
	System       System
	Materializer scene.Materializer
	BaseOffset   float64
	StepOffset   float64
	MaxOffset    float64
	// Prepare runs on every pasted object before it is added.
	Prepare func(scene.Object)
}

// Engine copies the active selection and pastes it back with a cascading offset.
type Engine struct {
	graph   Graph
	codec   *Codec
	system  System
	mat     scene.Materializer
	prepare func(scene.Object)
	log     *slog.Logger

	mu      sync.Mutex
	buffer  *Payload
	key     string
	offsets *Cycler
}

func NewEngine(g Graph, codec *Codec, opts Options) *Engine {
	if opts.Materializer == nil {
		opts.Materializer = scene.Decoder{}
	}
	return &Engine{
		graph:   g,
		codec:   codec,
		system:  opts.System,
		mat:     opts.Materializer,
		prepare: opts.Prepare,
		offsets: NewCycler(opts.BaseOffset, opts.StepOffset, opts.MaxOffset),
		log:     applog.WithComponent("clipboard"),
	}
}

// Copy stores the selection (composite selections expanded) as the
// in-process buffer and mirrors it to the platform clipboard on a best-effort
// basis.
func (e *Engine) Copy(ctx context.Context) error {
	objs := e.graph.ActiveObjects()
	if len(objs) == 0 {
		return ErrEmptySelection
	}
	p := Payload{Version: Version, Objects: make([]scene.Record, len(objs))}
	for i, o := range objs {
		p.Objects[i] = e.graph.Serialize(o, scene.DefaultAllowlist)
	}
	text, err := e.codec.Encode(p)
	if err != nil {
		return err
	}
	e.setBuffer(p, text, true)

	if e.system != nil {
		if err := e.system.WriteText(ctx, text); err != nil {
			e.log.Warn("platform clipboard write failed", slog.Any("err", err))
		}
	}
	e.log.Debug("copied", slog.Int("objects", len(objs)))
	return nil
}

// setBuffer replaces the buffer and restarts the offset cascade. Without
// fresh, a payload equal to the one already held is ignored.
func (e *Engine) setBuffer(p Payload, key string, fresh bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !fresh && e.buffer != nil && e.key == key {
		return
	}
	e.buffer = &p
	e.key = key
	e.offsets.Reset()
}

// HasSystem reports whether a platform clipboard is attached. Its content is
// only read on paste.
func (e *Engine) HasSystem() bool { return e.system != nil }

// CanPaste reports whether the in-process buffer holds objects.
func (e *Engine) CanPaste() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer != nil && len(e.buffer.Objects) > 0
}

// Buffer returns the in-process payload.
func (e *Engine) Buffer() (Payload, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buffer == nil {
		return Payload{}, false
	}
	return *e.buffer, true
}

func (e *Engine) readSystem(ctx context.Context) (Payload, string, bool) {
	if e.system == nil {
		return Payload{}, "", false
	}
	text, err := e.system.ReadText(ctx)
	if err != nil {
		e.log.Warn("platform clipboard read failed", slog.Any("err", err))
		return Payload{}, "", false
	}
	p, ok := e.codec.Decode(text)
	return p, text, ok
}

// Paste materializes the clipboard content, shifts it by the next cascade
// offset, adds it and selects it. A decodable platform clipboard wins over
// the in-process buffer and replaces it.
func (e *Engine) Paste(ctx context.Context) ([]scene.Object, error) {
	if p, text, ok := e.readSystem(ctx); ok {
		e.setBuffer(p, text, false)
	}
	e.mu.Lock()
	if e.buffer == nil || len(e.buffer.Objects) == 0 {
		e.mu.Unlock()
		return nil, ErrNothingToPaste
	}
	recs := e.buffer.Objects
	e.mu.Unlock()

	objs, err := e.mat.Materialize(ctx, recs)
	if err != nil {
		return nil, fmt.Errorf("clipboard: paste: %w", err)
	}

	e.mu.Lock()
	shift := e.offsets.Next()
	e.mu.Unlock()
	for _, o := range objs {
		p := o.Base()
		p.Left += shift.X
		p.Top += shift.Y
		p.Set("evented", true)
		if e.prepare != nil {
			e.prepare(o)
		}
	}
	e.graph.Add(objs...)
	if len(objs) > 1 {
		e.graph.SetActiveObject(scene.NewActiveSelection(objs...))
	} else {
		e.graph.SetActiveObject(objs[0])
	}
	e.log.Debug("pasted", slog.Int("objects", len(objs)), slog.Float64("dx", shift.X), slog.Float64("dy", shift.Y))
	return objs, nil
}
