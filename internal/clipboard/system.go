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
	"sync"

	"fyne.io/fyne/v2"
)

// ErrUnavailable is returned by platform clipboards that cannot be reached.
var ErrUnavailable = errors.New("clipboard: platform clipboard unavailable")

// System is a platform text clipboard. Both calls may fail; callers treat
// failures as soft.
type System interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
}

// FyneClipboard adapts a fyne window clipboard.
type FyneClipboard struct {
	CB fyne.Clipboard
}

func (f FyneClipboard) ReadText(ctx context.Context) (string, error) {
	if f.CB == nil {
		return "", ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.CB.Content(), nil
}

func (f FyneClipboard) WriteText(ctx context.Context, text string) error {
	if f.CB == nil {
		return ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.CB.SetContent(text)
	return nil
}

// Memory is a process-local text clipboard, shared by every document that
// holds the same instance.
type Memory struct {
	mu   sync.Mutex
	text string
}

func (m *Memory) ReadText(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

func (m *Memory) WriteText(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}
