/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"

	"posterkit/internal/editor"
	"posterkit/internal/selection"
)

// Action is one toolbar or shortcut command.
type Action struct {
	ID    string
	Label string
	// Key is the shortcut letter used with the primary modifier; empty for none.
	Key   string
	Shift bool
}

// Actions lists the toolbar in display order.
func Actions() []Action {
	return []Action{
		{ID: "undo", Label: "Undo", Key: "Z"},
		{ID: "redo", Label: "Redo", Key: "Z", Shift: true},
		{ID: "copy", Label: "Copy", Key: "C"},
		{ID: "paste", Label: "Paste", Key: "V"},
		{ID: "group", Label: "Group", Key: "G"},
		{ID: "ungroup", Label: "Ungroup", Key: "G", Shift: true},
		{ID: "duplicate", Label: "Duplicate", Key: "D"},
		{ID: "delete", Label: "Delete"},
		{ID: "add-text", Label: "Text"},
		{ID: "add-rect", Label: "Shape"},
		{ID: "front", Label: "Bring to front"},
		{ID: "back", Label: "Send to back"},
	}
}

// Enabled reports whether the action can run under the given controls.
func Enabled(id string, c editor.Controls) bool {
	switch id {
	case "undo":
		return c.CanUndo
	case "redo":
		return c.CanRedo
	case "copy":
		return c.CanCopy
	case "paste":
		return c.CanPaste
	case "group":
		return c.CanGroup
	case "ungroup":
		return c.CanUngroup
	case "duplicate", "delete", "front", "back":
		return c.Tokens.Has("selected")
	}
	return true
}

// Panel is a property panel shown only when its rule matches the selection.
type Panel struct {
	ID   string
	Rule string
}

var panels = []Panel{
	{ID: "canvas", Rule: ""},
	{ID: "arrange", Rule: "selected"},
	{ID: "text", Rule: "text textbox"},
	{ID: "shape", Rule: "rect"},
	{ID: "image", Rule: "image"},
	{ID: "group", Rule: "group activeselection"},
}

// VisiblePanels returns the ids of the panels to show for the selection.
func VisiblePanels(t selection.TokenSet) []string {
	var out []string
	for _, p := range panels {
		if selection.Visible(p.Rule, t) {
			out = append(out, p.ID)
		}
	}
	return out
}

// Dispatch runs the action against the document. Disabled actions are a no-op.
func Dispatch(ctx context.Context, doc *editor.Document, id string) error {
	if !Enabled(id, doc.Controls()) {
		return nil
	}
	var err error
	switch id {
	case "undo":
		_, err = doc.Undo(ctx)
	case "redo":
		_, err = doc.Redo(ctx)
	case "copy":
		_, err = doc.Copy(ctx)
	case "paste":
		_, err = doc.Paste(ctx)
	case "group":
		doc.Group()
	case "ungroup":
		doc.Ungroup()
	case "duplicate":
		doc.Duplicate()
	case "delete":
		doc.Delete()
	case "add-text":
		doc.AddText("Your text")
	case "add-rect":
		doc.AddRect()
	case "front":
		doc.BringToFront()
	case "back":
		doc.SendToBack()
	default:
		return fmt.Errorf("unknown action %q", id)
	}
	return err
}
