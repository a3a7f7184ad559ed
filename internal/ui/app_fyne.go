//go:build fyne && cgo

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
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"posterkit/internal/clipboard"
	"posterkit/internal/crash"
	"posterkit/internal/editor"
	applog "posterkit/internal/log"
)

// Run opens the editor window for a new document built from opts and blocks
// until the window is closed.
func Run(opts editor.Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	fyneApp := app.NewWithID("posterkit")
	w := fyneApp.NewWindow("PosterKit")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1200), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	opts.System = clipboard.FyneClipboard{CB: w.Clipboard()}
	status := widget.NewLabel("Ready")
	opts.Notifier = func(n editor.Notice) {
		fyne.Do(func() { status.SetText(n.Message) })
	}
	doc, err := editor.New(opts)
	if err != nil {
		return err
	}
	defer doc.Close()
	target := crash.Target{Doc: doc}
	defer crash.Recover(&target)

	ctx := context.Background()
	run := func(id string) {
		if err := Dispatch(ctx, doc, id); err != nil {
			l.Warn("action failed", slog.String("action", id), slog.Any("err", err))
			dialog.ShowError(err, w)
		}
	}

	buttons := map[string]*widget.Button{}
	var bar []fyne.CanvasObject
	for _, a := range Actions() {
		btn := widget.NewButton(a.Label, func() { run(a.ID) })
		buttons[a.ID] = btn
		bar = append(bar, btn)
		if a.Key == "" {
			continue
		}
		mod := fyne.KeyModifierShortcutDefault
		if a.Shift {
			mod |= fyne.KeyModifierShift
		}
		w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyName(a.Key), Modifier: mod}, func(fyne.Shortcut) { run(a.ID) })
	}

	objects := widget.NewList(
		func() int { return len(doc.Canvas().DesignObjects()) },
		func() fyne.CanvasObject { return widget.NewLabel("object") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			objs := doc.Canvas().DesignObjects()
			if i >= len(objs) {
				return
			}
			b := objs[i].Base()
			o.(*widget.Label).SetText(fmt.Sprintf("%s  %.0f,%.0f", objs[i].Type(), b.Left, b.Top))
		},
	)
	panelsLabel := widget.NewLabel("")
	history := widget.NewLabel("")

	doc.OnControls(func(c editor.Controls) {
		fyne.Do(func() {
			for id, btn := range buttons {
				if Enabled(id, c) {
					btn.Enable()
				} else {
					btn.Disable()
				}
			}
			st := doc.History().Status()
			history.SetText(fmt.Sprintf("History %d/%d", st.Cursor+1, st.Len))
			panelsLabel.SetText("Panels: " + strings.Join(VisiblePanels(c.Tokens), ", "))
			objects.Refresh()
		})
	})

	w.SetContent(container.NewBorder(
		container.NewHScroll(container.NewHBox(bar...)),
		container.NewHBox(status, history),
		nil,
		panelsLabel,
		objects,
	))
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})
	w.ShowAndRun()
	return nil
}
