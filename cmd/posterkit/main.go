/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"posterkit/internal/clipboard"
	"posterkit/internal/config"
	"posterkit/internal/crash"
	"posterkit/internal/editor"
	"posterkit/internal/imagefx"
	applog "posterkit/internal/log"
	"posterkit/internal/printsheet"
	"posterkit/internal/storage"
	"posterkit/internal/telemetry"
	"posterkit/internal/ui"
	"posterkit/internal/version"
)

func usage() {
	fmt.Println("PosterKit")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  posterkit version|-v|--version              Show version")
	fmt.Println("  posterkit demo                              Run a scripted edit session and print the history")
	fmt.Println("  posterkit clip encode <payload.json|->      Wrap a clipboard payload into clipboard text")
	fmt.Println("  posterkit clip decode <text>                Validate clipboard text and print the payload")
	fmt.Println("  posterkit sheet <design.png> <out.pdf> [n]  Tile n copies of a rendered design onto print pages")
	fmt.Println("  posterkit export png|pdf <design.png> <out> Export a rendered design")
	fmt.Println("  posterkit recover [<docID>]                 Restore the last journaled state and print it")
	fmt.Println("  posterkit journal-password [--clear]        Store the Postgres journal password (read from stdin) in the OS keyring")
	fmt.Println("  posterkit ui                                Launch desktop UI (build with -tags fyne for full UI)")
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")

	cfg, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l = applog.WithComponent("cli")

	tel := telemetry.New(telemetry.FromAppConfig(cfg))
	defer func() {
		tel.Summary()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		tel.Flush(ctx)
		tel.Close()
	}()

	var target crash.Target
	defer crash.Recover(&target)

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	ctx := context.Background()
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("PosterKit")
		fmt.Println(version.String())
	case "demo":
		j := openJournal(ctx, l, cfg)
		if j != nil {
			defer j.Close()
		}
		doc, err := editor.New(editor.Options{Config: cfg, Journal: j, Events: tel})
		if err != nil {
			fail(l, "new document failed", err)
		}
		defer doc.Close()
		target.Doc = doc
		if err := demo(ctx, doc, os.Stdout); err != nil {
			fail(l, "demo failed", err)
		}
	case "clip":
		if len(args) < 4 {
			fmt.Println("clip requires encode|decode and an argument")
			usage()
			os.Exit(2)
		}
		if err := clip(cfg, args[2], args[3], os.Stdout); err != nil {
			fail(l, "clip failed", err)
		}
	case "sheet":
		if len(args) < 4 {
			fmt.Println("sheet requires <design.png> and <out.pdf>")
			usage()
			os.Exit(2)
		}
		opt := printsheet.SheetOptions{
			Page:        cfg.Print.Page,
			MarginMm:    cfg.Print.MarginMm,
			CopyWidthMm: cfg.Print.CopyWidthMm,
			Copies:      cfg.Print.Copies,
			Mono:        cfg.Print.Mono,
		}
		if len(args) >= 5 {
			n, err := strconv.Atoi(args[4])
			if err != nil || n < 1 {
				fmt.Println("copies must be a positive number")
				os.Exit(2)
			}
			opt.Copies = n
		}
		if err := sheet(ctx, args[2], args[3], opt, os.Stdout); err != nil {
			fail(l, "sheet failed", err)
		}
		tel.Event("print.sheet", map[string]any{"copies": opt.Copies, "page": opt.Page})
	case "export":
		if len(args) < 5 {
			fmt.Println("export requires png|pdf, <design.png> and <out>")
			usage()
			os.Exit(2)
		}
		if err := export(ctx, args[2], args[3], args[4]); err != nil {
			fail(l, "export failed", err)
		}
		tel.Event("export."+args[2], nil)
		fmt.Println("Wrote", args[4])
	case "recover":
		j := openJournal(ctx, l, cfg)
		if j == nil {
			fmt.Println("Error: journal disabled; set journal.dsn or", config.EnvJournalDSN)
			os.Exit(1)
		}
		defer j.Close()
		doc, err := editor.New(editor.Options{Config: cfg, Journal: j, Events: tel})
		if err != nil {
			fail(l, "new document failed", err)
		}
		defer doc.Close()
		var id string
		if len(args) >= 3 {
			id = args[2]
		}
		if err := doc.Recover(ctx, id); err != nil {
			fail(l, "recover failed", err)
		}
		target.Doc = doc
		printDocument(doc, os.Stdout)
	case "journal-password":
		var pw string
		if len(args) < 3 || args[2] != "--clear" {
			fmt.Print("Journal password: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				fail(l, "read password failed", err)
			}
			if pw = strings.TrimSpace(line); pw == "" {
				fmt.Println("Error: empty password; use --clear to remove it")
				os.Exit(2)
			}
		}
		if err := config.SetJournalPassword(pw); err != nil {
			fail(l, "keyring update failed", err)
		}
		if pw == "" {
			fmt.Println("Journal password removed from the keyring.")
		} else {
			fmt.Println("Journal password stored in the keyring.")
		}
	case "ui":
		j := openJournal(ctx, l, cfg)
		if j != nil {
			defer j.Close()
		}
		if err := ui.Run(editor.Options{Config: cfg, Journal: j, Events: tel}); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	default:
		usage()
	}
}

// openJournal returns nil when the journal is disabled or unreachable.
func openJournal(ctx context.Context, l *slog.Logger, cfg config.AppConfig) *storage.Journal {
	if strings.TrimSpace(cfg.Journal.DSN) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var pw string
	if strings.EqualFold(cfg.Journal.Driver, storage.DriverPostgres) {
		var err error
		if pw, err = config.JournalPassword(); err != nil {
			l.Warn("keyring unavailable", slog.Any("err", err))
		}
	}
	j, err := storage.OpenJournal(ctx, cfg.Journal.Driver, cfg.Journal.DSN, storage.WithPassword(pw))
	if err != nil {
		l.Warn("journal unavailable", slog.String("driver", cfg.Journal.Driver), slog.Any("err", err))
		return nil
	}
	return j
}

func demo(ctx context.Context, doc *editor.Document, w io.Writer) error {
	report := func(step string) {
		st := doc.History().Status()
		fmt.Fprintf(w, "%-10s entries=%d cursor=%d undo=%v redo=%v objects=%d\n",
			step, st.Len, st.Cursor, st.CanUndo, st.CanRedo, len(doc.Canvas().DesignObjects()))
	}
	report("start")
	doc.AddText("Summer Sale")
	if _, err := doc.History().Flush(); err != nil {
		return err
	}
	report("text")
	doc.AddRect()
	if _, err := doc.History().Flush(); err != nil {
		return err
	}
	report("rect")
	if _, err := doc.Undo(ctx); err != nil {
		return err
	}
	report("undo")
	if _, err := doc.Redo(ctx); err != nil {
		return err
	}
	report("redo")
	return nil
}

func clip(cfg config.AppConfig, op, arg string, w io.Writer) error {
	codec, err := clipboard.NewCodec(cfg.Clipboard.Prefix)
	if err != nil {
		return err
	}
	switch op {
	case "encode":
		var data []byte
		if arg == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(arg)
		}
		if err != nil {
			return err
		}
		var p clipboard.Payload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}
		text, err := codec.Encode(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, text)
	case "decode":
		p, ok := codec.Decode(arg)
		if !ok {
			return errors.New("not a valid clipboard payload")
		}
		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
	default:
		return fmt.Errorf("unknown clip operation %q", op)
	}
	return nil
}

func loadDesign(ctx context.Context, path string) (image.Image, error) {
	return imagefx.Load(ctx, path)
}

func sheet(ctx context.Context, in, out string, opt printsheet.SheetOptions, w io.Writer) error {
	img, err := loadDesign(ctx, in)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	plan, rerr := printsheet.RenderSheet(f, img, opt)
	if cerr := f.Close(); rerr == nil {
		rerr = cerr
	}
	if rerr != nil {
		_ = os.Remove(out)
		return rerr
	}
	fmt.Fprintf(w, "Page %s %s: %d x %d = %d per page, copy %.1f x %.1f mm\n",
		plan.Page, plan.Orientation, plan.Cols, plan.Rows, plan.Total, plan.CopyW, plan.CopyH)
	fmt.Fprintf(w, "Pages: %d\n", plan.Pages(opt.Copies))
	for _, h := range printsheet.Hints(plan) {
		fmt.Fprintf(w, "  %d columns fit at %.1f mm\n", h.Cols, h.Width)
	}
	return nil
}

func export(ctx context.Context, format, in, out string) error {
	img, err := loadDesign(ctx, in)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	opt := printsheet.ExportOptions{}
	switch format {
	case "png":
		err = printsheet.ExportPNG(f, img, opt)
	case "pdf":
		err = printsheet.ExportPDF(f, img, opt)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out)
	}
	return err
}

func printDocument(doc *editor.Document, w io.Writer) {
	width, height := doc.Canvas().Size()
	fmt.Fprintf(w, "Document %s (%.0fx%.0f, background %s)\n", doc.ID(), width, height, doc.Canvas().Background())
	for i, o := range doc.Canvas().DesignObjects() {
		b := o.Base()
		fmt.Fprintf(w, "  %2d %-8s %7.1f %7.1f\n", i, o.Type(), b.Left, b.Top)
	}
}
