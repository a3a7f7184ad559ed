/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry counts editing actions (undo, redo, copy, paste, ...)
// for the session and, only when the user opted in and an endpoint is set,
// sends them as small anonymous JSON events. Crash reports can be uploaded
// the same way.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"posterkit/internal/config"
	applog "posterkit/internal/log"
	"posterkit/internal/version"
)

// Env overrides read by FromEnv.
const (
	EnvOptIn     = "POSTERKIT_TELEMETRY_OPT_IN"
	EnvURL       = "POSTERKIT_TELEMETRY_URL"
	EnvCrashURL  = "POSTERKIT_CRASH_UPLOAD_URL"
	EnvTimeoutMs = "POSTERKIT_TELEMETRY_TIMEOUT_MS"
	EnvDebug     = "POSTERKIT_TELEMETRY_DEBUG"
)

// Config for the sender. Without URLs nothing leaves the process, even
// with OptIn set.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv(EnvOptIn)),
		EventsURL:    strings.TrimSpace(os.Getenv(EnvURL)),
		CrashURL:     strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv(EnvDebug) != "",
	}
	if ms := strings.TrimSpace(os.Getenv(EnvTimeoutMs)); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

// FromAppConfig combines the user's opt-in choice with the env endpoints.
// The env opt-in still wins when set.
func FromAppConfig(app config.AppConfig) Config {
	cfg := FromEnv()
	if _, set := os.LookupEnv(EnvOptIn); !set {
		cfg.OptIn = app.General.TelemetryOptIn
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client counts events locally and forwards them asynchronously when
// enabled. Sending never blocks the caller; the queue is bounded and drops
// when full.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan any
	once   sync.Once
	closed chan struct{}

	mu     sync.Mutex
	counts map[string]int
	start  time.Time
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// Default returns the process-wide client, created from env on first use.
func Default() *Client {
	defaultOnce.Do(func() { defaultClient = New(FromEnv()) })
	return defaultClient
}

func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan any, 64),
		closed: make(chan struct{}),
		counts: make(map[string]int),
		start:  time.Now(),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event counts name and, when enabled, queues it with props. Props must
// not carry personal data.
func (c *Client) Event(name string, props map[string]any) {
	if c == nil || name == "" {
		return
	}
	c.mu.Lock()
	c.counts[name]++
	c.mu.Unlock()
	if !c.Enabled() {
		return
	}
	payload := c.envelope(name)
	maps.Copy(payload, props)
	c.enqueue(payload)
}

func (c *Client) envelope(name string) map[string]any {
	return map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
}

func (c *Client) enqueue(payload map[string]any) {
	select {
	case c.q <- payload:
	default:
	}
}

// Counts returns a copy of the per-event counters of this session.
func (c *Client) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.counts)
}

// Summary sends one "session.summary" event holding every counter and the
// session duration in seconds.
func (c *Client) Summary() {
	if !c.Enabled() {
		return
	}
	payload := c.envelope("session.summary")
	payload["counts"] = c.Counts()
	payload["seconds"] = int(time.Since(c.start).Seconds())
	c.enqueue(payload)
}

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(c.q) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the sender goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.send(item)
		}
	}
}

func (c *Client) send(item any) {
	buf, _ := json.Marshal(item)
	c.post(c.cfg.EventsURL, "application/json", buf, "telemetry event")
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug(what+" failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug(what+" sent", slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a crash report when opted in and a crash URL is set.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", append([]byte(nil), report...), "crash upload")
}
