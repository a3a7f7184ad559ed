/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables are read-only overrides applied after the file.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	History       HistoryConfig   `yaml:"history"`
	Clipboard     ClipboardConfig `yaml:"clipboard"`
	Canvas        CanvasConfig    `yaml:"canvas"`
	Journal       JournalConfig   `yaml:"journal"`
	Print         PrintConfig     `yaml:"print"`
	Logging       LoggingConfig   `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

type HistoryConfig struct {
	Limit      int `yaml:"limit"`
	DebounceMs int `yaml:"debounce_ms"`
}

// ClipboardConfig holds the paste cascade policy. Offsets are in canvas pixels.
type ClipboardConfig struct {
	Prefix     string  `yaml:"prefix"`
	BaseOffset float64 `yaml:"base_offset"`
	StepOffset float64 `yaml:"step_offset"`
	MaxOffset  float64 `yaml:"max_offset"`
}

type CanvasConfig struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	Background string  `yaml:"background"`
}

// JournalConfig selects where committed snapshots are journaled.
// An empty DSN disables the journal.
type JournalConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "pgx"
	DSN    string `yaml:"dsn"`
	Keep   int    `yaml:"keep"`
}

type PrintConfig struct {
	Page        string  `yaml:"page"`
	MarginMm    float64 `yaml:"margin_mm"`
	CopyWidthMm float64 `yaml:"copy_width_mm"`
	Copies      int     `yaml:"copies"`
	Mono        bool    `yaml:"mono"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		History:       HistoryConfig{Limit: 60, DebounceMs: 250},
		Clipboard:     ClipboardConfig{Prefix: "POSTERKIT_CLIP:", BaseOffset: 24, StepOffset: 24, MaxOffset: 240},
		Canvas:        CanvasConfig{Width: 1480, Height: 2100, Background: "#ffffff"},
		Journal:       JournalConfig{Driver: "sqlite", Keep: 50},
		Print:         PrintConfig{Page: "a4", MarginMm: 3, CopyWidthMm: 80, Copies: 8},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvTelemetryOptIn  = "POSTERKIT_TELEMETRY_OPT_IN"
	EnvHistoryLimit    = "POSTERKIT_HISTORY_LIMIT"
	EnvHistoryDebounce = "POSTERKIT_HISTORY_DEBOUNCE_MS"
	EnvJournalDriver   = "POSTERKIT_JOURNAL_DRIVER"
	EnvJournalDSN      = "POSTERKIT_JOURNAL_DSN"
	EnvLogLevel        = "POSTERKIT_LOG_LEVEL"
	EnvLogFormat       = "POSTERKIT_LOG_FORMAT"
	EnvLogSource       = "POSTERKIT_LOG_SOURCE"
	EnvLogFile         = "POSTERKIT_LOG_FILE"
	// EnvConfigPath points Load at an explicit file instead of the per-user location.
	EnvConfigPath = "POSTERKIT_CONFIG"
)

// ConfigPath returns the config file path, honoring POSTERKIT_CONFIG.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PosterKit")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PosterKit")
	default:
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("cannot resolve config directory")
		}
		base = filepath.Join(home, ".config", "posterkit")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), merges it over the defaults and
// applies environment overrides. A missing file is not an error; a malformed one is.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if uerr := yaml.Unmarshal(data, &fileCfg); uerr != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse %s: %w", path, uerr)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes cfg as YAML to ConfigPath.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Debounce returns the history debounce window as a duration.
func (h HistoryConfig) Debounce() time.Duration {
	if h.DebounceMs <= 0 {
		return time.Duration(Defaults().History.DebounceMs) * time.Millisecond
	}
	return time.Duration(h.DebounceMs) * time.Millisecond
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	if src.History.Limit > 0 {
		dst.History.Limit = src.History.Limit
	}
	if src.History.DebounceMs > 0 {
		dst.History.DebounceMs = src.History.DebounceMs
	}

	if s := strings.TrimSpace(src.Clipboard.Prefix); s != "" {
		dst.Clipboard.Prefix = s
	}
	if src.Clipboard.BaseOffset > 0 {
		dst.Clipboard.BaseOffset = src.Clipboard.BaseOffset
	}
	if src.Clipboard.StepOffset > 0 {
		dst.Clipboard.StepOffset = src.Clipboard.StepOffset
	}
	if src.Clipboard.MaxOffset > 0 {
		dst.Clipboard.MaxOffset = src.Clipboard.MaxOffset
	}

	if src.Canvas.Width > 0 {
		dst.Canvas.Width = src.Canvas.Width
	}
	if src.Canvas.Height > 0 {
		dst.Canvas.Height = src.Canvas.Height
	}
	if s := strings.TrimSpace(src.Canvas.Background); s != "" {
		dst.Canvas.Background = s
	}

	if s := strings.TrimSpace(src.Journal.Driver); s != "" {
		dst.Journal.Driver = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Journal.DSN); s != "" {
		dst.Journal.DSN = s
	}
	if src.Journal.Keep > 0 {
		dst.Journal.Keep = src.Journal.Keep
	}

	if s := strings.TrimSpace(src.Print.Page); s != "" {
		dst.Print.Page = strings.ToLower(s)
	}
	if src.Print.MarginMm > 0 {
		dst.Print.MarginMm = src.Print.MarginMm
	}
	if src.Print.CopyWidthMm > 0 {
		dst.Print.CopyWidthMm = src.Print.CopyWidthMm
	}
	if src.Print.Copies > 0 {
		dst.Print.Copies = src.Print.Copies
	}
	dst.Print.Mono = src.Print.Mono

	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryLimit)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.History.Limit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryDebounce)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.History.DebounceMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvJournalDriver)); v != "" {
		cfg.Journal.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvJournalDSN)); v != "" {
		cfg.Journal.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	envs := map[string]string{
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"history.limit":            EnvHistoryLimit,
		"history.debounce_ms":      EnvHistoryDebounce,
		"journal.driver":           EnvJournalDriver,
		"journal.dsn":              EnvJournalDSN,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}
	name, ok := envs[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
