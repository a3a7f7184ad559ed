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
	"testing"

	"github.com/zalando/go-keyring"
)

func TestJournalPasswordKeyring(t *testing.T) {
	keyring.MockInit()

	if pw, err := JournalPassword(); err != nil || pw != "" {
		t.Fatalf("empty keyring: pw=%q err=%v", pw, err)
	}
	if err := SetJournalPassword("  s3cret \n"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if pw, err := JournalPassword(); err != nil || pw != "s3cret" {
		t.Fatalf("get: pw=%q err=%v", pw, err)
	}
	if err := SetJournalPassword(""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if pw, _ := JournalPassword(); pw != "" {
		t.Fatalf("password survived clear: %q", pw)
	}
	if err := SetJournalPassword(""); err != nil {
		t.Fatalf("clearing twice must succeed: %v", err)
	}
}

type brokenStore struct{}

var errLocked = errors.New("keyring locked")

func (brokenStore) Get(string, string) (string, error) { return "", errLocked }
func (brokenStore) Set(string, string, string) error   { return errLocked }
func (brokenStore) Delete(string, string) error        { return errLocked }

func TestJournalPasswordErrors(t *testing.T) {
	prev := secretStore
	secretStore = brokenStore{}
	t.Cleanup(func() { secretStore = prev })

	if _, err := JournalPassword(); !errors.Is(err, errLocked) {
		t.Fatalf("get error: %v", err)
	}
	if err := SetJournalPassword("x"); !errors.Is(err, errLocked) {
		t.Fatalf("set error: %v", err)
	}
}
