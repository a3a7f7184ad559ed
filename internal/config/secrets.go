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
	"strings"

	"github.com/zalando/go-keyring"
)

// Service/keys for OS keyring.
const (
	keyringService         = "PosterKit"
	keyringJournalPassword = "journal_password"
)

// SecretStore abstracts the keyring, so tests can stub it.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var secretStore SecretStore = osKeyring{}

// osKeyring implements SecretStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// JournalPassword returns the Postgres journal password from the OS keyring.
// A missing entry is not an error.
func JournalPassword() (string, error) {
	pw, err := secretStore.Get(keyringService, keyringJournalPassword)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return pw, err
}

// SetJournalPassword stores pw in the OS keyring; an empty pw removes it.
func SetJournalPassword(pw string) error {
	pw = strings.TrimSpace(pw)
	if pw == "" {
		err := secretStore.Delete(keyringService, keyringJournalPassword)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return secretStore.Set(keyringService, keyringJournalPassword, pw)
}
