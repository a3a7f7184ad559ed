/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package clipboard implements copy and paste of design objects: an
// in-process buffer plus a prefixed base64 text encoding mirrored to the
// platform clipboard for cross-document paste.
package clipboard

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"posterkit/internal/scene"
)

// Version is the payload format version written and accepted.
const Version = 1

// DefaultPrefix marks clipboard text produced by this engine.
const DefaultPrefix = "POSTERKIT_CLIP:"

//go:embed payload.schema.json
var payloadSchema []byte

// Payload is the clipboard content.
type Payload struct {
	Version int            `json:"version"`
	Objects []scene.Record `json:"objects"`
}

// Codec converts payloads to and from clipboard text.
type Codec struct {
	prefix string
	schema *gojsonschema.Schema
}

// NewCodec returns a codec for the given prefix ("" means DefaultPrefix).
func NewCodec(prefix string) (*Codec, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(payloadSchema))
	if err != nil {
		return nil, fmt.Errorf("clipboard: compile schema: %w", err)
	}
	return &Codec{prefix: prefix, schema: schema}, nil
}

// Prefix returns the marker prepended to encoded payloads.
func (c *Codec) Prefix() string { return c.prefix }

// Encode renders p as prefix + base64(JSON).
func (c *Codec) Encode(p Payload) (string, error) {
	if p.Objects == nil {
		p.Objects = []scene.Record{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("clipboard: encode: %w", err)
	}
	return c.prefix + base64.StdEncoding.EncodeToString(b), nil
}

// Decode parses clipboard text. It reports false for anything that is not a
// payload of the supported version, including unrelated text.
func (c *Codec) Decode(text string) (Payload, bool) {
	rest, ok := strings.CutPrefix(text, c.prefix)
	if !ok {
		return Payload{}, false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(rest))
	if err != nil {
		return Payload{}, false
	}
	res, err := c.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil || !res.Valid() {
		return Payload{}, false
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, false
	}
	return p, true
}
