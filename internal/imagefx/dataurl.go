/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package imagefx re-encodes raster images for the image effects: crop,
// feathered masks, background removal and grayscale conversion. Images travel
// as data URLs, the way they are stored in design objects.
package imagefx

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/url"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrBadDataURL is returned for malformed or undecodable data URLs.
var ErrBadDataURL = errors.New("imagefx: bad data URL")

// DecodeDataURL parses a data URL and decodes the image it carries. The
// returned format is the decoder name (png, jpeg, gif, webp, bmp).
func DecodeDataURL(s string) (image.Image, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing data: scheme", ErrBadDataURL)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing payload", ErrBadDataURL)
	}
	var raw []byte
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrBadDataURL, err)
		}
		raw = b
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrBadDataURL, err)
		}
		raw = []byte(s)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadDataURL, err)
	}
	return img, format, nil
}

// EncodePNG renders img as a PNG data URL.
func EncodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("imagefx: encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Load resolves an image source: a data URL or a local file path.
func Load(ctx context.Context, src string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.HasPrefix(src, "data:") {
		img, _, err := DecodeDataURL(src)
		return img, err
	}
	f, err := os.Open(strings.TrimPrefix(src, "file://"))
	if err != nil {
		return nil, fmt.Errorf("imagefx: open %q: %w", src, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("imagefx: decode %q: %w", src, err)
	}
	return img, nil
}

// Check loads src and discards the result. It fits scene.ImageLoader.
func Check(ctx context.Context, src string) error {
	_, err := Load(ctx, src)
	return err
}
