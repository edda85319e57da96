// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package widget

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultImage is shown for payloads that are neither images nor paths.
const DefaultImage = "/images/face.png"

// rawPayloadThreshold is the length above which an unprefixed payload is
// taken to be raw base64 image data.
const rawPayloadThreshold = 100

const pngDataPrefix = "data:image/png;base64,"

// Kind classifies an image payload returned by the backend.
type Kind int

const (
	KindDefault Kind = iota
	KindDataURI
	KindRawBase64
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindDataURI:
		return "data-uri"
	case KindRawBase64:
		return "base64"
	case KindPath:
		return "path"
	default:
		return "default"
	}
}

// ErrNotEmbedded is returned by SaveImage for payloads that reference an
// image rather than carry it.
var ErrNotEmbedded = errors.New("image payload is not embedded data")

// Classify sniffs raw in the order the widget always has: data URI first,
// then long raw base64, then path or URL.
func Classify(raw string) Kind {
	switch {
	case strings.HasPrefix(raw, "data:image"):
		return KindDataURI
	case len(raw) > rawPayloadThreshold:
		return KindRawBase64
	case strings.HasPrefix(raw, "/"), strings.HasPrefix(raw, "http"):
		return KindPath
	default:
		return KindDefault
	}
}

// ImageSource returns a displayable source for raw.
func ImageSource(raw string) string {
	switch Classify(raw) {
	case KindDataURI, KindPath:
		return raw
	case KindRawBase64:
		return pngDataPrefix + raw
	default:
		return DefaultImage
	}
}

// decodePayload returns the image bytes carried by raw.
func decodePayload(raw string) ([]byte, error) {
	var data string
	switch Classify(raw) {
	case KindDataURI:
		i := strings.Index(raw, ",")
		if i < 0 || !strings.Contains(raw[:i], ";base64") {
			return nil, fmt.Errorf("unsupported data URI")
		}
		data = raw[i+1:]
	case KindRawBase64:
		data = raw
	default:
		return nil, ErrNotEmbedded
	}

	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return b, nil
}

// SaveImage writes an embedded payload to dir/name.png and returns the file
// path. Payloads that only reference an image return ErrNotEmbedded.
func SaveImage(dir, name, raw string) (string, error) {
	b, err := decodePayload(raw)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image dir: %w", err)
	}
	path := filepath.Join(dir, name+".png")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}
