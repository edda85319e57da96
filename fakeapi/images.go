// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package fakeapi

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

const variantSize = 24

// originalImage returns a path, the way the real backend points at stored
// originals.
func originalImage(imageID int) string {
	return fmt.Sprintf("/images/%d.png", imageID)
}

// variantImage returns a raw base64 PNG without data URI prefix. Payloads
// are cached per (image, variant); the caller holds s.mu.
func (s *Server) variantImage(imageID, variant int) string {
	key := fmt.Sprintf("%d/%d", imageID, variant)
	if img, ok := s.images[key]; ok {
		return img
	}
	img := renderVariant(imageID, variant)
	s.images[key] = img
	return img
}

// renderVariant draws a small deterministic pattern so variants of the same
// image look related but distinct.
func renderVariant(imageID, variant int) string {
	m := image.NewRGBA(image.Rect(0, 0, variantSize, variantSize))
	for y := 0; y < variantSize; y++ {
		for x := 0; x < variantSize; x++ {
			on := ((x*(variant+1))^(y*(imageID%7+1)))&3 == 0
			c := color.RGBA{
				R: uint8(imageID * 37),
				G: uint8(x * 10),
				B: uint8(y*10 + variant*40),
				A: 255,
			}
			if on {
				c = color.RGBA{A: 255}
			}
			m.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	// Encoding an in-memory RGBA cannot fail.
	_ = png.Encode(&buf, m)
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
