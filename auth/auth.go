// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// anonPrefixLen is how many key characters go into a derived display name.
const anonPrefixLen = 8

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewDeviceKey returns a fresh anonymous device key
func NewDeviceKey() string {
	return uuid.NewString()
}

// ValidDeviceKey reports whether key parses as a UUID
func ValidDeviceKey(key string) bool {
	_, err := uuid.Parse(key)
	return err == nil
}

// DisplayNameFor derives a stable display name from a device key
func DisplayNameFor(key string) string {
	short := strings.ReplaceAll(key, "-", "")
	if len(short) > anonPrefixLen {
		short = short[:anonPrefixLen]
	}
	if short == "" {
		short = "unknown"
	}
	return "anon-" + short
}
