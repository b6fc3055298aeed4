package shared

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func NewID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}

// ScopedKey joins a storage key with an optional scope such as a device ID.
func ScopedKey(base, scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return base
	}
	return base + ":" + scope
}

// ValidDeviceID reports whether id is usable as a device identifier in
// storage keys and routes.
func ValidDeviceID(id string) bool {
	return deviceIDPattern.MatchString(id)
}
