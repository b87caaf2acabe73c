// Package id provides unique identifier generation for transcription jobs.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Generate creates a new unique job ID.
// Format: tr-<timestamp>-<random>
// Example: tr-1701432000-a1b2c3d4
func Generate() string {
	timestamp := time.Now().Unix()
	suffix := Suffix()
	if suffix == "" {
		// Fallback to timestamp only if crypto/rand fails
		return fmt.Sprintf("tr-%d", timestamp)
	}
	return fmt.Sprintf("tr-%d-%s", timestamp, suffix)
}

// Suffix returns a short random hex string, or "" if crypto/rand fails.
// Also used to make temporary file names unique.
func Suffix() string {
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		return ""
	}
	return hex.EncodeToString(random)
}
