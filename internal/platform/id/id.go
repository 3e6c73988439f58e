// Package id generates URL-safe identifiers for seasons, races, and rosters.
//
// Identifiers are UUIDv4 bytes encoded as lowercase base32 (RFC 4648) with no
// padding: 26 characters, safe in URLs and file paths.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new random identifier.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Generator produces identifiers; tests substitute deterministic sequences.
type Generator func() (string, error)
