// Package idgen issues identifiers and bank transfer references.
package idgen

import (
	"github.com/oklog/ulid/v2"
)

// ReferenceLength is the length of generated auto-matching references. Bank
// reference fields are narrow, so only the tail of a ULID is used.
const ReferenceLength = 10

// ReferenceGenerator generates short references for expected bank transfers.
type ReferenceGenerator struct{}

// NewReferenceGenerator creates a new ReferenceGenerator.
func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{}
}

// Generate returns the random tail of a fresh ULID. ulid.Make uses monotonic
// entropy, so references issued within one millisecond still differ.
func (g *ReferenceGenerator) Generate() string {
	id := ulid.Make().String()
	return id[len(id)-ReferenceLength:]
}
