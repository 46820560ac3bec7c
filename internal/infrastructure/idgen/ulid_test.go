package idgen

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestReferenceGeneratorIsShortAndUnique(t *testing.T) {
	g := NewReferenceGenerator()
	seen := make(map[string]bool)

	for range 1000 {
		ref := g.Generate()
		if len(ref) != ReferenceLength {
			t.Fatalf("expected %d characters, got %q", ReferenceLength, ref)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference %q", ref)
		}
		seen[ref] = true
		if strings.Trim(ref, ulid.Encoding) != "" {
			t.Fatalf("reference %q has characters outside the ULID alphabet", ref)
		}
	}
}
