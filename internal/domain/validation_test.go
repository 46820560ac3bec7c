package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateBookName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expectErr bool
	}{
		{"valid name", "Household", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"too long", strings.Repeat("a", MaxBookNameLength+1), true},
		{"max length", strings.Repeat("a", MaxBookNameLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBookName(tt.input)
			if tt.expectErr && !errors.Is(err, ErrInvalidBookName) {
				t.Errorf("expected ErrInvalidBookName, got %v", err)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStorageKey(t *testing.T) {
	for _, key := range []string{"household", "book-2024", "A.b_c"} {
		if err := ValidateStorageKey(key); err != nil {
			t.Errorf("%q: unexpected error: %v", key, err)
		}
	}
	for _, key := range []string{"", "-leading", "has space", "slash/key", strings.Repeat("k", 129)} {
		if err := ValidateStorageKey(key); !errors.Is(err, ErrInvalidStorageKey) {
			t.Errorf("%q: expected ErrInvalidStorageKey, got %v", key, err)
		}
	}
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount string
		want   error
	}{
		{"0.01", nil},
		{"22.00", nil},
		{"1000000000", nil},
		{"0", ErrInvalidAmount},
		{"-5", ErrInvalidAmount},
		{"0.009", ErrAmountTooSmall},
		{"3.141", ErrAmountPrecision},
		{"1000000000.01", ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := ValidateAmount(dec(tt.amount))
			if tt.want == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
