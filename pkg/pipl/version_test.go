package pipl

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hashicorp/go-hclog"
)

// TestVersionPacking tests packing version tuples into 32-bit words.
func TestVersionPacking(t *testing.T) {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "version_test",
		Level: hclog.Trace,
	})

	testCases := []struct {
		name     string
		version  Version
		expected uint32
	}{
		{
			name:     "zero version",
			version:  Version{},
			expected: 0x0,
		},
		{
			name:     "documented literal",
			version:  Version{Major: 2, Minor: 0, Bug: 12, Stage: StageDevelop, Build: 1},
			expected: 0x00106001,
		},
		{
			name:     "release stage",
			version:  Version{Major: 1, Minor: 0, Bug: 0, Stage: StageRelease, Build: 1},
			expected: 1<<19 | 3<<9 | 1,
		},
		{
			name:     "all fields at maximum",
			version:  Version{Major: 0x7f, Minor: 0xf, Bug: 0xf, Stage: StageRelease, Build: 0x1ff},
			expected: 0x7f<<19 | 0xf<<15 | 0xf<<11 | 3<<9 | 0x1ff,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger.Info("🧪 Testing version packing", "test", tc.name, "version", tc.version.String())

			packed, err := PackVersion(tc.version)
			if err != nil {
				t.Fatalf("PackVersion(%+v) failed: %v", tc.version, err)
			}
			if packed != tc.expected {
				t.Errorf("PackVersion(%+v) = 0x%08x, want 0x%08x", tc.version, packed, tc.expected)
			}

			unpacked := UnpackVersion(packed)
			if unpacked != tc.version {
				t.Errorf("Round-trip failed: %+v -> 0x%08x -> %+v", tc.version, packed, unpacked)
			}
		})
	}
}

// TestVersionRangeErrors tests that out-of-range fields are rejected.
func TestVersionRangeErrors(t *testing.T) {
	testCases := []struct {
		field   string
		version Version
	}{
		{"major", Version{Major: 0x80}},
		{"minor", Version{Minor: 0x10}},
		{"bug", Version{Bug: 0x10}},
		{"stage", Version{Stage: 4}},
		{"build", Version{Build: 0x200}},
	}

	for _, tc := range testCases {
		t.Run(tc.field, func(t *testing.T) {
			_, err := PackVersion(tc.version)
			if err == nil {
				t.Fatalf("PackVersion(%+v) succeeded, want range error", tc.version)
			}
			if !errors.Is(err, ErrOutOfRange) {
				t.Errorf("error %v does not wrap ErrOutOfRange", err)
			}
			var rangeErr *RangeError
			if !errors.As(err, &rangeErr) {
				t.Fatalf("error %v is not a *RangeError", err)
			}
			if rangeErr.Field != tc.field {
				t.Errorf("RangeError.Field = %q, want %q", rangeErr.Field, tc.field)
			}
		})
	}
}

// TestVersionUnpackExhaustsWord checks that unpacking covers every bit
// below the top of the major field.
func TestVersionUnpackRoundTrip(t *testing.T) {
	words := []uint32{0x00106001, 0x00080200, 0x03ffffff, 0x00000001}
	for _, word := range words {
		t.Run(fmt.Sprintf("0x%08x", word), func(t *testing.T) {
			v := UnpackVersion(word)
			repacked, err := PackVersion(v)
			if err != nil {
				t.Fatalf("PackVersion(UnpackVersion(0x%08x)) failed: %v", word, err)
			}
			if repacked != word {
				t.Errorf("0x%08x -> %+v -> 0x%08x", word, v, repacked)
			}
		})
	}
}

func TestStageSymbols(t *testing.T) {
	for stage := StageDevelop; stage <= StageRelease; stage++ {
		got, ok := StageFromSymbol(stage.Symbol())
		if !ok || got != stage {
			t.Errorf("StageFromSymbol(%q) = %v, %v, want %v", stage.Symbol(), got, ok, stage)
		}
	}
	if _, ok := StageFromSymbol("PF_Stage_FINAL"); ok {
		t.Error("StageFromSymbol accepted an unknown symbol")
	}
}

func TestVersionString(t *testing.T) {
	v := UnpackVersion(0x00106001)
	if got := v.String(); got != "2.0.12 Develop (Build 1)" {
		t.Errorf("String() = %q", got)
	}
}
