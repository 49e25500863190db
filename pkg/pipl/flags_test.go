package pipl

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hashicorp/go-hclog"
)

// TestFlagDecompose tests splitting flag words into symbolic names.
func TestFlagDecompose(t *testing.T) {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "flags_test",
		Level: hclog.Trace,
	})

	testCases := []struct {
		name     string
		table    *FlagTable
		word     uint32
		expected []string
	}{
		{
			name:     "zero word",
			table:    &OutFlags,
			word:     0,
			expected: []string{},
		},
		{
			name:     "single flag",
			table:    &OutFlags,
			word:     0x02000000,
			expected: []string{"PF_OutFlag_DEEP_COLOR_AWARE"},
		},
		{
			name:  "multiple flags in table order",
			table: &OutFlags,
			word:  0x02000000 | 0x00000400 | 0x00000002,
			expected: []string{
				"PF_OutFlag_WIDE_TIME_INPUT",
				"PF_OutFlag_PIX_INDEPENDENT",
				"PF_OutFlag_DEEP_COLOR_AWARE",
			},
		},
		{
			name:  "outflags2 word",
			table: &OutFlags2,
			word:  0x00000010 | 0x00000400 | 0x08000000,
			expected: []string{
				"PF_OutFlag2_I_AM_THREADSAFE",
				"PF_OutFlag2_SUPPORTS_SMART_RENDER",
				"PF_OutFlag2_SUPPORTS_THREADED_RENDERING",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger.Info("🧪 Testing flag decomposition", "test", tc.name, "word", tc.word)

			names, err := tc.table.Decompose(tc.word)
			if err != nil {
				t.Fatalf("Decompose(0x%08x) failed: %v", tc.word, err)
			}
			if !reflect.DeepEqual(names, tc.expected) {
				t.Errorf("Decompose(0x%08x) = %v, want %v", tc.word, names, tc.expected)
			}

			recomposed, err := tc.table.Compose(names)
			if err != nil {
				t.Fatalf("Compose(%v) failed: %v", names, err)
			}
			if recomposed != tc.word {
				t.Errorf("Round-trip failed: 0x%08x -> %v -> 0x%08x", tc.word, names, recomposed)
			}
		})
	}
}

// TestFlagDecomposeResidue tests that unaccounted bits are rejected.
func TestFlagDecomposeResidue(t *testing.T) {
	// 0x00010000 has no OutFlags entry.
	_, err := OutFlags.Decompose(0x02000000 | 0x00010000)
	if err == nil {
		t.Fatal("Decompose accepted a word with unresolved bits")
	}
	if !errors.Is(err, ErrBadValue) {
		t.Errorf("error %v does not wrap ErrBadValue", err)
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error %v is not a *DecodeError", err)
	}
}

func TestFlagComposeUnknownName(t *testing.T) {
	_, err := OutFlags.Compose([]string{"PF_OutFlag_DOES_NOT_EXIST"})
	if err == nil {
		t.Fatal("Compose accepted an unknown flag name")
	}
	if !errors.Is(err, ErrBadValue) {
		t.Errorf("error %v does not wrap ErrBadValue", err)
	}
}

// TestFlagTablesMatchSDKMasks spot-checks table entries against the SDK
// constants they mirror.
func TestFlagTablesMatchSDKMasks(t *testing.T) {
	checks := []struct {
		table *FlagTable
		name  string
		mask  uint32
	}{
		{&OutFlags, "PF_OutFlag_KEEP_RESOURCE_OPEN", 0x00000001},
		{&OutFlags, "PF_OutFlag_AUDIO_EFFECT_ONLY", 0x80000000},
		{&OutFlags2, "PF_OutFlag2_SUPPORTS_QUERY_DYNAMIC_FLAGS", 0x00000001},
		{&OutFlags2, "PF_OutFlag2_MUTABLE_RENDER_SEQUENCE_DATA_SLOWER", 0x10000000},
	}
	for _, c := range checks {
		mask, ok := c.table.mask(c.name)
		if !ok {
			t.Errorf("%s missing from %s table", c.name, c.table.Field)
			continue
		}
		if mask != c.mask {
			t.Errorf("%s = 0x%08x, want 0x%08x", c.name, mask, c.mask)
		}
	}
}
