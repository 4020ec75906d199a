package notes

import (
	"errors"
	"testing"

	"songlib/internal/testutil"
)

func TestParseChartParts(t *testing.T) {
	t.Parallel()

	data := testutil.ChartFile("ExpertSingle", "HardDoubleBass", "MediumDrums", "SyncTrack")

	parts, err := ParseParts(data)
	if err != nil {
		t.Fatalf("ParseParts failed: %v", err)
	}

	want := PartGuitar | PartBass | PartDrums
	if parts != want {
		t.Errorf("expected parts %v, got %v", want, parts)
	}
}

func TestParseChartMissingSongSection(t *testing.T) {
	t.Parallel()

	data := []byte("[ExpertSingle]\n{\n}\n")

	_, err := ParseParts(data)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestParseChartStructuralErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data string
	}{
		{"unterminated block", "[Song]\n{\n"},
		{"stray close", "[Song]\n{\n}\n}\n"},
		{"content outside block", "[Song]\n{\n}\nName = 1\n"},
		{"header inside block", "[Song]\n{\n[ExpertSingle]\n}\n"},
		{"empty section name", "[]\n{\n}\n"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseParts([]byte(tc.data))
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestParseTrackParts(t *testing.T) {
	t.Parallel()

	data := testutil.TrackFile("PART GUITAR", "PART VOCALS", "EVENTS")

	parts, err := ParseParts(data)
	if err != nil {
		t.Fatalf("ParseParts failed: %v", err)
	}

	want := PartGuitar | PartVocals
	if parts != want {
		t.Errorf("expected parts %v, got %v", want, parts)
	}
}

func TestParseTrackTruncations(t *testing.T) {
	t.Parallel()

	data := testutil.TrackFile("PART DRUMS")

	// Any truncation that keeps the binary magic must error, never panic.
	for i := 4; i < len(data); i++ {
		if _, err := ParseParts(data[:i]); err == nil {
			t.Errorf("truncation at %d: expected error", i)
		}
	}
}

func TestParseTrackCountMismatch(t *testing.T) {
	t.Parallel()

	data := testutil.TrackFile("PART GUITAR", "PART BASS")

	// Drop the second track chunk but keep the declared count of 2.
	// Track chunks start after the 14-byte header.
	pos := 14
	trackLen := int(uint32(data[pos+4])<<24 | uint32(data[pos+5])<<16 | uint32(data[pos+6])<<8 | uint32(data[pos+7]))
	truncated := data[:pos+8+trackLen]

	_, err := ParseParts(truncated)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestParseTrackBadChunkLength(t *testing.T) {
	t.Parallel()

	data := testutil.TrackFile("PART GUITAR")

	// Inflate the first track chunk's declared length past the input.
	data[18] = 0xFF

	_, err := ParseParts(data)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}
