package notes

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Binary track format: standard chunked layout. A 14-byte header chunk
// ("MThd", big-endian length 6, format, track count, division) followed by
// track chunks ("MTrk", big-endian length, event bytes). Part detection
// only needs each track's name, carried in a meta event (0xFF 0x03) near
// the start of the track; events after the first non-meta byte of a track
// are skipped by chunk length, not decoded.
const (
	trackMagic      = "MThd"
	trackChunkMagic = "MTrk"
	headerChunkLen  = 6
	chunkFrameSize  = 8 // 4-byte tag + 4-byte big-endian length
)

const (
	metaEventPrefix = 0xFF
	metaTrackName   = 0x03
	metaEndOfTrack  = 0x2F
)

var trackNameParts = map[string]Parts{
	"PART GUITAR": PartGuitar,
	"PART BASS":   PartBass,
	"PART RHYTHM": PartRhythm,
	"PART DRUMS":  PartDrums,
	"PART KEYS":   PartKeys,
	"PART VOCALS": PartVocals,
}

func parseTrackParts(data []byte) (Parts, error) {
	if len(data) < chunkFrameSize+headerChunkLen {
		return 0, fmt.Errorf("%w: short header", ErrCorrupt)
	}

	if string(data[0:4]) != trackMagic {
		return 0, fmt.Errorf("%w: bad header magic", ErrCorrupt)
	}

	headerLen := binary.BigEndian.Uint32(data[4:8])
	if headerLen != headerChunkLen {
		return 0, fmt.Errorf("%w: header length %d", ErrCorrupt, headerLen)
	}

	trackCount := int(binary.BigEndian.Uint16(data[10:12]))

	var parts Parts

	pos := chunkFrameSize + headerChunkLen
	seen := 0

	for pos < len(data) {
		if len(data)-pos < chunkFrameSize {
			return 0, fmt.Errorf("%w: truncated chunk frame", ErrCorrupt)
		}

		tag := string(data[pos : pos+4])
		length := int(binary.BigEndian.Uint32(data[pos+4 : pos+8]))
		pos += chunkFrameSize

		if length < 0 || length > len(data)-pos {
			return 0, fmt.Errorf("%w: chunk length %d exceeds input", ErrCorrupt, length)
		}

		if tag == trackChunkMagic {
			seen++

			name, err := trackName(data[pos : pos+length])
			if err != nil {
				return 0, err
			}

			if part, ok := trackNameParts[strings.ToUpper(strings.TrimSpace(name))]; ok {
				parts = parts.Union(part)
			}
		}

		// Unknown chunk tags are skipped, per the chunked-format convention.
		pos += length
	}

	if seen != trackCount {
		return 0, fmt.Errorf("%w: header declares %d tracks, found %d", ErrCorrupt, trackCount, seen)
	}

	return parts, nil
}

// trackName scans one track's event bytes for the track-name meta event.
// The name, when present, precedes any channel event, so scanning stops at
// the first status byte that is not a meta event.
func trackName(events []byte) (string, error) {
	pos := 0

	for pos < len(events) {
		// Delta time, variable-length quantity.
		vlqLen, err := vlqLength(events[pos:])
		if err != nil {
			return "", err
		}

		pos += vlqLen

		if pos >= len(events) {
			return "", fmt.Errorf("%w: event after delta time missing", ErrCorrupt)
		}

		if events[pos] != metaEventPrefix {
			// First channel event; no name in this track.
			return "", nil
		}

		if len(events)-pos < 2 {
			return "", fmt.Errorf("%w: truncated meta event", ErrCorrupt)
		}

		metaType := events[pos+1]
		pos += 2

		lenLen, err := vlqLength(events[pos:])
		if err != nil {
			return "", err
		}

		metaLen := vlqValue(events[pos : pos+lenLen])
		pos += lenLen

		if metaLen > len(events)-pos {
			return "", fmt.Errorf("%w: meta length %d exceeds track", ErrCorrupt, metaLen)
		}

		payload := events[pos : pos+metaLen]
		pos += metaLen

		switch metaType {
		case metaTrackName:
			return string(payload), nil
		case metaEndOfTrack:
			return "", nil
		}
	}

	return "", nil
}

// vlqLength returns the byte length of the variable-length quantity at the
// start of data. Quantities longer than 4 bytes are invalid.
func vlqLength(data []byte) (int, error) {
	for i := 0; i < len(data) && i < 4; i++ {
		if data[i]&0x80 == 0 {
			return i + 1, nil
		}
	}

	return 0, fmt.Errorf("%w: unterminated variable-length quantity", ErrCorrupt)
}

// vlqValue decodes a variable-length quantity already sized by vlqLength.
func vlqValue(data []byte) int {
	value := 0

	for _, b := range data {
		value = value<<7 | int(b&0x7F)
	}

	return value
}
