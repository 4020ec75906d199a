// Package notes parses notation data for available parts. Two formats are
// recognized: the textual chart-script format and the binary track format.
// Both decoders assume hostile input; any structural violation yields
// ErrCorrupt rather than a panic or a silent partial result.
package notes

import (
	"bytes"
	"errors"
)

// ErrCorrupt reports notation data that is not valid in either format.
var ErrCorrupt = errors.New("corrupted notation data")

// ParseParts detects the format of one notation segment and extracts the
// set of playable parts. Binary data is recognized by its magic; anything
// else is treated as chart text.
func ParseParts(data []byte) (Parts, error) {
	if bytes.HasPrefix(data, []byte(trackMagic)) {
		return parseTrackParts(data)
	}

	return parseChartParts(data)
}
