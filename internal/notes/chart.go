package notes

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// Chart text layout: a sequence of `[SectionName]` headers, each followed
// by a `{ ... }` block of key = value lines. A difficulty-prefixed section
// name maps to a part: [ExpertSingle] is expert guitar, [HardDoubleBass] is
// hard bass. The [Song] section must be present.
var chartDifficulties = []string{"Easy", "Medium", "Hard", "Expert"}

var chartSectionParts = map[string]Parts{
	"Single":       PartGuitar,
	"DoubleGuitar": PartGuitar,
	"DoubleBass":   PartBass,
	"DoubleRhythm": PartRhythm,
	"Drums":        PartDrums,
	"Keyboard":     PartKeys,
	"Vocals":       PartVocals,
}

func parseChartParts(data []byte) (Parts, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		parts       Parts
		sawSong     bool
		openSection string
		inBlock     bool
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			if inBlock {
				return 0, fmt.Errorf("%w: section header inside block", ErrCorrupt)
			}

			openSection = line[1 : len(line)-1]
			if openSection == "" {
				return 0, fmt.Errorf("%w: empty section name", ErrCorrupt)
			}

			if openSection == "Song" {
				sawSong = true
			}

			if part, ok := sectionPart(openSection); ok {
				parts = parts.Union(part)
			}

		case line == "{":
			if inBlock || openSection == "" {
				return 0, fmt.Errorf("%w: unexpected block open", ErrCorrupt)
			}

			inBlock = true

		case line == "}":
			if !inBlock {
				return 0, fmt.Errorf("%w: unexpected block close", ErrCorrupt)
			}

			inBlock = false
			openSection = ""

		default:
			if !inBlock {
				return 0, fmt.Errorf("%w: content outside block", ErrCorrupt)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if inBlock {
		return 0, fmt.Errorf("%w: unterminated block", ErrCorrupt)
	}

	if !sawSong {
		return 0, fmt.Errorf("%w: missing [Song] section", ErrCorrupt)
	}

	return parts, nil
}

// sectionPart maps a difficulty-prefixed section name to its part.
func sectionPart(section string) (Parts, bool) {
	for _, diff := range chartDifficulties {
		rest, ok := strings.CutPrefix(section, diff)
		if !ok {
			continue
		}

		if part, known := chartSectionParts[rest]; known {
			return part, true
		}
	}

	return 0, false
}
