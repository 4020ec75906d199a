package song

import (
	"errors"
	"fmt"
	"strings"

	"songlib/internal/dta"
)

// Builder errors.
var (
	ErrNoShortName = errors.New("fragment has no short name")
	ErrNoSongPath  = errors.New("fragment has no song path")
)

// ParseManifest parses a script manifest (text or binary encoding) and
// returns its top-level song fragments.
func ParseManifest(data []byte) ([]dta.Node, error) {
	root, err := dta.Parse(data)
	if err != nil {
		return nil, err
	}

	return root.AsList()
}

// FromFragment constructs an unvalidated entry from one manifest fragment.
// Field defaults: a missing display name falls back to the short name; the
// notation path derives from the fragment's song path.
func FromFragment(frag dta.Node, kind Kind) (Entry, error) {
	short := frag.TagName()
	if short == "" {
		return Entry{}, ErrNoShortName
	}

	entry := Entry{
		Kind:           kind,
		ShortName:      short,
		Name:           short,
		ContainerIndex: -1,
	}

	if name, ok := frag.ChildString("name"); ok {
		entry.Name = name
	}

	if artist, ok := frag.ChildString("artist"); ok {
		entry.Artist = artist
	}

	if album, ok := frag.ChildString("album_name"); ok {
		entry.Album = album
	}

	if charter, ok := frag.ChildString("author"); ok {
		entry.Charter = charter
	}

	if year, ok := frag.ChildInt("year_released"); ok {
		entry.Year = int(year)
	}

	inner, ok := frag.Child("song")
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNoSongPath, short)
	}

	songPath, ok := inner.ChildString("name")
	if !ok || songPath == "" {
		return Entry{}, fmt.Errorf("%w: %s", ErrNoSongPath, short)
	}

	entry.NotationPath = songPath + ".mid"

	return entry, nil
}

// iniSection is the marker file section holding song metadata.
const iniSection = "song"

// ParseMarker parses a loose-file marker (song.ini) into an entry shell.
// The format is a single `[song]` section of key=value lines; the section
// name and keys are case-insensitive, unknown keys pass through ignored,
// and lines outside any section are rejected.
func ParseMarker(data []byte) (Entry, error) {
	entry := Entry{Kind: KindLooseFile, ContainerIndex: -1}

	section := ""

	for lineNo, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(rawLine, "\r"))

		switch {
		case line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#"):
			continue

		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			section = strings.ToLower(line[1 : len(line)-1])

		default:
			key, value, ok := strings.Cut(line, "=")
			if !ok || section == "" {
				return Entry{}, fmt.Errorf("malformed marker line %d: %q", lineNo+1, line)
			}

			if section != iniSection {
				continue
			}

			applyMarkerField(&entry, strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value))
		}
	}

	return entry, nil
}

func applyMarkerField(entry *Entry, key, value string) {
	switch key {
	case "name":
		entry.Name = value
	case "artist":
		entry.Artist = value
	case "album":
		entry.Album = value
	case "charter", "frets":
		entry.Charter = value
	case "year":
		var year int
		if _, err := fmt.Sscanf(value, "%d", &year); err == nil {
			entry.Year = year
		}
	}
}
