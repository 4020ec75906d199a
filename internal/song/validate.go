package song

import (
	"crypto/sha1" //nolint:gosec // content identity, not security

	"songlib/internal/dta"
	"songlib/internal/notes"
)

// NotationLoader resolves a notation path (filesystem or container-virtual)
// to its bytes. Absent paths yield an empty slice.
type NotationLoader func(path string) []byte

// ProcessFragment runs the full container-tree candidate pipeline: build,
// update merge, upgrade attachment, validation, part detection, and
// checksum. On failure the Result classifies the rejection; Ok means the
// returned entry was accepted and carries its final checksum.
func ProcessFragment(
	frag dta.Node,
	kind Kind,
	overlays *OverlayIndex,
	load NotationLoader,
	encrypted bool,
) (Entry, Result) {
	short := frag.TagName()
	if short == "" {
		return Entry{}, NotASong
	}

	// Updates first, upgrades second. An upgrade's notation layers on top
	// of the already-updated base, so this order is fixed.
	merged, updateNotations := ApplyUpdates(frag, overlays.Updates(short))

	entry, err := FromFragment(merged, kind)
	if err != nil {
		return Entry{}, NotASong
	}

	upgrades := overlays.Upgrades(entry.ShortName)

	// Non-playable placeholder content is rejected before any byte work.
	if merged.ChildBool("fake") {
		return Entry{}, NotASong
	}

	if !hasAudio(merged) {
		return Entry{}, NoAudioFile
	}

	if encrypted {
		return Entry{}, EncryptedContainer
	}

	baseNotation := load(entry.NotationPath)
	if len(baseNotation) == 0 {
		return Entry{}, NoNotesFile
	}

	segments := make([][]byte, 0, 1+len(updateNotations)+len(upgrades))
	segments = append(segments, baseNotation)
	segments = append(segments, updateNotations...)

	for _, upgrade := range upgrades {
		if upgrade.Notation == nil {
			continue
		}

		if bytes := upgrade.Notation(); len(bytes) > 0 {
			segments = append(segments, bytes)
			entry.Upgrades = append(entry.Upgrades, upgrade.Name)
		}
	}

	parts, checksum, ok := identity(segments)
	if !ok {
		return Entry{}, CorruptedNotesFile
	}

	entry.Parts = parts
	entry.Checksum = checksum

	return entry, Ok
}

// hasAudio checks the merged fragment for at least one audio source: a
// non-empty track index list or an explicit audio path.
func hasAudio(frag dta.Node) bool {
	if path, ok := frag.ChildString("audio_path"); ok && path != "" {
		return true
	}

	inner, ok := frag.Child("song")
	if !ok {
		return false
	}

	tracks, ok := inner.Child("tracks")
	if !ok || len(tracks.List) < 2 {
		return false
	}

	payload := tracks.List[1]

	return payload.Kind == dta.KindList && len(payload.List) > 0
}

// identity parses every notation segment for parts and hashes the
// concatenated byte sequence in segment order. All segments must parse;
// a single bad segment invalidates the whole candidate.
func identity(segments [][]byte) (notes.Parts, Checksum, bool) {
	var parts notes.Parts

	hash := sha1.New() //nolint:gosec // content identity, not security

	for _, segment := range segments {
		segmentParts, err := notes.ParseParts(segment)
		if err != nil {
			return 0, Checksum{}, false
		}

		parts = parts.Union(segmentParts)
		_, _ = hash.Write(segment)
	}

	var checksum Checksum
	copy(checksum[:], hash.Sum(nil))

	return parts, checksum, true
}

// Identity is the loose-file entry path into the checksum engine: the
// single notation segment is parsed and hashed the same way as container
// candidates with no overlays.
func Identity(notation []byte) (notes.Parts, Checksum, bool) {
	return identity([][]byte{notation})
}
