// Package song defines the catalog data model and the per-candidate
// pipeline: entry construction, overlay merging, validation, and the
// content checksum that gives an accepted entry its stable identity.
package song

// Result classifies the outcome of processing one song candidate.
// It is a closed set: every rejected candidate maps to exactly one value,
// and a rejection never aborts the enclosing scan.
type Result uint8

// Candidate outcomes.
const (
	Ok Result = iota
	NotASong
	InvalidDirectory
	NoNotesFile
	CorruptedNotesFile
	NoAudioFile
	EncryptedContainer
	CacheReadError
	CacheWriteError
)

var resultNames = map[Result]string{
	Ok:                 "ok",
	NotASong:           "not_a_song",
	InvalidDirectory:   "invalid_directory",
	NoNotesFile:        "no_notes_file",
	CorruptedNotesFile: "corrupted_notes_file",
	NoAudioFile:        "no_audio_file",
	EncryptedContainer: "encrypted_container",
	CacheReadError:     "cache_read_error",
	CacheWriteError:    "cache_write_error",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}

	return "unknown"
}

// ScanError records one rejected or failed candidate. Errors accumulate in
// the owning root's error list; they are reporting data, not control flow
// beyond the candidate that produced them.
type ScanError struct {
	Root    string
	Subpath string
	Result  Result
	Name    string // display name if known by the time of failure
}

func (e ScanError) Error() string {
	if e.Name != "" {
		return e.Result.String() + ": " + e.Name + " (" + e.Subpath + ")"
	}

	return e.Result.String() + ": " + e.Subpath
}
