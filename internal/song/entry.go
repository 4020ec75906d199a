package song

import "songlib/internal/notes"

// Kind discriminates the closed set of entry variants. Behavior that varies
// per variant (notation loading, validation) dispatches on this tag rather
// than on a type hierarchy.
type Kind uint8

// Entry variants.
const (
	// KindLooseFile is a plain directory with a marker file, a notation
	// file, and audio stems.
	KindLooseFile Kind = iota

	// KindExtractedContainer is a container layout unpacked to disk: the
	// script manifest and assets are loose files under the directory.
	KindExtractedContainer

	// KindContainer is a song embedded in a binary container archive.
	KindContainer
)

var kindNames = map[Kind]string{
	KindLooseFile:          "loose",
	KindExtractedContainer: "extracted",
	KindContainer:          "container",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

// ChecksumSize is the size of an entry's content checksum in bytes.
const ChecksumSize = 20

// Checksum is a content hash over a song's concatenated notation byte
// segments. It is a function of notation content only: two copies of the
// same song at different paths compare equal on this field.
type Checksum [ChecksumSize]byte

// Entry is one accepted, queryable song. An Entry is immutable after
// acceptance; in particular Checksum is assigned exactly once.
type Entry struct {
	Kind      Kind
	ShortName string // overlay lookup key; empty for loose-file entries
	Name      string
	Artist    string
	Album     string
	Charter   string
	Year      int

	// NotationPath locates the base notation bytes: a filesystem path for
	// loose and extracted entries, a virtual path inside the owning
	// container for container entries.
	NotationPath string

	// ContainerIndex is a non-owning index into the root's container list,
	// or -1 for entries not backed by an archive. The container's lifetime
	// is owned by the root, never by entries.
	ContainerIndex int

	Parts    notes.Parts
	Checksum Checksum

	// Upgrades lists the names of upgrade fragments whose notation
	// contributed to Parts and Checksum.
	Upgrades []string
}
