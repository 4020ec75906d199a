// Package container reads binary song archives. The core only depends on
// the Reader and Handle contracts; the default implementation understands
// the SNGC layout and treats each sub-file as an opaque byte range.
//
// Archives are user-supplied and frequently damaged, so the file table is
// decoded with the same defensiveness as any other untrusted input: wrong
// magic means "not a container" (not an error), while a damaged table on a
// recognized container is reported as ErrCorrupt.
package container

import (
	"encoding/binary"
	"errors"
	"fmt"

	"songlib/internal/fs"
)

// Format constants.
const (
	magic          = "SNGC"
	formatVersion  = 1
	headerSize     = 16
	flagEncrypted  = 1 << 0
	maxTableLength = 4096 // sub-files per archive
)

// Reader errors.
var (
	ErrCorrupt    = errors.New("corrupted container")
	ErrBadVersion = errors.New("unsupported container version")
)

// Handle is an open container archive. Handles are owned by the scanning
// root's container list and shared by every entry built from the archive;
// entries reference them by index, never by ownership.
type Handle interface {
	// Path returns the archive's filesystem path.
	Path() string

	// Encrypted reports whether the archive's payload is encrypted.
	Encrypted() bool

	// LoadSubFile returns the bytes of the sub-file at a virtual path.
	// Absent paths and read failures yield an empty slice.
	LoadSubFile(virtualPath string) []byte
}

// Reader opens container archives.
type Reader interface {
	// Open validates path as a container archive. A file that is not a
	// container at all yields (nil, nil); a recognized but damaged
	// container yields an error.
	Open(path string) (Handle, error)
}

// FileReader is the default Reader for SNGC archives on a filesystem.
type FileReader struct {
	fsys fs.FS
}

// NewFileReader returns a Reader over the given filesystem.
func NewFileReader(fsys fs.FS) *FileReader {
	return &FileReader{fsys: fsys}
}

type subFile struct {
	offset uint64
	size   uint64
}

type fileHandle struct {
	fsys      fs.FS
	path      string
	encrypted bool
	files     map[string]subFile
}

// Open reads and validates the archive header and file table. The table is
// held in memory; sub-file payloads are read on demand.
func (r *FileReader) Open(path string) (Handle, error) {
	data, err := r.fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading container: %w", err)
	}

	if len(data) < headerSize || string(data[0:4]) != magic {
		return nil, nil // not a container
	}

	version := binary.LittleEndian.Uint16(data[4:6])
	if version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}

	flags := binary.LittleEndian.Uint32(data[6:10])
	count := binary.LittleEndian.Uint32(data[10:14])

	if count > maxTableLength {
		return nil, fmt.Errorf("%w: %d table entries", ErrCorrupt, count)
	}

	files := make(map[string]subFile, count)
	pos := headerSize

	for i := 0; i < int(count); i++ {
		if len(data)-pos < 2 {
			return nil, fmt.Errorf("%w: truncated file table", ErrCorrupt)
		}

		pathLen := int(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2

		if len(data)-pos < pathLen+16 {
			return nil, fmt.Errorf("%w: truncated table entry", ErrCorrupt)
		}

		virtualPath := string(data[pos : pos+pathLen])
		pos += pathLen

		offset := binary.LittleEndian.Uint64(data[pos : pos+8])
		size := binary.LittleEndian.Uint64(data[pos+8 : pos+16])
		pos += 16

		if offset > uint64(len(data)) || size > uint64(len(data))-offset {
			return nil, fmt.Errorf("%w: sub-file %q out of bounds", ErrCorrupt, virtualPath)
		}

		files[virtualPath] = subFile{offset: offset, size: size}
	}

	return &fileHandle{
		fsys:      r.fsys,
		path:      path,
		encrypted: flags&flagEncrypted != 0,
		files:     files,
	}, nil
}

func (h *fileHandle) Path() string {
	return h.path
}

func (h *fileHandle) Encrypted() bool {
	return h.encrypted
}

func (h *fileHandle) LoadSubFile(virtualPath string) []byte {
	sub, ok := h.files[virtualPath]
	if !ok {
		return nil
	}

	data, err := h.fsys.ReadFile(h.path)
	if err != nil {
		return nil
	}

	// The archive may have been rewritten since Open; re-check bounds.
	if sub.offset > uint64(len(data)) || sub.size > uint64(len(data))-sub.offset {
		return nil
	}

	return data[sub.offset : sub.offset+sub.size]
}

// Compile-time interface checks.
var (
	_ Reader = (*FileReader)(nil)
	_ Handle = (*fileHandle)(nil)
)
