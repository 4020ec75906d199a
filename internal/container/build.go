package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Build renders an SNGC archive holding the given sub-files. Used by the
// pack tooling and by tests that need real archives on disk.
func Build(files map[string][]byte, encrypted bool) ([]byte, error) {
	if len(files) > maxTableLength {
		return nil, fmt.Errorf("%w: %d table entries", ErrCorrupt, len(files))
	}

	paths := make([]string, 0, len(files))
	for path := range files {
		if len(path) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: path too long", ErrCorrupt)
		}

		paths = append(paths, path)
	}

	sort.Strings(paths)

	tableSize := 0
	for _, path := range paths {
		tableSize += 2 + len(path) + 16
	}

	var flags uint32
	if encrypted {
		flags |= flagEncrypted
	}

	var buf bytes.Buffer

	buf.WriteString(magic)

	scratch := make([]byte, 8)

	binary.LittleEndian.PutUint16(scratch, formatVersion)
	buf.Write(scratch[:2])

	binary.LittleEndian.PutUint32(scratch, flags)
	buf.Write(scratch[:4])

	binary.LittleEndian.PutUint32(scratch, uint32(len(paths)))
	buf.Write(scratch[:4])

	buf.Write([]byte{0, 0}) // reserved

	payloadOffset := uint64(headerSize + tableSize)

	for _, path := range paths {
		binary.LittleEndian.PutUint16(scratch, uint16(len(path)))
		buf.Write(scratch[:2])
		buf.WriteString(path)

		binary.LittleEndian.PutUint64(scratch, payloadOffset)
		buf.Write(scratch[:8])

		binary.LittleEndian.PutUint64(scratch, uint64(len(files[path])))
		buf.Write(scratch[:8])

		payloadOffset += uint64(len(files[path]))
	}

	for _, path := range paths {
		buf.Write(files[path])
	}

	return buf.Bytes(), nil
}
