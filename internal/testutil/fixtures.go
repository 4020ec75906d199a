// Package testutil builds notation, manifest, and container fixtures for
// tests. Only _test files import it.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// TrackFile builds a minimal valid binary notation file whose tracks carry
// the given names ("PART GUITAR", "PART DRUMS", ...).
func TrackFile(trackNames ...string) []byte {
	var buf bytes.Buffer

	buf.WriteString("MThd")
	writeBE32(&buf, 6)

	// Format 1, one track per part name, 480 ticks per quarter note.
	writeBE16(&buf, 1)
	writeBE16(&buf, uint16(len(trackNames)))
	writeBE16(&buf, 480)

	for _, name := range trackNames {
		var events bytes.Buffer

		// Delta 0, track-name meta event.
		events.WriteByte(0x00)
		events.WriteByte(0xFF)
		events.WriteByte(0x03)
		events.WriteByte(byte(len(name)))
		events.WriteString(name)

		// Delta 0, end of track.
		events.WriteByte(0x00)
		events.WriteByte(0xFF)
		events.WriteByte(0x2F)
		events.WriteByte(0x00)

		buf.WriteString("MTrk")
		writeBE32(&buf, uint32(events.Len()))
		buf.Write(events.Bytes())
	}

	return buf.Bytes()
}

// ChartFile builds a minimal valid chart file containing a [Song] section
// and one empty note section per given name ("ExpertSingle", ...).
func ChartFile(sections ...string) []byte {
	var sb strings.Builder

	sb.WriteString("[Song]\n{\n  Name = \"fixture\"\n}\n")

	for _, section := range sections {
		fmt.Fprintf(&sb, "[%s]\n{\n}\n", section)
	}

	return []byte(sb.String())
}

func writeBE16(buf *bytes.Buffer, v uint16) {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	buf.Write(b)
}

func writeBE32(buf *bytes.Buffer, v uint32) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	buf.Write(b)
}
