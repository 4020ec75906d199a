package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"songlib/internal/notes"
	"songlib/internal/song"
)

// Cache file layout: 4-byte magic, uint16 version, then the body:
//
//	root path      string
//	containers     uint32 count, then count path strings
//	entries        uint32 count, then count encoded entries
//
// An entry encodes as: kind byte, short name, display name, artist,
// album, charter (strings), year int32, notation path string, container
// index int32, parts byte, 20 checksum bytes, uint16 upgrade count and
// that many upgrade name strings. Strings are uint16 length-prefixed.
//
// Cache files live on disk between runs and can be truncated or garbled
// by anything, so the decoder bounds-checks every read and rejects
// trailing bytes.
const (
	cacheMagic   = "SLC1"
	cacheVersion = 1

	cacheHeaderSize = 6
)

func encodeCache(root string, entries []song.Entry, containers []string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(cacheMagic)
	writeUint16(&buf, cacheVersion)

	if err := writeString(&buf, root); err != nil {
		return nil, err
	}

	writeUint32(&buf, uint32(len(containers)))

	for _, path := range containers {
		if err := writeString(&buf, path); err != nil {
			return nil, err
		}
	}

	writeUint32(&buf, uint32(len(entries)))

	for _, entry := range entries {
		if err := encodeEntry(&buf, entry); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func encodeEntry(buf *bytes.Buffer, entry song.Entry) error {
	buf.WriteByte(byte(entry.Kind))

	for _, s := range []string{entry.ShortName, entry.Name, entry.Artist, entry.Album, entry.Charter} {
		if err := writeString(buf, s); err != nil {
			return err
		}
	}

	writeInt32(buf, int32(entry.Year))

	if err := writeString(buf, entry.NotationPath); err != nil {
		return err
	}

	writeInt32(buf, int32(entry.ContainerIndex))
	buf.WriteByte(byte(entry.Parts))
	buf.Write(entry.Checksum[:])

	if len(entry.Upgrades) > math.MaxUint16 {
		return fmt.Errorf("too many upgrade names: %d", len(entry.Upgrades))
	}

	writeUint16(buf, uint16(len(entry.Upgrades)))

	for _, name := range entry.Upgrades {
		if err := writeString(buf, name); err != nil {
			return err
		}
	}

	return nil
}

func decodeCache(data []byte, root string) ([]song.Entry, []string, error) {
	if len(data) < cacheHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d byte header", ErrCorrupt, len(data))
	}

	if string(data[0:4]) != cacheMagic {
		return nil, nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	version := binary.LittleEndian.Uint16(data[4:6])
	if version != cacheVersion {
		return nil, nil, fmt.Errorf("%w: version %d", ErrVersionMismatch, version)
	}

	dec := &cacheDecoder{data: data, pos: cacheHeaderSize}

	storedRoot, err := dec.readString()
	if err != nil {
		return nil, nil, err
	}

	// A hash collision or a copied file would pair this file with the
	// wrong root; the stored path settles it.
	if storedRoot != root {
		return nil, nil, fmt.Errorf("%w: cache belongs to %s", ErrCorrupt, storedRoot)
	}

	containerCount, err := dec.readCount()
	if err != nil {
		return nil, nil, err
	}

	containers := make([]string, 0, containerCount)

	for i := 0; i < containerCount; i++ {
		path, pathErr := dec.readString()
		if pathErr != nil {
			return nil, nil, pathErr
		}

		containers = append(containers, path)
	}

	entryCount, err := dec.readCount()
	if err != nil {
		return nil, nil, err
	}

	entries := make([]song.Entry, 0, entryCount)

	for i := 0; i < entryCount; i++ {
		entry, entryErr := dec.decodeEntry(len(containers))
		if entryErr != nil {
			return nil, nil, entryErr
		}

		entries = append(entries, entry)
	}

	if dec.pos != len(data) {
		return nil, nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(data)-dec.pos)
	}

	return entries, containers, nil
}

type cacheDecoder struct {
	data []byte
	pos  int
}

func (d *cacheDecoder) remaining() int {
	return len(d.data) - d.pos
}

func (d *cacheDecoder) decodeEntry(containerCount int) (song.Entry, error) {
	kind, err := d.readByte()
	if err != nil {
		return song.Entry{}, err
	}

	if kind > byte(song.KindContainer) {
		return song.Entry{}, fmt.Errorf("%w: entry kind %d", ErrCorrupt, kind)
	}

	entry := song.Entry{Kind: song.Kind(kind)}

	for _, field := range []*string{&entry.ShortName, &entry.Name, &entry.Artist, &entry.Album, &entry.Charter} {
		s, fieldErr := d.readString()
		if fieldErr != nil {
			return song.Entry{}, fieldErr
		}

		*field = s
	}

	year, err := d.readInt32()
	if err != nil {
		return song.Entry{}, err
	}

	entry.Year = int(year)

	if entry.NotationPath, err = d.readString(); err != nil {
		return song.Entry{}, err
	}

	index, err := d.readInt32()
	if err != nil {
		return song.Entry{}, err
	}

	if index < -1 || int(index) >= containerCount {
		return song.Entry{}, fmt.Errorf("%w: container index %d", ErrCorrupt, index)
	}

	entry.ContainerIndex = int(index)

	parts, err := d.readByte()
	if err != nil {
		return song.Entry{}, err
	}

	entry.Parts = notes.Parts(parts)

	if d.remaining() < song.ChecksumSize {
		return song.Entry{}, fmt.Errorf("%w: truncated checksum", ErrCorrupt)
	}

	copy(entry.Checksum[:], d.data[d.pos:d.pos+song.ChecksumSize])
	d.pos += song.ChecksumSize

	upgradeCount, err := d.readUint16()
	if err != nil {
		return song.Entry{}, err
	}

	for i := 0; i < int(upgradeCount); i++ {
		name, nameErr := d.readString()
		if nameErr != nil {
			return song.Entry{}, nameErr
		}

		entry.Upgrades = append(entry.Upgrades, name)
	}

	return entry, nil
}

func (d *cacheDecoder) readByte() (byte, error) {
	if d.remaining() < 1 {
		return 0, fmt.Errorf("%w: truncated", ErrCorrupt)
	}

	b := d.data[d.pos]
	d.pos++

	return b, nil
}

func (d *cacheDecoder) readUint16() (uint16, error) {
	if d.remaining() < 2 {
		return 0, fmt.Errorf("%w: truncated", ErrCorrupt)
	}

	v := binary.LittleEndian.Uint16(d.data[d.pos : d.pos+2])
	d.pos += 2

	return v, nil
}

func (d *cacheDecoder) readInt32() (int32, error) {
	if d.remaining() < 4 {
		return 0, fmt.Errorf("%w: truncated", ErrCorrupt)
	}

	v := int32(binary.LittleEndian.Uint32(d.data[d.pos : d.pos+4]))
	d.pos += 4

	return v, nil
}

// readCount reads a uint32 record count and rejects counts that cannot fit
// in the remaining input, so a corrupted count never drives a huge
// allocation.
func (d *cacheDecoder) readCount() (int, error) {
	if d.remaining() < 4 {
		return 0, fmt.Errorf("%w: truncated", ErrCorrupt)
	}

	v := binary.LittleEndian.Uint32(d.data[d.pos : d.pos+4])
	d.pos += 4

	if int64(v) > int64(d.remaining()) {
		return 0, fmt.Errorf("%w: record count %d exceeds input", ErrCorrupt, v)
	}

	return int(v), nil
}

func (d *cacheDecoder) readString() (string, error) {
	length, err := d.readUint16()
	if err != nil {
		return "", err
	}

	if d.remaining() < int(length) {
		return "", fmt.Errorf("%w: string length %d exceeds input", ErrCorrupt, length)
	}

	s := string(d.data[d.pos : d.pos+int(length)])
	d.pos += int(length)

	return s, nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	buf.Write(b)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	buf.Write(b)
}

func writeInt32(buf *bytes.Buffer, v int32) {
	writeUint32(buf, uint32(v))
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("cache string too long: %d bytes", len(s))
	}

	writeUint16(buf, uint16(len(s)))
	buf.WriteString(s)

	return nil
}
