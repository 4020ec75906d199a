package dta

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Binary encoding: 4-byte magic, uint16 version, then one encoded node.
// Node encoding is a type byte followed by the payload:
//
//	list:   uint16 count, then count encoded children
//	symbol: uint16 length, then raw bytes
//	string: uint16 length, then raw bytes
//	int:    int64 little-endian
//	float:  float64 little-endian
//
// The decoder never trusts counts or lengths: every read is bounds-checked
// against the remaining input, since fragment bytes come from user-supplied
// archives.
const (
	binaryMagic   = "DTB1"
	binaryVersion = 1
)

// Node type bytes.
const (
	binNodeList   = 0
	binNodeSymbol = 1
	binNodeString = 2
	binNodeInt    = 3
	binNodeFloat  = 4
)

const binaryHeaderSize = 6

func parseBinary(data []byte) (Node, error) {
	if len(data) < binaryHeaderSize {
		return Node{}, fmt.Errorf("%w: %d byte header", ErrTruncated, len(data))
	}

	if string(data[0:4]) != binaryMagic {
		return Node{}, fmt.Errorf("%w: bad magic", ErrBadEncoding)
	}

	version := binary.LittleEndian.Uint16(data[4:6])
	if version != binaryVersion {
		return Node{}, fmt.Errorf("%w: version %d", ErrBadEncoding, version)
	}

	dec := &binDecoder{data: data, pos: binaryHeaderSize}

	node, err := dec.decodeNode(0)
	if err != nil {
		return Node{}, err
	}

	if dec.pos != len(data) {
		return Node{}, fmt.Errorf("%w: %d trailing bytes", ErrBadEncoding, len(data)-dec.pos)
	}

	return node, nil
}

type binDecoder struct {
	data []byte
	pos  int
}

func (d *binDecoder) remaining() int {
	return len(d.data) - d.pos
}

func (d *binDecoder) decodeNode(depth int) (Node, error) {
	if depth > maxDepth {
		return Node{}, ErrTooDeep
	}

	if d.remaining() < 1 {
		return Node{}, ErrTruncated
	}

	typ := d.data[d.pos]
	d.pos++

	switch typ {
	case binNodeList:
		count, err := d.readUint16()
		if err != nil {
			return Node{}, err
		}

		// A child needs at least its type byte, so count can never exceed
		// the remaining input.
		if int(count) > d.remaining() {
			return Node{}, fmt.Errorf("%w: list count %d exceeds input", ErrBadEncoding, count)
		}

		children := make([]Node, 0, count)

		for i := 0; i < int(count); i++ {
			child, childErr := d.decodeNode(depth + 1)
			if childErr != nil {
				return Node{}, childErr
			}

			children = append(children, child)
		}

		return Node{Kind: KindList, List: children}, nil

	case binNodeSymbol:
		s, err := d.readString()
		if err != nil {
			return Node{}, err
		}

		return Node{Kind: KindSymbol, Sym: s}, nil

	case binNodeString:
		s, err := d.readString()
		if err != nil {
			return Node{}, err
		}

		return Node{Kind: KindString, Str: s}, nil

	case binNodeInt:
		if d.remaining() < 8 {
			return Node{}, ErrTruncated
		}

		v := int64(binary.LittleEndian.Uint64(d.data[d.pos : d.pos+8]))
		d.pos += 8

		return Node{Kind: KindInt, Int: v}, nil

	case binNodeFloat:
		if d.remaining() < 8 {
			return Node{}, ErrTruncated
		}

		v := math.Float64frombits(binary.LittleEndian.Uint64(d.data[d.pos : d.pos+8]))
		d.pos += 8

		return Node{Kind: KindFloat, Float: v}, nil

	default:
		return Node{}, fmt.Errorf("%w: node type %d", ErrBadEncoding, typ)
	}
}

func (d *binDecoder) readUint16() (uint16, error) {
	if d.remaining() < 2 {
		return 0, ErrTruncated
	}

	v := binary.LittleEndian.Uint16(d.data[d.pos : d.pos+2])
	d.pos += 2

	return v, nil
}

func (d *binDecoder) readString() (string, error) {
	length, err := d.readUint16()
	if err != nil {
		return "", err
	}

	if d.remaining() < int(length) {
		return "", fmt.Errorf("%w: string length %d exceeds input", ErrBadEncoding, length)
	}

	s := string(d.data[d.pos : d.pos+int(length)])
	d.pos += int(length)

	return s, nil
}

// EncodeBinary renders a node in the binary encoding, header included.
// Symbols and strings longer than 65535 bytes and lists with more than
// 65535 children are rejected.
func EncodeBinary(node Node) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(binaryMagic)

	verBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(verBytes, binaryVersion)
	buf.Write(verBytes)

	if err := encodeNode(&buf, node); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func encodeNode(buf *bytes.Buffer, node Node) error {
	writeUint16 := func(v uint16) {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v)
		buf.Write(b)
	}

	switch node.Kind {
	case KindList:
		if len(node.List) > math.MaxUint16 {
			return fmt.Errorf("%w: list too long", ErrBadEncoding)
		}

		buf.WriteByte(binNodeList)
		writeUint16(uint16(len(node.List)))

		for _, child := range node.List {
			if err := encodeNode(buf, child); err != nil {
				return err
			}
		}

	case KindSymbol, KindString:
		s := node.Sym

		typ := byte(binNodeSymbol)
		if node.Kind == KindString {
			s = node.Str
			typ = binNodeString
		}

		if len(s) > math.MaxUint16 {
			return fmt.Errorf("%w: string too long", ErrBadEncoding)
		}

		buf.WriteByte(typ)
		writeUint16(uint16(len(s)))
		buf.WriteString(s)

	case KindInt:
		buf.WriteByte(binNodeInt)

		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(node.Int))
		buf.Write(b)

	case KindFloat:
		buf.WriteByte(binNodeFloat)

		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(node.Float))
		buf.Write(b)
	}

	return nil
}
