// Package dta parses the nested-list script format used by song manifests
// and overlay fragments. The same tree shape has a textual encoding
// (parenthesized lists, see text.go) and a binary encoding (see binary.go);
// Parse dispatches on a leading magic.
//
// Nodes are a closed tagged variant. Code that expects a particular shape
// uses the fallible projection methods instead of downcasting.
package dta

import (
	"bytes"
	"errors"
	"fmt"
)

// Parse errors.
var (
	ErrSyntax      = errors.New("malformed script")
	ErrNotAList    = errors.New("node is not a list")
	ErrNotAValue   = errors.New("node is not a value")
	ErrTooDeep     = errors.New("script nesting too deep")
	ErrTruncated   = errors.New("script data truncated")
	ErrBadEncoding = errors.New("invalid binary script encoding")
)

// maxDepth bounds tree nesting for both encodings. Real manifests nest a
// handful of levels; anything deeper is corrupted or hostile input.
const maxDepth = 64

// NodeKind discriminates Node variants.
type NodeKind uint8

// Node variants.
const (
	KindList NodeKind = iota
	KindSymbol
	KindString
	KindInt
	KindFloat
)

// Node is one element of a script tree.
// Exactly the field matching Kind is meaningful.
type Node struct {
	Kind  NodeKind
	Sym   string
	Str   string
	Int   int64
	Float float64
	List  []Node
}

// Parse decodes script data in either encoding. Binary data is recognized
// by its magic prefix; everything else is parsed as text.
func Parse(data []byte) (Node, error) {
	if bytes.HasPrefix(data, []byte(binaryMagic)) {
		return parseBinary(data)
	}

	return parseText(data)
}

// AsList projects the node as a list.
func (n Node) AsList() ([]Node, error) {
	if n.Kind != KindList {
		return nil, fmt.Errorf("%w: kind %d", ErrNotAList, n.Kind)
	}

	return n.List, nil
}

// TagName returns the leading symbol of a list node, or "" if the node is
// not a list or does not start with a symbol. Fragment lists are keyed by
// their tag name.
func (n Node) TagName() string {
	if n.Kind != KindList || len(n.List) == 0 {
		return ""
	}

	if n.List[0].Kind != KindSymbol {
		return ""
	}

	return n.List[0].Sym
}

// Child finds the first child list tagged with name. Returns (zero, false)
// if absent or if n is not a list.
func (n Node) Child(name string) (Node, bool) {
	if n.Kind != KindList {
		return Node{}, false
	}

	for _, child := range n.List {
		if child.TagName() == name {
			return child, true
		}
	}

	return Node{}, false
}

// ChildString returns the first value after the tag of the child list named
// name, as a string. Symbols count as strings here: `(name foo)` and
// `(name "foo")` read the same.
func (n Node) ChildString(name string) (string, bool) {
	child, ok := n.Child(name)
	if !ok || len(child.List) < 2 {
		return "", false
	}

	switch v := child.List[1]; v.Kind {
	case KindString:
		return v.Str, true
	case KindSymbol:
		return v.Sym, true
	default:
		return "", false
	}
}

// ChildInt returns the first value after the tag of the child list named
// name, as an int64.
func (n Node) ChildInt(name string) (int64, bool) {
	child, ok := n.Child(name)
	if !ok || len(child.List) < 2 {
		return 0, false
	}

	if child.List[1].Kind != KindInt {
		return 0, false
	}

	return child.List[1].Int, true
}

// ChildBool reads a child like `(fake TRUE)`. The symbols TRUE and 1 are
// true; anything else, or an absent child, is false.
func (n Node) ChildBool(name string) bool {
	child, ok := n.Child(name)
	if !ok || len(child.List) < 2 {
		return false
	}

	switch v := child.List[1]; v.Kind {
	case KindSymbol:
		return v.Sym == "TRUE"
	case KindInt:
		return v.Int != 0
	default:
		return false
	}
}
