package dta

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTextManifest(t *testing.T) {
	t.Parallel()

	input := `
; two songs
(coolsong
   (name "Cool Song")
   (artist "The Coolers")
   (song (name "songs/coolsong/coolsong") (tracks (guitar bass drums))))
(othersong
   (name "Other Song")
   (year 1998)
   (rating 2.5))
`

	root, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	songs, listErr := root.AsList()
	if listErr != nil {
		t.Fatalf("root is not a list: %v", listErr)
	}

	if len(songs) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(songs))
	}

	if songs[0].TagName() != "coolsong" {
		t.Errorf("expected tag coolsong, got %q", songs[0].TagName())
	}

	name, ok := songs[0].ChildString("name")
	if !ok || name != "Cool Song" {
		t.Errorf("expected name Cool Song, got %q (ok=%v)", name, ok)
	}

	inner, ok := songs[0].Child("song")
	if !ok {
		t.Fatal("expected song child")
	}

	path, ok := inner.ChildString("name")
	if !ok || path != "songs/coolsong/coolsong" {
		t.Errorf("expected song path, got %q", path)
	}

	year, ok := songs[1].ChildInt("year")
	if !ok || year != 1998 {
		t.Errorf("expected year 1998, got %d (ok=%v)", year, ok)
	}
}

func TestParseTextStringEscapes(t *testing.T) {
	t.Parallel()

	root, err := Parse([]byte(`(name "line\none \"two\"")`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	value := root.List[0].List[1]
	if value.Kind != KindString {
		t.Fatalf("expected string node, got kind %d", value.Kind)
	}

	if value.Str != "line\none \"two\"" {
		t.Errorf("unexpected string value %q", value.Str)
	}
}

func TestParseTextErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
	}{
		{"unclosed list", `(name "x"`},
		{"stray close", `(a)) `},
		{"unterminated string", `(name "x`},
		{"dangling escape", `(name "x\`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tc.input))
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("expected ErrSyntax, got %v", err)
			}
		})
	}
}

func TestParseTextDepthLimit(t *testing.T) {
	t.Parallel()

	deep := strings.Repeat("(", 200) + strings.Repeat(")", 200)

	_, err := Parse([]byte(deep))
	if !errors.Is(err, ErrTooDeep) {
		t.Errorf("expected ErrTooDeep, got %v", err)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	t.Parallel()

	node := Node{Kind: KindList, List: []Node{
		{Kind: KindSymbol, Sym: "coolsong"},
		{Kind: KindList, List: []Node{
			{Kind: KindSymbol, Sym: "name"},
			{Kind: KindString, Str: "Cool Song"},
		}},
		{Kind: KindList, List: []Node{
			{Kind: KindSymbol, Sym: "year"},
			{Kind: KindInt, Int: 2004},
		}},
		{Kind: KindList, List: []Node{
			{Kind: KindSymbol, Sym: "rating"},
			{Kind: KindFloat, Float: 3.5},
		}},
	}}

	data, err := EncodeBinary(node)
	if err != nil {
		t.Fatalf("EncodeBinary failed: %v", err)
	}

	decoded, decodeErr := Parse(data)
	if decodeErr != nil {
		t.Fatalf("Parse failed: %v", decodeErr)
	}

	if diff := cmp.Diff(node, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBinaryTruncatedAndCorrupt(t *testing.T) {
	t.Parallel()

	node := Node{Kind: KindList, List: []Node{
		{Kind: KindSymbol, Sym: "a"},
		{Kind: KindString, Str: "hello"},
	}}

	data, err := EncodeBinary(node)
	if err != nil {
		t.Fatalf("EncodeBinary failed: %v", err)
	}

	// Every truncation of valid data must fail cleanly, never panic.
	for i := 0; i < len(data); i++ {
		_, truncErr := Parse(data[:i])
		if i >= 4 && truncErr == nil {
			t.Errorf("truncation at %d: expected error", i)
		}
	}

	// Oversized list count.
	bad := append([]byte{}, data...)
	bad[7], bad[8] = 0xFF, 0xFF

	if _, badErr := Parse(bad); badErr == nil {
		t.Error("expected error for oversized list count")
	}

	// Unknown node type.
	bad = append([]byte{}, data...)
	bad[6] = 0x7F

	if _, badErr := Parse(bad); !errors.Is(badErr, ErrBadEncoding) {
		t.Errorf("expected ErrBadEncoding, got %v", badErr)
	}
}

func TestChildBool(t *testing.T) {
	t.Parallel()

	root, err := Parse([]byte(`(s (fake TRUE) (real FALSE) (one 1) (zero 0))`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	frag := root.List[0]

	if !frag.ChildBool("fake") {
		t.Error("fake should be true")
	}

	if frag.ChildBool("real") {
		t.Error("real should be false")
	}

	if !frag.ChildBool("one") {
		t.Error("one should be true")
	}

	if frag.ChildBool("zero") {
		t.Error("zero should be false")
	}

	if frag.ChildBool("absent") {
		t.Error("absent should be false")
	}
}
