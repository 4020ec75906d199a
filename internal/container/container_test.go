package container

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"songlib/internal/fs"
)

func writeArchive(t *testing.T, dir string, files map[string][]byte, encrypted bool) string {
	t.Helper()

	data, err := Build(files, encrypted)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	path := filepath.Join(dir, "pack.sngc")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestOpenAndLoadSubFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeArchive(t, dir, map[string][]byte{
		"songs/songs.dta":       []byte(`(short (name "A Song"))`),
		"songs/short/short.mid": {1, 2, 3, 4},
	}, false)

	reader := NewFileReader(fs.NewReal())

	handle, err := reader.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if handle == nil {
		t.Fatal("expected a handle")
	}

	if handle.Encrypted() {
		t.Error("archive should not be encrypted")
	}

	got := handle.LoadSubFile("songs/short/short.mid")
	if string(got) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("unexpected sub-file bytes: %v", got)
	}

	if absent := handle.LoadSubFile("songs/missing.mid"); len(absent) != 0 {
		t.Errorf("absent path should yield empty bytes, got %d", len(absent))
	}
}

func TestOpenNotAContainer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "song.ogg")

	if err := os.WriteFile(path, []byte("OggS not a container"), 0o644); err != nil {
		t.Fatal(err)
	}

	handle, err := NewFileReader(fs.NewReal()).Open(path)
	if err != nil {
		t.Fatalf("Open should not error on foreign files: %v", err)
	}

	if handle != nil {
		t.Error("expected nil handle for non-container file")
	}
}

func TestOpenEncryptedFlag(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeArchive(t, dir, map[string][]byte{"songs/songs.dta": []byte("(x)")}, true)

	handle, err := NewFileReader(fs.NewReal()).Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if !handle.Encrypted() {
		t.Error("expected encrypted flag")
	}
}

func TestOpenCorruptTable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeArchive(t, dir, map[string][]byte{
		"songs/songs.dta": []byte(`(short (name "A Song"))`),
	}, false)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Truncate mid-table.
	if err := os.WriteFile(path, data[:headerSize+3], 0o644); err != nil {
		t.Fatal(err)
	}

	_, openErr := NewFileReader(fs.NewReal()).Open(path)
	if !errors.Is(openErr, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", openErr)
	}
}

func TestOpenOutOfBoundsSubFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeArchive(t, dir, map[string][]byte{"a": {1, 2, 3}}, false)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Inflate the sub-file size field (last 8 bytes of the single table
	// entry) past the file length.
	data[headerSize+2+1+8] = 0xFF

	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	_, openErr := NewFileReader(fs.NewReal()).Open(path)
	if !errors.Is(openErr, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", openErr)
	}
}
