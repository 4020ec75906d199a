package cache

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songlib/internal/fs"
	"songlib/internal/notes"
	"songlib/internal/song"
)

func sampleEntries() []song.Entry {
	chartEntry := song.Entry{
		Kind:           song.KindLooseFile,
		ShortName:      "coolsong",
		Name:           "Cool Song",
		Artist:         "The Coolers",
		Album:          "First Press",
		Charter:        "someone",
		Year:           2004,
		NotationPath:   "coolsong/notes.chart",
		ContainerIndex: -1,
		Parts:          notes.PartGuitar | notes.PartBass,
	}
	copy(chartEntry.Checksum[:], []byte("aaaaaaaaaaaaaaaaaaaa"))

	packEntry := song.Entry{
		Kind:           song.KindContainer,
		ShortName:      "packed",
		Name:           "Packed Song",
		Year:           1999,
		NotationPath:   "songs/packed/packed.mid",
		ContainerIndex: 0,
		Parts:          notes.PartDrums,
		Upgrades:       []string{"packed"},
	}
	copy(packEntry.Checksum[:], []byte("bbbbbbbbbbbbbbbbbbbb"))

	return []song.Entry{chartEntry, packEntry}
}

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewStore(fs.NewReal(), t.TempDir())
	root := "/library/songs"
	entries := sampleEntries()
	containers := []string{"/library/songs/pack1.sngc"}

	require.NoError(t, store.Write(root, entries, containers))

	gotEntries, gotContainers, err := store.Read(root)
	require.NoError(t, err)

	assert.Equal(t, entries, gotEntries)
	assert.Equal(t, containers, gotContainers)
}

func TestReadMissingFile(t *testing.T) {
	t.Parallel()

	store := NewStore(fs.NewReal(), t.TempDir())

	_, _, err := store.Read("/library/songs")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWriteEmptyRoot(t *testing.T) {
	t.Parallel()

	store := NewStore(fs.NewReal(), t.TempDir())
	root := "/library/empty"

	require.NoError(t, store.Write(root, nil, nil))

	entries, containers, err := store.Read(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, containers)
}

func TestReadVersionMismatch(t *testing.T) {
	t.Parallel()

	store := NewStore(fs.NewReal(), t.TempDir())
	root := "/library/songs"

	require.NoError(t, store.Write(root, sampleEntries(), nil))

	path := store.PathFor(root)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	data[4] = 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, _, err = store.Read(root)
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestReadCorruptFile(t *testing.T) {
	t.Parallel()

	store := NewStore(fs.NewReal(), t.TempDir())
	root := "/library/songs"

	require.NoError(t, store.Write(root, sampleEntries(), []string{"/library/songs/pack1.sngc"}))

	path := store.PathFor(root)
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	// Every truncation point past the version header must be rejected,
	// never mis-decoded.
	for i := cacheHeaderSize; i < len(original); i += 7 {
		require.NoError(t, os.WriteFile(path, original[:i], 0o644))

		_, _, readErr := store.Read(root)
		assert.ErrorIs(t, readErr, ErrCorrupt, "truncated to %d bytes", i)
	}

	// Bad magic.
	garbled := append([]byte(nil), original...)
	garbled[0] = 'X'
	require.NoError(t, os.WriteFile(path, garbled, 0o644))

	_, _, err = store.Read(root)
	require.ErrorIs(t, err, ErrCorrupt)

	// Trailing garbage.
	require.NoError(t, os.WriteFile(path, append(append([]byte(nil), original...), 0x00), 0o644))

	_, _, err = store.Read(root)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestReadRejectsForeignRootFile(t *testing.T) {
	t.Parallel()

	store := NewStore(fs.NewReal(), t.TempDir())

	require.NoError(t, store.Write("/library/a", sampleEntries(), nil))

	// Simulate a copied or hash-colliding cache file.
	require.NoError(t, os.Rename(store.PathFor("/library/a"), store.PathFor("/library/b")))

	_, _, err := store.Read("/library/b")
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestReadRejectsDanglingContainerIndex(t *testing.T) {
	t.Parallel()

	store := NewStore(fs.NewReal(), t.TempDir())
	root := "/library/songs"

	entry := sampleEntries()[1]
	entry.ContainerIndex = 3

	// Written with no containers, so index 3 cannot resolve.
	require.NoError(t, store.Write(root, []song.Entry{entry}, nil))

	_, _, err := store.Read(root)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestWriteFailurePropagates(t *testing.T) {
	t.Parallel()

	injected := fs.NewInjected(fs.NewReal())
	injected.FailWrites = []string{".cache"}

	store := NewStore(injected, t.TempDir())

	err := store.Write("/library/songs", sampleEntries(), nil)
	require.ErrorIs(t, err, fs.ErrInjected)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	store := NewStore(fs.NewReal(), t.TempDir())
	root := "/library/songs"

	require.NoError(t, store.Write(root, sampleEntries(), nil))
	require.NoError(t, store.Remove(root))

	_, _, err := store.Read(root)
	require.ErrorIs(t, err, ErrNotFound)

	// Removing twice is fine.
	require.NoError(t, store.Remove(root))
}
