package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"songlib/internal/container"
	"songlib/internal/fs"
	"songlib/internal/song"
)

// Loose-file conventions.
const (
	markerName = "song.ini"

	// maxNotationPath keeps notation paths portable across filesystems
	// with legacy path limits.
	maxNotationPath = 260
)

// notationNames in preference order.
var notationNames = []string{"notes.chart", "notes.mid"}

// Recognized audio stem base names and extensions.
var (
	audioStems = map[string]bool{
		"song": true, "guitar": true, "bass": true, "rhythm": true,
		"drums": true, "drums_1": true, "drums_2": true, "drums_3": true,
		"drums_4": true, "vocals": true, "keys": true, "crowd": true,
	}

	audioExts = map[string]bool{
		".ogg": true, ".mp3": true, ".wav": true, ".opus": true,
	}
)

// manifestRelPath is the extracted-container manifest location, relative to
// the directory being classified. Inside an archive the same path is the
// manifest's virtual path.
const manifestRelPath = "songs/songs.dta"

// walker carries one root's walk state. It runs on the scan goroutine
// only.
type walker struct {
	fsys     fs.FS
	reader   container.Reader
	log      *zap.Logger
	overlays *song.OverlayIndex
	state    *RootState
	root     string

	folders *atomic.Int64
	songs   *atomic.Int64
	errs    *atomic.Int64
}

// walkDir classifies one directory and recurses. Cancellation is observed
// here, between directories, and between manifest candidates.
func (w *walker) walkDir(ctx context.Context, dir string) {
	if ctx.Err() != nil {
		return
	}

	w.folders.Add(1)

	dirEntries, err := w.fsys.ReadDir(dir)
	if err != nil {
		w.fail(dir, song.InvalidDirectory, "")

		return
	}

	// Overlay folders are indexed before any sibling candidate is built,
	// so every candidate in this subtree sees the full overlay set.
	w.indexOverlayDirs(dir, dirEntries)

	if hasFile(dirEntries, markerName) {
		// A marked directory is a leaf: valid or not, nothing below it is
		// an independent candidate.
		w.scanLooseDir(dir, dirEntries)

		return
	}

	w.scanContainers(ctx, dir, dirEntries)

	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}

		sub := filepath.Join(dir, de.Name())
		if w.overlays.Indexed(sub) {
			continue
		}

		w.walkDir(ctx, sub)
	}
}

func (w *walker) indexOverlayDirs(dir string, dirEntries []os.DirEntry) {
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}

		sub := filepath.Join(dir, de.Name())

		switch de.Name() {
		case song.UpdatesDirName:
			if !w.overlays.Indexed(sub) {
				if err := w.overlays.IndexUpdatesDir(w.fsys, sub); err != nil {
					w.log.Debug("indexing updates folder failed", zap.String("dir", sub), zap.Error(err))
				}
			}

		case song.UpgradesDirName:
			if !w.overlays.Indexed(sub) {
				if err := w.overlays.IndexUpgradesDir(w.fsys, sub); err != nil {
					w.log.Debug("indexing upgrades folder failed", zap.String("dir", sub), zap.Error(err))
				}
			}
		}
	}
}

// scanLooseDir validates a marked directory as a loose-file song.
func (w *walker) scanLooseDir(dir string, dirEntries []os.DirEntry) {
	markerData, err := w.fsys.ReadFile(filepath.Join(dir, markerName))
	if err != nil {
		w.fail(dir, song.NotASong, "")

		return
	}

	entry, err := song.ParseMarker(markerData)
	if err != nil {
		w.fail(dir, song.NotASong, "")

		return
	}

	entry.ShortName = filepath.Base(dir)
	if entry.Name == "" {
		entry.Name = entry.ShortName
	}

	notation := ""

	for _, name := range notationNames {
		if hasFile(dirEntries, name) {
			notation = name

			break
		}
	}

	if notation == "" {
		w.fail(dir, song.NoNotesFile, entry.Name)

		return
	}

	if !hasAudioStem(dirEntries) {
		w.fail(dir, song.NoAudioFile, entry.Name)

		return
	}

	notationPath := filepath.Join(dir, notation)
	if len(notationPath) > maxNotationPath {
		w.fail(dir, song.NoNotesFile, entry.Name)

		return
	}

	data, err := w.fsys.ReadFile(notationPath)
	if err != nil || len(data) == 0 {
		w.fail(dir, song.NoNotesFile, entry.Name)

		return
	}

	parts, checksum, ok := song.Identity(data)
	if !ok {
		w.fail(dir, song.CorruptedNotesFile, entry.Name)

		return
	}

	entry.NotationPath = notationPath
	entry.Parts = parts
	entry.Checksum = checksum

	w.accept(entry)
}

// scanContainers classifies container-tree content in dir: an extracted
// layout with a loose manifest, plus any container archives among the
// directory's files.
func (w *walker) scanContainers(ctx context.Context, dir string, dirEntries []os.DirEntry) {
	manifestPath := filepath.Join(dir, filepath.FromSlash(manifestRelPath))

	if exists, _ := w.fsys.Exists(manifestPath); exists {
		data, err := w.fsys.ReadFile(manifestPath)
		if err != nil {
			w.fail(manifestPath, song.NotASong, "")
		} else {
			load := func(virtualPath string) []byte {
				bytes, readErr := w.fsys.ReadFile(filepath.Join(dir, filepath.FromSlash(virtualPath)))
				if readErr != nil {
					return nil
				}

				return bytes
			}

			w.scanManifest(ctx, manifestPath, data, song.KindExtractedContainer, load, false, "")
		}
	}

	for _, de := range dirEntries {
		if ctx.Err() != nil {
			return
		}

		if de.IsDir() {
			continue
		}

		path := filepath.Join(dir, de.Name())

		handle, err := w.reader.Open(path)
		if err != nil {
			// A file carrying the archive magic but failing validation is
			// a broken archive, not an unrelated file.
			w.fail(path, song.NotASong, "")

			continue
		}

		if handle == nil {
			continue
		}

		w.scanArchive(ctx, handle)
	}
}

func (w *walker) scanArchive(ctx context.Context, handle container.Handle) {
	manifest := handle.LoadSubFile(manifestRelPath)
	if len(manifest) == 0 {
		w.fail(handle.Path(), song.NotASong, "")

		return
	}

	if err := w.overlays.IndexContainerUpgrades(handle); err != nil {
		w.log.Debug("indexing archive upgrades failed", zap.String("archive", handle.Path()), zap.Error(err))
	}

	load := func(virtualPath string) []byte {
		return handle.LoadSubFile(virtualPath)
	}

	w.scanManifest(ctx, handle.Path(), manifest, song.KindContainer, load, handle.Encrypted(), handle.Path())
}

// scanManifest processes every fragment of one manifest. A failing
// fragment is recorded and the rest continue; the container path joins the
// root's container list only once the first entry from it is accepted.
func (w *walker) scanManifest(
	ctx context.Context,
	subpath string,
	manifest []byte,
	kind song.Kind,
	load song.NotationLoader,
	encrypted bool,
	containerPath string,
) {
	fragments, err := song.ParseManifest(manifest)
	if err != nil {
		w.fail(subpath, song.NotASong, "")

		return
	}

	containerIndex := -1

	for _, frag := range fragments {
		if ctx.Err() != nil {
			return
		}

		entry, result := song.ProcessFragment(frag, kind, w.overlays, load, encrypted)
		if result != song.Ok {
			w.fail(subpath, result, frag.TagName())

			continue
		}

		if containerPath != "" {
			if containerIndex == -1 {
				w.state.Containers = append(w.state.Containers, containerPath)
				containerIndex = len(w.state.Containers) - 1
			}

			entry.ContainerIndex = containerIndex
		}

		w.accept(entry)
	}
}

func (w *walker) accept(entry song.Entry) {
	w.state.Entries = append(w.state.Entries, entry)
	w.songs.Add(1)

	w.log.Debug("song accepted",
		zap.String("short_name", entry.ShortName),
		zap.Stringer("kind", entry.Kind),
		zap.Stringer("parts", entry.Parts),
	)
}

func (w *walker) fail(subpath string, result song.Result, name string) {
	rel, err := filepath.Rel(w.root, subpath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = subpath
	}

	w.state.Errs = append(w.state.Errs, song.ScanError{
		Root:    w.root,
		Subpath: rel,
		Result:  result,
		Name:    name,
	})
	w.errs.Add(1)

	w.log.Debug("candidate rejected",
		zap.String("subpath", rel),
		zap.Stringer("result", result),
		zap.String("name", name),
	)
}

func hasFile(dirEntries []os.DirEntry, name string) bool {
	for _, de := range dirEntries {
		if !de.IsDir() && de.Name() == name {
			return true
		}
	}

	return false
}

func hasAudioStem(dirEntries []os.DirEntry) bool {
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(de.Name()))
		stem := strings.ToLower(strings.TrimSuffix(de.Name(), filepath.Ext(de.Name())))

		if audioStems[stem] && audioExts[ext] {
			return true
		}
	}

	return false
}
