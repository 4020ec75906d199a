package song

import (
	"fmt"
	"path/filepath"

	"songlib/internal/container"
	"songlib/internal/dta"
	"songlib/internal/fs"
)

// Overlay source file names.
const (
	UpdatesDirName  = "updates"
	UpgradesDirName = "upgrades"

	updatesManifest  = "songs_updates.dta"
	upgradesManifest = "upgrades.dta"

	// containerUpgradePrefix is the virtual directory holding upgrade
	// fragments inside an archive.
	containerUpgradePrefix = "songs_upgrades/"
)

// Fragment is one update or upgrade overlay: a script fragment keyed by
// short name, plus an optional loader for the overlay's own notation bytes.
type Fragment struct {
	Name string
	Node dta.Node

	// Notation returns the overlay's notation bytes, or nil when the
	// overlay carries none. Nil function means no notation.
	Notation func() []byte
}

// OverlayIndex holds the update and upgrade fragments discovered for one
// library root. It is built up during the walk and read during entry
// construction; the walk is sequential, so no locking is needed.
type OverlayIndex struct {
	updates  map[string][]Fragment
	upgrades map[string][]Fragment

	// indexedDirs guards against indexing the same sibling folder twice
	// when several directories share it.
	indexedDirs map[string]bool
}

// NewOverlayIndex returns an empty index.
func NewOverlayIndex() *OverlayIndex {
	return &OverlayIndex{
		updates:     make(map[string][]Fragment),
		upgrades:    make(map[string][]Fragment),
		indexedDirs: make(map[string]bool),
	}
}

// Indexed reports whether dir was already indexed this root.
func (x *OverlayIndex) Indexed(dir string) bool {
	return x.indexedDirs[dir]
}

// Updates returns all update fragments for a short name, in discovery order.
func (x *OverlayIndex) Updates(name string) []Fragment {
	return x.updates[name]
}

// Upgrades returns all upgrade fragments for a short name, in discovery order.
func (x *OverlayIndex) Upgrades(name string) []Fragment {
	return x.upgrades[name]
}

// IndexUpdatesDir parses dir's update manifest and registers one fragment
// per entry. A fragment whose directory carries `<short>_update.mid` gets a
// notation loader for it. A missing manifest is not an error; the folder
// may hold only unrelated files.
func (x *OverlayIndex) IndexUpdatesDir(fsys fs.FS, dir string) error {
	x.indexedDirs[dir] = true

	return x.indexManifestDir(fsys, dir, updatesManifest, "_update.mid", x.addUpdate)
}

// IndexUpgradesDir is IndexUpdatesDir for the upgrades sibling folder; the
// notation overlay suffix is `<short>_plus.mid`.
func (x *OverlayIndex) IndexUpgradesDir(fsys fs.FS, dir string) error {
	x.indexedDirs[dir] = true

	return x.indexManifestDir(fsys, dir, upgradesManifest, "_plus.mid", x.addUpgrade)
}

func (x *OverlayIndex) indexManifestDir(
	fsys fs.FS, dir, manifestName, notationSuffix string, add func(Fragment),
) error {
	manifestPath := filepath.Join(dir, manifestName)

	exists, err := fsys.Exists(manifestPath)
	if err != nil {
		return fmt.Errorf("probing overlay manifest: %w", err)
	}

	if !exists {
		return nil
	}

	data, err := fsys.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("reading overlay manifest: %w", err)
	}

	root, err := dta.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", manifestPath, err)
	}

	frags, err := root.AsList()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", manifestPath, err)
	}

	for _, node := range frags {
		name := node.TagName()
		if name == "" {
			continue
		}

		fragment := Fragment{Name: name, Node: node}

		notationPath := filepath.Join(dir, name+notationSuffix)
		if hasNotation, _ := fsys.Exists(notationPath); hasNotation {
			fragment.Notation = func() []byte {
				bytes, readErr := fsys.ReadFile(notationPath)
				if readErr != nil {
					return nil
				}

				return bytes
			}
		}

		add(fragment)
	}

	return nil
}

// IndexContainerUpgrades registers upgrade fragments embedded in an archive
// under the songs_upgrades virtual directory. Archives without an upgrade
// manifest are common; that is not an error.
func (x *OverlayIndex) IndexContainerUpgrades(handle container.Handle) error {
	data := handle.LoadSubFile(containerUpgradePrefix + upgradesManifest)
	if len(data) == 0 {
		return nil
	}

	root, err := dta.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing container upgrades in %s: %w", handle.Path(), err)
	}

	frags, err := root.AsList()
	if err != nil {
		return fmt.Errorf("parsing container upgrades in %s: %w", handle.Path(), err)
	}

	for _, node := range frags {
		name := node.TagName()
		if name == "" {
			continue
		}

		virtualPath := containerUpgradePrefix + name + "_plus.mid"
		fragment := Fragment{
			Name: name,
			Node: node,
			Notation: func() []byte {
				return handle.LoadSubFile(virtualPath)
			},
		}

		x.addUpgrade(fragment)
	}

	return nil
}

func (x *OverlayIndex) addUpdate(fragment Fragment) {
	x.updates[fragment.Name] = append(x.updates[fragment.Name], fragment)
}

func (x *OverlayIndex) addUpgrade(fragment Fragment) {
	x.upgrades[fragment.Name] = append(x.upgrades[fragment.Name], fragment)
}
