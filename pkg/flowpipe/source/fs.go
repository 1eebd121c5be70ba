package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// definition file extensions probed in order by Read.
var flowExtensions = []string{".yaml", ".yml", ".json"}

// FSSource reads flow definitions from a file tree laid out as
// <mode>/<name>.yaml (or .yml/.json). It works over any fs.FS, including
// embed.FS, so flow definitions can ship inside the binary.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource creates a source over the given filesystem.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// NewDirSource creates a source over a directory on disk.
func NewDirSource(dir string) *FSSource {
	return &FSSource{fsys: os.DirFS(dir)}
}

// Read implements Source.
func (s *FSSource) Read(mode, name string) ([]byte, error) {
	for _, ext := range flowExtensions {
		data, err := fs.ReadFile(s.fsys, path.Join(mode, name+ext))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read flow definition %s/%s: %w", mode, name, err)
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, mode, name)
}

// List implements Source. Results are sorted by mode, then name.
func (s *FSSource) List() ([]Ref, error) {
	var refs []Ref
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		if !hasFlowExtension(ext) {
			return nil
		}
		dir, file := path.Split(p)
		mode := strings.Trim(dir, "/")
		if mode == "" || strings.Contains(mode, "/") {
			// Definitions live exactly one level deep; anything else is
			// not part of the mode/name layout.
			return nil
		}
		refs = append(refs, Ref{Mode: mode, Name: strings.TrimSuffix(file, ext)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list flow definitions: %w", err)
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Mode != refs[j].Mode {
			return refs[i].Mode < refs[j].Mode
		}
		return refs[i].Name < refs[j].Name
	})
	return refs, nil
}

func hasFlowExtension(ext string) bool {
	for _, e := range flowExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
