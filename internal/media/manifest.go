package media

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

// Manifest lists the media files bundled with the deployment.
type Manifest struct {
	GeneratedAt time.Time `json:"generated_at"`
	Files       []string  `json:"files"`

	index map[string]struct{}
}

var skippedSubstrings = []string{"splash", "icon", "adaptive"}

// lowercased names excluded from the bundle
var ignoredFiles = map[string]struct{}{
	"w11 korytarz  z 005.jpg": {},
	"w11_korytarz_z_001.jpg":  {},
}

// Keep reports whether a directory entry belongs in the manifest.
func Keep(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range skippedSubstrings {
		if strings.Contains(lower, s) {
			return false
		}
	}
	if _, ok := ignoredFiles[lower]; ok {
		return false
	}
	return TypeOf(lower) != TypeUnknown
}

// NewManifest filters names with Keep and sorts them.
func NewManifest(names []string, generatedAt time.Time) *Manifest {
	files := make([]string, 0, len(names))
	for _, n := range names {
		if Keep(n) {
			files = append(files, n)
		}
	}
	sort.Strings(files)
	m := &Manifest{GeneratedAt: generatedAt.UTC(), Files: files}
	m.buildIndex()
	return m
}

// LoadManifest reads a manifest written by cmd/mediamap.
func LoadManifest(file string) (*Manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path.Base(file), err)
	}
	m.buildIndex()
	return &m, nil
}

func (m *Manifest) buildIndex() {
	m.index = make(map[string]struct{}, len(m.Files))
	for _, f := range m.Files {
		m.index[f] = struct{}{}
	}
}

// Contains reports whether name is bundled. A nil manifest contains nothing.
func (m *Manifest) Contains(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.index[name]
	return ok
}

// Len returns the number of bundled files.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Files)
}
