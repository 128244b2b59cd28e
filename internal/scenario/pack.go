// Package scenario ships curated starter packs that pre-fill seeds for each
// analysis mode, so a session can begin from a realistic setup instead of
// blank inputs. Packs are plain YAML and extra packs can be loaded from a
// directory at startup.
package scenario

import (
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"supercritical/internal/safeio"
	"supercritical/internal/scl"
)

// Difficulty grades how much prior context a pack assumes.
type Difficulty string

const (
	DifficultyStarter      Difficulty = "starter"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyStarter, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Pack is a curated starter scenario for one mode.
type Pack struct {
	ID          string     `json:"id"`
	Mode        scl.Mode   `json:"mode"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Seeds       scl.Seeds  `json:"seeds"`
	Perspective string     `json:"perspective,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
}

// packYAML mirrors Pack with explicit yaml keys, since scl.Seeds carries
// json tags only.
type packYAML struct {
	ID          string     `yaml:"id"`
	Mode        scl.Mode   `yaml:"mode"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Seeds       seedsYAML  `yaml:"seeds"`
	Perspective string     `yaml:"perspective"`
	Difficulty  Difficulty `yaml:"difficulty"`
}

type seedsYAML struct {
	ConceptIDs []string `yaml:"conceptIds"`
	PatternIDs []string `yaml:"patternIds"`
	Practices  []string `yaml:"practices"`
}

func (p *Pack) UnmarshalYAML(node *yaml.Node) error {
	var raw packYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*p = Pack{
		ID:          raw.ID,
		Mode:        raw.Mode,
		Title:       raw.Title,
		Description: raw.Description,
		Seeds: scl.Seeds{
			ConceptIDs: raw.Seeds.ConceptIDs,
			PatternIDs: raw.Seeds.PatternIDs,
			Practices:  raw.Seeds.Practices,
		},
		Perspective: raw.Perspective,
		Difficulty:  raw.Difficulty,
	}
	return nil
}

// Validate checks that the pack can seed a session as-is.
func (p Pack) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("scenario: pack id is empty")
	}
	if !p.Mode.Valid() {
		return fmt.Errorf("scenario: pack %q has unknown mode %q", p.ID, p.Mode)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("scenario: pack %q has no title", p.ID)
	}
	if !p.Difficulty.Valid() {
		return fmt.Errorf("scenario: pack %q has unknown difficulty %q", p.ID, p.Difficulty)
	}
	if len(p.Seeds.ConceptIDs) == 0 && len(p.Seeds.PatternIDs) == 0 && len(p.Seeds.Practices) == 0 {
		return fmt.Errorf("scenario: pack %q has no seeds", p.ID)
	}
	return nil
}

// packFile is the on-disk shape: a file holds one or more packs.
type packFile struct {
	Packs []Pack `yaml:"packs"`
}

// Library is an immutable, id-indexed collection of packs.
type Library struct {
	packs []Pack
	byID  map[string]int
}

// NewLibrary validates the given packs and indexes them. Later packs with a
// duplicate id replace earlier ones, which lets a directory override a
// builtin pack.
func NewLibrary(packs []Pack) (*Library, error) {
	lib := &Library{byID: make(map[string]int, len(packs))}
	for _, p := range packs {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if i, ok := lib.byID[p.ID]; ok {
			lib.packs[i] = p
			continue
		}
		lib.byID[p.ID] = len(lib.packs)
		lib.packs = append(lib.packs, p)
	}
	return lib, nil
}

// Packs returns all packs in load order.
func (l *Library) Packs() []Pack {
	out := make([]Pack, len(l.packs))
	copy(out, l.packs)
	return out
}

// ByID returns the pack with the given id.
func (l *Library) ByID(id string) (Pack, bool) {
	i, ok := l.byID[id]
	if !ok {
		return Pack{}, false
	}
	return l.packs[i], true
}

// ForMode returns the packs for one mode, in load order.
func (l *Library) ForMode(mode scl.Mode) []Pack {
	var out []Pack
	for _, p := range l.packs {
		if p.Mode == mode {
			out = append(out, p)
		}
	}
	return out
}

// Modes returns the modes that have at least one pack, sorted.
func (l *Library) Modes() []scl.Mode {
	seen := make(map[scl.Mode]bool)
	var out []scl.Mode
	for _, p := range l.packs {
		if !seen[p.Mode] {
			seen[p.Mode] = true
			out = append(out, p.Mode)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

//go:embed packs/*.yaml
var builtinFS embed.FS

var (
	builtinOnce sync.Once
	builtinLib  *Library
	builtinErr  error
)

// Builtin returns the library of packs shipped with the binary.
func Builtin() (*Library, error) {
	builtinOnce.Do(func() {
		entries, err := builtinFS.ReadDir("packs")
		if err != nil {
			builtinErr = err
			return
		}
		var packs []Pack
		for _, e := range entries {
			data, err := builtinFS.ReadFile("packs/" + e.Name())
			if err != nil {
				builtinErr = err
				return
			}
			var pf packFile
			if err := yaml.Unmarshal(data, &pf); err != nil {
				builtinErr = fmt.Errorf("scenario: builtin %s: %w", e.Name(), err)
				return
			}
			packs = append(packs, pf.Packs...)
		}
		builtinLib, builtinErr = NewLibrary(packs)
	})
	return builtinLib, builtinErr
}

// LoadDir parses every *.yaml and *.yml file in dir (relative to fsys's
// root) and returns the packs in filename order.
func LoadDir(fsys *safeio.SafeFS, dir string) ([]Pack, error) {
	entries, err := fsys.SafeReadDir(dir)
	if err != nil {
		return nil, err
	}
	var packs []Pack
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := fsys.SafeReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var pf packFile
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return nil, fmt.Errorf("scenario: %s: %w", e.Name(), err)
		}
		for _, p := range pf.Packs {
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("scenario: %s: %w", e.Name(), err)
			}
		}
		packs = append(packs, pf.Packs...)
	}
	return packs, nil
}

// Load builds the library from the builtin packs plus any packs found in
// dir. Directory packs override builtin packs with the same id. An empty
// dir skips the directory pass.
func Load(dir string) (*Library, error) {
	builtin, err := Builtin()
	if err != nil {
		return nil, err
	}
	packs := builtin.Packs()
	if dir != "" {
		fsys, err := safeio.NewSafeFS(dir)
		if err != nil {
			return nil, err
		}
		extra, err := LoadDir(fsys, ".")
		if err != nil {
			return nil, err
		}
		packs = append(packs, extra...)
	}
	return NewLibrary(packs)
}

// SeedsCopy returns a deep copy of the pack's seeds, safe to hand to a
// session without aliasing the library's backing slices.
func (p Pack) SeedsCopy() scl.Seeds {
	return scl.Seeds{
		ConceptIDs: scl.CloneSlice(p.Seeds.ConceptIDs),
		PatternIDs: scl.CloneSlice(p.Seeds.PatternIDs),
		Practices:  scl.CloneSlice(p.Seeds.Practices),
	}
}
