package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"supercritical/internal/safeio"
	"supercritical/internal/scl"
)

func TestBuiltinLibrary(t *testing.T) {
	lib, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	packs := lib.Packs()
	if len(packs) < 20 {
		t.Fatalf("expected at least 20 builtin packs, got %d", len(packs))
	}
	for _, p := range packs {
		if err := p.Validate(); err != nil {
			t.Fatalf("builtin pack invalid: %v", err)
		}
	}
	if modes := lib.Modes(); len(modes) != 12 {
		t.Fatalf("expected packs for all 12 modes, got %d: %v", len(modes), modes)
	}
	p, ok := lib.ByID("stress-cost-explosion")
	if !ok {
		t.Fatal("stress-cost-explosion not found")
	}
	if p.Mode != scl.ModeStressTest {
		t.Fatalf("mode = %q", p.Mode)
	}
	if p.Title != "Token Cost Explosion Scenario" {
		t.Fatalf("title = %q", p.Title)
	}
	if len(p.Seeds.Practices) != 3 {
		t.Fatalf("practices = %d", len(p.Seeds.Practices))
	}
}

func TestForModeFiltersPacks(t *testing.T) {
	lib, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	red := lib.ForMode(scl.ModeRedTeam)
	if len(red) != 2 {
		t.Fatalf("expected 2 red-team packs, got %d", len(red))
	}
	for _, p := range red {
		if p.Mode != scl.ModeRedTeam {
			t.Fatalf("pack %s has mode %q", p.ID, p.Mode)
		}
	}
}

func TestPackValidate(t *testing.T) {
	valid := Pack{
		ID:         "p1",
		Mode:       scl.ModeConsolidate,
		Title:      "T",
		Difficulty: DifficultyStarter,
		Seeds:      scl.Seeds{ConceptIDs: []string{"c"}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid pack rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Pack)
	}{
		{"empty id", func(p *Pack) { p.ID = " " }},
		{"unknown mode", func(p *Pack) { p.Mode = "brainstorm" }},
		{"no title", func(p *Pack) { p.Title = "" }},
		{"unknown difficulty", func(p *Pack) { p.Difficulty = "expert" }},
		{"no seeds", func(p *Pack) { p.Seeds = scl.Seeds{} }},
	}
	for _, tc := range cases {
		p := valid
		tc.mutate(&p)
		if err := p.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestLoadDirParsesYAML(t *testing.T) {
	dir := t.TempDir()
	doc := `packs:
  - id: custom-pack
    mode: intervene
    title: Custom Pack
    description: A local pack.
    seeds:
      conceptIds:
        - Internal workflow agent
      patternIds:
        - Gate risky writes behind approval
      practices:
        - Review the audit trail weekly
    difficulty: starter
`
	if err := os.WriteFile(filepath.Join(dir, "local.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	fsys, err := safeio.NewSafeFS(dir)
	if err != nil {
		t.Fatalf("NewSafeFS: %v", err)
	}
	packs, err := LoadDir(fsys, ".")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(packs) != 1 {
		t.Fatalf("expected 1 pack, got %d", len(packs))
	}
	p := packs[0]
	if p.ID != "custom-pack" || p.Mode != scl.ModeIntervene {
		t.Fatalf("unexpected pack: %+v", p)
	}
	if got := p.Seeds.ConceptIDs[0]; got != "Internal workflow agent" {
		t.Fatalf("conceptIds[0] = %q", got)
	}
}

func TestLoadDirRejectsInvalidPack(t *testing.T) {
	dir := t.TempDir()
	doc := `packs:
  - id: bad-pack
    mode: not-a-mode
    title: Bad
    seeds:
      practices: [x]
    difficulty: starter
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fsys, err := safeio.NewSafeFS(dir)
	if err != nil {
		t.Fatalf("NewSafeFS: %v", err)
	}
	if _, err := LoadDir(fsys, "."); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestLoadDirectoryOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	doc := `packs:
  - id: consol-rag-pipeline
    mode: consolidate
    title: Overridden Title
    seeds:
      conceptIds: [replacement concept]
    difficulty: starter
`
	if err := os.WriteFile(filepath.Join(dir, "override.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	lib, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	builtin, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	if got, want := len(lib.Packs()), len(builtin.Packs()); got != want {
		t.Fatalf("pack count = %d, want %d", got, want)
	}
	p, ok := lib.ByID("consol-rag-pipeline")
	if !ok {
		t.Fatal("overridden pack missing")
	}
	if p.Title != "Overridden Title" {
		t.Fatalf("title = %q", p.Title)
	}
}

func TestSeedsCopyDoesNotAlias(t *testing.T) {
	lib, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	p, _ := lib.ByID("consol-tool-calling")
	seeds := p.SeedsCopy()
	seeds.Practices[0] = "mutated"

	again, _ := lib.ByID("consol-tool-calling")
	if again.Seeds.Practices[0] == "mutated" {
		t.Fatal("SeedsCopy aliases the library's slices")
	}
}
