package utils

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// UIDGenerator mints stable, readable ids for effect nodes produced by local
// generation. A generated id is "<slug>-<hash>" (or "<slug>-<hash>-N" on
// collision), so retitling an effect keeps its id recognizable in exports.
type UIDGenerator struct {
	used    map[string]struct{}
	counter map[string]int
	byKey   map[string]string
}

// NewUIDGenerator creates a generator with optional pre-reserved ids
// (typically the ids already present in the session's graph).
func NewUIDGenerator(existing ...string) *UIDGenerator {
	g := &UIDGenerator{
		used:    make(map[string]struct{}, len(existing)+8),
		counter: make(map[string]int, len(existing)+8),
		byKey:   make(map[string]string, len(existing)+8),
	}
	for _, uid := range existing {
		uid = strings.TrimSpace(uid)
		if uid == "" {
			continue
		}
		g.used[uid] = struct{}{}
	}
	return g
}

// Generate returns a unique id derived from title.
func (g *UIDGenerator) Generate(title string) string {
	if g == nil {
		g = NewUIDGenerator()
	}
	base := baseUID(title)
	if _, ok := g.used[base]; !ok {
		g.used[base] = struct{}{}
		g.counter[base] = 1
		return base
	}
	n := g.counter[base]
	if n < 1 {
		n = 1
	}
	for {
		n++
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, exists := g.used[candidate]; exists {
			continue
		}
		g.used[candidate] = struct{}{}
		g.counter[base] = n
		return candidate
	}
}

// GenerateForKey returns a stable id for a logical key (e.g. the id the
// model proposed). Repeated keys return the previously generated id.
func (g *UIDGenerator) GenerateForKey(key, title string) string {
	if g == nil {
		g = NewUIDGenerator()
	}
	key = strings.TrimSpace(key)
	if key != "" {
		if uid, ok := g.byKey[key]; ok {
			return uid
		}
	}
	uid := g.Generate(title)
	if key != "" {
		g.byKey[key] = uid
	}
	return uid
}

func baseUID(title string) string {
	title = strings.TrimSpace(title)
	slug := slugifyASCII(title)
	if slug == "" {
		slug = "effect"
	}
	return fmt.Sprintf("%s-%s", slug, shortHashHex(title))
}

func shortHashHex(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%08x", uint32(h.Sum64()&0xffffffff))
}

func slugifyASCII(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
