package voice

import (
	"context"
	"strings"
	"sync"
)

// VoiceLister is the catalog side of a Synthesizer.
type VoiceLister interface {
	Voices(ctx context.Context) ([]Voice, error)
}

// Catalog caches a backend's voice list. The list is fetched on first use
// and fetched again only while it is empty.
type Catalog struct {
	source VoiceLister

	mu     sync.Mutex
	voices []Voice
}

func NewCatalog(source VoiceLister) *Catalog {
	return &Catalog{source: source}
}

func (c *Catalog) Voices(ctx context.Context) ([]Voice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.voices) == 0 {
		voices, err := c.source.Voices(ctx)
		if err != nil {
			return nil, err
		}
		c.voices = voices
	}
	return append([]Voice(nil), c.voices...), nil
}

// Lookup finds a cached voice by id without fetching.
func (c *Catalog) Lookup(id string) (Voice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

var (
	femaleNameHints = []string{"female", "woman", "girl", "actress"}
	maleNameHints   = []string{"male", "man", "boy", "actor"}
	femaleNames     = []string{"rachel", "domi", "bella", "elli", "anna", "freya", "grace", "matilda"}
	maleNames       = []string{"adam", "antoni", "josh", "sam", "thomas", "charlie", "harry", "liam"}
)

// inferGender prefers an explicit label, then hints in the name, then the
// provider's well-known voice names. Unknown voices count as female.
func inferGender(name string, labels map[string]string) string {
	if g := labels["gender"]; g != "" {
		if strings.EqualFold(g, GenderMale) {
			return GenderMale
		}
		return GenderFemale
	}

	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, femaleNameHints):
		return GenderFemale
	case containsAny(lower, maleNameHints):
		return GenderMale
	case containsAny(lower, femaleNames):
		return GenderFemale
	case containsAny(lower, maleNames):
		return GenderMale
	}
	return GenderFemale
}

var accentKeywords = []struct {
	accent   string
	keywords []string
}{
	{"Indian", []string{"indian", "india"}},
	{"British", []string{"british", "england", "uk", "london", "english accent"}},
	{"American", []string{"american", "us ", "usa", "united states"}},
	{"Australian", []string{"australian", "australia", "aussie"}},
	{"Irish", []string{"irish", "ireland"}},
	{"Scottish", []string{"scottish", "scotland"}},
	{"South African", []string{"south africa", "south african"}},
	{"Nigerian", []string{"nigerian", "nigeria"}},
}

var accentAliases = map[string]string{
	"us":            "American",
	"usa":           "American",
	"american":      "American",
	"united states": "American",
	"uk":            "British",
	"british":       "British",
	"england":       "British",
	"india":         "Indian",
	"indian":        "Indian",
	"australia":     "Australian",
	"australian":    "Australian",
	"ireland":       "Irish",
	"irish":         "Irish",
}

// inferAccent prefers an explicit label, then keywords in the description
// or name. Unknown voices count as American.
func inferAccent(name, description string, labels map[string]string) string {
	if a := labels["accent"]; a != "" {
		return normalizeAccent(a)
	}
	lowerName := strings.ToLower(name)
	lowerDesc := strings.ToLower(description)
	for _, entry := range accentKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lowerDesc, kw) || strings.Contains(lowerName, kw) {
				return entry.accent
			}
		}
	}
	return "American"
}

func normalizeAccent(accent string) string {
	if canonical, ok := accentAliases[strings.ToLower(strings.TrimSpace(accent))]; ok {
		return canonical
	}
	return accent
}
