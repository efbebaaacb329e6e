package voice

import (
	"errors"
	"strings"
	"sync"
)

// ErrInvalidPreference rejects an update with an unknown gender or an
// out-of-range tuning value.
var ErrInvalidPreference = errors.New("voice: invalid preference")

// Preference is how the user wants to be spoken to. Gender and Accent are
// never empty.
type Preference struct {
	Gender          string   `json:"gender"`
	Accent          string   `json:"accent"`
	SelectedVoiceID string   `json:"selectedVoiceId,omitempty"`
	Variation       bool     `json:"variation"`
	Stability       *float64 `json:"stability,omitempty"`
	Similarity      *float64 `json:"similarity,omitempty"`
}

// PreferenceUpdate carries the fields to change; nil fields are kept.
type PreferenceUpdate struct {
	Gender          *string  `json:"gender,omitempty"`
	Accent          *string  `json:"accent,omitempty"`
	SelectedVoiceID *string  `json:"selectedVoiceId,omitempty"`
	Variation       *bool    `json:"variation,omitempty"`
	Stability       *float64 `json:"stability,omitempty"`
	Similarity      *float64 `json:"similarity,omitempty"`
}

// DefaultPreference is a female voice with an Indian accent and variation on.
func DefaultPreference() Preference {
	return Preference{Gender: GenderFemale, Accent: AccentIndian, Variation: true}
}

// PreferenceStore holds the process-wide preference. Updates are last
// write wins.
type PreferenceStore struct {
	mu   sync.RWMutex
	pref Preference
}

// NewPreferenceStore starts from initial, filling an empty or unknown
// gender and an empty accent from DefaultPreference.
func NewPreferenceStore(initial Preference) *PreferenceStore {
	def := DefaultPreference()
	pref := initial.clone()
	if pref.Gender = normalizeGender(pref.Gender); pref.Gender == "" {
		pref.Gender = def.Gender
	}
	if pref.Accent = strings.TrimSpace(pref.Accent); pref.Accent == "" {
		pref.Accent = def.Accent
	}
	return &PreferenceStore{pref: pref}
}

func (s *PreferenceStore) Get() Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pref.clone()
}

// Update applies u and returns the resulting preference. An empty gender
// or accent leaves the previous value in place.
func (s *PreferenceStore) Update(u PreferenceUpdate) (Preference, error) {
	var gender string
	if u.Gender != nil && strings.TrimSpace(*u.Gender) != "" {
		if gender = normalizeGender(*u.Gender); gender == "" {
			return Preference{}, ErrInvalidPreference
		}
	}
	for _, v := range []*float64{u.Stability, u.Similarity} {
		if v != nil && (*v < 0 || *v > 1) {
			return Preference{}, ErrInvalidPreference
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gender != "" {
		s.pref.Gender = gender
	}
	if u.Accent != nil && strings.TrimSpace(*u.Accent) != "" {
		s.pref.Accent = strings.TrimSpace(*u.Accent)
	}
	if u.SelectedVoiceID != nil {
		s.pref.SelectedVoiceID = strings.TrimSpace(*u.SelectedVoiceID)
	}
	if u.Variation != nil {
		s.pref.Variation = *u.Variation
	}
	if u.Stability != nil {
		s.pref.Stability = copyFloat(u.Stability)
	}
	if u.Similarity != nil {
		s.pref.Similarity = copyFloat(u.Similarity)
	}
	return s.pref.clone(), nil
}

func (p Preference) clone() Preference {
	p.Stability = copyFloat(p.Stability)
	p.Similarity = copyFloat(p.Similarity)
	return p
}

func normalizeGender(g string) string {
	switch strings.ToLower(strings.TrimSpace(g)) {
	case GenderFemale:
		return GenderFemale
	case GenderMale:
		return GenderMale
	}
	return ""
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
