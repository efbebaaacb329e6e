package voice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

func TestLocalParamsBase(t *testing.T) {
	pref := Preference{Gender: GenderFemale, Accent: AccentIndian}

	p := LocalParams("hello there", Voice{Name: "Microsoft Zira"}, pref, fixedRand(1))
	assert.InDelta(t, 1.1, p.Pitch, 1e-9)
	assert.InDelta(t, 0.9, p.Rate, 1e-9)

	p = LocalParams("hello there", Voice{Name: "English (India)"}, pref, fixedRand(1))
	assert.InDelta(t, 1.0, p.Pitch, 1e-9)
	assert.InDelta(t, 1.0, p.Rate, 1e-9)

	p = LocalParams("hello there", Voice{Name: "Microsoft Zira"}, Preference{Accent: "British"}, nil)
	assert.InDelta(t, 1.0, p.Pitch, 1e-9)
	assert.InDelta(t, 1.0, p.Rate, 1e-9)
}

func TestLocalParamsVariation(t *testing.T) {
	pref := Preference{Gender: GenderFemale, Accent: AccentIndian, Variation: true}
	tenWords := strings.Repeat("word ", 10)

	// Ten words allow 0.05+10/200 = 0.1 either way.
	p := LocalParams(tenWords, Voice{Name: "Zira"}, pref, fixedRand(1))
	assert.InDelta(t, 1.2, p.Pitch, 1e-9)
	assert.InDelta(t, 1.0, p.Rate, 1e-9)

	p = LocalParams(tenWords, Voice{Name: "Zira"}, pref, fixedRand(0.5))
	assert.InDelta(t, 1.1, p.Pitch, 1e-9)
	assert.InDelta(t, 0.9, p.Rate, 1e-9)

	// Long text caps the spread at 0.15 and the result is clamped.
	p = LocalParams(strings.Repeat("word ", 100), Voice{Name: "Zira"}, pref, fixedRand(0))
	assert.InDelta(t, 0.95, p.Pitch, 1e-9)
	assert.InDelta(t, 0.8, p.Rate, 1e-9)
}

func TestRemoteParams(t *testing.T) {
	p := RemoteParams(Preference{}, fixedRand(1))
	assert.Equal(t, Params{Stability: 0.5, Similarity: 0.75, Style: 0.5, SpeakerBoost: true}, p)

	p = RemoteParams(Preference{Variation: true}, fixedRand(1))
	assert.InDelta(t, 0.55, p.Stability, 1e-9)
	assert.InDelta(t, 0.8, p.Similarity, 1e-9)

	high, low := 1.0, 0.0
	p = RemoteParams(Preference{Variation: true, Stability: &high, Similarity: &low}, fixedRand(1))
	assert.InDelta(t, 1.0, p.Stability, 1e-9)
	assert.InDelta(t, 0.05, p.Similarity, 1e-9)

	p = RemoteParams(Preference{Variation: true, Similarity: &low}, fixedRand(0))
	assert.InDelta(t, 0.45, p.Stability, 1e-9)
	assert.InDelta(t, 0.0, p.Similarity, 1e-9)
}
