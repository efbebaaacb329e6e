package voice

import (
	"math"
	"strings"
)

// Rand is the random source behind prosody jitter. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

const (
	defaultStability  = 0.5
	defaultSimilarity = 0.75
	remoteJitter      = 0.05
	defaultStyle      = 0.5
)

// LocalParams picks pitch and rate for a local utterance. Indian-accent
// preferences on a voice that is not itself Indian get a slightly higher,
// slower base. With variation on, both values move by up to
// min(0.15, 0.05+words/200) and stay within [0.8, 1.2].
func LocalParams(text string, v Voice, pref Preference, rng Rand) Params {
	pitch, rate := 1.0, 1.0
	if isIndian(pref.Accent) && !strings.Contains(strings.ToLower(v.Name), "india") {
		pitch, rate = 1.1, 0.9
	}
	if !pref.Variation || rng == nil {
		return Params{Pitch: pitch, Rate: rate}
	}

	words := len(strings.Fields(text))
	amount := math.Min(0.15, 0.05+float64(words)/200)
	return Params{
		Pitch: clamp(pitch+spread(rng, amount), 0.8, 1.2),
		Rate:  clamp(rate+spread(rng, amount), 0.8, 1.2),
	}
}

// RemoteParams picks stability and similarity for a remote utterance,
// each moved by up to ±0.05 when variation is on.
func RemoteParams(pref Preference, rng Rand) Params {
	stability, similarity := defaultStability, defaultSimilarity
	if pref.Stability != nil {
		stability = *pref.Stability
	}
	if pref.Similarity != nil {
		similarity = *pref.Similarity
	}
	if pref.Variation && rng != nil {
		stability = clamp(stability+spread(rng, remoteJitter), 0, 1)
		similarity = clamp(similarity+spread(rng, remoteJitter), 0, 1)
	}
	return Params{
		Stability:    stability,
		Similarity:   similarity,
		Style:        defaultStyle,
		SpeakerBoost: true,
	}
}

// spread maps a uniform [0,1) draw onto [-amount, amount).
func spread(rng Rand, amount float64) float64 {
	return rng.Float64()*amount*2 - amount
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
