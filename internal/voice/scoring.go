package voice

import "strings"

// DefaultRemoteVoice is used when the remote catalog is empty or could not
// be fetched.
var DefaultRemoteVoice = Voice{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Gender: GenderFemale, Accent: "American"}

var indianVoiceNames = []string{"Kalpana", "Veena", "Tara", "Lekha"}

// ScoreLocalVoice rates an operating-system style voice (name plus BCP 47
// locale) against the preference. Higher is better.
func ScoreLocalVoice(v Voice, pref Preference) int {
	name := strings.ToLower(v.Name)
	indianLocale := v.Locale == "hi-IN" || v.Locale == "en-IN"
	indianName := strings.Contains(name, "india") || strings.Contains(name, "hindi")

	score := 0
	switch {
	case pref.Gender == GenderFemale && isIndian(pref.Accent):
		if strings.Contains(name, "female") && (indianName || indianLocale) {
			score += 100
		}
		if strings.Contains(v.Name, "Microsoft Heera") {
			score += 150
		}
		if strings.Contains(v.Name, "Google") && v.Locale == "hi-IN" {
			score += 80
		}
		if strings.Contains(name, "female") || containsAny(v.Name, indianVoiceNames) {
			score += 50
		}
		if indianLocale {
			score += 30
		}
	case pref.Gender == GenderMale && isIndian(pref.Accent):
		if strings.Contains(name, "male") && (indianName || indianLocale) {
			score += 100
		}
		if strings.Contains(name, "male") {
			score += 50
		}
		if indianLocale {
			score += 30
		}
	default:
		if pref.Gender != "" && strings.Contains(name, pref.Gender) {
			score += 50
		}
	}

	if v.Locale == "en-US" || v.Locale == "en-GB" {
		score += 10
	}
	if strings.Contains(v.Name, "Google") {
		score += 5
	}
	return score
}

// ScoreRemoteVoice rates a catalog voice whose gender and accent were
// already inferred.
func ScoreRemoteVoice(v Voice, pref Preference) int {
	score := 0
	if v.Gender == pref.Gender {
		score += 100
	}
	switch {
	case v.Accent == pref.Accent:
		score += 100
	case pref.Accent != "" && strings.Contains(strings.ToLower(v.Description), strings.ToLower(pref.Accent)):
		score += 50
	}
	if v.Category == "premium" {
		score += 10
	}
	return score
}

// BestVoice returns the highest scoring voice. Ties go to the earlier
// voice; ok is false only for an empty list.
func BestVoice(voices []Voice, pref Preference, score func(Voice, Preference) int) (best Voice, ok bool) {
	bestScore := 0
	for i, v := range voices {
		s := score(v, pref)
		if i == 0 || s > bestScore {
			best, bestScore = v, s
		}
	}
	return best, len(voices) > 0
}

func isIndian(accent string) bool {
	return strings.EqualFold(strings.TrimSpace(accent), AccentIndian)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
