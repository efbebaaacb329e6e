// Package intent turns a free-form chat message into a routed service type
// plus the structured parameters that service needs.
package intent

import "strings"

// ServiceType is the embedded service a message routes to.
type ServiceType string

const (
	ServiceNone        ServiceType = "none"
	ServiceAppointment ServiceType = "appointment"
	ServiceSearch      ServiceType = "search"
	ServiceVideo       ServiceType = "video"
)

type keywordRule struct {
	service  ServiceType
	keywords []string
}

// Checked in order; a message mentioning both "book" and "video" is an
// appointment.
var keywordRules = []keywordRule{
	{ServiceAppointment, []string{"appointment", "schedule", "book"}},
	{ServiceSearch, []string{"search", "find information", "look up"}},
	{ServiceVideo, []string{"video", "youtube", "watch"}},
}

// ClassifyIntent returns the first service whose keyword set matches the
// message, or ServiceNone.
func ClassifyIntent(message string) ServiceType {
	lower := strings.ToLower(message)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.service
			}
		}
	}
	return ServiceNone
}

var leadInPhrases = []string{
	"search for",
	"find information about",
	"look up",
	"tell me about",
	"information on",
	"video about",
	"play a video on",
	"show me",
}

var stopWords = map[string]struct{}{
	"what": {}, "where": {}, "when": {}, "how": {}, "why": {},
	"can": {}, "could": {}, "would": {}, "should": {},
	"is": {}, "are": {}, "was": {}, "were": {},
	"you": {}, "i": {}, "me": {}, "my": {}, "mine": {}, "help": {},
}

// ExtractQuery pulls the subject out of a search or video request. The
// result may be empty.
func ExtractQuery(message string) string {
	lower := strings.ToLower(message)
	for _, phrase := range leadInPhrases {
		if idx := strings.Index(lower, phrase); idx >= 0 {
			return strings.TrimSpace(lower[idx+len(phrase):])
		}
	}

	// Both paths return lowercase text. Stop words still match when they
	// carry trailing punctuation ("help?").
	var kept []string
	for _, word := range strings.Fields(lower) {
		bare := strings.Trim(word, "?!.,;:")
		if bare == "" {
			continue
		}
		if _, stop := stopWords[bare]; stop {
			continue
		}
		kept = append(kept, word)
	}
	return strings.TrimRight(strings.Join(kept, " "), "?!.,;:")
}
