package conversation

import (
	"regexp"
	"strings"
)

// Inbound messages scoring at or above this never reach a model.
const screenBlockScore = 0.7

// GuardedReply answers a message that tried to steer the assistant off its
// instructions.
const GuardedReply = "I'm here to help with health questions, finding medical information and booking appointments. What can I help you with today?"

type guardRule struct {
	re     *regexp.Regexp
	label  string
	weight float64
}

var inboundRules = []guardRule{
	{regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?)`), "override_instructions", 0.9},
	{regexp.MustCompile(`(?i)new\s+instructions?\s*:|system\s*prompt\s*:|<<\s*sys(tem)?\s*>>`), "new_instructions", 0.9},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+`), "role_reassignment", 0.7},
	{regexp.MustCompile(`(?i)jailbreak|DAN\s*mode|developer\s*mode|unrestricted\s*mode`), "jailbreak", 0.9},
	{regexp.MustCompile(`(?i)(pretend|imagine)\s+(that\s+)?you\s+(are|have)\s+(no\s+)?(rules?|restrictions?|limits?|filters?|safety)`), "pretend_unrestricted", 0.9},
	{regexp.MustCompile(`(?i)(reveal|show|print|repeat|tell)\s+(me\s+)?(your\s+(system\s+|hidden\s+|initial\s+)?(prompt|instructions|rules)|(the\s+)?(system|hidden|initial)\s+prompt)`), "prompt_exfiltration", 0.8},
	{regexp.MustCompile(`(?i)(list|show|give|tell)\s+(me\s+)?(the\s+)?(other\s+)?patients?('?s)?\s+(data|names?|records?|appointments?)`), "patient_exfiltration", 0.7},
	{regexp.MustCompile(`(?i)\b(api|groq|gemini|aws|elevenlabs|perplexity)\s*(key|token|secret)s?\b`), "credential_request", 0.8},
	{regexp.MustCompile(tokenMarkers), "special_tokens", 0.9},
	{regexp.MustCompile(roleMarkers), "role_markers", 0.7},
	{regexp.MustCompile(`(?i)<\s*(script|iframe|object|embed|svg)\b`), "html_injection", 0.6},
	{regexp.MustCompile(`!\[[^\]]*\]\(https?://`), "markdown_image", 0.4},
}

const (
	tokenMarkers = `(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|(system|user|assistant)\|>`
	roleMarkers  = `(?i)###\s*(system|instruction|assistant|user)\s*:`
)

var scrubRules = []*regexp.Regexp{
	regexp.MustCompile(tokenMarkers),
	regexp.MustCompile(roleMarkers),
	regexp.MustCompile(`(?i)<\s*(script|iframe|object|embed|svg)\b[^>]*>`),
	regexp.MustCompile(`!\[[^\]]*\]\(https?://[^)]+\)`),
}

// ScreenResult is the outcome of scanning one inbound message.
type ScreenResult struct {
	Blocked bool
	Score   float64
	Labels  []string
	Message string
}

// ScreenMessage scores a user message against known steering patterns.
// Messages below the block score come back with markup stripped.
func ScreenMessage(message string) ScreenResult {
	res := ScreenResult{Message: message}
	if strings.TrimSpace(message) == "" {
		return res
	}

	for _, rule := range inboundRules {
		if !rule.re.MatchString(message) {
			continue
		}
		res.Labels = append(res.Labels, rule.label)
		if rule.weight > res.Score {
			res.Score = rule.weight
		}
	}
	if n := len(res.Labels); n > 1 {
		res.Score = min(1.0, res.Score+0.1*float64(n-1))
	}

	if res.Score >= screenBlockScore {
		res.Blocked = true
		return res
	}
	if len(res.Labels) > 0 {
		res.Message = scrub(message)
	}
	return res
}

func scrub(message string) string {
	for _, re := range scrubRules {
		message = re.ReplaceAllString(message, "")
	}
	return strings.TrimSpace(message)
}

type replyRule struct {
	re    *regexp.Regexp
	label string
	drop  bool
}

var replyRules = []replyRule{
	{regexp.MustCompile(`(?i)my (system\s+)?(prompt|instructions?)\s+(is|are|says?|tells?)`), "prompt_disclosure", true},
	{regexp.MustCompile(`(?i)(here are|these are)\s+(my\s+)?(system\s+)?(instructions|rules|prompts)`), "rules_listing", true},
	{regexp.MustCompile(`(?i)(api[_\s]?key|secret[_\s]?key|access[_\s]?token|bearer\s+token)\s*[:=]\s*\S+`), "credential", true},
	{regexp.MustCompile(`AKIA[A-Z0-9]{16}|gsk_[A-Za-z0-9]{20,}`), "provider_key", true},
	{regexp.MustCompile(`(?i)(redis|postgres)://\S+`), "connection_url", true},
	{regexp.MustCompile(`(?i)(powered by|built on|running on)\s+(groq|llama|mixtral|gemma|gemini|bedrock|openai)`), "stack_disclosure", false},
}

var stackSentence = regexp.MustCompile(`(?i)[^.!?]*\b(powered by|built on|running on)\s+(groq|llama|mixtral|gemma|gemini|bedrock|openai)\b[^.!?]*[.!?]?\s*`)

// ReplyCheck is the outcome of scanning a model reply.
type ReplyCheck struct {
	Labels []string
	// Reply is empty when nothing could be salvaged.
	Reply string
}

// CheckReply scans a model reply for leaked configuration. Whole replies
// that disclose secrets or the prompt are dropped; stack mentions are cut
// sentence by sentence.
func CheckReply(reply string) ReplyCheck {
	check := ReplyCheck{Reply: reply}
	drop := false
	for _, rule := range replyRules {
		if rule.re.MatchString(reply) {
			check.Labels = append(check.Labels, rule.label)
			drop = drop || rule.drop
		}
	}
	switch {
	case len(check.Labels) == 0:
	case drop:
		check.Reply = ""
	default:
		check.Reply = strings.TrimSpace(stackSentence.ReplaceAllString(reply, ""))
	}
	return check
}
