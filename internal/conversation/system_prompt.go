package conversation

const (
	defaultSystemPrompt = "You are a helpful medical front desk assistant. Be professional, concise, and friendly. " +
		"Your primary goal is to help patients with their medical queries and tasks."

	// EmptyCompletionReply is used when a model answers with no text.
	EmptyCompletionReply = "I'm sorry, I couldn't process your request."

	// DegradedReply is returned whenever a chat turn cannot be completed.
	DegradedReply = "I apologize, but I'm having trouble processing your request right now. Please try again later."
)
