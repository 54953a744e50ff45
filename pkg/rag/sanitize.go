package rag

import "strings"

// sanitizeInput strips prompt injection patterns from text that is
// interpolated into reranking prompts.
func sanitizeInput(input string) string {
	sanitized := input

	for _, role := range []string{"SYSTEM:", "System:", "system:", "ASSISTANT:", "Assistant:", "assistant:", "USER:", "User:", "user:"} {
		sanitized = strings.ReplaceAll(sanitized, role, "")
	}

	for _, phrase := range []string{
		"Ignore previous instructions", "ignore previous instructions",
		"Ignore all previous", "ignore all previous",
		"Disregard previous", "disregard previous",
	} {
		sanitized = strings.ReplaceAll(sanitized, phrase, "")
	}

	// Delimiters used to break out of the prompt structure
	sanitized = strings.ReplaceAll(sanitized, "---", "")
	sanitized = strings.ReplaceAll(sanitized, "===", "")
	sanitized = strings.ReplaceAll(sanitized, "***", "")
	sanitized = strings.ReplaceAll(sanitized, "```", "")

	return strings.TrimSpace(sanitized)
}
