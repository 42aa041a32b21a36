package messaging

import "strings"

// titleBodyLimit is how much of the first message survives into the title.
const titleBodyLimit = 50

// ConversationTitle builds the human-readable title for a newly created
// thread: the sender's display name (or raw number for unknown senders)
// prefixed onto the first message body, truncated.
func ConversationTitle(body, displayName, rawFrom string) string {
	prefix := strings.TrimSpace(displayName)
	if prefix == "" {
		prefix = strings.TrimSpace(rawFrom)
	}

	excerpt := strings.TrimSpace(body)
	if runes := []rune(excerpt); len(runes) > titleBodyLimit {
		excerpt = string(runes[:titleBodyLimit]) + "..."
	}

	if prefix == "" {
		return excerpt
	}
	if excerpt == "" {
		return prefix
	}
	return prefix + ": " + excerpt
}
