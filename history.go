package main

const (
	historyPreviewLimit    = 100
	historyPreviewFallback = "Chat session"
)

// historyGroup is one session reconstructed from the flat history feed.
// Derived, never persisted; recomputed from the raw feed on every load.
type historyGroup struct {
	sessionID     string
	messages      []chatMessage
	preview       string
	lastTimestamp string
	messageCount  int
}

// groupBySession partitions the flat feed by session id. Groups appear in
// first-appearance order of their session id, and messages keep their input
// order inside each group; nothing is re-sorted by timestamp. The preview is
// the first user message of the group, truncated for display.
func groupBySession(flat []historyMessage) []historyGroup {
	groups := make([]historyGroup, 0)
	index := make(map[string]int)

	for _, record := range flat {
		idx, seen := index[record.SessionID]
		if !seen {
			idx = len(groups)
			index[record.SessionID] = idx
			groups = append(groups, historyGroup{sessionID: record.SessionID})
		}
		groups[idx].messages = append(groups[idx].messages, chatMessage{
			role:      record.Role,
			content:   record.Content,
			timestamp: record.Timestamp,
		})
	}

	for idx := range groups {
		group := &groups[idx]
		group.messageCount = len(group.messages)
		group.lastTimestamp = group.messages[len(group.messages)-1].timestamp
		group.preview = historyPreviewFallback
		for _, msg := range group.messages {
			if msg.role == roleUser {
				group.preview = previewText(msg.content)
				break
			}
		}
	}
	return groups
}

// previewText truncates content to the preview limit, counting characters
// rather than bytes, and marks truncation with an ellipsis.
func previewText(content string) string {
	runes := []rune(content)
	if len(runes) <= historyPreviewLimit {
		return content
	}
	return string(runes[:historyPreviewLimit]) + "..."
}

// flattenGroups is the inverse of groupBySession.
func flattenGroups(groups []historyGroup) []historyMessage {
	var flat []historyMessage
	for _, group := range groups {
		for _, msg := range group.messages {
			flat = append(flat, historyMessage{
				SessionID: group.sessionID,
				Role:      msg.role,
				Content:   msg.content,
				Timestamp: msg.timestamp,
			})
		}
	}
	return flat
}
