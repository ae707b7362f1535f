package main

import (
	"strings"
	"time"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

// sendFailureNotice is appended as an assistant message when a send fails.
// The optimistic user message is never rolled back.
const sendFailureNotice = "Sorry, the chat service could not be reached. Your message was not processed. Please try again."

// chatMessage is one entry in a conversation log. Messages are immutable once
// appended; ordering is insertion order.
type chatMessage struct {
	role      string
	content   string
	timestamp string
}

// conversation is the active session: a server-assigned id (empty while the
// session is unestablished) and its ordered message log. Exactly one
// conversation is active at a time, owned by the TUI model.
type conversation struct {
	id       string
	messages []chatMessage
}

func (c *conversation) established() bool {
	return c.id != ""
}

func (c *conversation) appendUser(content string) {
	c.messages = append(c.messages, chatMessage{
		role:      roleUser,
		content:   content,
		timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *conversation) appendAssistant(content string) {
	c.messages = append(c.messages, chatMessage{
		role:      roleAssistant,
		content:   content,
		timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// adoptID records the server-assigned session id. The id is set-once: it is
// adopted only while the conversation is unestablished. Returns false when a
// differing id arrives for an already-established conversation, which the
// caller should log and otherwise ignore.
func (c *conversation) adoptID(id string) bool {
	if id == "" {
		return true
	}
	if c.id == "" {
		c.id = id
		return true
	}
	return c.id == id
}

// clear resets the conversation to empty and unestablished.
func (c *conversation) clear() {
	c.id = ""
	c.messages = nil
}

// load replaces the conversation wholesale, used when reactivating a session
// picked from history.
func (c *conversation) load(id string, messages []chatMessage) {
	c.id = id
	c.messages = append([]chatMessage(nil), messages...)
}

// validSendText reports whether text qualifies for a send or summarize
// request. Empty and whitespace-only input is rejected before any network
// call.
func validSendText(text string) bool {
	return strings.TrimSpace(text) != ""
}
