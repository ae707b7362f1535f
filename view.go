package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

func (m model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing chatterm..."
	}

	header := m.renderHeader()
	body := m.renderBody()
	footer := helpStyle.Render(m.renderStatus())
	return header + "\n" + body + "\n" + footer
}

func (m model) renderHeader() string {
	title := "chatterm"
	switch m.screen {
	case screenChat:
		title += " | Chat"
		if m.conv.established() {
			title += " | session:" + shortSessionID(m.conv.id)
		} else {
			title += " | new session"
		}
	case screenSummarize:
		title += " | Summarize"
	case screenHistory:
		title += " | History"
	}
	return titleStyle.Render(title) + "\n" + helpStyle.Render(m.renderHelp())
}

func (m model) renderHelp() string {
	switch m.screen {
	case screenChat:
		return "enter: send | ctrl+l: clear session | pgup/pgdown: scroll | tab: next mode | ctrl+c: quit"
	case screenSummarize:
		return "ctrl+s: summarize | tab: next mode | ctrl+c: quit"
	case screenHistory:
		if m.confirmDelete != "" {
			return "Delete confirmation | y/enter: delete | n/esc: cancel"
		}
		return "up/down: move | enter: resume session | d: delete | r: reload | tab: next mode | q: quit"
	default:
		return "ctrl+c: quit"
	}
}

func (m model) renderBody() string {
	switch m.screen {
	case screenChat:
		return m.renderChat()
	case screenSummarize:
		return m.renderSummarize()
	case screenHistory:
		return m.renderHistory()
	default:
		return "Unknown screen"
	}
}

func (m model) renderStatus() string {
	return m.status
}

func (m model) renderChat() string {
	inputLine := m.chatInput.View()
	if m.sendPending {
		inputLine = helpStyle.Render(sendSpinnerFrames[m.spinnerFrame%len(sendSpinnerFrames)] + " waiting for assistant...")
	}
	return m.chatViewport.View() + "\n" + inputLine
}

func (m model) renderSummarize() string {
	result := "No summary yet"
	if m.summarizePending {
		result = sendSpinnerFrames[m.spinnerFrame%len(sendSpinnerFrames)] + " summarizing..."
	} else if m.summaryResult != "" {
		result = summaryStyle.Render(wrapText(m.summaryResult, max(20, m.width-4)))
	}
	divider := helpStyle.Render(strings.Repeat("-", max(20, m.width-2)))
	return m.summaryInput.View() + "\n" + divider + "\n" + result
}

func (m model) renderHistory() string {
	if m.historyPending {
		return sendSpinnerFrames[m.spinnerFrame%len(sendSpinnerFrames)] + " loading history..."
	}
	if len(m.groups) == 0 {
		return "No chat sessions found"
	}

	visible := max(1, m.height-5)
	offset := listOffset(m.historyCursor, len(m.groups), visible)

	lines := make([]string, 0, visible+1)
	for idx := offset; idx < min(len(m.groups), offset+visible); idx++ {
		group := m.groups[idx]
		line := fmt.Sprintf("  %-10s  %3d msgs  %-16s  %s",
			shortSessionID(group.sessionID),
			group.messageCount,
			formatTimestamp(group.lastTimestamp),
			group.preview)
		if idx == m.historyCursor {
			line = selectedStyle.Render("> " + strings.TrimPrefix(line, "  "))
		}
		lines = append(lines, line)
	}

	if m.confirmDelete != "" {
		lines = append(lines, "", noticeStyle.Render(fmt.Sprintf("Delete session %s and its server history? (y/n)", shortSessionID(m.confirmDelete))))
	}
	return strings.Join(lines, "\n")
}

func (m *model) resizeChatViewport() {
	width := max(20, m.width-2)
	height := max(3, m.height-5)
	if m.chatViewport.Width == 0 {
		m.chatViewport = viewport.New(width, height)
		return
	}
	m.chatViewport.Width = width
	m.chatViewport.Height = height
}

func (m *model) refreshChatViewport() {
	if m.chatViewport.Width <= 0 || m.chatViewport.Height <= 0 {
		return
	}
	if len(m.conv.messages) == 0 {
		m.chatViewport.SetContent("No messages yet. Say something.")
		m.chatViewport.GotoTop()
		return
	}
	m.chatViewport.SetContent(renderConversationText(m.conv.messages, m.chatViewport.Width))
	m.chatViewport.GotoBottom()
}

func renderConversationText(messages []chatMessage, width int) string {
	maxWidth := max(20, width-2)
	chunks := make([]string, 0, len(messages))
	for _, msg := range messages {
		timestamp := formatTimestamp(msg.timestamp)
		header := strings.TrimSpace(fmt.Sprintf("%s  %s", timestamp, strings.ToUpper(msg.role)))
		if header == "" {
			header = strings.ToUpper(msg.role)
		}

		body := msg.content
		if strings.TrimSpace(body) == "" {
			body = "(no text content)"
		}

		wrapped := wrapText(body, maxWidth)
		styledHeader := roleStyle(msg.role).Bold(true).Render(header)
		styledBody := roleStyle(msg.role).Render(indentLines(wrapped, "  "))
		chunks = append(chunks, styledHeader+"\n"+styledBody)
	}
	return strings.Join(chunks, "\n\n")
}

func wrapText(text string, width int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	wrapped := wordwrap.String(trimmed, width)
	return strings.ReplaceAll(wrapped, "\r", "")
}

func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for idx := range lines {
		lines[idx] = prefix + lines[idx]
	}
	return strings.Join(lines, "\n")
}

func roleStyle(role string) lipgloss.Style {
	switch strings.ToLower(role) {
	case roleUser:
		return roleUserStyle
	case roleAssistant:
		return roleAssistantStyle
	default:
		return helpStyle
	}
}

func formatTimestamp(ts string) string {
	trimmed := strings.TrimSpace(ts)
	if trimmed == "" {
		return ""
	}
	if parsed, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return parsed.Local().Format("2006-01-02 15:04")
	}
	return trimmed
}

func shortSessionID(id string) string {
	runes := []rune(id)
	if len(runes) <= 10 {
		return id
	}
	return string(runes[:10])
}

func listOffset(cursor, total, visible int) int {
	if total <= visible {
		return 0
	}
	offset := cursor - visible/2
	maxOffset := total - visible
	return clamp(offset, 0, maxOffset)
}

func clamp(value, low, high int) int {
	if high < low {
		return low
	}
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
