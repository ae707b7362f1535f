package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type screen int

const (
	screenChat screen = iota
	screenSummarize
	screenHistory
)

const screenCount = 3

// summarizeFailureNotice replaces the summary slot when a summarize fails.
const summarizeFailureNotice = "Summarization failed. Please try again."

var sendSpinnerFrames = []string{"|", "/", "-", `\`}

type sendResultMsg struct {
	response string
	// sessionID is always present in a successful response, even when the
	// request carried none.
	sessionID string
	// wasEstablished snapshots the establishment check at request-issue time
	// so the completion path never re-reads shared state off the event loop.
	wasEstablished bool
	err            error
}

type summarizeResultMsg struct {
	summary string
	err     error
}

type historyResultMsg struct {
	flat        []historyMessage
	fromArchive bool
	err         error
}

type deleteResultMsg struct {
	sessionID string
	err       error
}

// sessionDiscardMsg reports the best-effort server delete issued by a clear.
// Failures are logged and swallowed; the local clear already happened.
type sessionDiscardMsg struct {
	sessionID string
	err       error
}

type spinnerTickMsg struct{}

// model tracks client state across all three view modes. The conversation and
// the pending flags are owned here exclusively; async commands communicate
// through the typed result messages above.
type model struct {
	client  *serviceClient
	archive *sql.DB

	screen screen

	conv        conversation
	sendPending bool

	chatInput    textinput.Model
	chatViewport viewport.Model

	summaryInput     textarea.Model
	summaryResult    string
	summarizePending bool

	groups         []historyGroup
	historyCursor  int
	historyLoaded  bool
	historyPending bool
	confirmDelete  string

	spinnerFrame int
	width        int
	height       int
	status       string
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))

	roleUserStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	roleAssistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230"))
	noticeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chatterm failed: %v\n", err)
		os.Exit(1)
	}
}

func newModel(cfg appConfig, client *serviceClient, archive *sql.DB) model {
	input := textinput.New()
	input.Placeholder = "Type a message"
	input.Prompt = "> "
	input.Focus()

	summary := textarea.New()
	summary.Placeholder = "Paste or type text to summarize"

	return model{
		client:       client,
		archive:      archive,
		screen:       screenChat,
		chatInput:    input,
		summaryInput: summary,
		status:       "Connected to " + cfg.baseURL,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChatViewport()
		m.refreshChatViewport()
		m.chatInput.Width = max(20, m.width-4)
		m.summaryInput.SetWidth(max(20, m.width-2))
		m.summaryInput.SetHeight(max(3, m.height/3))
		return m, nil
	case sendResultMsg:
		m.applySendResult(msg)
		return m, nil
	case summarizeResultMsg:
		m.summarizePending = false
		if msg.err != nil {
			m.summaryResult = summarizeFailureNotice
			m.status = "Summarize failed: " + msg.err.Error()
			return m, nil
		}
		m.summaryResult = msg.summary
		m.status = "Summary ready"
		return m, nil
	case historyResultMsg:
		m.historyPending = false
		if msg.err != nil {
			m.status = "History load failed: " + msg.err.Error()
			return m, nil
		}
		m.groups = groupBySession(msg.flat)
		m.historyLoaded = true
		m.historyCursor = clamp(m.historyCursor, 0, len(m.groups)-1)
		if msg.fromArchive {
			m.status = fmt.Sprintf("Service unreachable; showing %d sessions from the local archive", len(m.groups))
		} else {
			m.status = fmt.Sprintf("Loaded %d sessions", len(m.groups))
		}
		return m, nil
	case deleteResultMsg:
		if msg.err != nil {
			m.status = "Delete failed: " + msg.err.Error()
			return m, nil
		}
		if m.archive != nil {
			if err := purgeArchivedSession(m.archive, msg.sessionID); err != nil {
				logger.Warn().Err(err).Msg("purge archived session failed")
			}
		}
		m.status = "Session deleted"
		// Never patch the cached grouping; always refetch and regroup.
		cmd := m.startHistoryLoad()
		return m, cmd
	case sessionDiscardMsg:
		if msg.err != nil {
			logger.Warn().Err(msg.err).Str("session", msg.sessionID).Msg("best-effort history delete failed")
		}
		return m, nil
	case spinnerTickMsg:
		if !m.anyPending() {
			return m, nil
		}
		m.spinnerFrame = (m.spinnerFrame + 1) % len(sendSpinnerFrames)
		return m, spinnerTickCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "tab":
			cmd := m.switchScreen((m.screen + 1) % screenCount)
			return m, cmd
		case "shift+tab":
			cmd := m.switchScreen((m.screen + screenCount - 1) % screenCount)
			return m, cmd
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenChat:
		return m.handleChatKey(msg)
	case screenSummarize:
		return m.handleSummarizeKey(msg)
	case screenHistory:
		return m.handleHistoryKey(msg)
	default:
		return m, nil
	}
}

func (m model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		cmd := m.submit()
		return m, cmd
	case "ctrl+l":
		cmd := m.startClear()
		return m, cmd
	case "pgup":
		m.chatViewport.HalfViewUp()
		return m, nil
	case "pgdown":
		m.chatViewport.HalfViewDown()
		return m, nil
	}
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m model) handleSummarizeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+s" {
		cmd := m.submit()
		return m, cmd
	}
	var cmd tea.Cmd
	m.summaryInput, cmd = m.summaryInput.Update(msg)
	return m, cmd
}

func (m model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmDelete != "" {
		switch msg.String() {
		case "y", "enter":
			sessionID := m.confirmDelete
			m.confirmDelete = ""
			m.status = "Deleting session..."
			cmd := m.startDelete(sessionID)
			return m, cmd
		case "n", "esc", "b", "backspace":
			m.confirmDelete = ""
			m.status = "Delete canceled"
		}
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		m.historyCursor = clamp(m.historyCursor-1, 0, len(m.groups)-1)
	case "down", "j":
		m.historyCursor = clamp(m.historyCursor+1, 0, len(m.groups)-1)
	case "enter":
		group, ok := m.currentGroup()
		if !ok {
			m.status = "No session selected"
			return m, nil
		}
		m.conv.load(group.sessionID, group.messages)
		m.status = fmt.Sprintf("Resumed session %s (%d messages)", shortSessionID(group.sessionID), group.messageCount)
		cmd := m.switchScreen(screenChat)
		m.refreshChatViewport()
		return m, cmd
	case "d":
		group, ok := m.currentGroup()
		if !ok {
			m.status = "No session selected"
			return m, nil
		}
		m.confirmDelete = group.sessionID
	case "r":
		if !m.historyPending {
			cmd := m.startHistoryLoad()
			return m, cmd
		}
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

// submit routes the single confirm action by mode: send in chat, summarize in
// summarize, nothing in history.
func (m *model) submit() tea.Cmd {
	switch m.screen {
	case screenChat:
		return m.startSend()
	case screenSummarize:
		return m.startSummarize()
	default:
		return nil
	}
}

// switchScreen is the only mode transition point. Transitions are
// unconditional; in-flight operations keep running and their results are
// still applied when they land.
func (m *model) switchScreen(target screen) tea.Cmd {
	if target == m.screen {
		return nil
	}
	if m.screen == screenHistory {
		// History reloads on the next visit.
		m.historyLoaded = false
		m.confirmDelete = ""
	}
	m.screen = target
	m.chatInput.Blur()
	m.summaryInput.Blur()
	switch target {
	case screenChat:
		return m.chatInput.Focus()
	case screenSummarize:
		return m.summaryInput.Focus()
	case screenHistory:
		if !m.historyLoaded && !m.historyPending {
			return m.startHistoryLoad()
		}
	}
	return nil
}

func (m *model) startSend() tea.Cmd {
	text := strings.TrimSpace(m.chatInput.Value())
	if !validSendText(text) || m.sendPending {
		return nil
	}
	m.conv.appendUser(text)
	m.chatInput.Reset()
	m.sendPending = true
	m.status = ""
	m.refreshChatViewport()

	sessionID := m.conv.id
	established := m.conv.established()
	client := m.client
	return tea.Batch(func() tea.Msg {
		resp, err := client.sendMessage(context.Background(), text, sessionID)
		if err != nil {
			return sendResultMsg{wasEstablished: established, err: err}
		}
		return sendResultMsg{response: resp.Response, sessionID: resp.SessionID, wasEstablished: established}
	}, spinnerTickCmd())
}

// applySendResult finishes a send. The pending flag clears on every path;
// failure appends the fixed error notice and never rolls back the optimistic
// user message.
func (m *model) applySendResult(msg sendResultMsg) {
	m.sendPending = false
	if msg.err != nil {
		m.conv.appendAssistant(sendFailureNotice)
		m.status = "Send failed: " + msg.err.Error()
		m.refreshChatViewport()
		return
	}
	if !m.conv.adoptID(msg.sessionID) {
		logger.Warn().
			Str("current", m.conv.id).
			Str("returned", msg.sessionID).
			Bool("establishedAtSend", msg.wasEstablished).
			Msg("server returned a different session id; keeping the established one")
	}
	m.conv.appendAssistant(msg.response)
	m.refreshChatViewport()

	if m.archive != nil && m.conv.established() {
		tail := m.conv.messages[max(0, len(m.conv.messages)-2):]
		if err := archiveExchange(m.archive, m.conv.id, tail); err != nil {
			logger.Warn().Err(err).Msg("archive exchange failed")
		}
	}
}

func (m *model) startSummarize() tea.Cmd {
	text := m.summaryInput.Value()
	if !validSendText(text) || m.summarizePending {
		return nil
	}
	m.summarizePending = true
	m.status = "Summarizing..."
	client := m.client
	return tea.Batch(func() tea.Msg {
		summary, err := client.summarize(context.Background(), text)
		return summarizeResultMsg{summary: summary, err: err}
	}, spinnerTickCmd())
}

func (m *model) startHistoryLoad() tea.Cmd {
	m.historyPending = true
	m.status = "Loading history..."
	client := m.client
	archive := m.archive
	return tea.Batch(func() tea.Msg {
		flat, err := client.listRecent(context.Background())
		if err == nil {
			return historyResultMsg{flat: flat}
		}
		if archive != nil {
			cached, cacheErr := loadArchivedHistory(archive)
			if cacheErr == nil {
				logger.Warn().Err(err).Msg("history fetch failed; falling back to local archive")
				return historyResultMsg{flat: cached, fromArchive: true}
			}
			logger.Warn().Err(cacheErr).Msg("archive fallback failed")
		}
		return historyResultMsg{err: err}
	}, spinnerTickCmd())
}

// startClear resets the active conversation immediately. The server-side
// delete for an established session is best effort and never blocks or
// surfaces.
func (m *model) startClear() tea.Cmd {
	sessionID := m.conv.id
	m.conv.clear()
	m.refreshChatViewport()
	m.status = "Session cleared"
	if sessionID == "" || m.client == nil {
		return nil
	}
	client := m.client
	return func() tea.Msg {
		err := client.deleteSession(context.Background(), sessionID)
		return sessionDiscardMsg{sessionID: sessionID, err: err}
	}
}

func (m *model) startDelete(sessionID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		err := client.deleteSession(context.Background(), sessionID)
		return deleteResultMsg{sessionID: sessionID, err: err}
	}
}

func (m *model) currentGroup() (historyGroup, bool) {
	if m.historyCursor < 0 || m.historyCursor >= len(m.groups) {
		return historyGroup{}, false
	}
	return m.groups[m.historyCursor], true
}

func (m *model) anyPending() bool {
	return m.sendPending || m.summarizePending || m.historyPending
}

func spinnerTickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}
