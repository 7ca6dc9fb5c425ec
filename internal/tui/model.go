// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/keydrill/internal/logging"
	"github.com/verte-zerg/keydrill/internal/model"
	"github.com/verte-zerg/keydrill/internal/proficiency"
	"github.com/verte-zerg/keydrill/internal/profile"
	"github.com/verte-zerg/keydrill/internal/session"
	statsPkg "github.com/verte-zerg/keydrill/internal/stats"
)

// SummaryDelay is the pause between the final keystroke and the summary.
const SummaryDelay = 500 * time.Millisecond

const (
	eventBuffer = 64
	// forwardTimeout bounds how long a lifecycle event waits for buffer space.
	forwardTimeout = time.Second
	// weakWindow is how many recent sessions feed the footer's weak keys.
	weakWindow = 10
	weakShown  = 3
)

// History persists completed lines and reports earlier ones.
type History interface {
	InsertSession(ctx context.Context, stats model.SessionStats, keys []model.KeyStats, pairs []model.PairStats) (string, error)
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
	GetWeakKeys(ctx context.Context, window int, profile string) ([]model.KeyAggregate, error)
}

type eventMsg session.Event

type summaryMsg struct {
	sessionID string
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	engine  *session.Engine
	events  chan session.Event
	history History
	log     *zap.Logger
	help    help.Model

	width  int
	height int

	showSummary bool
	notice      string

	lastWPM float64
	lastAcc float64
	hasLast bool

	allWPM       float64
	allAcc       float64
	allCorrect   int
	allIncorrect int
	allDuration  int64

	weakKeys []string
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	panelStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#6E6E6E")).Padding(0, 2)
)

// NewModel constructs the practice UI for p. history may be nil.
func NewModel(p profile.Profile, history History, log *zap.Logger, opts ...session.Option) *Model {
	m := &Model{
		events:  make(chan session.Event, eventBuffer),
		history: history,
		log:     logging.OrNop(log),
		help:    help.New(),
	}
	opts = append(opts, session.WithLogger(m.log), session.WithNotify(m.forward))
	m.engine = session.New(p, opts...)
	m.loadFooterStats()
	return m
}

// Engine returns the session engine driven by the UI.
func (m *Model) Engine() *session.Engine {
	return m.engine
}

// Close stops the engine.
func (m *Model) Close() {
	m.engine.Close()
}

// forward runs on engine goroutines. Sample events are dropped when the buffer
// is full since every frame reads a fresh snapshot. Other events wait for room.
func (m *Model) forward(ev session.Event) {
	if ev.Kind == session.EventSampled {
		select {
		case m.events <- ev:
		default:
			m.log.Debug("sample dropped")
		}
		return
	}
	select {
	case m.events <- ev:
		return
	default:
	}
	timer := time.NewTimer(forwardTimeout)
	defer timer.Stop()
	select {
	case m.events <- ev:
	case <-timer.C:
		m.log.Warn("event dropped", zap.Int("kind", int(ev.Kind)))
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-m.events)
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case eventMsg:
		return m, tea.Batch(m.handleEvent(session.Event(msg)), m.waitForEvent())
	case summaryMsg:
		snap := m.engine.Snapshot()
		if snap.State == session.StateCompleted && snap.Summary != nil && snap.Summary.SessionID == msg.sessionID {
			m.showSummary = true
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleEvent(ev session.Event) tea.Cmd {
	switch ev.Kind {
	case session.EventStarted:
		m.notice = ""
	case session.EventUnlocked:
		m.notice = fmt.Sprintf("New key unlocked: %s", strings.ToUpper(string(ev.Key)))
	case session.EventProfileSwitched:
		m.notice = fmt.Sprintf("Profile: %s", ev.Profile)
	case session.EventCompleted:
		if ev.Summary == nil {
			return nil
		}
		m.finishSession(ev.Summary)
		id := ev.Summary.SessionID
		return tea.Tick(SummaryDelay, func(time.Time) tea.Msg {
			return summaryMsg{sessionID: id}
		})
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	now := time.Now()
	switch {
	case key.Matches(msg, keys.Quit):
		m.engine.Close()
		return tea.Quit
	case key.Matches(msg, keys.Profile):
		m.showSummary = false
		m.engine.SwitchProfile(profile.Next(m.engine.Profile()))
		m.loadFooterStats()
		return nil
	}

	state := m.engine.State()
	if state == session.StateCompleted {
		switch {
		case key.Matches(msg, keys.Restart):
			m.showSummary = false
			m.engine.Restart()
		case key.Matches(msg, keys.Dismiss):
			m.showSummary = false
			m.engine.Dismiss()
		}
		return nil
	}

	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete:
		m.engine.HandleKey(session.Backspace(now))
	case tea.KeySpace:
		m.engine.HandleKey(session.Char(' ', now))
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.engine.HandleKey(session.Char(r, now))
		}
	}
	return nil
}

// View implements tea.Model.
func (m *Model) View() string {
	snap := m.engine.Snapshot()
	var body string
	switch {
	case m.showSummary && snap.Summary != nil:
		body = renderSummary(snap.Summary)
	case snap.State == session.StateIdle:
		body = pendingStyle.Render("Type any key to start")
	default:
		body = m.renderPractice(snap)
	}

	sections := []string{titleStyle.Render("keydrill · " + snap.Profile), "", body}
	if m.notice != "" {
		sections = append(sections, "", noticeStyle.Render(m.notice))
	}
	sections = append(sections, "", renderKeyboard(snap), "", m.renderFooter(snap), m.help.View(keys))
	content := lipgloss.JoinVertical(lipgloss.Center, sections...)
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderPractice(snap session.Snapshot) string {
	line := []rune(snap.Line)
	cursor := -1
	if snap.Cursor < len(line) {
		cursor = snap.Cursor
	}
	glyphs := renderLine(line, []rune(snap.Input), cursor)
	contentWidth := int(float64(m.width) * 0.70)
	if m.width == 0 {
		contentWidth = 0
	}
	return wrapGlyphs(glyphs, contentWidth)
}

func (m *Model) renderFooter(snap session.Snapshot) string {
	segments := []string{}
	if snap.State == session.StateActive {
		progress := 0
		if n := len([]rune(snap.Line)); n > 0 {
			progress = snap.Cursor * 100 / n
		}
		live := fmt.Sprintf("Progress %d%%  %.1f WPM · %.1f%% · %d errors", progress, snap.WPM, snap.Accuracy, snap.Errors)
		if snap.RealWords {
			live += " · words"
		}
		segments = append(segments, live)
	}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.1f WPM · %.1f%%", m.lastWPM, m.lastAcc*100))
	}
	if m.history != nil {
		segments = append(segments, fmt.Sprintf("All-time %.1f WPM · %.1f%%", m.allWPM, m.allAcc*100))
	}
	if len(m.weakKeys) > 0 {
		segments = append(segments, "Weak "+strings.Join(m.weakKeys, " "))
	}
	if len(segments) == 0 {
		return ""
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) loadFooterStats() {
	m.hasLast = false
	m.allCorrect, m.allIncorrect, m.allDuration = 0, 0, 0
	m.allWPM, m.allAcc = 0, 0
	m.weakKeys = nil
	if m.history == nil {
		return
	}
	m.loadWeakKeys()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sessions, err := m.history.ListSessions(ctx, model.StatsConfig{Profile: m.engine.Profile().Name})
	if err != nil {
		m.log.Warn("failed to load session stats", zap.Error(err))
		return
	}
	if len(sessions) == 0 {
		return
	}
	last := sessions[len(sessions)-1]
	m.lastWPM, _, m.lastAcc = statsPkg.SessionMetrics(last.Correct, last.Incorrect, last.DurationMs)
	m.hasLast = true
	for _, s := range sessions {
		m.allCorrect += s.Correct
		m.allIncorrect += s.Incorrect
		m.allDuration += s.DurationMs
	}
	m.recomputeAllTime()
}

func (m *Model) loadWeakKeys() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	aggs, err := m.history.GetWeakKeys(ctx, weakWindow, m.engine.Profile().Name)
	if err != nil {
		m.log.Warn("failed to load weak keys", zap.Error(err))
		m.weakKeys = nil
		return
	}
	m.weakKeys = weakestKeys(aggs, weakShown)
}

// weakestKeys labels up to n keys with enough attempts, hardest first.
func weakestKeys(aggs []model.KeyAggregate, n int) []string {
	kept := make([]model.KeyAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Attempts >= proficiency.DefaultMinAttempts && statsPkg.KeyDifficulty(agg) >= proficiency.DefaultMinDifficulty {
			kept = append(kept, agg)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		di, dj := statsPkg.KeyDifficulty(kept[i]), statsPkg.KeyDifficulty(kept[j])
		if di == dj {
			return kept[i].Key < kept[j].Key
		}
		return di > dj
	})
	if len(kept) > n {
		kept = kept[:n]
	}
	out := make([]string, len(kept))
	for i, agg := range kept {
		out[i] = statsPkg.KeyLabel(agg.Key)
	}
	return out
}

func (m *Model) recomputeAllTime() {
	m.allWPM, _, m.allAcc = statsPkg.SessionMetrics(m.allCorrect, m.allIncorrect, m.allDuration)
}

func (m *Model) finishSession(sum *session.Summary) {
	stats, keyStats, pairStats := sum.Record()
	m.lastWPM, _, m.lastAcc = statsPkg.SessionMetrics(stats.CorrectChars, stats.Errors, stats.DurationMs)
	m.hasLast = true
	if m.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := m.history.InsertSession(ctx, stats, keyStats, pairStats); err != nil {
		m.log.Error("failed to save session", zap.String("session", stats.ID), zap.Error(err))
		return
	}
	m.allCorrect += stats.CorrectChars
	m.allIncorrect += stats.Errors
	m.allDuration += stats.DurationMs
	m.recomputeAllTime()
	m.loadWeakKeys()
}
