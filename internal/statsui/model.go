// Package statsui provides the Bubble Tea practice history browser.
package statsui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/keydrill/internal/logging"
	"github.com/verte-zerg/keydrill/internal/model"
	"github.com/verte-zerg/keydrill/internal/profile"
	"github.com/verte-zerg/keydrill/internal/stats"
)

const (
	tabOverview = iota
	tabKeys
	tabPairs
	tabKeyCurves
)

const (
	filterProfile = iota
	filterSince
	filterLast
	filterWindow
)

const (
	plotHeight  = 10
	loadTimeout = 5 * time.Second
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Model implements the Bubble Tea history browser.
type Model struct {
	src stats.Source
	cfg model.StatsConfig
	log *zap.Logger

	report  stats.Report
	errMsg  string
	keysErr string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	keyTable  table.Model
	pairTable table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string

	keySelection []string
	keysCustom   bool
	perSession   map[string]map[string]model.KeyAggregate

	keyInputMode bool
	keyInput     textinput.Model
}

// NewModel constructs a history browser reading from src.
func NewModel(src stats.Source, cfg model.StatsConfig, log *zap.Logger) *Model {
	m := &Model{
		src:  src,
		cfg:  cfg,
		log:  logging.OrNop(log),
		tabs: []string{"Overview", "Keys", "Pairs", "Key Curves"},
	}
	m.keySelection = stats.ParseKeys(cfg.Chars)
	m.keysCustom = len(m.keySelection) > 0
	m.initInputs()
	m.initTables()
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if m.keyInputMode {
			return m.updateKeyInput(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m.moveTab(-1)
		return m, tea.ClearScreen
	case "right", "l":
		m.moveTab(1)
		return m, tea.ClearScreen
	case "=":
		m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
		m.refreshReport()
		return m, nil
	case "-":
		m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
		m.refreshReport()
		return m, nil
	case "/":
		m.filterMode = true
		m.filterError = ""
		m.setInputsFromConfig()
		return m, m.setFilterIndex(0)
	case "enter":
		if m.activeTab != tabKeyCurves {
			return m, nil
		}
		m.keyInputMode = true
		m.keyInput.SetValue(joinKeys(m.keySelection))
		return m, m.keyInput.Focus()
	}

	var cmd tea.Cmd
	switch m.activeTab {
	case tabKeys:
		m.keyTable, cmd = m.keyTable.Update(msg)
	case tabPairs:
		m.pairTable, cmd = m.pairTable.Update(msg)
	default:
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
	}
	return m, cmd
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		cfg, err := m.parseFilter()
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.cfg = cfg
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) updateKeyInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.keyInputMode = false
		return m, nil
	case tea.KeyEnter:
		m.keyInputMode = false
		m.keySelection = stats.ParseKeys(m.keyInput.Value())
		m.keysCustom = len(m.keySelection) > 0
		if !m.keysCustom {
			m.keySelection = stats.TopKeysByFrequency(m.report.KeyAggsAll, stats.DefaultCurveKeys)
		}
		m.loadPerSession()
		m.renderTabContents()
		return m, nil
	}
	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.keyInputMode {
		return fitLines(m.renderKeyModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newInput("Profile: "),
		newInput("Since (YYYY-MM-DD): "),
		newInput("Last: "),
		newInput("Curve window: "),
	}
	m.filterInputs[filterProfile].Placeholder = strings.Join(profile.Names(), ", ")
	m.keyInput = newInput("Keys: ")
	m.keyInput.Placeholder = "a,s,d,space"
	m.setInputsFromConfig()
}

func newInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	m.filterInputs[filterProfile].SetValue(m.cfg.Profile)
	if m.cfg.Since != nil {
		m.filterInputs[filterSince].SetValue(m.cfg.Since.Format("2006-01-02"))
	} else {
		m.filterInputs[filterSince].SetValue("")
	}
	if m.cfg.Last > 0 {
		m.filterInputs[filterLast].SetValue(strconv.Itoa(m.cfg.Last))
	} else {
		m.filterInputs[filterLast].SetValue("")
	}
	m.filterInputs[filterWindow].SetValue(strconv.Itoa(m.cfg.CurveWindow))
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	idx = ((idx % count) + count) % count
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == idx {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) parseFilter() (model.StatsConfig, error) {
	cfg := model.StatsConfig{Chars: m.cfg.Chars}

	if name := strings.TrimSpace(m.filterInputs[filterProfile].Value()); name != "" {
		p, err := profile.Lookup(name)
		if err != nil {
			return cfg, err
		}
		cfg.Profile = p.Name
	}

	if raw := strings.TrimSpace(m.filterInputs[filterSince].Value()); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		cfg.Since = &parsed
	}

	if raw := strings.TrimSpace(m.filterInputs[filterLast].Value()); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return cfg, fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		cfg.Last = parsed
	}

	cfg.CurveWindow = 1
	if raw := strings.TrimSpace(m.filterInputs[filterWindow].Value()); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return cfg, fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		cfg.CurveWindow = parsed
	}
	return cfg, nil
}

func (m *Model) refreshReport() {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	report, err := stats.BuildReport(ctx, m.src, m.cfg)
	if err != nil {
		m.log.Warn("failed to build report", zap.Error(err))
		m.errMsg = err.Error()
		m.renderTabContents()
		return
	}
	m.errMsg = ""
	m.report = report
	if !m.keysCustom {
		m.keySelection = report.CurveKeys
	}
	m.loadPerSession()
	m.keyTable.SetRows(keyRows(report.KeyAggsWindow))
	m.pairTable.SetRows(pairRows(report.PairAggsWindow))
	m.updateLayout()
	m.renderTabContents()
}

func (m *Model) loadPerSession() {
	m.keysErr = ""
	m.perSession = nil
	if len(m.report.Sessions) == 0 || len(m.keySelection) == 0 {
		return
	}
	if sameKeys(m.keySelection, m.report.CurveKeys) {
		m.perSession = m.report.PerSessionKeys
		return
	}
	ids := make([]string, len(m.report.Sessions))
	for i, s := range m.report.Sessions {
		ids[i] = s.SessionID
	}
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	perSession, err := m.src.ListKeyStatsForSessions(ctx, ids, m.keySelection)
	if err != nil {
		m.log.Warn("failed to load key curves", zap.Error(err))
		m.keysErr = err.Error()
		return
	}
	m.perSession = perSession
}

func (m *Model) renderTabContents() {
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report.Sessions, m.cfg.CurveWindow, width))
	m.viewports[tabKeyCurves].SetContent(renderKeyCurves(m.report.Sessions, m.keySelection, m.perSession, m.cfg.CurveWindow, width, m.keysErr))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(activeNavStyle.Render("X")) + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	// Header row and its border take two lines.
	tableHeight := max(1, bodyHeight-2)
	m.keyTable.SetWidth(m.width)
	m.keyTable.SetHeight(tableHeight)
	m.pairTable.SetWidth(m.width)
	m.pairTable.SetHeight(tableHeight)
	for i := range m.filterInputs {
		m.filterInputs[i].Width = max(10, m.width-lipgloss.Width(m.filterInputs[i].Prompt)-2)
	}
	m.keyInput.Width = max(10, modalInnerWidth(m.width)-lipgloss.Width(m.keyInput.Prompt))
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = ((m.activeTab+delta)%count + count) % count
	m.keyTable.Blur()
	m.pairTable.Blur()
	switch m.activeTab {
	case tabKeys:
		m.keyTable.Focus()
	case tabPairs:
		m.pairTable.Focus()
	}
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	return tabs + "\n" + headerStyle.Render(truncateLine(m.filterSummary(), m.width))
}

func (m *Model) filterSummary() string {
	name := m.cfg.Profile
	if name == "" {
		name = "any"
	}
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	return fmt.Sprintf("Settings: profile=%s  since=%s  last=%s  window=%d", name, since, last, m.cfg.CurveWindow)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q"
	if m.activeTab == tabKeyCurves {
		help = "Nav: left/right  Edit keys: enter  Window: -/=  Settings: /  Quit: q"
	}
	help = headerStyle.Render(help)
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody() string {
	if m.filterMode {
		lines := []string{"Settings (enter to apply, esc to cancel)"}
		for _, input := range m.filterInputs {
			lines = append(lines, input.View())
		}
		if m.filterError != "" {
			lines = append(lines, errorStyle.Render(m.filterError))
		}
		return strings.Join(lines, "\n")
	}
	switch m.activeTab {
	case tabKeys:
		if len(m.report.KeyAggsWindow) == 0 {
			return "No key stats found."
		}
		return tableMutedStyle.Render(m.keyTable.View())
	case tabPairs:
		if len(m.pairTable.Rows()) == 0 {
			return "No pair stats found."
		}
		return tableMutedStyle.Render(m.pairTable.View())
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderKeyModal() string {
	body := []string{
		cardValueStyle.Render("Select Keys"),
		m.keyInput.View(),
		headerStyle.Render("Comma separated. Use \"space\" for the space bar."),
		headerStyle.Render("Enter to apply / Esc to cancel"),
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
