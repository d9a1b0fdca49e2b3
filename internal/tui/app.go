// Package tui is the terminal front end. It talks to the server over gRPC
// through a Backend and keeps only transient view state.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bcrosbie/noose/internal/client"
	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/export"
	"github.com/bcrosbie/noose/internal/ranking"
	"github.com/bcrosbie/noose/internal/service"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"
)

// Backend is the subset of the gRPC client the UI needs.
type Backend interface {
	ListAgents(ctx context.Context) ([]domain.Agent, error)
	AgentDetail(ctx context.Context, id string) (service.AgentDetail, error)
	CreateAgent(ctx context.Context, request service.CreateAgentRequest) (domain.Agent, error)
	ListAccidents(ctx context.Context, request service.ListAccidentsRequest) ([]domain.Accident, error)
	CreateAccident(ctx context.Context, request service.CreateAccidentRequest) (domain.Accident, error)
	Leaderboard(ctx context.Context, limit int) (ranking.Leaderboard, error)
	Dashboard(ctx context.Context) (service.Dashboard, error)
	ExportSnapshot(ctx context.Context) (export.Snapshot, error)
}

type screen int

const (
	screenJournal screen = iota
	screenAgents
	screenPalmares
	screenAgentDetail
	screenCompose
	screenRecruit
)

var screenNames = map[screen]string{
	screenJournal:  "journal",
	screenAgents:   "agents",
	screenPalmares: "palmares",
}

const (
	journalLimit  = 200
	composeFields = 5
	focusAgent    = 4
)

// dataLoadedMsg carries one refresh. Each section has its own error so a
// failed read only leaves that section stale.
type dataLoadedMsg struct {
	dashboard    service.Dashboard
	dashboardErr error
	agents       []domain.Agent
	agentsErr    error
	accidents    []domain.Accident
	accidentsErr error
	board        ranking.Leaderboard
	boardErr     error
}

func (d dataLoadedMsg) failures() []string {
	var failed []string
	for _, section := range []struct {
		name string
		err  error
	}{
		{"dashboard", d.dashboardErr},
		{"agents", d.agentsErr},
		{"journal", d.accidentsErr},
		{"palmares", d.boardErr},
	} {
		if section.err != nil {
			failed = append(failed, section.name+": "+client.Message(section.err))
		}
	}
	if d.dashboardErr == nil {
		for _, name := range d.dashboard.Degraded {
			failed = append(failed, "dashboard "+name)
		}
	}
	return failed
}

type detailLoadedMsg struct {
	detail service.AgentDetail
	err    error
}

type accidentCreatedMsg struct {
	accident domain.Accident
	err      error
}

type agentCreatedMsg struct {
	agent domain.Agent
	err   error
}

type exportedMsg struct {
	path string
	err  error
}

// Options configure Run.
type Options struct {
	Backend        Backend
	RequestTimeout time.Duration
	Reporter       string
	StatePath      string
	ExportDir      string
	// Debug shows failed reads on the status line. Otherwise they are silent.
	Debug bool
}

type model struct {
	backend   Backend
	timeout   time.Duration
	statePath string
	exportDir string
	uiState   UIState
	debug     bool

	screen    screen
	previous  screen
	width     int
	height    int
	status    string
	statusErr bool
	loading   bool

	dashboard service.Dashboard
	agents    []domain.Agent
	accidents []domain.Accident
	board     ranking.Leaderboard
	detail    service.AgentDetail
	cursor    int

	dateInput     textinput.Model
	descInput     textinput.Model
	costInput     textinput.Model
	reporterInput textinput.Model
	agentChoice   int
	composeFocus  int

	nameInput textinput.Model
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	quoteStyle   = lipgloss.NewStyle().Italic(true)

	tierStyles = map[ranking.Tier]lipgloss.Style{
		ranking.TierGold:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
		ranking.TierSilver:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250")),
		ranking.TierBronze:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("173")),
		ranking.TierDefault: mutedStyle,
	}
	bandStyles = map[ranking.CostBand]lipgloss.Style{
		ranking.CostFree:   okStyle,
		ranking.CostLow:    lipgloss.NewStyle(),
		ranking.CostMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		ranking.CostSevere: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
)

func Run(opts Options) error {
	m, err := newModel(opts)
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func newModel(opts Options) (model, error) {
	state := UIState{Version: 1}
	if opts.StatePath != "" {
		loaded, err := LoadUIState(opts.StatePath)
		if err != nil {
			return model{}, err
		}
		state = loaded
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}

	dateInput := textinput.New()
	dateInput.Prompt = "Date: "
	dateInput.Placeholder = "YYYY-MM-DD (empty = today)"
	dateInput.CharLimit = len(domain.DateLayout)

	descInput := textinput.New()
	descInput.Prompt = "Description: "
	descInput.Placeholder = "what happened"

	costInput := textinput.New()
	costInput.Prompt = "Cost: "
	costInput.Placeholder = "0.00"

	reporterInput := textinput.New()
	reporterInput.Prompt = "Reported by: "
	reporterInput.SetValue(firstNonEmpty(state.Reporter, opts.Reporter))

	nameInput := textinput.New()
	nameInput.Prompt = "Agent name: "

	m := model{
		backend:       opts.Backend,
		timeout:       timeout,
		statePath:     opts.StatePath,
		exportDir:     exportDir,
		uiState:       state,
		debug:         opts.Debug,
		screen:        screenFromName(state.LastView),
		dateInput:     dateInput,
		descInput:     descInput,
		costInput:     costInput,
		reporterInput: reporterInput,
		nameInput:     nameInput,
		status:        "1 journal | 2 agents | 3 palmares | n declare | r refresh | x export | q quit",
	}
	m.applyComposeFocus()
	return m, nil
}

func (m model) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil
	case tea.KeyMsg:
		if typed.String() == "ctrl+c" {
			m.persistState()
			return m, tea.Quit
		}
	case dataLoadedMsg:
		m.loading = false
		if typed.dashboardErr == nil {
			m.dashboard = typed.dashboard
		}
		if typed.agentsErr == nil {
			m.agents = typed.agents
			m.cursor = min(m.cursor, max(0, len(m.agents)-1))
			if m.agentChoice > len(m.agents) {
				m.agentChoice = 0
			}
		}
		if typed.accidentsErr == nil {
			m.accidents = typed.accidents
		}
		if typed.boardErr == nil {
			m.board = typed.board
		}
		if failed := typed.failures(); len(failed) > 0 {
			m.debugStatus("refresh incomplete: " + strings.Join(failed, "; "))
		}
		return m, nil
	case detailLoadedMsg:
		if typed.err != nil {
			m.debugStatus("agent lookup failed: " + client.Message(typed.err))
			return m, nil
		}
		m.detail = typed.detail
		m.screen = screenAgentDetail
		return m, nil
	case accidentCreatedMsg:
		if typed.err != nil {
			m.setError("declaration refused: " + client.Message(typed.err))
			return m, nil
		}
		m.setOK(fmt.Sprintf("accident recorded (%s)", typed.accident.Cost.StringFixed(2)))
		m.resetCompose()
		m.screen = screenJournal
		return m, m.refreshCmd()
	case agentCreatedMsg:
		if typed.err != nil {
			m.setError("recruitment failed: " + client.Message(typed.err))
			return m, nil
		}
		m.setOK(fmt.Sprintf("agent #%d %s recruited", typed.agent.AgentNumber, typed.agent.Name))
		m.nameInput.SetValue("")
		m.nameInput.Blur()
		m.screen = screenAgents
		return m, m.refreshCmd()
	case exportedMsg:
		if typed.err != nil {
			m.setError("export failed: " + client.Message(typed.err))
		} else {
			m.setOK("exported to " + typed.path)
		}
		return m, nil
	}

	switch m.screen {
	case screenCompose:
		return m.updateCompose(msg)
	case screenRecruit:
		return m.updateRecruit(msg)
	case screenAgentDetail:
		return m.updateDetail(msg)
	default:
		return m.updateBrowse(msg)
	}
}

func (m model) updateBrowse(msg tea.Msg) (model, tea.Cmd) {
	typed, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch typed.String() {
	case "q":
		m.persistState()
		return m, tea.Quit
	case "1":
		m.screen = screenJournal
	case "2":
		m.screen = screenAgents
	case "3":
		m.screen = screenPalmares
	case "tab":
		m.screen = (m.screen + 1) % 3
	case "shift+tab":
		m.screen = (m.screen + 2) % 3
	case "r":
		m.loading = true
		return m, m.refreshCmd()
	case "x":
		return m, m.exportCmd()
	case "n":
		m.previous = m.screen
		m.screen = screenCompose
		m.composeFocus = 0
		m.applyComposeFocus()
		return m, textinput.Blink
	case "a":
		if m.screen == screenAgents {
			m.screen = screenRecruit
			m.nameInput.Focus()
			return m, textinput.Blink
		}
	case "j", "down":
		if m.screen == screenAgents && m.cursor < len(m.agents)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.screen == screenAgents && m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if m.screen == screenAgents && len(m.agents) > 0 {
			return m, m.detailCmd(m.agents[m.cursor].ID)
		}
	}
	return m, nil
}

func (m model) updateDetail(msg tea.Msg) (model, tea.Cmd) {
	if typed, ok := msg.(tea.KeyMsg); ok {
		switch typed.String() {
		case "esc", "q":
			m.screen = screenAgents
		case "n":
			m.previous = screenAgentDetail
			m.agentChoice = m.agentIndex(m.detail.Agent.ID) + 1
			m.screen = screenCompose
			m.composeFocus = 0
			m.applyComposeFocus()
			return m, textinput.Blink
		}
	}
	return m, nil
}

func (m model) updateCompose(msg tea.Msg) (model, tea.Cmd) {
	if typed, ok := msg.(tea.KeyMsg); ok {
		switch typed.String() {
		case "esc":
			m.screen = m.previous
			return m, nil
		case "tab", "down":
			m.composeFocus = (m.composeFocus + 1) % composeFields
			m.applyComposeFocus()
			return m, nil
		case "shift+tab", "up":
			m.composeFocus = (m.composeFocus + composeFields - 1) % composeFields
			m.applyComposeFocus()
			return m, nil
		case "left", "[":
			if m.composeFocus == focusAgent {
				m.agentChoice = (m.agentChoice + len(m.agents)) % (len(m.agents) + 1)
				return m, nil
			}
		case "right", "]":
			if m.composeFocus == focusAgent {
				m.agentChoice = (m.agentChoice + 1) % (len(m.agents) + 1)
				return m, nil
			}
		case "enter":
			request, err := m.accidentRequest()
			if err != nil {
				m.setError(err.Error())
				return m, nil
			}
			m.uiState.Reporter = request.AddedBy
			m.uiState.LastAgentID = request.AgentID
			m.persistState()
			return m, m.createAccidentCmd(request)
		}
	}

	var cmd tea.Cmd
	switch m.composeFocus {
	case 0:
		m.dateInput, cmd = m.dateInput.Update(msg)
	case 1:
		m.descInput, cmd = m.descInput.Update(msg)
	case 2:
		m.costInput, cmd = m.costInput.Update(msg)
	case 3:
		m.reporterInput, cmd = m.reporterInput.Update(msg)
	}
	return m, cmd
}

func (m model) updateRecruit(msg tea.Msg) (model, tea.Cmd) {
	if typed, ok := msg.(tea.KeyMsg); ok {
		switch typed.String() {
		case "esc":
			m.nameInput.Blur()
			m.screen = screenAgents
			return m, nil
		case "enter":
			name := strings.TrimSpace(m.nameInput.Value())
			if name == "" {
				m.setError("name is required")
				return m, nil
			}
			return m, m.createAgentCmd(service.CreateAgentRequest{Name: name})
		}
	}
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

// accidentRequest builds the declaration from the form. Cost goes through the
// same lenient parsing the server applies.
func (m model) accidentRequest() (service.CreateAccidentRequest, error) {
	request := service.CreateAccidentRequest{
		Date:        strings.TrimSpace(m.dateInput.Value()),
		Description: strings.TrimSpace(m.descInput.Value()),
		Cost:        domain.ParseAmount(m.costInput.Value()),
		AddedBy:     strings.TrimSpace(m.reporterInput.Value()),
	}
	if request.Description == "" {
		return request, fmt.Errorf("description is required")
	}
	if request.AddedBy == "" {
		return request, fmt.Errorf("reported by is required")
	}
	if request.Date != "" {
		if _, err := time.Parse(domain.DateLayout, request.Date); err != nil {
			return request, fmt.Errorf("date must be formatted YYYY-MM-DD")
		}
	}
	if m.agentChoice > 0 && m.agentChoice <= len(m.agents) {
		request.AgentID = m.agents[m.agentChoice-1].ID
	}
	return request, nil
}

func (m model) View() string {
	var body string
	switch m.screen {
	case screenJournal:
		body = m.viewJournal()
	case screenAgents:
		body = m.viewAgents()
	case screenPalmares:
		body = m.viewPalmares()
	case screenAgentDetail:
		body = m.viewDetail()
	case screenCompose:
		body = m.viewCompose()
	case screenRecruit:
		body = m.viewRecruit()
	}
	status := mutedStyle.Render(m.status)
	if m.statusErr {
		status = errStyle.Render(m.status)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("NOOSE"),
		m.viewHeader(),
		"",
		body,
		"",
		status,
	)
}

func (m model) viewHeader() string {
	lines := []string{}
	if profile := m.dashboard.Profile; profile != nil {
		p := profile.Profile
		name := p.Name + " " + p.Surname
		if p.Nickname != "" {
			name += " \"" + p.Nickname + "\""
		}
		lines = append(lines,
			fmt.Sprintf("%s | %d accidents | %s", name, p.TotalAccidents, p.TotalCost.StringFixed(2)),
			mutedStyle.Render(profile.Tagline),
		)
	}
	if quote := m.dashboard.Quote; quote != nil {
		line := "« " + quote.Content + " »"
		if quote.Author != "" {
			line += " " + quote.Author
		}
		lines = append(lines, quoteStyle.Render(line))
	}
	if popup := m.dashboard.Popup; popup != nil {
		lines = append(lines, sectionStyle.Render("! "+popup.Title))
	}
	if m.loading {
		lines = append(lines, mutedStyle.Render("loading..."))
	}
	return strings.Join(lines, "\n")
}

func (m model) viewJournal() string {
	lines := []string{sectionStyle.Render("Journal")}
	if len(m.accidents) == 0 {
		lines = append(lines, mutedStyle.Render("no accident recorded"))
	}
	names := agentNames(m.agents)
	limit := len(m.accidents)
	if m.height > 12 {
		limit = min(limit, m.height-12)
	}
	for _, accident := range m.accidents[:limit] {
		agent := "-"
		if !accident.Unassigned() {
			agent = firstNonEmpty(names[accident.AgentID], "?")
		}
		lines = append(lines, fmt.Sprintf("%s  %s  %-14s %s (by %s)",
			accident.Date,
			renderCost(accident.Cost),
			agent,
			accident.Description,
			accident.AddedBy,
		))
	}
	return strings.Join(lines, "\n")
}

func (m model) viewAgents() string {
	lines := []string{sectionStyle.Render("Agents")}
	if len(m.agents) == 0 {
		lines = append(lines, mutedStyle.Render("no agent yet, press a to recruit"))
	}
	for i, agent := range m.agents {
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}
		lines = append(lines, fmt.Sprintf("%s #%-3d %-20s %3d accidents  %s",
			cursor, agent.AgentNumber, agent.Name, agent.TotalAccidents, renderCost(agent.TotalCost)))
	}
	lines = append(lines, "", mutedStyle.Render("j/k: move | enter: detail | a: recruit"))
	return strings.Join(lines, "\n")
}

func (m model) viewPalmares() string {
	summary := m.board.Summary
	lines := []string{
		sectionStyle.Render("Palmares"),
		fmt.Sprintf("%d agents | %d accidents | %s total | %.2f per agent",
			summary.AgentCount, summary.TotalAccidents, summary.TotalCost.StringFixed(2), summary.AverageAccidentsPerAgent),
		"",
	}
	boards := []struct {
		title     string
		standings []ranking.Standing
	}{
		{"Most accidents", m.board.ByAccident},
		{"Most expensive", m.board.ByCost},
		{"Combined", m.board.ByCombined},
	}
	for _, board := range boards {
		lines = append(lines, sectionStyle.Render(board.title))
		if len(board.standings) == 0 {
			lines = append(lines, mutedStyle.Render("  -"))
		}
		for _, standing := range board.standings {
			lines = append(lines, fmt.Sprintf("  %s %-20s %s",
				tierStyles[standing.Tier].Render(fmt.Sprintf("%d.", standing.Rank)),
				standing.Agent.Name,
				standing.Score.String(),
			))
		}
	}
	return strings.Join(lines, "\n")
}

func (m model) viewDetail() string {
	agent := m.detail.Agent
	lines := []string{
		sectionStyle.Render(fmt.Sprintf("Agent #%d %s", agent.AgentNumber, agent.Name)),
		fmt.Sprintf("%d accidents | %s total | combined %s",
			agent.TotalAccidents, agent.TotalCost.StringFixed(2), m.detail.CombinedScore.String()),
		"",
	}
	for _, accident := range m.detail.Accidents {
		lines = append(lines, fmt.Sprintf("%s  %s  %s", accident.Date, renderCost(accident.Cost), accident.Description))
	}
	lines = append(lines, "", mutedStyle.Render("n: declare for this agent | esc: back"))
	return strings.Join(lines, "\n")
}

func (m model) viewCompose() string {
	agent := "unassigned"
	if m.agentChoice > 0 && m.agentChoice <= len(m.agents) {
		chosen := m.agents[m.agentChoice-1]
		agent = fmt.Sprintf("#%d %s", chosen.AgentNumber, chosen.Name)
	}
	lines := []string{
		sectionStyle.Render("Declare an accident"),
		focusPrefix(m.composeFocus == 0) + m.dateInput.View(),
		focusPrefix(m.composeFocus == 1) + m.descInput.View(),
		focusPrefix(m.composeFocus == 2) + m.costInput.View(),
		focusPrefix(m.composeFocus == 3) + m.reporterInput.View(),
		focusPrefix(m.composeFocus == focusAgent) + "Agent: [ " + agent + " ]",
		"",
		mutedStyle.Render("tab: next field | [ ]: pick agent | enter: submit | esc: cancel"),
	}
	return strings.Join(lines, "\n")
}

func (m model) viewRecruit() string {
	return strings.Join([]string{
		sectionStyle.Render("Recruit an agent"),
		m.nameInput.View(),
		"",
		mutedStyle.Render("enter: recruit | esc: cancel"),
	}, "\n")
}

func (m model) refreshCmd() tea.Cmd {
	backend, timeout := m.backend, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var out dataLoadedMsg
		var g errgroup.Group
		g.Go(func() error {
			out.dashboard, out.dashboardErr = backend.Dashboard(ctx)
			return nil
		})
		g.Go(func() error {
			out.agents, out.agentsErr = backend.ListAgents(ctx)
			return nil
		})
		g.Go(func() error {
			out.accidents, out.accidentsErr = backend.ListAccidents(ctx, service.ListAccidentsRequest{Limit: journalLimit})
			return nil
		})
		g.Go(func() error {
			out.board, out.boardErr = backend.Leaderboard(ctx, 0)
			return nil
		})
		_ = g.Wait()
		return out
	}
}

func (m model) detailCmd(id string) tea.Cmd {
	backend, timeout := m.backend, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		detail, err := backend.AgentDetail(ctx, id)
		return detailLoadedMsg{detail: detail, err: err}
	}
}

func (m model) createAccidentCmd(request service.CreateAccidentRequest) tea.Cmd {
	backend, timeout := m.backend, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		accident, err := backend.CreateAccident(ctx, request)
		return accidentCreatedMsg{accident: accident, err: err}
	}
}

func (m model) createAgentCmd(request service.CreateAgentRequest) tea.Cmd {
	backend, timeout := m.backend, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		agent, err := backend.CreateAgent(ctx, request)
		return agentCreatedMsg{agent: agent, err: err}
	}
}

func (m model) exportCmd() tea.Cmd {
	backend, timeout, dir := m.backend, m.timeout, m.exportDir
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snapshot, err := backend.ExportSnapshot(ctx)
		if err != nil {
			return exportedMsg{err: err}
		}
		path := filepath.Join(dir, "noose-"+snapshot.GeneratedAt.Format("20060102-150405")+".xlsx")
		file, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: err}
		}
		if err := export.WriteWorkbook(file, snapshot); err != nil {
			_ = file.Close()
			return exportedMsg{err: err}
		}
		return exportedMsg{path: path, err: file.Close()}
	}
}

func (m *model) applyComposeFocus() {
	inputs := []*textinput.Model{&m.dateInput, &m.descInput, &m.costInput, &m.reporterInput}
	for i, input := range inputs {
		if i == m.composeFocus {
			input.Focus()
		} else {
			input.Blur()
		}
	}
}

func (m *model) resetCompose() {
	m.dateInput.SetValue("")
	m.descInput.SetValue("")
	m.costInput.SetValue("")
	m.composeFocus = 0
	m.applyComposeFocus()
}

func (m *model) setOK(message string) {
	m.status = message
	m.statusErr = false
}

func (m *model) setError(message string) {
	m.status = message
	m.statusErr = true
}

// debugStatus reports a failed read. Reads fail silently unless debugging.
func (m *model) debugStatus(message string) {
	if m.debug {
		m.setOK(message)
	}
}

func (m *model) persistState() {
	if name, ok := screenNames[m.screen]; ok {
		m.uiState.LastView = name
	}
	if m.statePath == "" {
		return
	}
	_ = SaveUIState(m.statePath, m.uiState)
}

func (m model) agentIndex(id string) int {
	for i, agent := range m.agents {
		if agent.ID == id {
			return i
		}
	}
	return -1
}

func screenFromName(name string) screen {
	for s, candidate := range screenNames {
		if candidate == name {
			return s
		}
	}
	return screenJournal
}

func agentNames(agents []domain.Agent) map[string]string {
	out := make(map[string]string, len(agents))
	for _, agent := range agents {
		out[agent.ID] = agent.Name
	}
	return out
}

func renderCost(cost domain.Amount) string {
	return bandStyles[ranking.BandFor(cost)].Render(fmt.Sprintf("%10s", cost.StringFixed(2)))
}

func focusPrefix(active bool) string {
	if active {
		return "> "
	}
	return "  "
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
