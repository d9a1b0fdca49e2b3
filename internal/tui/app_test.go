package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/export"
	"github.com/bcrosbie/noose/internal/ranking"
	"github.com/bcrosbie/noose/internal/service"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeBackend struct {
	agents        []domain.Agent
	accidents     []domain.Accident
	created       []service.CreateAccidentRequest
	failWrite     error
	failAgents    error
	failDashboard error
}

func (f *fakeBackend) ListAgents(context.Context) ([]domain.Agent, error) {
	if f.failAgents != nil {
		return nil, f.failAgents
	}
	return f.agents, nil
}

func (f *fakeBackend) AgentDetail(_ context.Context, id string) (service.AgentDetail, error) {
	for _, agent := range f.agents {
		if agent.ID == id {
			return service.AgentDetail{Agent: agent}, nil
		}
	}
	return service.AgentDetail{}, domain.NotFound("agent not found")
}

func (f *fakeBackend) CreateAgent(_ context.Context, request service.CreateAgentRequest) (domain.Agent, error) {
	agent := domain.Agent{ID: "a-new", Name: request.Name, AgentNumber: int64(len(f.agents) + 1)}
	f.agents = append(f.agents, agent)
	return agent, nil
}

func (f *fakeBackend) ListAccidents(context.Context, service.ListAccidentsRequest) ([]domain.Accident, error) {
	return f.accidents, nil
}

func (f *fakeBackend) CreateAccident(_ context.Context, request service.CreateAccidentRequest) (domain.Accident, error) {
	if f.failWrite != nil {
		return domain.Accident{}, f.failWrite
	}
	f.created = append(f.created, request)
	return domain.Accident{ID: "x", Description: request.Description, Cost: request.Cost}, nil
}

func (f *fakeBackend) Leaderboard(_ context.Context, limit int) (ranking.Leaderboard, error) {
	return ranking.Build(f.agents, max(limit, ranking.DefaultSize)), nil
}

func (f *fakeBackend) Dashboard(context.Context) (service.Dashboard, error) {
	if f.failDashboard != nil {
		return service.Dashboard{}, f.failDashboard
	}
	return service.Dashboard{
		Profile:   &service.ProfileView{Profile: domain.ColleagueProfile{Name: "Jean", Surname: "Dupont"}, Tagline: "Danger"},
		Accidents: f.accidents,
	}, nil
}

func (f *fakeBackend) ExportSnapshot(context.Context) (export.Snapshot, error) {
	return export.Snapshot{Agents: f.agents, Accidents: f.accidents, Leaderboard: ranking.Build(f.agents, 3)}, nil
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		agents: []domain.Agent{
			{ID: "a1", Name: "Bond", AgentNumber: 1, TotalAccidents: 2, TotalCost: domain.ParseAmount("1500")},
			{ID: "a2", Name: "Powers", AgentNumber: 2, TotalAccidents: 1, TotalCost: domain.ParseAmount("20")},
		},
		accidents: []domain.Accident{
			{ID: "x1", Date: "2024-07-01", Description: "Parachute failure", Cost: domain.ParseAmount("1500"), AddedBy: "M", AgentID: "a1"},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send feeds msg to the model, then keeps running returned commands while they
// produce backend results.
func send(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	updated, cmd := m.Update(msg)
	m = updated.(model)
	for cmd != nil {
		switch result := cmd().(type) {
		case dataLoadedMsg, detailLoadedMsg, accidentCreatedMsg, agentCreatedMsg, exportedMsg:
			updated, cmd = m.Update(result)
			m = updated.(model)
		default:
			return m
		}
	}
	return m
}

func loadedModel(t *testing.T, backend *fakeBackend, statePath string) model {
	t.Helper()
	m, err := newModel(Options{Backend: backend, StatePath: statePath, Reporter: "Q", ExportDir: t.TempDir()})
	require.NoError(t, err)
	updated, _ := m.Update(m.Init()())
	return updated.(model)
}

func TestInitialLoadFillsViews(t *testing.T) {
	m := loadedModel(t, newFakeBackend(), "")

	assert.Len(t, m.agents, 2)
	assert.Len(t, m.accidents, 1)
	require.Len(t, m.board.ByCost, 2)
	assert.Equal(t, "Bond", m.board.ByCost[0].Agent.Name)

	view := m.View()
	assert.Contains(t, view, "Jean Dupont")
	assert.Contains(t, view, "Parachute failure")
	assert.Contains(t, view, "Bond")
}

func TestViewSwitching(t *testing.T) {
	m := loadedModel(t, newFakeBackend(), "")

	m = send(t, m, key("2"))
	assert.Equal(t, screenAgents, m.screen)
	m = send(t, m, key("tab"))
	assert.Equal(t, screenPalmares, m.screen)
	assert.Contains(t, m.View(), "Most expensive")
	m = send(t, m, key("tab"))
	assert.Equal(t, screenJournal, m.screen)
	m = send(t, m, key("shift+tab"))
	assert.Equal(t, screenPalmares, m.screen)
}

func TestAgentDetailFromList(t *testing.T) {
	m := loadedModel(t, newFakeBackend(), "")

	m = send(t, m, key("2"))
	m = send(t, m, key("j"))
	m = send(t, m, key("enter"))
	assert.Equal(t, screenAgentDetail, m.screen)
	assert.Equal(t, "Powers", m.detail.Agent.Name)

	m = send(t, m, key("n"))
	assert.Equal(t, screenCompose, m.screen)
	assert.Equal(t, 2, m.agentChoice)
}

func TestComposeSubmitsAccident(t *testing.T) {
	backend := newFakeBackend()
	statePath := filepath.Join(t.TempDir(), "ui_state.json")
	m := loadedModel(t, backend, statePath)

	m = send(t, m, key("n"))
	require.Equal(t, screenCompose, m.screen)
	assert.Equal(t, "Q", m.reporterInput.Value())

	m.descInput.SetValue("Mini-sub flooded")
	m.costInput.SetValue("abc")
	for range focusAgent {
		m = send(t, m, key("tab"))
	}
	assert.Equal(t, focusAgent, m.composeFocus)
	m = send(t, m, key("]"))
	m = send(t, m, key("enter"))

	require.Len(t, backend.created, 1)
	request := backend.created[0]
	assert.Equal(t, "Mini-sub flooded", request.Description)
	assert.True(t, request.Cost.IsZero())
	assert.Equal(t, "a1", request.AgentID)
	assert.Empty(t, request.Date)

	assert.Equal(t, screenJournal, m.screen)
	assert.False(t, m.statusErr)
	assert.Empty(t, m.descInput.Value())

	saved, err := LoadUIState(statePath)
	require.NoError(t, err)
	assert.Equal(t, "Q", saved.Reporter)
	assert.Equal(t, "a1", saved.LastAgentID)
}

func TestComposeRejectsBadInputLocally(t *testing.T) {
	backend := newFakeBackend()
	m := loadedModel(t, backend, "")
	m = send(t, m, key("n"))

	m = send(t, m, key("enter"))
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "description")

	m.descInput.SetValue("Laser misfire")
	m.dateInput.SetValue("07/14/2024")
	m = send(t, m, key("enter"))
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "YYYY-MM-DD")
	assert.Empty(t, backend.created)

	m = send(t, m, key("esc"))
	assert.Equal(t, screenJournal, m.screen)
}

func TestComposeSurfacesServerError(t *testing.T) {
	backend := newFakeBackend()
	backend.failWrite = errors.New("store offline")
	m := loadedModel(t, backend, "")
	m = send(t, m, key("n"))
	m.descInput.SetValue("Cable snapped")

	m = send(t, m, key("enter"))
	assert.Equal(t, screenCompose, m.screen)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "store offline")
}

func TestAgentChoiceWrapsThroughUnassigned(t *testing.T) {
	m := loadedModel(t, newFakeBackend(), "")
	m = send(t, m, key("n"))
	m.composeFocus = focusAgent

	m = send(t, m, key("["))
	assert.Equal(t, 2, m.agentChoice)
	m = send(t, m, key("]"))
	assert.Equal(t, 0, m.agentChoice)
	assert.Contains(t, m.View(), "unassigned")
}

func TestRecruitAgent(t *testing.T) {
	backend := newFakeBackend()
	m := loadedModel(t, backend, "")

	m = send(t, m, key("2"))
	m = send(t, m, key("a"))
	require.Equal(t, screenRecruit, m.screen)
	m.nameInput.SetValue("Bourne")
	m = send(t, m, key("enter"))

	assert.Equal(t, screenAgents, m.screen)
	assert.Contains(t, m.status, "agent #3 Bourne recruited")
	assert.Len(t, m.agents, 3)
}

func TestExportWritesWorkbook(t *testing.T) {
	m := loadedModel(t, newFakeBackend(), "")
	m = send(t, m, key("x"))
	require.False(t, m.statusErr, m.status)

	path := strings.TrimPrefix(m.status, "exported to ")
	book, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer book.Close()
	assert.Contains(t, book.GetSheetList(), export.SheetJournal)
}

func TestQuitPersistsLastView(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "ui_state.json")
	m := loadedModel(t, newFakeBackend(), statePath)
	m = send(t, m, key("3"))

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	reopened, err := newModel(Options{Backend: newFakeBackend(), StatePath: statePath})
	require.NoError(t, err)
	assert.Equal(t, screenPalmares, reopened.screen)
}

func TestFailedRefreshKeepsRowsSilently(t *testing.T) {
	backend := newFakeBackend()
	m := loadedModel(t, backend, "")
	status := m.status

	backend.failAgents = errors.New("store down")
	backend.failDashboard = errors.New("store down")
	backend.accidents = append(backend.accidents, domain.Accident{ID: "x2", Date: "2024-07-02", Description: "Jetpack stall", AddedBy: "Q"})
	m = send(t, m, key("r"))

	assert.False(t, m.statusErr)
	assert.Equal(t, status, m.status)
	assert.Len(t, m.agents, 2, "agents keep the previous rows")
	assert.Equal(t, "Jean", m.dashboard.Profile.Profile.Name)
	assert.Len(t, m.accidents, 2, "journal still updates")
	assert.Contains(t, m.View(), "Jetpack stall")
}

func TestFailedRefreshShownInDebug(t *testing.T) {
	backend := newFakeBackend()
	m, err := newModel(Options{Backend: backend, Debug: true, ExportDir: t.TempDir()})
	require.NoError(t, err)
	backend.failAgents = errors.New("store down")
	updated, _ := m.Update(m.Init()())
	m = updated.(model)

	assert.False(t, m.statusErr)
	assert.Contains(t, m.status, "agents: store down")
	assert.Len(t, m.accidents, 1)
}

func TestDegradedDashboardIsNotAnError(t *testing.T) {
	m := loadedModel(t, newFakeBackend(), "")
	status := m.status
	updated, _ := m.Update(dataLoadedMsg{
		dashboard: service.Dashboard{Degraded: []string{"quote"}},
		agents:    m.agents,
		accidents: m.accidents,
		board:     m.board,
	})
	m = updated.(model)
	assert.False(t, m.statusErr)
	assert.Equal(t, status, m.status)
}
