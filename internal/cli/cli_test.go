package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/bcrosbie/noose/internal/config"
	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/export"
	"github.com/bcrosbie/noose/internal/ranking"
	"github.com/bcrosbie/noose/internal/service"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeBackend struct {
	cfg       config.ClientConfig
	accidents []service.CreateAccidentRequest
	listed    service.ListAccidentsRequest
	limit     int
	closed    bool
}

func (f *fakeBackend) Health(context.Context) (map[string]any, error) {
	return map[string]any{"status": "ok"}, nil
}

func (f *fakeBackend) ListAgents(context.Context) ([]domain.Agent, error) {
	return []domain.Agent{{ID: "a1", Name: "Bond", AgentNumber: 1}}, nil
}

func (f *fakeBackend) AgentDetail(_ context.Context, id string) (service.AgentDetail, error) {
	if id != "a1" {
		return service.AgentDetail{}, domain.NotFound("agent not found")
	}
	return service.AgentDetail{Agent: domain.Agent{ID: "a1", Name: "Bond"}}, nil
}

func (f *fakeBackend) CreateAgent(_ context.Context, request service.CreateAgentRequest) (domain.Agent, error) {
	return domain.Agent{ID: "a2", Name: request.Name, AgentNumber: 2}, nil
}

func (f *fakeBackend) ListAccidents(_ context.Context, request service.ListAccidentsRequest) ([]domain.Accident, error) {
	f.listed = request
	return []domain.Accident{}, nil
}

func (f *fakeBackend) CreateAccident(_ context.Context, request service.CreateAccidentRequest) (domain.Accident, error) {
	f.accidents = append(f.accidents, request)
	return domain.Accident{ID: "x1", Description: request.Description, Cost: request.Cost, AddedBy: request.AddedBy}, nil
}

func (f *fakeBackend) Leaderboard(_ context.Context, limit int) (ranking.Leaderboard, error) {
	f.limit = limit
	return ranking.Build(nil, max(limit, 1)), nil
}

func (f *fakeBackend) Dashboard(context.Context) (service.Dashboard, error) {
	return service.Dashboard{Accidents: []domain.Accident{}}, nil
}

func (f *fakeBackend) ExportSnapshot(context.Context) (export.Snapshot, error) {
	return export.Snapshot{Agents: []domain.Agent{{ID: "a1", Name: "Bond", AgentNumber: 1}}}, nil
}

func (f *fakeBackend) Profile(context.Context) (service.ProfileView, error) {
	return service.ProfileView{Profile: domain.ColleagueProfile{Name: "Jean"}, Tagline: "Danger"}, nil
}

func (f *fakeBackend) DailyQuote(context.Context) (*domain.DailyQuote, error) {
	return nil, nil
}

func (f *fakeBackend) ActivePopup(context.Context) (*domain.Popup, error) {
	return &domain.Popup{Title: "Attention"}, nil
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func run(t *testing.T, fake *fakeBackend, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NOOSE_ADDR", "")
	t.Setenv("NOOSE_REPORTER", "")
	root := NewRootCmd(func(cfg config.ClientConfig) (Backend, error) {
		fake.cfg = cfg
		return fake, nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	configPath := filepath.Join(t.TempDir(), "missing.yaml")
	root.SetArgs(append([]string{"--config", configPath, "--log-level", "silent"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestHealthPrintsJSONAndCloses(t *testing.T) {
	fake := &fakeBackend{}
	out, err := run(t, fake, "health", "--addr", "10.0.0.1:50061")
	require.NoError(t, err)

	var health map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &health))
	assert.Equal(t, "ok", health["status"])
	assert.True(t, fake.closed)
	assert.Equal(t, "10.0.0.1:50061", fake.cfg.GRPCAddr)
}

func TestAccidentsAdd(t *testing.T) {
	fake := &fakeBackend{}
	_, err := run(t, fake, "accidents", "add", "Fell", "into", "the", "shark", "tank",
		"--cost", "12,5", "--by", "M", "--agent", "a1", "--date", "2024-02-03")
	require.NoError(t, err)

	require.Len(t, fake.accidents, 1)
	request := fake.accidents[0]
	assert.Equal(t, "Fell into the shark tank", request.Description)
	assert.True(t, request.Cost.IsZero(), "comma decimal is not a number")
	assert.Equal(t, "M", request.AddedBy)
	assert.Equal(t, "a1", request.AgentID)
	assert.Equal(t, "2024-02-03", request.Date)
}

func TestAccidentsAddUsesConfiguredReporter(t *testing.T) {
	fake := &fakeBackend{}
	t.Setenv("NOOSE_REPORTER", "Moneypenny")
	root := NewRootCmd(func(cfg config.ClientConfig) (Backend, error) { return fake, nil })
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "silent",
		"accidents", "add", "Spilled martini", "--cost", "8.90"})
	require.NoError(t, root.Execute())

	require.Len(t, fake.accidents, 1)
	assert.Equal(t, "Moneypenny", fake.accidents[0].AddedBy)
	assert.Equal(t, "8.9", fake.accidents[0].Cost.String())
}

func TestAccidentsListFlags(t *testing.T) {
	fake := &fakeBackend{}
	_, err := run(t, fake, "accidents", "list", "--unassigned", "--limit", "5")
	require.NoError(t, err)
	assert.True(t, fake.listed.Unassigned)
	assert.Equal(t, int64(5), fake.listed.Limit)

	_, err = run(t, &fakeBackend{}, "accidents", "list", "--unassigned", "--agent", "a1")
	assert.Error(t, err)
}

func TestLeaderboardAndAgents(t *testing.T) {
	fake := &fakeBackend{}
	out, err := run(t, fake, "leaderboard", "--limit", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, fake.limit)
	assert.Contains(t, out, `"by_accidents"`)

	out, err = run(t, fake, "agents", "add", "Jason", "Bourne")
	require.NoError(t, err)
	assert.Contains(t, out, `"Jason Bourne"`)

	_, err = run(t, fake, "agents", "show", "ghost")
	assert.True(t, domain.IsNotFound(err))

	_, err = run(t, fake, "agents", "show")
	assert.Error(t, err)
}

func TestPopupAndQuoteEnvelopes(t *testing.T) {
	out, err := run(t, &fakeBackend{}, "popup")
	require.NoError(t, err)
	assert.Contains(t, out, `"popup"`)
	assert.Contains(t, out, "Attention")

	out, err = run(t, &fakeBackend{}, "quote")
	require.NoError(t, err)
	assert.Contains(t, out, `"quote": null`)
}

func TestExportWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "book.xlsx")
	out, err := run(t, &fakeBackend{}, "export", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	book, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer book.Close()
	name, err := book.GetCellValue(export.SheetAgents, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Bond", name)
}
