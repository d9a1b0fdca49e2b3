package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/logging"
	"github.com/bcrosbie/noose/internal/store"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStore records calls and can be told to fail individual reads.
type fakeStore struct {
	mu        sync.Mutex
	agents    []domain.Agent
	accidents []domain.Accident
	profile   *domain.ColleagueProfile
	quotes    []domain.DailyQuote
	popups    []domain.Popup

	inserts   int
	failQuote error
	failWrite error
}

var _ store.RecordStore = (*fakeStore)(nil)

func (f *fakeStore) Load(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func (f *fakeStore) ListAgents(context.Context, domain.AgentFilter) ([]domain.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Agent{}, f.agents...), nil
}

func (f *fakeStore) GetAgent(_ context.Context, id string) (domain.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, agent := range f.agents {
		if agent.ID == id {
			return agent, nil
		}
	}
	return domain.Agent{}, domain.NotFound("agent not found")
}

func (f *fakeStore) InsertAgent(_ context.Context, agent domain.Agent) (domain.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.failWrite != nil {
		return domain.Agent{}, f.failWrite
	}
	agent.AgentNumber = int64(len(f.agents) + 1)
	f.agents = append(f.agents, agent)
	return agent, nil
}

func (f *fakeStore) ListAccidents(_ context.Context, filter domain.AccidentFilter) ([]domain.Accident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Accident{}
	for _, item := range f.accidents {
		if filter.AgentID != "" && item.AgentID != filter.AgentID {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeStore) InsertAccident(_ context.Context, accident domain.Accident) (domain.Accident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.failWrite != nil {
		return domain.Accident{}, f.failWrite
	}
	f.accidents = append(f.accidents, accident)
	return accident, nil
}

func (f *fakeStore) GetProfile(context.Context) (domain.ColleagueProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profile == nil {
		return domain.ColleagueProfile{}, domain.NotFound("colleague profile not found")
	}
	return *f.profile, nil
}

func (f *fakeStore) ListQuotes(context.Context, domain.QuoteFilter) ([]domain.DailyQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQuote != nil {
		return nil, f.failQuote
	}
	return append([]domain.DailyQuote{}, f.quotes...), nil
}

func (f *fakeStore) ListPopups(context.Context, domain.PopupFilter) ([]domain.Popup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Popup{}, f.popups...), nil
}

func newTestService(records store.RecordStore) *NooseService {
	svc := NewNooseService(records, Options{Driver: "fake", Logger: logging.Nop()})
	svc.now = func() time.Time { return time.Date(2024, 7, 14, 9, 30, 0, 0, time.Local) }
	svc.pick = func(int) int { return 0 }
	return svc
}

func TestCreateAccidentRejectsMissingFieldsWithoutStoreCall(t *testing.T) {
	records := &fakeStore{}
	svc := newTestService(records)

	cases := []CreateAccidentRequest{
		{Description: "", AddedBy: "Lana"},
		{Description: "   ", AddedBy: "Lana"},
		{Description: "Broke the printer", AddedBy: ""},
		{Description: "Broke the printer", AddedBy: "\t"},
	}
	for _, request := range cases {
		_, err := svc.CreateAccident(context.Background(), request)
		typed, ok := domain.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, domain.CodeInvalidArgument, typed.Code)
	}
	assert.Equal(t, 0, records.inserts)
}

func TestCreateAccidentCoercesBadCostToZero(t *testing.T) {
	records := &fakeStore{}
	svc := newTestService(records)

	var request CreateAccidentRequest
	require.NoError(t, json.Unmarshal([]byte(`{"description":"Dropped the laptop","added_by":"Lana","cost":"abc"}`), &request))

	accident, err := svc.CreateAccident(context.Background(), request)
	require.NoError(t, err)
	assert.True(t, accident.Cost.IsZero())
	require.Len(t, records.accidents, 1)
	assert.True(t, records.accidents[0].Cost.IsZero())
}

func TestCreateAccidentDefaultsDateToToday(t *testing.T) {
	records := &fakeStore{}
	svc := newTestService(records)

	accident, err := svc.CreateAccident(context.Background(), CreateAccidentRequest{
		Description: "  Reversed into the boss  ",
		AddedBy:     " Cyril ",
		Cost:        domain.ParseAmount("250.5"),
		AgentID:     " a1 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-07-14", accident.Date)
	assert.Equal(t, "Reversed into the boss", accident.Description)
	assert.Equal(t, "Cyril", accident.AddedBy)
	assert.Equal(t, "a1", accident.AgentID)
	assert.NotEmpty(t, accident.ID)
}

func TestCreateAccidentRejectsMalformedDate(t *testing.T) {
	records := &fakeStore{}
	svc := newTestService(records)

	_, err := svc.CreateAccident(context.Background(), CreateAccidentRequest{Date: "14/07/2024", Description: "x", AddedBy: "y"})
	typed, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeInvalidArgument, typed.Code)
	assert.Equal(t, 0, records.inserts)
}

func TestCreateAccidentRejectsCostAboveCeilingWithoutStoreCall(t *testing.T) {
	records := &fakeStore{}
	svc := newTestService(records)

	for _, cost := range []string{"1e17", "1e20", "10000000000"} {
		_, err := svc.CreateAccident(context.Background(), CreateAccidentRequest{Description: "Gold bar dropped", AddedBy: "M", Cost: domain.ParseAmount(cost)})
		assert.True(t, domain.IsInvalidArgument(err), cost)
	}
	assert.Equal(t, 0, records.inserts)

	stored, err := svc.CreateAccident(context.Background(), CreateAccidentRequest{Description: "Gold bar dropped", AddedBy: "M", Cost: domain.ParseAmount("9999999999.99")})
	require.NoError(t, err)
	assert.Equal(t, "9999999999.99", stored.Cost.String())
}

func TestReadFailuresLogByKind(t *testing.T) {
	var buf bytes.Buffer
	records := &fakeStore{failQuote: domain.StoreError("failed to list quotes", errors.New("timeout"))}
	svc := NewNooseService(records, Options{Driver: "fake", Logger: logging.New(&buf, "debug")})

	_, err := svc.AgentDetail(context.Background(), "ghost")
	require.True(t, domain.IsNotFound(err))
	_, err = svc.DailyQuote(context.Background())
	require.True(t, domain.IsStoreError(err))

	levels := map[string]string{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		levels[entry["message"].(string)] = entry["level"].(string)
	}
	assert.Equal(t, "debug", levels["get agent failed"])
	assert.Equal(t, "error", levels["list quotes failed"])
}

func TestCreateAccidentPropagatesStoreError(t *testing.T) {
	records := &fakeStore{failWrite: domain.StoreError("failed to insert accident", errors.New("connection reset"))}
	svc := newTestService(records)

	_, err := svc.CreateAccident(context.Background(), CreateAccidentRequest{Description: "x", AddedBy: "y"})
	assert.True(t, domain.IsStoreError(err))
	assert.Equal(t, 1, records.inserts)
}

func TestCreateAgent(t *testing.T) {
	records := &fakeStore{}
	svc := newTestService(records)

	_, err := svc.CreateAgent(context.Background(), CreateAgentRequest{Name: "  "})
	require.Error(t, err)
	assert.Equal(t, 0, records.inserts)

	agent, err := svc.CreateAgent(context.Background(), CreateAgentRequest{Name: " Sterling Archer "})
	require.NoError(t, err)
	assert.Equal(t, "Sterling Archer", agent.Name)
	assert.Equal(t, int64(1), agent.AgentNumber)
}

func TestAgentDetail(t *testing.T) {
	records := &fakeStore{
		agents: []domain.Agent{{ID: "a1", Name: "Bond", TotalAccidents: 3, TotalCost: domain.AmountFromInt(40)}},
		accidents: []domain.Accident{
			{ID: "x1", AgentID: "a1"},
			{ID: "x2", AgentID: "a2"},
		},
	}
	svc := newTestService(records)

	detail, err := svc.AgentDetail(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "120", detail.CombinedScore.String())
	require.Len(t, detail.Accidents, 1)
	assert.Equal(t, "x1", detail.Accidents[0].ID)

	_, err = svc.AgentDetail(context.Background(), "ghost")
	assert.True(t, domain.IsNotFound(err))
}

func TestLeaderboardSize(t *testing.T) {
	records := &fakeStore{}
	for i := range 8 {
		records.agents = append(records.agents, domain.Agent{ID: string(rune('a' + i)), TotalAccidents: int64(i)})
	}
	svc := newTestService(records)

	board, err := svc.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, board.ByAccident, 5)
	assert.Equal(t, "h", board.ByAccident[0].Agent.ID)

	board, err = svc.Leaderboard(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, board.ByCost, 3)

	_, err = svc.Leaderboard(context.Background(), -1)
	assert.Error(t, err)
}

func TestProfileAndQuote(t *testing.T) {
	records := &fakeStore{
		profile: &domain.ColleagueProfile{ID: "p", Name: "Jean"},
		quotes:  []domain.DailyQuote{{ID: "q1", Content: "Prudence."}},
	}
	svc := newTestService(records)

	view, err := svc.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jean", view.Profile.Name)
	assert.Equal(t, taglines[0], view.Tagline)

	quote, err := svc.DailyQuote(context.Background())
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.Equal(t, "q1", quote.ID)

	popup, err := svc.ActivePopup(context.Background())
	require.NoError(t, err)
	assert.Nil(t, popup)
}

func TestDashboardDegradesFailingSection(t *testing.T) {
	records := &fakeStore{
		profile:   &domain.ColleagueProfile{ID: "p", Name: "Jean"},
		popups:    []domain.Popup{{ID: "pop", IsActive: true}},
		accidents: []domain.Accident{{ID: "x1"}},
		failQuote: domain.StoreError("failed to list quotes", errors.New("timeout")),
	}
	svc := newTestService(records)

	dashboard, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"quote"}, dashboard.Degraded)
	assert.Nil(t, dashboard.Quote)
	require.NotNil(t, dashboard.Profile)
	require.NotNil(t, dashboard.Popup)
	assert.Len(t, dashboard.Accidents, 1)
}

func TestDashboardMissingProfileIsNotDegraded(t *testing.T) {
	svc := newTestService(&fakeStore{})

	dashboard, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dashboard.Degraded)
	assert.Nil(t, dashboard.Profile)
	assert.NotNil(t, dashboard.Accidents)
}

func TestDashboardCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService(&fakeStore{}).Dashboard(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServiceAgainstFileStore(t *testing.T) {
	ctx := context.Background()
	records := store.NewFileStore(filepath.Join(t.TempDir(), "noose.db.json"))
	require.NoError(t, records.Load(ctx))
	svc := newTestService(records)

	bond, err := svc.CreateAgent(ctx, CreateAgentRequest{Name: "Bond"})
	require.NoError(t, err)
	archer, err := svc.CreateAgent(ctx, CreateAgentRequest{Name: "Archer"})
	require.NoError(t, err)

	for _, cost := range []string{"100", "50"} {
		_, err := svc.CreateAccident(ctx, CreateAccidentRequest{Description: "crash", AddedBy: "Lana", Cost: domain.ParseAmount(cost), AgentID: archer.ID})
		require.NoError(t, err)
	}
	_, err = svc.CreateAccident(ctx, CreateAccidentRequest{Description: "spill", AddedBy: "Lana", Cost: domain.ParseAmount("1000"), AgentID: bond.ID})
	require.NoError(t, err)

	board, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, archer.ID, board.ByAccident[0].Agent.ID)
	assert.Equal(t, bond.ID, board.ByCost[0].Agent.ID)
	assert.Equal(t, bond.ID, board.ByCombined[0].Agent.ID)
	assert.Equal(t, int64(3), board.Summary.TotalAccidents)
	assert.Equal(t, "1150", board.Summary.TotalCost.String())
	assert.Equal(t, 1.5, board.Summary.AverageAccidentsPerAgent)

	snapshot, err := svc.ExportSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot.Agents, 2)
	assert.Len(t, snapshot.Accidents, 3)
}
