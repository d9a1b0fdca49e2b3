package store

import (
	"cmp"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bcrosbie/noose/internal/domain"
	json "github.com/goccy/go-json"
)

// FileStore keeps the whole record set in one JSON document. Every mutation
// rewrites the file through a temp file and rename.
type FileStore struct {
	path  string
	mu    sync.RWMutex
	state domain.State
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:  path,
		state: domain.EmptyState(),
	}
}

func (s *FileStore) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return domain.StoreError("failed to create data directory", err)
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.state = domain.EmptyState()
			return s.persistLocked()
		}
		return domain.StoreError("failed to read data file", err)
	}

	var parsed domain.State
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.StoreError("failed to parse data file", err)
	}

	s.state = withDefaults(parsed)
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) Snapshot() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

// Mutate applies mutate to a copy of the state and persists it. The in-memory
// state is left untouched when mutate or the write fails.
func (s *FileStore) Mutate(mutate func(*domain.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneState(s.state)
	if err := mutate(&next); err != nil {
		return err
	}

	previous := s.state
	s.state = withDefaults(next)
	if err := s.persistLocked(); err != nil {
		s.state = previous
		return err
	}
	return nil
}

func (s *FileStore) persistLocked() error {
	serialized, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return domain.StoreError("failed to serialize state", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, append(serialized, '\n'), 0o600); err != nil {
		return domain.StoreError("failed to write temporary state file", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return domain.StoreError("failed to atomically persist state file", err)
	}
	return nil
}

func withDefaults(state domain.State) domain.State {
	if state.Agents == nil {
		state.Agents = []domain.Agent{}
	}
	if state.Accidents == nil {
		state.Accidents = []domain.Accident{}
	}
	if state.Quotes == nil {
		state.Quotes = []domain.DailyQuote{}
	}
	if state.Popups == nil {
		state.Popups = []domain.Popup{}
	}
	return state
}

func cloneState(in domain.State) domain.State {
	out := domain.State{
		Agents:    slices.Clone(in.Agents),
		Accidents: slices.Clone(in.Accidents),
		Quotes:    slices.Clone(in.Quotes),
		Popups:    slices.Clone(in.Popups),
	}
	if in.Profile != nil {
		profile := *in.Profile
		out.Profile = &profile
	}
	return withDefaults(out)
}

func (s *FileStore) ListAgents(_ context.Context, filter domain.AgentFilter) ([]domain.Agent, error) {
	items := s.Snapshot().Agents
	slices.SortStableFunc(items, func(a, b domain.Agent) int {
		var order int
		switch filter.OrderBy {
		case domain.OrderName:
			order = strings.Compare(a.Name, b.Name)
		case domain.OrderTotalAccidents:
			order = cmp.Compare(a.TotalAccidents, b.TotalAccidents)
		case domain.OrderTotalCost:
			order = a.TotalCost.Cmp(b.TotalCost.Decimal)
		default:
			order = cmp.Compare(a.AgentNumber, b.AgentNumber)
		}
		if filter.Descending {
			order = -order
		}
		if order == 0 {
			order = cmp.Compare(a.AgentNumber, b.AgentNumber)
		}
		return order
	})
	if filter.Limit > 0 && int64(len(items)) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *FileStore) GetAgent(_ context.Context, id string) (domain.Agent, error) {
	for _, agent := range s.Snapshot().Agents {
		if agent.ID == id {
			return agent, nil
		}
	}
	return domain.Agent{}, domain.NotFound("agent not found")
}

func (s *FileStore) InsertAgent(_ context.Context, agent domain.Agent) (domain.Agent, error) {
	err := s.Mutate(func(state *domain.State) error {
		var highest int64
		for _, existing := range state.Agents {
			if existing.ID == agent.ID {
				return domain.StoreError("agent id already exists", nil)
			}
			highest = max(highest, existing.AgentNumber)
		}
		agent.AgentNumber = highest + 1
		agent.TotalAccidents = 0
		agent.TotalCost = domain.Amount{}
		agent.CreatedAt, agent.UpdatedAt = withTimestamps(agent.CreatedAt, agent.UpdatedAt)
		state.Agents = append(state.Agents, agent)
		return nil
	})
	if err != nil {
		return domain.Agent{}, err
	}
	return agent, nil
}

func (s *FileStore) ListAccidents(_ context.Context, filter domain.AccidentFilter) ([]domain.Accident, error) {
	items := s.Snapshot().Accidents
	out := make([]domain.Accident, 0, len(items))
	// Walk newest insert first so equal (date, created_at) pairs list the
	// latest write on top, matching the SQL stores.
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if filter.AgentID != "" && item.AgentID != filter.AgentID {
			continue
		}
		if filter.Unassigned && !item.Unassigned() {
			continue
		}
		out = append(out, item)
	}
	slices.SortStableFunc(out, func(a, b domain.Accident) int {
		order := cmp.Or(strings.Compare(a.Date, b.Date), strings.Compare(a.CreatedAt, b.CreatedAt))
		if filter.OldestFirst {
			return order
		}
		return -order
	})
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *FileStore) InsertAccident(_ context.Context, accident domain.Accident) (domain.Accident, error) {
	if err := domain.CheckCost(accident.Cost); err != nil {
		return domain.Accident{}, err
	}
	err := s.Mutate(func(state *domain.State) error {
		for _, existing := range state.Accidents {
			if existing.ID == accident.ID {
				return domain.StoreError("accident id already exists", nil)
			}
		}
		accident.Cost = accident.Cost.RoundCents()
		accident.CreatedAt, accident.UpdatedAt = withTimestamps(accident.CreatedAt, accident.UpdatedAt)
		state.Accidents = append(state.Accidents, accident)
		rollUp(state, accident)
		return nil
	})
	if err != nil {
		return domain.Accident{}, err
	}
	return accident, nil
}

// rollUp credits an accident to its agent, or to the colleague profile when
// it is unassigned. A dangling agent_id credits nobody.
func rollUp(state *domain.State, accident domain.Accident) {
	if accident.Unassigned() {
		if state.Profile != nil {
			state.Profile.TotalAccidents++
			state.Profile.TotalCost = state.Profile.TotalCost.Add(accident.Cost)
			state.Profile.UpdatedAt = accident.CreatedAt
		}
		return
	}
	for i := range state.Agents {
		if state.Agents[i].ID != accident.AgentID {
			continue
		}
		state.Agents[i].TotalAccidents++
		state.Agents[i].TotalCost = state.Agents[i].TotalCost.Add(accident.Cost)
		state.Agents[i].UpdatedAt = accident.CreatedAt
		return
	}
}

func (s *FileStore) GetProfile(_ context.Context) (domain.ColleagueProfile, error) {
	profile := s.Snapshot().Profile
	if profile == nil {
		return domain.ColleagueProfile{}, domain.NotFound("colleague profile not found")
	}
	return *profile, nil
}

func (s *FileStore) ListQuotes(_ context.Context, filter domain.QuoteFilter) ([]domain.DailyQuote, error) {
	items := s.Snapshot().Quotes
	out := make([]domain.DailyQuote, 0, len(items))
	for _, item := range items {
		if filter.ActiveOnly && !item.IsActive {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *FileStore) ListPopups(_ context.Context, filter domain.PopupFilter) ([]domain.Popup, error) {
	items := s.Snapshot().Popups
	out := make([]domain.Popup, 0, len(items))
	for _, item := range items {
		if filter.ActiveOnly && !item.IsActive {
			continue
		}
		out = append(out, item)
	}
	slices.SortStableFunc(out, func(a, b domain.Popup) int {
		return cmp.Compare(a.DisplayOrder, b.DisplayOrder)
	})
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *FileStore) SeedReferenceData(_ context.Context, data domain.ReferenceData) error {
	return s.Mutate(func(state *domain.State) error {
		now := nowUTC()
		if state.Profile == nil && data.Profile != nil {
			profile := *data.Profile
			profile.ID = seedProfileID(profile)
			profile.TotalAccidents = 0
			profile.TotalCost = domain.Amount{}
			profile.UpdatedAt = now
			state.Profile = &profile
		}
		if len(state.Quotes) == 0 {
			state.Quotes = append(state.Quotes, seededQuotes(data.Quotes, now)...)
		}
		if len(state.Popups) == 0 {
			state.Popups = append(state.Popups, seededPopups(data.Popups)...)
		}
		return nil
	})
}
