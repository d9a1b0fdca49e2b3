package service

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/export"
	"github.com/bcrosbie/noose/internal/logging"
	"github.com/bcrosbie/noose/internal/ranking"
	"github.com/bcrosbie/noose/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// taglines rotate under the colleague profile.
var taglines = []string{
	"Ce collègue est un danger public.",
	"Chaque jour sans incident est une victoire.",
	"Sponsor officiel de la casse automobile.",
	"Le budget annuel vient d'exploser.",
	"Catastrophe ambulante certifiée NOOSE.",
	"Formation anti-accident requise d'urgence.",
	"Assurance responsabilité civile recommandée.",
}

// dashboardJournalLimit caps the journal section of the dashboard.
const dashboardJournalLimit = 50

type Options struct {
	Driver          string
	LeaderboardSize int
	Logger          *logging.Logger
}

type NooseService struct {
	store           store.RecordStore
	driver          string
	leaderboardSize int
	log             *logging.Logger

	now  func() time.Time
	pick func(n int) int
}

func NewNooseService(records store.RecordStore, opts Options) *NooseService {
	size := opts.LeaderboardSize
	if size <= 0 {
		size = ranking.DefaultSize
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &NooseService{
		store:           records,
		driver:          opts.Driver,
		leaderboardSize: size,
		log:             log.Sub("service"),
		now:             time.Now,
		pick:            rand.IntN,
	}
}

type CreateAccidentRequest struct {
	Date        string        `json:"date"`
	Description string        `json:"description"`
	Cost        domain.Amount `json:"cost"`
	AddedBy     string        `json:"added_by"`
	AgentID     string        `json:"agent_id"`
}

type CreateAgentRequest struct {
	Name string `json:"name"`
}

type ListAccidentsRequest struct {
	AgentID    string `json:"agent_id"`
	Unassigned bool   `json:"unassigned"`
	Limit      int64  `json:"limit"`
}

type AgentDetail struct {
	Agent         domain.Agent      `json:"agent"`
	CombinedScore domain.Amount     `json:"combined_score"`
	Accidents     []domain.Accident `json:"accidents"`
}

type ProfileView struct {
	Profile domain.ColleagueProfile `json:"profile"`
	Tagline string                  `json:"tagline"`
}

// Dashboard is the landing page. Sections that failed to load are nil or
// empty and named in Degraded.
type Dashboard struct {
	Profile   *ProfileView       `json:"profile"`
	Quote     *domain.DailyQuote `json:"quote"`
	Popup     *domain.Popup      `json:"popup"`
	Accidents []domain.Accident  `json:"accidents"`
	Degraded  []string           `json:"degraded,omitempty"`
}

func (s *NooseService) Health() map[string]any {
	return map[string]any{
		"status":           "ok",
		"store_driver":     s.driver,
		"leaderboard_size": s.leaderboardSize,
		"time_utc":         time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// LeaderboardSize is the configured default number of agents per board.
func (s *NooseService) LeaderboardSize() int {
	return s.leaderboardSize
}

// readFailure picks the log level for a failed read. Only store failures log
// as errors.
func (s *NooseService) readFailure(err error) *zerolog.Event {
	switch {
	case domain.IsNotFound(err), domain.IsInvalidArgument(err):
		return s.log.Debug().Err(err)
	case domain.IsStoreError(err):
		return s.log.Error().Err(err)
	default:
		return s.log.Warn().Err(err)
	}
}

// ListAgents returns every agent ordered by agent_number.
func (s *NooseService) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	agents, err := s.store.ListAgents(ctx, domain.AgentFilter{OrderBy: domain.OrderAgentNumber})
	if err != nil {
		s.readFailure(err).Msg("list agents failed")
		return nil, err
	}
	return agents, nil
}

func (s *NooseService) AgentDetail(ctx context.Context, id string) (AgentDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return AgentDetail{}, domain.InvalidArgument("id is required")
	}
	agent, err := s.store.GetAgent(ctx, id)
	if err != nil {
		s.readFailure(err).Str("agent_id", id).Msg("get agent failed")
		return AgentDetail{}, err
	}
	accidents, err := s.store.ListAccidents(ctx, domain.AccidentFilter{AgentID: id})
	if err != nil {
		s.readFailure(err).Str("agent_id", id).Msg("list agent accidents failed")
		return AgentDetail{}, err
	}
	return AgentDetail{
		Agent:         agent,
		CombinedScore: domain.NewAmount(agent.CombinedScore()),
		Accidents:     accidents,
	}, nil
}

// ListAccidents returns the journal, newest date first.
func (s *NooseService) ListAccidents(ctx context.Context, request ListAccidentsRequest) ([]domain.Accident, error) {
	if request.Limit < 0 {
		return nil, domain.InvalidArgument("limit must be >= 0")
	}
	accidents, err := s.store.ListAccidents(ctx, domain.AccidentFilter{
		AgentID:    strings.TrimSpace(request.AgentID),
		Unassigned: request.Unassigned,
		Limit:      request.Limit,
	})
	if err != nil {
		s.readFailure(err).Msg("list accidents failed")
		return nil, err
	}
	return accidents, nil
}

func (s *NooseService) Profile(ctx context.Context) (ProfileView, error) {
	profile, err := s.store.GetProfile(ctx)
	if err != nil {
		s.readFailure(err).Msg("get profile failed")
		return ProfileView{}, err
	}
	return ProfileView{Profile: profile, Tagline: taglines[s.pick(len(taglines))]}, nil
}

// DailyQuote picks one active quote at random. It returns nil when no quote
// is active.
func (s *NooseService) DailyQuote(ctx context.Context) (*domain.DailyQuote, error) {
	quotes, err := s.store.ListQuotes(ctx, domain.QuoteFilter{ActiveOnly: true})
	if err != nil {
		s.readFailure(err).Msg("list quotes failed")
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, nil
	}
	quote := quotes[s.pick(len(quotes))]
	return &quote, nil
}

// ActivePopup returns the first active popup by display order, or nil.
func (s *NooseService) ActivePopup(ctx context.Context) (*domain.Popup, error) {
	popups, err := s.store.ListPopups(ctx, domain.PopupFilter{ActiveOnly: true, Limit: 1})
	if err != nil {
		s.readFailure(err).Msg("list popups failed")
		return nil, err
	}
	if len(popups) == 0 {
		return nil, nil
	}
	return &popups[0], nil
}

// Leaderboard builds the palmares for the top n agents; n == 0 means the
// configured size.
func (s *NooseService) Leaderboard(ctx context.Context, n int) (ranking.Leaderboard, error) {
	if n < 0 {
		return ranking.Leaderboard{}, domain.InvalidArgument("limit must be >= 0")
	}
	if n == 0 {
		n = s.leaderboardSize
	}
	agents, err := s.ListAgents(ctx)
	if err != nil {
		return ranking.Leaderboard{}, err
	}
	return ranking.Build(agents, n), nil
}

// Dashboard loads the landing page sections concurrently. A failing section
// is logged and left empty; the call itself only fails when ctx is done.
func (s *NooseService) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		mu        sync.Mutex
		dashboard = Dashboard{Accidents: []domain.Accident{}}
	)
	degrade := func(section string, err error) {
		s.log.Warn().Err(err).Str("section", section).Msg("dashboard section failed")
		mu.Lock()
		dashboard.Degraded = append(dashboard.Degraded, section)
		mu.Unlock()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		profile, err := s.Profile(egCtx)
		if err != nil {
			if !domain.IsNotFound(err) {
				degrade("profile", err)
			}
			return nil
		}
		mu.Lock()
		dashboard.Profile = &profile
		mu.Unlock()
		return nil
	})
	eg.Go(func() error {
		quote, err := s.DailyQuote(egCtx)
		if err != nil {
			degrade("quote", err)
			return nil
		}
		mu.Lock()
		dashboard.Quote = quote
		mu.Unlock()
		return nil
	})
	eg.Go(func() error {
		popup, err := s.ActivePopup(egCtx)
		if err != nil {
			degrade("popup", err)
			return nil
		}
		mu.Lock()
		dashboard.Popup = popup
		mu.Unlock()
		return nil
	})
	eg.Go(func() error {
		accidents, err := s.ListAccidents(egCtx, ListAccidentsRequest{Limit: dashboardJournalLimit})
		if err != nil {
			degrade("accidents", err)
			return nil
		}
		mu.Lock()
		dashboard.Accidents = accidents
		mu.Unlock()
		return nil
	})
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return Dashboard{}, err
	}
	return dashboard, nil
}

// CreateAccident validates and records an accident. Cost was already coerced
// to a non-negative amount when the request was decoded.
func (s *NooseService) CreateAccident(ctx context.Context, request CreateAccidentRequest) (domain.Accident, error) {
	description := strings.TrimSpace(request.Description)
	if description == "" {
		return domain.Accident{}, domain.InvalidArgument("description is required")
	}
	addedBy := strings.TrimSpace(request.AddedBy)
	if addedBy == "" {
		return domain.Accident{}, domain.InvalidArgument("added_by is required")
	}

	date := strings.TrimSpace(request.Date)
	if date == "" {
		date = s.now().Format(domain.DateLayout)
	} else if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return domain.Accident{}, domain.InvalidArgument("date must be formatted YYYY-MM-DD")
	}
	cost := domain.NewAmount(request.Cost.Decimal)
	if err := domain.CheckCost(cost); err != nil {
		return domain.Accident{}, err
	}

	accident, err := s.store.InsertAccident(ctx, domain.Accident{
		ID:          uuid.NewString(),
		Date:        date,
		Description: description,
		Cost:        cost,
		AddedBy:     addedBy,
		AgentID:     strings.TrimSpace(request.AgentID),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("create accident failed")
		return domain.Accident{}, err
	}
	s.log.Info().Str("accident_id", accident.ID).Str("agent_id", accident.AgentID).Str("cost", accident.Cost.String()).Msg("accident recorded")
	return accident, nil
}

func (s *NooseService) CreateAgent(ctx context.Context, request CreateAgentRequest) (domain.Agent, error) {
	name := strings.TrimSpace(request.Name)
	if name == "" {
		return domain.Agent{}, domain.InvalidArgument("name is required")
	}
	agent, err := s.store.InsertAgent(ctx, domain.Agent{ID: uuid.NewString(), Name: name})
	if err != nil {
		s.log.Error().Err(err).Msg("create agent failed")
		return domain.Agent{}, err
	}
	s.log.Info().Str("agent_id", agent.ID).Int64("agent_number", agent.AgentNumber).Msg("agent created")
	return agent, nil
}

// ExportSnapshot gathers what the spreadsheet export renders.
func (s *NooseService) ExportSnapshot(ctx context.Context) (export.Snapshot, error) {
	agents, err := s.ListAgents(ctx)
	if err != nil {
		return export.Snapshot{}, err
	}
	accidents, err := s.ListAccidents(ctx, ListAccidentsRequest{})
	if err != nil {
		return export.Snapshot{}, err
	}
	return export.Snapshot{
		GeneratedAt: s.now(),
		Agents:      agents,
		Accidents:   accidents,
		Leaderboard: ranking.Build(agents, s.leaderboardSize),
	}, nil
}
