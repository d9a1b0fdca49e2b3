package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/logging"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// SQLiteStore is the single-file SQL backend. Use ":memory:" for an
// in-memory database (tests).
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  *logging.Logger
}

func NewSQLiteStore(path string, log *logging.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, domain.InvalidArgument("SQLITE_PATH is required when STORE_DRIVER=sqlite")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, domain.StoreError("failed to create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.StoreError("failed to open sqlite database", err)
	}
	// One connection: SQLite serialises writers anyway, and an in-memory
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &SQLiteStore{db: db, path: path, log: log.Sub("sqlite")}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) error {
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return domain.StoreError(fmt.Sprintf("failed to apply %q", pragma), err)
		}
	}
	if err := s.migrate(ctx); err != nil {
		return err
	}
	s.log.Info().Str("path", s.path).Msg("database opened")
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	s.log.Info().Msg("closing database")
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return domain.StoreError("failed to create migrations table", err)
	}

	for _, m := range sqliteMigrations {
		var count int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.Version).Scan(&count); err != nil {
			return domain.StoreError(fmt.Sprintf("failed to check migration %d", m.Version), err)
		}
		if count > 0 {
			continue
		}

		s.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return domain.StoreError(fmt.Sprintf("failed to begin migration %d", m.Version), err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return domain.StoreError(fmt.Sprintf("migration %d (%s) failed", m.Version, m.Name), err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
			_ = tx.Rollback()
			return domain.StoreError(fmt.Sprintf("failed to record migration %d", m.Version), err)
		}
		if err := tx.Commit(); err != nil {
			return domain.StoreError(fmt.Sprintf("failed to commit migration %d", m.Version), err)
		}
	}
	return nil
}

const sqliteAgentColumns = `id, name, agent_number, total_accidents, total_cost_cents, created_at, updated_at`

func scanSQLiteAgent(row interface{ Scan(...any) error }) (domain.Agent, error) {
	var agent domain.Agent
	var costCents int64
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.AgentNumber,
		&agent.TotalAccidents,
		&costCents,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return domain.Agent{}, err
	}
	agent.TotalCost = domain.AmountFromCents(costCents)
	return agent, nil
}

func (s *SQLiteStore) ListAgents(ctx context.Context, filter domain.AgentFilter) ([]domain.Agent, error) {
	query := fmt.Sprintf(`SELECT %s FROM noose_agents ORDER BY %s %s, agent_number ASC`,
		sqliteAgentColumns,
		agentOrderColumn(filter.OrderBy, "total_cost_cents"),
		orderDirection(filter.Descending),
	)
	args := []any{}
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreError("failed to list agents", err)
	}
	defer rows.Close()

	items := []domain.Agent{}
	for rows.Next() {
		agent, err := scanSQLiteAgent(rows)
		if err != nil {
			return nil, domain.StoreError("failed to decode agent row", err)
		}
		items = append(items, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("failed to iterate agent rows", err)
	}
	return items, nil
}

func (s *SQLiteStore) GetAgent(ctx context.Context, id string) (domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteAgentColumns+` FROM noose_agents WHERE id = ?`, id)
	agent, err := scanSQLiteAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Agent{}, domain.NotFound("agent not found")
	}
	if err != nil {
		return domain.Agent{}, domain.StoreError("failed to read agent", err)
	}
	return agent, nil
}

func (s *SQLiteStore) InsertAgent(ctx context.Context, agent domain.Agent) (domain.Agent, error) {
	agent.TotalAccidents = 0
	agent.TotalCost = domain.Amount{}
	agent.CreatedAt, agent.UpdatedAt = withTimestamps(agent.CreatedAt, agent.UpdatedAt)

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO noose_agents (id, name, agent_number, total_accidents, total_cost_cents, created_at, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(agent_number), 0) + 1 FROM noose_agents), 0, 0, ?, ?)
		RETURNING agent_number
	`, agent.ID, agent.Name, agent.CreatedAt, agent.UpdatedAt).Scan(&agent.AgentNumber)
	if err != nil {
		return domain.Agent{}, domain.StoreError("failed to insert agent", err)
	}
	return agent, nil
}

func (s *SQLiteStore) ListAccidents(ctx context.Context, filter domain.AccidentFilter) ([]domain.Accident, error) {
	query := `
		SELECT id, date, description, cost_cents, added_by, COALESCE(agent_id, ''), created_at, updated_at
		FROM noose_accidents
	`
	args := []any{}
	conditions := []string{}
	if strings.TrimSpace(filter.AgentID) != "" {
		args = append(args, filter.AgentID)
		conditions = append(conditions, "agent_id = ?")
	}
	if filter.Unassigned {
		conditions = append(conditions, "agent_id IS NULL")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	direction := orderDirection(!filter.OldestFirst)
	query += fmt.Sprintf(" ORDER BY date %[1]s, created_at %[1]s, rowid %[1]s", direction)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT ?"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreError("failed to list accidents", err)
	}
	defer rows.Close()

	items := []domain.Accident{}
	for rows.Next() {
		var item domain.Accident
		var costCents int64
		if err := rows.Scan(
			&item.ID,
			&item.Date,
			&item.Description,
			&costCents,
			&item.AddedBy,
			&item.AgentID,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, domain.StoreError("failed to decode accident row", err)
		}
		item.Cost = domain.AmountFromCents(costCents)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("failed to iterate accident rows", err)
	}
	return items, nil
}

func (s *SQLiteStore) InsertAccident(ctx context.Context, accident domain.Accident) (domain.Accident, error) {
	if err := domain.CheckCost(accident.Cost); err != nil {
		return domain.Accident{}, err
	}
	accident.Cost = accident.Cost.RoundCents()
	costCents, ok := accident.Cost.Cents()
	if !ok {
		return domain.Accident{}, domain.InvalidArgument("cost out of range")
	}
	accident.CreatedAt, accident.UpdatedAt = withTimestamps(accident.CreatedAt, accident.UpdatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO noose_accidents (id, date, description, cost_cents, added_by, agent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, accident.ID, accident.Date, accident.Description, costCents, accident.AddedBy,
		nullableString(accident.AgentID), accident.CreatedAt, accident.UpdatedAt)
	if err != nil {
		return domain.Accident{}, domain.StoreError("failed to insert accident", err)
	}
	return accident, nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context) (domain.ColleagueProfile, error) {
	var profile domain.ColleagueProfile
	var costCents int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, surname, nickname, photo_url, total_accidents, total_cost_cents, updated_at
		FROM noose_colleague_profile
		ORDER BY created_at, id
		LIMIT 1
	`).Scan(
		&profile.ID,
		&profile.Name,
		&profile.Surname,
		&profile.Nickname,
		&profile.PhotoURL,
		&profile.TotalAccidents,
		&costCents,
		&profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ColleagueProfile{}, domain.NotFound("colleague profile not found")
	}
	if err != nil {
		return domain.ColleagueProfile{}, domain.StoreError("failed to read colleague profile", err)
	}
	profile.TotalCost = domain.AmountFromCents(costCents)
	return profile, nil
}

func (s *SQLiteStore) ListQuotes(ctx context.Context, filter domain.QuoteFilter) ([]domain.DailyQuote, error) {
	query := `SELECT id, content, author, date, is_active, created_at FROM noose_daily_quotes`
	if filter.ActiveOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.StoreError("failed to list quotes", err)
	}
	defer rows.Close()

	items := []domain.DailyQuote{}
	for rows.Next() {
		var item domain.DailyQuote
		if err := rows.Scan(&item.ID, &item.Content, &item.Author, &item.Date, &item.IsActive, &item.CreatedAt); err != nil {
			return nil, domain.StoreError("failed to decode quote row", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("failed to iterate quote rows", err)
	}
	return items, nil
}

func (s *SQLiteStore) ListPopups(ctx context.Context, filter domain.PopupFilter) ([]domain.Popup, error) {
	query := `SELECT id, title, image_url, redirect_url, is_active, display_order FROM noose_custom_popups`
	args := []any{}
	if filter.ActiveOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY display_order, rowid`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreError("failed to list popups", err)
	}
	defer rows.Close()

	items := []domain.Popup{}
	for rows.Next() {
		var item domain.Popup
		if err := rows.Scan(&item.ID, &item.Title, &item.ImageURL, &item.RedirectURL, &item.IsActive, &item.DisplayOrder); err != nil {
			return nil, domain.StoreError("failed to decode popup row", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("failed to iterate popup rows", err)
	}
	return items, nil
}

func (s *SQLiteStore) SeedReferenceData(ctx context.Context, data domain.ReferenceData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("failed to begin seed transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowUTC()
	if data.Profile != nil {
		empty, err := tableEmpty(ctx, tx, "noose_colleague_profile")
		if err != nil {
			return err
		}
		if empty {
			profile := *data.Profile
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO noose_colleague_profile (id, name, surname, nickname, photo_url, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, seedProfileID(profile), profile.Name, profile.Surname, profile.Nickname, profile.PhotoURL, now, now); err != nil {
				return domain.StoreError("failed to seed colleague profile", err)
			}
		}
	}

	empty, err := tableEmpty(ctx, tx, "noose_daily_quotes")
	if err != nil {
		return err
	}
	if empty {
		for _, quote := range seededQuotes(data.Quotes, now) {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO noose_daily_quotes (id, content, author, date, is_active, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, quote.ID, quote.Content, quote.Author, quote.Date, quote.IsActive, quote.CreatedAt); err != nil {
				return domain.StoreError("failed to seed quote", err)
			}
		}
	}

	empty, err = tableEmpty(ctx, tx, "noose_custom_popups")
	if err != nil {
		return err
	}
	if empty {
		for _, popup := range seededPopups(data.Popups) {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO noose_custom_popups (id, title, image_url, redirect_url, is_active, display_order)
				VALUES (?, ?, ?, ?, ?, ?)
			`, popup.ID, popup.Title, popup.ImageURL, popup.RedirectURL, popup.IsActive, popup.DisplayOrder); err != nil {
				return domain.StoreError("failed to seed popup", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.StoreError("failed to commit seed transaction", err)
	}
	return nil
}

func tableEmpty(ctx context.Context, tx *sql.Tx, table string) (bool, error) {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
		return false, domain.StoreError("failed to count "+table, err)
	}
	return count == 0, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
