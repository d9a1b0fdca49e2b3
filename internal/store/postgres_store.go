package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/logging"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStore struct {
	db          *sql.DB
	autoMigrate bool
	log         *logging.Logger
}

const (
	defaultDBMaxOpenConns    = 25
	defaultDBMaxIdleConns    = 10
	defaultDBConnMaxLifetime = 30 * time.Minute
	defaultDBConnMaxIdleTime = 5 * time.Minute
	defaultDBPingTimeout     = 5 * time.Second
)

var postgresTables = []string{
	"noose_agents",
	"noose_accidents",
	"noose_colleague_profile",
	"noose_daily_quotes",
	"noose_custom_popups",
}

func NewPostgresStore(dsn string, autoMigrate bool, log *logging.Logger) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, domain.InvalidArgument("DATABASE_URL is required when STORE_DRIVER=postgres")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, domain.StoreError("failed to open postgres connection", err)
	}
	db.SetMaxOpenConns(defaultDBMaxOpenConns)
	db.SetMaxIdleConns(defaultDBMaxIdleConns)
	db.SetConnMaxLifetime(defaultDBConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultDBConnMaxIdleTime)

	return &PostgresStore{db: db, autoMigrate: autoMigrate, log: log.Sub("postgres")}, nil
}

func (s *PostgresStore) Load(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultDBPingTimeout)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return domain.StoreError("failed to connect to postgres", err)
	}
	if s.autoMigrate {
		if err := s.ensureSchema(ctx); err != nil {
			return err
		}
	}
	if err := s.verifySchemaReady(ctx); err != nil {
		return err
	}
	s.log.Info().Bool("auto_migrate", s.autoMigrate).Msg("postgres ready")
	return nil
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) verifySchemaReady(ctx context.Context) error {
	for _, tableName := range postgresTables {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+tableName).Scan(&exists); err != nil {
			return domain.StoreError("failed to verify database schema", err)
		}
		if !exists {
			return domain.StoreError(fmt.Sprintf("required table %q is missing; run migrations or set AUTO_MIGRATE=true", tableName), nil)
		}
	}
	return nil
}

const postgresAgentColumns = `id, name, agent_number, total_accidents, total_cost, created_at, updated_at`

func scanPostgresAgent(row interface{ Scan(...any) error }) (domain.Agent, error) {
	var agent domain.Agent
	var createdAt, updatedAt time.Time
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.AgentNumber,
		&agent.TotalAccidents,
		&agent.TotalCost,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Agent{}, err
	}
	agent.CreatedAt = formatTime(createdAt)
	agent.UpdatedAt = formatTime(updatedAt)
	return agent, nil
}

func (s *PostgresStore) ListAgents(ctx context.Context, filter domain.AgentFilter) ([]domain.Agent, error) {
	query := fmt.Sprintf(`SELECT %s FROM noose_agents ORDER BY %s %s, agent_number ASC`,
		postgresAgentColumns,
		agentOrderColumn(filter.OrderBy, "total_cost"),
		orderDirection(filter.Descending),
	)
	args := []any{}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreError("failed to list agents", err)
	}
	defer rows.Close()

	items := []domain.Agent{}
	for rows.Next() {
		agent, err := scanPostgresAgent(rows)
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

func (s *PostgresStore) GetAgent(ctx context.Context, id string) (domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postgresAgentColumns+` FROM noose_agents WHERE id = $1`, id)
	agent, err := scanPostgresAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Agent{}, domain.NotFound("agent not found")
	}
	if err != nil {
		return domain.Agent{}, domain.StoreError("failed to read agent", err)
	}
	return agent, nil
}

func (s *PostgresStore) InsertAgent(ctx context.Context, agent domain.Agent) (domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO noose_agents (id, name)
		VALUES ($1, $2)
		RETURNING `+postgresAgentColumns,
		agent.ID, agent.Name)
	stored, err := scanPostgresAgent(row)
	if err != nil {
		return domain.Agent{}, domain.StoreError("failed to insert agent", err)
	}
	return stored, nil
}

func (s *PostgresStore) ListAccidents(ctx context.Context, filter domain.AccidentFilter) ([]domain.Accident, error) {
	query := `
		SELECT id, date, description, cost, added_by, COALESCE(agent_id, ''), created_at, updated_at
		FROM noose_accidents
	`
	args := []any{}
	conditions := []string{}
	if strings.TrimSpace(filter.AgentID) != "" {
		args = append(args, filter.AgentID)
		conditions = append(conditions, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	if filter.Unassigned {
		conditions = append(conditions, "agent_id IS NULL")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY date %[1]s, created_at %[1]s, id %[1]s", orderDirection(!filter.OldestFirst))
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreError("failed to list accidents", err)
	}
	defer rows.Close()

	items := []domain.Accident{}
	for rows.Next() {
		var item domain.Accident
		var date, createdAt, updatedAt time.Time
		if err := rows.Scan(
			&item.ID,
			&date,
			&item.Description,
			&item.Cost,
			&item.AddedBy,
			&item.AgentID,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, domain.StoreError("failed to decode accident row", err)
		}
		item.Date = date.Format(domain.DateLayout)
		item.CreatedAt = formatTime(createdAt)
		item.UpdatedAt = formatTime(updatedAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("failed to iterate accident rows", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertAccident(ctx context.Context, accident domain.Accident) (domain.Accident, error) {
	if err := domain.CheckCost(accident.Cost); err != nil {
		return domain.Accident{}, err
	}
	accident.Cost = accident.Cost.RoundCents()
	accident.CreatedAt, accident.UpdatedAt = withTimestamps(accident.CreatedAt, accident.UpdatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO noose_accidents (id, date, description, cost, added_by, agent_id, created_at, updated_at)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7::timestamptz, $8::timestamptz)
	`, accident.ID, accident.Date, accident.Description, accident.Cost.StringFixed(2), accident.AddedBy,
		nullableString(accident.AgentID), accident.CreatedAt, accident.UpdatedAt)
	if err != nil {
		return domain.Accident{}, domain.StoreError("failed to insert accident", err)
	}
	return accident, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context) (domain.ColleagueProfile, error) {
	var profile domain.ColleagueProfile
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, surname, nickname, photo_url, total_accidents, total_cost, updated_at
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
		&profile.TotalCost,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ColleagueProfile{}, domain.NotFound("colleague profile not found")
	}
	if err != nil {
		return domain.ColleagueProfile{}, domain.StoreError("failed to read colleague profile", err)
	}
	profile.UpdatedAt = formatTime(updatedAt)
	return profile, nil
}

func (s *PostgresStore) ListQuotes(ctx context.Context, filter domain.QuoteFilter) ([]domain.DailyQuote, error) {
	query := `SELECT id, content, author, date, is_active, created_at FROM noose_daily_quotes`
	if filter.ActiveOnly {
		query += ` WHERE is_active`
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
		var createdAt time.Time
		if err := rows.Scan(&item.ID, &item.Content, &item.Author, &item.Date, &item.IsActive, &createdAt); err != nil {
			return nil, domain.StoreError("failed to decode quote row", err)
		}
		item.CreatedAt = formatTime(createdAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("failed to iterate quote rows", err)
	}
	return items, nil
}

func (s *PostgresStore) ListPopups(ctx context.Context, filter domain.PopupFilter) ([]domain.Popup, error) {
	query := `SELECT id, title, image_url, redirect_url, is_active, display_order FROM noose_custom_popups`
	args := []any{}
	if filter.ActiveOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY display_order, created_at, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
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

func (s *PostgresStore) SeedReferenceData(ctx context.Context, data domain.ReferenceData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("failed to begin seed transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if data.Profile != nil {
		profile := *data.Profile
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO noose_colleague_profile (id, name, surname, nickname, photo_url)
			SELECT $1, $2, $3, $4, $5
			WHERE NOT EXISTS (SELECT 1 FROM noose_colleague_profile)
		`, seedProfileID(profile), profile.Name, profile.Surname, profile.Nickname, profile.PhotoURL); err != nil {
			return domain.StoreError("failed to seed colleague profile", err)
		}
	}

	empty, err := tableEmpty(ctx, tx, "noose_daily_quotes")
	if err != nil {
		return err
	}
	if empty {
		for _, quote := range seededQuotes(data.Quotes, nowUTC()) {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO noose_daily_quotes (id, content, author, date, is_active, created_at)
				VALUES ($1, $2, $3, $4, $5, $6::timestamptz)
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
				VALUES ($1, $2, $3, $4, $5, $6)
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

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS noose_agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			agent_number BIGINT GENERATED BY DEFAULT AS IDENTITY UNIQUE,
			total_accidents BIGINT NOT NULL DEFAULT 0,
			total_cost NUMERIC(18,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS noose_accidents (
			id TEXT PRIMARY KEY,
			date DATE NOT NULL DEFAULT CURRENT_DATE,
			description TEXT NOT NULL,
			cost NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (cost >= 0),
			added_by TEXT NOT NULL,
			agent_id TEXT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_noose_accidents_date ON noose_accidents (date DESC, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_noose_accidents_agent ON noose_accidents (agent_id)`,
		`CREATE TABLE IF NOT EXISTS noose_colleague_profile (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			surname TEXT NOT NULL,
			nickname TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			total_accidents BIGINT NOT NULL DEFAULT 0,
			total_cost NUMERIC(18,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS noose_daily_quotes (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS noose_custom_popups (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL,
			redirect_url TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			display_order BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`ALTER TABLE noose_agents ALTER COLUMN total_cost TYPE NUMERIC(18,2)`,
		`ALTER TABLE noose_colleague_profile ALTER COLUMN total_cost TYPE NUMERIC(18,2)`,
		`CREATE OR REPLACE FUNCTION noose_accidents_rollup() RETURNS trigger AS $$
		BEGIN
			IF NEW.agent_id IS NOT NULL THEN
				UPDATE noose_agents
				SET total_accidents = total_accidents + 1,
				    total_cost = total_cost + NEW.cost,
				    updated_at = NEW.created_at
				WHERE id = NEW.agent_id;
			ELSE
				UPDATE noose_colleague_profile
				SET total_accidents = total_accidents + 1,
				    total_cost = total_cost + NEW.cost,
				    updated_at = NEW.created_at
				WHERE id = (SELECT id FROM noose_colleague_profile ORDER BY created_at, id LIMIT 1);
			END IF;
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS noose_accidents_rollup ON noose_accidents`,
		`CREATE TRIGGER noose_accidents_rollup
			AFTER INSERT ON noose_accidents
			FOR EACH ROW EXECUTE FUNCTION noose_accidents_rollup()`,
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return domain.StoreError("failed to ensure postgres schema", err)
		}
	}
	return nil
}
