package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// sqliteMigrations is the ordered list of SQLite schema migrations. Money is
// stored as integer cents so the rollup triggers sum exactly.
var sqliteMigrations = []migration{
	{
		Version: 1,
		Name:    "create agents and accidents",
		SQL: `
			CREATE TABLE noose_agents (
				id               TEXT PRIMARY KEY,
				name             TEXT NOT NULL,
				agent_number     INTEGER NOT NULL UNIQUE,
				total_accidents  INTEGER NOT NULL DEFAULT 0,
				total_cost_cents INTEGER NOT NULL DEFAULT 0,
				created_at       TEXT NOT NULL,
				updated_at       TEXT NOT NULL
			);

			CREATE TABLE noose_accidents (
				id          TEXT PRIMARY KEY,
				date        TEXT NOT NULL,
				description TEXT NOT NULL,
				cost_cents  INTEGER NOT NULL DEFAULT 0 CHECK (cost_cents >= 0),
				added_by    TEXT NOT NULL,
				agent_id    TEXT,
				created_at  TEXT NOT NULL,
				updated_at  TEXT NOT NULL
			);

			CREATE INDEX idx_noose_accidents_date ON noose_accidents (date, created_at);
			CREATE INDEX idx_noose_accidents_agent ON noose_accidents (agent_id);
		`,
	},
	{
		Version: 2,
		Name:    "create reference tables",
		SQL: `
			CREATE TABLE noose_colleague_profile (
				id               TEXT PRIMARY KEY,
				name             TEXT NOT NULL,
				surname          TEXT NOT NULL,
				nickname         TEXT NOT NULL DEFAULT '',
				photo_url        TEXT NOT NULL DEFAULT '',
				total_accidents  INTEGER NOT NULL DEFAULT 0,
				total_cost_cents INTEGER NOT NULL DEFAULT 0,
				created_at       TEXT NOT NULL,
				updated_at       TEXT NOT NULL
			);

			CREATE TABLE noose_daily_quotes (
				id         TEXT PRIMARY KEY,
				content    TEXT NOT NULL,
				author     TEXT NOT NULL DEFAULT '',
				date       TEXT NOT NULL DEFAULT '',
				is_active  INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL
			);

			CREATE TABLE noose_custom_popups (
				id            TEXT PRIMARY KEY,
				title         TEXT NOT NULL DEFAULT '',
				image_url     TEXT NOT NULL,
				redirect_url  TEXT NOT NULL DEFAULT '',
				is_active     INTEGER NOT NULL DEFAULT 1,
				display_order INTEGER NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_noose_custom_popups_order ON noose_custom_popups (is_active, display_order);
		`,
	},
	{
		Version: 3,
		Name:    "accident rollup triggers",
		SQL: `
			CREATE TRIGGER noose_accidents_rollup_agent
			AFTER INSERT ON noose_accidents
			WHEN new.agent_id IS NOT NULL
			BEGIN
				UPDATE noose_agents
				SET total_accidents = total_accidents + 1,
				    total_cost_cents = total_cost_cents + new.cost_cents,
				    updated_at = new.created_at
				WHERE id = new.agent_id;
			END;

			CREATE TRIGGER noose_accidents_rollup_profile
			AFTER INSERT ON noose_accidents
			WHEN new.agent_id IS NULL
			BEGIN
				UPDATE noose_colleague_profile
				SET total_accidents = total_accidents + 1,
				    total_cost_cents = total_cost_cents + new.cost_cents,
				    updated_at = new.created_at
				WHERE id = (
					SELECT id FROM noose_colleague_profile ORDER BY created_at, id LIMIT 1
				);
			END;
		`,
	},
}
