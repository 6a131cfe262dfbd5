// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	allow_inferred INTEGER NOT NULL DEFAULT 0,
	outbound_quota INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS companies (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	domain TEXT NOT NULL DEFAULT '',
	industry TEXT NOT NULL DEFAULT '',
	employees INTEGER,
	technologies TEXT NOT NULL DEFAULT '[]',
	location TEXT NOT NULL DEFAULT '',
	digital_maturity TEXT NOT NULL DEFAULT '',
	icp_score INTEGER NOT NULL DEFAULT 0 CHECK(icp_score BETWEEN 0 AND 100),
	signals TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_companies_user ON companies(user_id, name);
CREATE UNIQUE INDEX IF NOT EXISTS idx_companies_user_domain ON companies(user_id, domain) WHERE domain <> '';

CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	linkedin TEXT NOT NULL DEFAULT '',
	current_company TEXT NOT NULL DEFAULT '',
	current_company_domain TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	deleted_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_contacts_user ON contacts(user_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_user_email ON contacts(user_id, email) WHERE email <> '';

CREATE TABLE IF NOT EXISTS work_history (
	contact_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	company TEXT NOT NULL,
	domain TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	start_year INTEGER,
	end_year INTEGER,
	PRIMARY KEY (contact_id, position),
	FOREIGN KEY (contact_id) REFERENCES contacts(id)
);

CREATE INDEX IF NOT EXISTS idx_work_history_user ON work_history(user_id);

CREATE TABLE IF NOT EXISTS connections (
	user_id TEXT NOT NULL,
	contact_id TEXT NOT NULL,
	strength INTEGER NOT NULL DEFAULT 50 CHECK(strength BETWEEN 0 AND 100),
	interaction_count INTEGER NOT NULL DEFAULT 0,
	last_interaction_at DATETIME,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, contact_id),
	FOREIGN KEY (contact_id) REFERENCES contacts(id)
);

CREATE TABLE IF NOT EXISTS interaction_log (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	contact_id TEXT NOT NULL,
	interaction_type TEXT NOT NULL CHECK(interaction_type IN ('meeting', 'call', 'email', 'message', 'event')),
	timestamp DATETIME NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (contact_id) REFERENCES contacts(id)
);

CREATE INDEX IF NOT EXISTS idx_interaction_log_contact ON interaction_log(user_id, contact_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS icp_definitions (
	user_id TEXT PRIMARY KEY,
	industries TEXT NOT NULL DEFAULT '[]',
	min_employees INTEGER,
	max_employees INTEGER,
	technologies TEXT NOT NULL DEFAULT '[]',
	digital_maturity TEXT NOT NULL DEFAULT '',
	locations TEXT NOT NULL DEFAULT '[]',
	target_roles TEXT NOT NULL DEFAULT '[]',
	pain_points TEXT NOT NULL DEFAULT '',
	triggers TEXT NOT NULL DEFAULT '',
	anti_criteria TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS opportunities (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	contact_id TEXT,
	contact_key TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL CHECK(type IN ('direct', 'second_level', 'inferred', 'outbound')),
	status TEXT NOT NULL CHECK(status IN ('suggested', 'new', 'contacted', 'intro_requested', 'meeting_booked', 'demo_scheduled', 'won', 'lost')),
	industry_fit INTEGER NOT NULL DEFAULT 0,
	buying_signal INTEGER NOT NULL DEFAULT 0,
	intro_strength INTEGER NOT NULL DEFAULT 0,
	lead_potential INTEGER NOT NULL DEFAULT 0,
	score_total INTEGER NOT NULL DEFAULT 0,
	rationale TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	status_changed_at DATETIME NOT NULL,
	FOREIGN KEY (target_id) REFERENCES companies(id),
	FOREIGN KEY (contact_id) REFERENCES contacts(id),
	CHECK ((type = 'outbound' AND contact_id IS NULL) OR (type <> 'outbound' AND contact_id IS NOT NULL))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_opportunities_active_key
	ON opportunities(user_id, target_id, contact_key) WHERE status NOT IN ('won', 'lost');
CREATE INDEX IF NOT EXISTS idx_opportunities_user_score ON opportunities(user_id, score_total DESC);

CREATE TABLE IF NOT EXISTS followup_drafts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	opportunity_id TEXT NOT NULL,
	subject TEXT NOT NULL,
	body TEXT NOT NULL,
	days_waiting INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (opportunity_id) REFERENCES opportunities(id)
);

CREATE INDEX IF NOT EXISTS idx_followup_drafts_opportunity ON followup_drafts(user_id, opportunity_id, created_at DESC);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('running', 'succeeded', 'failed', 'rejected')),
	summary TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_user ON pipeline_runs(user_id, id DESC);

CREATE TABLE IF NOT EXISTS sync_state (
	user_id TEXT NOT NULL,
	service TEXT NOT NULL,
	last_sync_time DATETIME,
	status TEXT NOT NULL DEFAULT 'idle' CHECK(status IN ('idle', 'syncing', 'error')),
	error_message TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, service)
);

CREATE TABLE IF NOT EXISTS sync_log (
	user_id TEXT NOT NULL,
	source_service TEXT NOT NULL,
	source_id TEXT NOT NULL,
	contact_id TEXT NOT NULL,
	imported_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, source_service, source_id),
	FOREIGN KEY (contact_id) REFERENCES contacts(id)
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
