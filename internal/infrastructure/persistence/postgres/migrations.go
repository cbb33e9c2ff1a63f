package postgres

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_users_profiles", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_universities", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_selection_ledger", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: USERS AND PROFILES
// Written by the intake flow; the engine only reads them.
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    full_name TEXT NOT NULL DEFAULT '',
    onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS profiles (
    user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,

    -- NULL section = not filled in yet
    academic_background JSONB,
    study_goals JSONB,
    budget VARCHAR(20),

    language_test_status VARCHAR(20) NOT NULL DEFAULT '',
    language_test_score NUMERIC(4,1),
    secondary_test_status VARCHAR(20) NOT NULL DEFAULT '',
    preferred_countries TEXT[] NOT NULL DEFAULT '{}',

    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_budget CHECK (budget IS NULL OR budget IN ('under_20k', '20k_40k', '40k_60k', 'above_60k')),
    CONSTRAINT valid_language_status CHECK (language_test_status IN ('', 'not_started', 'scheduled', 'completed')),
    CONSTRAINT valid_secondary_status CHECK (secondary_test_status IN ('', 'not_started', 'scheduled', 'completed'))
);
`

const migration001Down = `
DROP TABLE IF EXISTS profiles;
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: UNIVERSITY CATALOG
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS universities (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    country VARCHAR(3) NOT NULL,
    acceptance_rate NUMERIC(5,2),
    ranking INTEGER,
    tuition INTEGER NOT NULL DEFAULT 0,
    language_requirement NUMERIC(4,1),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_acceptance_rate CHECK (acceptance_rate IS NULL OR (acceptance_rate >= 0 AND acceptance_rate <= 100)),
    CONSTRAINT valid_tuition CHECK (tuition >= 0)
);

CREATE INDEX IF NOT EXISTS idx_universities_country ON universities(country);
CREATE INDEX IF NOT EXISTS idx_universities_name_lower ON universities(LOWER(name));
`

const migration002Down = `
DROP TABLE IF EXISTS universities;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: SELECTION LEDGER, TASKS, DOCUMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS selection_ledger (
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    university_id TEXT NOT NULL REFERENCES universities(id),
    locked BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, university_id)
);

-- At most one locked university per user.
CREATE UNIQUE INDEX IF NOT EXISTS idx_selection_ledger_one_locked
    ON selection_ledger(user_id) WHERE locked;

CREATE TABLE IF NOT EXISTS tasks (
    id UUID PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    university_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_task_status CHECK (status IN ('pending', 'in_progress', 'done')),
    CONSTRAINT unique_task_position UNIQUE (user_id, university_id, position)
);

CREATE TABLE IF NOT EXISTS documents (
    id UUID PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    university_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    required BOOLEAN NOT NULL DEFAULT TRUE,
    status VARCHAR(20) NOT NULL DEFAULT 'missing',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_document_status CHECK (status IN ('missing', 'uploaded', 'verified')),
    CONSTRAINT unique_document_position UNIQUE (user_id, university_id, position)
);
`

const migration003Down = `
DROP TABLE IF EXISTS documents;
DROP TABLE IF EXISTS tasks;
DROP INDEX IF EXISTS idx_selection_ledger_one_locked;
DROP TABLE IF EXISTS selection_ledger;
`
