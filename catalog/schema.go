package catalog

// Schema is the DDL of the personnel catalog. Statements are idempotent so
// Open can apply it on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS units (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    code        TEXT NOT NULL UNIQUE,
    parent_id   INTEGER REFERENCES units(id) ON DELETE SET NULL,
    is_active   INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS ranks (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    ord         INTEGER NOT NULL DEFAULT 0,
    is_active   INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS positions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    unit_id     INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
    title       TEXT NOT NULL,
    code        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    is_active   INTEGER NOT NULL DEFAULT 1,
    UNIQUE (unit_id, code)
);

CREATE TABLE IF NOT EXISTS position_qualifications (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    position_id INTEGER NOT NULL REFERENCES positions(id) ON DELETE CASCADE,
    category    TEXT NOT NULL CHECK (category IN ('EDUCATION','EXPERIENCE','FUNCTIONS','COMPETENCY')),
    ord         INTEGER NOT NULL CHECK (ord > 0),
    text        TEXT NOT NULL,
    source      TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL,
    UNIQUE (position_id, category, ord)
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    email         TEXT NOT NULL UNIQUE,
    role          TEXT NOT NULL,
    password_hash TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS officer_profiles (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id              INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
    full_name            TEXT NOT NULL DEFAULT '',
    birth_date           TEXT,
    birth_place          TEXT NOT NULL DEFAULT '',
    iin                  TEXT NOT NULL DEFAULT '',
    nationality          TEXT NOT NULL DEFAULT '',
    marital_status       TEXT NOT NULL DEFAULT '',
    combat_participation INTEGER NOT NULL DEFAULT 0,
    combat_notes         TEXT NOT NULL DEFAULT '',
    rank_id              INTEGER REFERENCES ranks(id) ON DELETE SET NULL,
    unit_id              INTEGER REFERENCES units(id) ON DELETE SET NULL,
    service_start_date   TEXT,
    personal_number      TEXT NOT NULL DEFAULT '',
    awards               TEXT NOT NULL DEFAULT '',
    penalties            TEXT NOT NULL DEFAULT '',
    education_civil      TEXT NOT NULL DEFAULT '',
    education_military   TEXT NOT NULL DEFAULT '',
    service_history      TEXT NOT NULL DEFAULT '[]',
    updated_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_positions_unit ON positions(unit_id);
CREATE INDEX IF NOT EXISTS idx_profiles_unit  ON officer_profiles(unit_id);
`
