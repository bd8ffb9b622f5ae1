// store/sqlite/schema.go
package sqlite

const Schema = `
CREATE TABLE IF NOT EXISTS trading_instruments (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	pip_value REAL NOT NULL DEFAULT 10,
	average_adr REAL NOT NULL DEFAULT 0,
	category TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS trading_tools (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	tool_type TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	usage_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_profiles (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'member',
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_calculations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
	tool_id TEXT NOT NULL REFERENCES trading_tools(id),
	instrument_id TEXT,
	calculation_name TEXT NOT NULL DEFAULT '',
	input_parameters TEXT NOT NULL DEFAULT '{}',
	results TEXT NOT NULL DEFAULT '{}',
	notes TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_calculations_user ON user_calculations(user_id, created_at);
`
