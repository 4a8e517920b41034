package postgres

// schemaSQL creates the tables this store depends on. It is plain DDL,
// not a migration chain (schema evolution is explicitly out of scope for
// concern); Setup runs it once with IF NOT EXISTS guards so it
// is safe to call on every boot.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS settings (
	id      BIGSERIAL PRIMARY KEY,
	title   TEXT NOT NULL UNIQUE,
	timeout INTEGER NOT NULL CHECK (timeout > 0)
);

CREATE TABLE IF NOT EXISTS words (
	id         BIGSERIAL PRIMARY KEY,
	title      TEXT NOT NULL UNIQUE,
	is_correct BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS cities (
	id         BIGSERIAL PRIMARY KEY,
	title      TEXT NOT NULL,
	id_region  BIGINT,
	id_country BIGINT
);

CREATE TABLE IF NOT EXISTS games (
	id              BIGSERIAL PRIMARY KEY,
	peer_id         BIGINT NOT NULL,
	setting_id      BIGINT NOT NULL REFERENCES settings (id),
	status          TEXT NOT NULL DEFAULT 'init',
	moves_order     TEXT,
	current_move    BIGINT,
	last_word       TEXT,
	vote_word       TEXT,
	event_timestamp TIMESTAMPTZ,
	elapsed_time    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS games_peer_id_idx ON games (peer_id);
CREATE UNIQUE INDEX IF NOT EXISTS games_one_live_per_peer_idx
	ON games (peer_id) WHERE status <> 'finished';

CREATE TABLE IF NOT EXISTS players (
	id      BIGSERIAL PRIMARY KEY,
	game_id BIGINT NOT NULL REFERENCES games (id) ON DELETE CASCADE,
	user_id BIGINT NOT NULL,
	name    TEXT NOT NULL,
	status  TEXT NOT NULL DEFAULT 'active',
	online  BOOLEAN NOT NULL DEFAULT TRUE,
	score   INTEGER NOT NULL DEFAULT 0,
	UNIQUE (user_id, game_id)
);

CREATE TABLE IF NOT EXISTS usedwords (
	id      BIGSERIAL PRIMARY KEY,
	game_id BIGINT NOT NULL REFERENCES games (id) ON DELETE CASCADE,
	title   TEXT NOT NULL,
	UNIQUE (game_id, title)
);

CREATE TABLE IF NOT EXISTS votes (
	id         BIGSERIAL PRIMARY KEY,
	game_id    BIGINT NOT NULL REFERENCES games (id) ON DELETE CASCADE,
	player_id  BIGINT NOT NULL REFERENCES players (id) ON DELETE CASCADE,
	title      TEXT NOT NULL,
	is_correct BOOLEAN NOT NULL,
	UNIQUE (player_id, title)
);
`
