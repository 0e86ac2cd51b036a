// Package postgres persists hub state in PostgreSQL. Every store joins the
// transaction carried in the context, so a Transactor can make a compliance
// audit record and the state change it describes commit together.
package postgres

// Schema creates the hub tables. Unsigned 64-bit values are stored as
// NUMERIC(20,0) because BIGINT cannot hold the upper half of their range.
const Schema = `
CREATE TABLE IF NOT EXISTS hub_config (
	id         SMALLINT PRIMARY KEY CHECK (id = 1),
	config     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS hub_wallets (
	owner        BYTEA PRIMARY KEY,
	created_at   TIMESTAMPTZ NOT NULL,
	verified     BOOLEAN NOT NULL DEFAULT FALSE,
	tier         SMALLINT NOT NULL DEFAULT 0,
	jurisdiction TEXT NOT NULL DEFAULT '',
	public_key   BYTEA NOT NULL,
	metadata     BYTEA
);

CREATE TABLE IF NOT EXISTS hub_transfers (
	id                TEXT PRIMARY KEY,
	sender            BYTEA NOT NULL,
	recipient         BYTEA NOT NULL,
	amount            NUMERIC(20,0) NOT NULL,
	source_chain      NUMERIC(20,0) NOT NULL,
	destination_chain NUMERIC(20,0) NOT NULL,
	token_address     BYTEA,
	fee               NUMERIC(20,0) NOT NULL,
	nonce             NUMERIC(20,0) NOT NULL,
	created_at        BIGINT NOT NULL,
	status            SMALLINT NOT NULL,
	UNIQUE (sender, nonce)
);
CREATE INDEX IF NOT EXISTS hub_transfers_sender_idx ON hub_transfers (sender, nonce);

CREATE TABLE IF NOT EXISTS hub_counters (
	name       TEXT PRIMARY KEY,
	value      NUMERIC(20,0) NOT NULL CHECK (value >= 0 AND value <= 18446744073709551615),
	expires_at TIMESTAMPTZ
);
ALTER TABLE hub_counters ADD COLUMN IF NOT EXISTS expires_at TIMESTAMPTZ;
CREATE INDEX IF NOT EXISTS hub_counters_expires_idx ON hub_counters (expires_at) WHERE expires_at IS NOT NULL;
`
