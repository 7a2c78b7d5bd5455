package syncstore

// Schema creates the durable call-state tables: one row per call, a keyed
// turn map, and an append-only event log.
const Schema = `
CREATE TABLE IF NOT EXISTS calls (
	id TEXT PRIMARY KEY,
	context TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS call_turns (
	call_id TEXT NOT NULL,
	turn_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	payload TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (call_id, turn_id)
);
CREATE INDEX IF NOT EXISTS idx_call_turns_seq ON call_turns(call_id, seq);

CREATE TABLE IF NOT EXISTS call_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	call_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_call_log_call ON call_log(call_id);
`
