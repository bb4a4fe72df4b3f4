package database

// schemaSQL is the single source of truth for the service schema.
// All statements are idempotent (IF NOT EXISTS) so Migrate can run on every start.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS contracts (
    id              TEXT PRIMARY KEY,
    title           TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    organization_id TEXT NOT NULL DEFAULT '',
    state           TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'draft',
    contract_text   TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMP NOT NULL,
    updated_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS clauses (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    contract_id TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
    text        TEXT NOT NULL,
    type        TEXT NOT NULL DEFAULT 'standard',
    flagged     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_clauses_contract ON clauses(contract_id);

CREATE TABLE IF NOT EXISTS disclosures (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    contract_id TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    required    INTEGER NOT NULL DEFAULT 0,
    provided    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_disclosures_contract ON disclosures(contract_id);

CREATE TABLE IF NOT EXISTS addenda (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    contract_id TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    included    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_addenda_contract ON addenda(contract_id);

CREATE TABLE IF NOT EXISTS documents (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    contract_id TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
    url         TEXT NOT NULL,
    media_type  TEXT NOT NULL DEFAULT 'other',
    uploaded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_contract ON documents(contract_id);

CREATE TABLE IF NOT EXISTS risk_scores (
    contract_id   TEXT PRIMARY KEY REFERENCES contracts(id) ON DELETE CASCADE,
    score         INTEGER NOT NULL,
    calculated_at TIMESTAMP NOT NULL,
    flags         TEXT NOT NULL DEFAULT '[]',
    breakdown     TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS risk_history (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    contract_id TEXT NOT NULL,
    score       INTEGER NOT NULL,
    analyzed_at TIMESTAMP NOT NULL,
    flags_blob  BLOB
);
CREATE INDEX IF NOT EXISTS idx_risk_history_contract ON risk_history(contract_id, id);

CREATE TABLE IF NOT EXISTS scans (
    id           TEXT PRIMARY KEY,
    contract_id  TEXT NOT NULL DEFAULT '',
    document_url TEXT NOT NULL DEFAULT '',
    requested_by TEXT NOT NULL DEFAULT '',
    scan_type    TEXT NOT NULL DEFAULT 'basic',
    status       TEXT NOT NULL DEFAULT 'pending',
    progress     INTEGER NOT NULL DEFAULT 0,
    message      TEXT NOT NULL DEFAULT '',
    score        INTEGER,
    findings     TEXT NOT NULL DEFAULT '[]',
    errors       TEXT NOT NULL DEFAULT '[]',
    created_at   TIMESTAMP NOT NULL,
    completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_scans_contract ON scans(contract_id);
`
