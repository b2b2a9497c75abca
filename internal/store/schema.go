package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS days (
    date        TEXT PRIMARY KEY,
    status      TEXT NOT NULL CHECK (status IN ('CLEAN', 'HEART')),
    updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
    key    TEXT PRIMARY KEY,
    value  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_days_status ON days(status);
`
