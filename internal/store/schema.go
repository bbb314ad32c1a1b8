package store

// PostgresSchema creates the tables read by PostgresStore.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS records (
	id   BIGSERIAL PRIMARY KEY,
	col1 TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS key_limits (
	key      TEXT PRIMARY KEY,
	max_rows INTEGER NOT NULL CHECK (max_rows >= 0)
);
`

// SQLiteSchema creates the tables read by SQLiteStore.
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		id   INTEGER PRIMARY KEY,
		col1 TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS key_limits (
		key      TEXT PRIMARY KEY,
		max_rows INTEGER NOT NULL CHECK (max_rows >= 0)
	);`,
}
