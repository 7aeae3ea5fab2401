package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	salt          TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS categories (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id  INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(account_id, name)
);

CREATE TABLE IF NOT EXISTS todo_items (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id     INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	name           TEXT NOT NULL,
	group_name     TEXT NOT NULL DEFAULT 'default',
	sort_order     INTEGER NOT NULL DEFAULT 0,
	priority       INTEGER NOT NULL DEFAULT 1 CHECK (priority BETWEEN 1 AND 5),
	done           INTEGER NOT NULL DEFAULT 0,
	notes          TEXT NOT NULL DEFAULT '',
	parent_node_id INTEGER REFERENCES todo_items(id) ON DELETE SET NULL,
	category_id    INTEGER REFERENCES categories(id) ON DELETE SET NULL,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_changed   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	done_at        DATETIME
);

CREATE INDEX IF NOT EXISTS idx_todo_items_account_order ON todo_items(account_id, sort_order);
CREATE INDEX IF NOT EXISTS idx_todo_items_category ON todo_items(category_id);
CREATE INDEX IF NOT EXISTS idx_categories_account ON categories(account_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_todo_items_parent ON todo_items(parent_node_id);
CREATE INDEX IF NOT EXISTS idx_todo_items_done_at ON todo_items(account_id, done_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
