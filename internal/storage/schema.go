// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines tables for users, pain_entries, and treatment_forms.
package storage

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		phone TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pain_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		body_part TEXT NOT NULL,
		pain_level INTEGER NOT NULL CHECK (pain_level BETWEEN 0 AND 10),
		created_at TEXT NOT NULL,
		idempotency_key TEXT,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS treatment_forms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pain_entry_id INTEGER NOT NULL UNIQUE,
		form_data TEXT NOT NULL CHECK (json_valid(form_data)),
		created_at TEXT NOT NULL,
		FOREIGN KEY (pain_entry_id) REFERENCES pain_entries(id)
	);

	CREATE INDEX IF NOT EXISTS idx_pain_entries_user_created ON pain_entries(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_pain_entries_created ON pain_entries(created_at DESC);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_pain_entries_user_key ON pain_entries(user_id, idempotency_key);
	`

	_, err := d.db.Exec(schema)
	return err
}
