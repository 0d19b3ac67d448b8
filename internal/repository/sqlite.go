package repository

import (
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements every repository interface on one database.
type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "error opening database")
	}
	// One connection: sqlite has a single writer, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "error while pinging database")
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "error executing %s", pragma)
		}
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "error while migrating database")
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS disasters (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			type TEXT NOT NULL,
			severity INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			place TEXT,
			country TEXT,
			magnitude REAL,
			depth_km REAL,
			wind_speed REAL,
			alert_level TEXT,
			url TEXT,
			timestamp INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS vehicles (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			make TEXT,
			model TEXT,
			year INTEGER,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			heading REAL,
			speed REAL,
			status TEXT NOT NULL,
			last_seen INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			from_vehicle_id TEXT NOT NULL,
			to_vehicle_id TEXT,
			broadcast_id TEXT,
			body TEXT NOT NULL,
			type TEXT NOT NULL,
			priority TEXT NOT NULL,
			ai_enhanced INTEGER NOT NULL DEFAULT 0,
			ai_insight TEXT,
			read INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS chat_history (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			input TEXT NOT NULL,
			output TEXT NOT NULL,
			structured TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT,
			display_name TEXT,
			photo_url TEXT,
			preferences TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			last_login_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS analytics (
			id TEXT PRIMARY KEY,
			window_days INTEGER NOT NULL,
			summary TEXT NOT NULL,
			generated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_disasters_timestamp ON disasters(timestamp);
		CREATE INDEX IF NOT EXISTS idx_disasters_type ON disasters(type);
		CREATE INDEX IF NOT EXISTS idx_vehicles_user_id ON vehicles(user_id);
		CREATE INDEX IF NOT EXISTS idx_vehicles_position ON vehicles(latitude, longitude);
		CREATE INDEX IF NOT EXISTS idx_messages_to_vehicle ON messages(to_vehicle_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_messages_broadcast ON messages(broadcast_id);
		CREATE INDEX IF NOT EXISTS idx_chat_history_user ON chat_history(user_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Times are stored as unix milliseconds; zero maps to the zero time.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", kind, id)
	}
	return nil
}
