package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/trueprice/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: empty database path")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS selections (
	session_id TEXT PRIMARY KEY,
	selection  TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS impact_cache (
	record_key TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	cached_at  INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_selections_updated_at ON selections(updated_at);
CREATE INDEX IF NOT EXISTS idx_impact_cache_expires_at ON impact_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSelection(ctx context.Context, sessionID string, sel model.Selection) error {
	selJSON, err := json.Marshal(sel)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal selection")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO selections (session_id, selection, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET selection = excluded.selection, updated_at = excluded.updated_at`,
		sessionID, string(selJSON), s.now().UTC().UnixNano(),
	)
	return eris.Wrapf(err, "sqlite: save selection %s", sessionID)
}

func (s *SQLiteStore) LoadSelection(ctx context.Context, sessionID string) (*model.Selection, error) {
	var selJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT selection FROM selections WHERE session_id = ?`,
		sessionID,
	).Scan(&selJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load selection %s", sessionID)
	}
	var sel model.Selection
	if err := json.Unmarshal([]byte(selJSON), &sel); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal selection")
	}
	return &sel, nil
}

func (s *SQLiteStore) DeleteSelection(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM selections WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete selection %s", sessionID)
	}
	return checkRowsAffected(res, "session", sessionID)
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id FROM selections ORDER BY updated_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close() //nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate sessions")
}

func (s *SQLiteStore) GetCachedImpact(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM impact_cache WHERE record_key = ? AND expires_at > ?`,
		key, s.now().UTC().UnixNano(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get cached impact %s", key)
	}
	return data, nil
}

func (s *SQLiteStore) SetCachedImpact(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO impact_cache (record_key, data, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (record_key) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		key, data, now.UnixNano(), now.Add(ttl).UnixNano(),
	)
	return eris.Wrapf(err, "sqlite: set cached impact %s", key)
}

func (s *SQLiteStore) DeleteExpiredImpacts(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM impact_cache WHERE expires_at <= ?`,
		s.now().UTC().UnixNano(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired impacts")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

// ErrNotFound is wrapped by errors for rows that do not exist.
var ErrNotFound = eris.New("not found")

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}
