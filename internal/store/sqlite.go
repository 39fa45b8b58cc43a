package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/fleetflow/leadflow/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	key              TEXT PRIMARY KEY,
	company_name     TEXT NOT NULL,
	state            TEXT,
	tier             TEXT NOT NULL DEFAULT 'LOW',
	score            REAL NOT NULL DEFAULT 0,
	verified         INTEGER NOT NULL DEFAULT 0,
	data             TEXT NOT NULL,
	last_observed_at DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL,
	expires_at       DATETIME
);

CREATE INDEX IF NOT EXISTS idx_leads_tier ON leads(tier);
CREATE INDEX IF NOT EXISTS idx_leads_state ON leads(state);
CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(score);
CREATE INDEX IF NOT EXISTS idx_leads_expires_at ON leads(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead *model.UnifiedLead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal lead")
	}

	var expiresAt any
	if lead.ExpiresAt != nil {
		expiresAt = lead.ExpiresAt.UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leads (key, company_name, state, tier, score, verified, data, last_observed_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			company_name = excluded.company_name,
			state = excluded.state,
			tier = excluded.tier,
			score = excluded.score,
			verified = excluded.verified,
			data = excluded.data,
			last_observed_at = excluded.last_observed_at,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`,
		lead.Key, lead.CompanyName, lead.State, string(lead.Tier), lead.Score,
		boolToInt(lead.Registry.Verified), string(data),
		lead.LastObservedAt.UTC(), lead.UpdatedAt.UTC(), expiresAt,
	)
	return eris.Wrapf(err, "sqlite: upsert lead %s", lead.Key)
}

func (s *SQLiteStore) GetLead(ctx context.Context, key string) (*model.UnifiedLead, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM leads WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", key)
	}
	return unmarshalLead(data)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.UnifiedLead, error) {
	query := `SELECT data FROM leads WHERE 1=1`
	var args []any

	if filter.Tier != "" {
		query += ` AND tier = ?`
		args = append(args, string(filter.Tier))
	}
	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, filter.State)
	}
	if filter.MinScore > 0 {
		query += ` AND score >= ?`
		args = append(args, filter.MinScore)
	}
	if !filter.IncludeExpired {
		query += ` AND expires_at IS NULL`
	}
	query += ` ORDER BY score DESC, key ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.UnifiedLead
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		lead, err := unmarshalLead(data)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) ExpireInactive(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	cutoff := now.Add(-ttl).UTC()
	// The document must carry the expiry too, or a load-then-upsert cycle
	// would write it back un-expired.
	stamp := now.UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads
		SET expires_at = ?, updated_at = ?,
			data = json_set(data, '$.expires_at', ?, '$.updated_at', ?)
		WHERE expires_at IS NULL AND last_observed_at < ?`,
		now.UTC(), now.UTC(), stamp, stamp, cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: expire inactive")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func unmarshalLead(data string) (*model.UnifiedLead, error) {
	var lead model.UnifiedLead
	if err := json.Unmarshal([]byte(data), &lead); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal lead")
	}
	return &lead, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
