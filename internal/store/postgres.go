package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/fleetflow/leadflow/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; it allows pgxmock in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to the given database URL.
func NewPostgres(databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	key              TEXT PRIMARY KEY,
	company_name     TEXT NOT NULL,
	state            TEXT,
	tier             TEXT NOT NULL DEFAULT 'LOW',
	score            DOUBLE PRECISION NOT NULL DEFAULT 0,
	verified         BOOLEAN NOT NULL DEFAULT FALSE,
	data             JSONB NOT NULL,
	last_observed_at TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	expires_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_leads_tier ON leads(tier);
CREATE INDEX IF NOT EXISTS idx_leads_state ON leads(state);
CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(score);
CREATE INDEX IF NOT EXISTS idx_leads_expires_at ON leads(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead *model.UnifiedLead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal lead")
	}

	var expiresAt *time.Time
	if lead.ExpiresAt != nil {
		t := lead.ExpiresAt.UTC()
		expiresAt = &t
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO leads (key, company_name, state, tier, score, verified, data, last_observed_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (key) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			state = EXCLUDED.state,
			tier = EXCLUDED.tier,
			score = EXCLUDED.score,
			verified = EXCLUDED.verified,
			data = EXCLUDED.data,
			last_observed_at = EXCLUDED.last_observed_at,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at`,
		lead.Key, lead.CompanyName, lead.State, string(lead.Tier), lead.Score,
		lead.Registry.Verified, data,
		lead.LastObservedAt.UTC(), lead.UpdatedAt.UTC(), expiresAt,
	)
	return eris.Wrapf(err, "postgres: upsert lead %s", lead.Key)
}

func (s *PostgresStore) GetLead(ctx context.Context, key string) (*model.UnifiedLead, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM leads WHERE key = $1`, key).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", key)
	}
	return unmarshalLead(string(data))
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.UnifiedLead, error) {
	query := `SELECT data FROM leads WHERE 1=1`
	var args []any

	if filter.Tier != "" {
		args = append(args, string(filter.Tier))
		query += ` AND tier = $` + strconv.Itoa(len(args))
	}
	if filter.State != "" {
		args = append(args, filter.State)
		query += ` AND state = $` + strconv.Itoa(len(args))
	}
	if filter.MinScore > 0 {
		args = append(args, filter.MinScore)
		query += ` AND score >= $` + strconv.Itoa(len(args))
	}
	if !filter.IncludeExpired {
		query += ` AND expires_at IS NULL`
	}
	query += ` ORDER BY score DESC, key ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.UnifiedLead
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		lead, err := unmarshalLead(string(data))
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func (s *PostgresStore) ExpireInactive(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	cutoff := now.Add(-ttl).UTC()
	// The document must carry the expiry too, or a load-then-upsert cycle
	// would write it back un-expired.
	stamp := now.UTC().Format(time.RFC3339Nano)
	tag, err := s.pool.Exec(ctx, `
		UPDATE leads
		SET expires_at = $1, updated_at = $1,
			data = jsonb_set(jsonb_set(data, '{expires_at}', to_jsonb($2::text)), '{updated_at}', to_jsonb($2::text))
		WHERE expires_at IS NULL AND last_observed_at < $3`,
		now.UTC(), stamp, cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: expire inactive")
	}
	return int(tag.RowsAffected()), nil
}

