package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brojonat/txplain/service/interpret"
	"github.com/brojonat/txplain/service/metrics"
)

// ErrNotFound is returned when no interpretation exists for a digest.
var ErrNotFound = errors.New("interpretation not found")

const table = "interpretations"

// Schema creates the archive table. Migrate applies it.
const Schema = `
CREATE TABLE IF NOT EXISTS interpretations (
    digest        TEXT PRIMARY KEY,
    sender        TEXT NOT NULL,
    success       BOOLEAN NOT NULL,
    headline      TEXT NOT NULL,
    headline_tier TEXT NOT NULL,
    gas_cost_mist NUMERIC NOT NULL,
    source        TEXT,
    payload       JSONB NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS interpretations_sender_created_idx
    ON interpretations (sender, created_at DESC);
`

// Store archives interpretations in Postgres.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// If metrics is nil, no metrics will be recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{pool: pool, metrics: m}
}

// Interpretation is one archived row.
type Interpretation struct {
	Digest       string          `json:"digest"`
	Sender       string          `json:"sender"`
	Success      bool            `json:"success"`
	Headline     string          `json:"headline"`
	HeadlineTier string          `json:"headline_tier"`
	GasCostMist  string          `json:"gas_cost_mist"`
	Source       *string         `json:"source,omitempty"` // nil when interpreted offline
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Decode unmarshals the archived payload.
func (i *Interpretation) Decode() (*interpret.InterpretedTransaction, error) {
	var tx interpret.InterpretedTransaction
	if err := json.Unmarshal(i.Payload, &tx); err != nil {
		return nil, fmt.Errorf("decode payload for %s: %w", i.Digest, err)
	}
	return &tx, nil
}

// ListInterpretationsParams contains filter and pagination parameters.
type ListInterpretationsParams struct {
	Sender string // empty lists every sender
	Limit  int32
	Offset int32
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SaveInterpretation upserts tx keyed by digest. source may be empty.
func (s *Store) SaveInterpretation(ctx context.Context, tx *interpret.InterpretedTransaction, source string) (*Interpretation, error) {
	start := time.Now()
	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("encode interpretation: %w", err)
	}

	var gas pgtype.Numeric
	if err := gas.Scan(tx.GasCostMist); err != nil {
		return nil, fmt.Errorf("invalid gas cost %q: %w", tx.GasCostMist, err)
	}

	row := s.pool.QueryRow(ctx, `
INSERT INTO interpretations (digest, sender, success, headline, headline_tier, gas_cost_mist, source, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (digest) DO UPDATE SET
    sender = EXCLUDED.sender,
    success = EXCLUDED.success,
    headline = EXCLUDED.headline,
    headline_tier = EXCLUDED.headline_tier,
    gas_cost_mist = EXCLUDED.gas_cost_mist,
    source = COALESCE(EXCLUDED.source, interpretations.source),
    payload = EXCLUDED.payload,
    updated_at = NOW()
RETURNING `+columns,
		tx.Digest, strings.ToLower(tx.Sender), tx.Success, tx.Headline, tx.HeadlineTier, gas,
		pgtextFromString(source), payload,
	)

	result, err := scanInterpretation(row)
	s.record("save", start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetInterpretation retrieves an archived interpretation by digest.
func (s *Store) GetInterpretation(ctx context.Context, digest string) (*Interpretation, error) {
	start := time.Now()
	row := s.pool.QueryRow(ctx, `SELECT `+columns+` FROM interpretations WHERE digest = $1`, digest)
	result, err := scanInterpretation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		s.record("get", start, nil)
		return nil, ErrNotFound
	}
	s.record("get", start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListInterpretations returns archived interpretations, newest first.
func (s *Store) ListInterpretations(ctx context.Context, params ListInterpretationsParams) ([]*Interpretation, error) {
	start := time.Now()
	if params.Limit <= 0 {
		params.Limit = 50
	}

	rows, err := s.pool.Query(ctx, `
SELECT `+columns+`
FROM interpretations
WHERE ($1 = '' OR sender = $1)
ORDER BY created_at DESC, digest
LIMIT $2 OFFSET $3`,
		strings.ToLower(params.Sender), params.Limit, params.Offset,
	)
	if err != nil {
		s.record("list", start, err)
		return nil, err
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Interpretation, error) {
		return scanInterpretation(row)
	})
	s.record("list", start, err)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteInterpretationsOlderThan prunes rows created before cutoff.
func (s *Store) DeleteInterpretationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, `DELETE FROM interpretations WHERE created_at < $1`,
		pgtype.Timestamptz{Time: cutoff, Valid: true})
	s.record("delete", start, err)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const columns = `digest, sender, success, headline, headline_tier, gas_cost_mist::TEXT, source, payload, created_at, updated_at`

func scanInterpretation(row pgx.Row) (*Interpretation, error) {
	var (
		i         Interpretation
		source    pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&i.Digest, &i.Sender, &i.Success, &i.Headline, &i.HeadlineTier,
		&i.GasCostMist, &source, &i.Payload, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	i.Source = stringPtrFromPgtext(source)
	i.CreatedAt = createdAt.Time
	i.UpdatedAt = updatedAt.Time
	return &i, nil
}

func (s *Store) record(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordDBQuery(operation, table, time.Since(start).Seconds(), err)
	}
}

func pgtextFromString(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func stringPtrFromPgtext(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}
