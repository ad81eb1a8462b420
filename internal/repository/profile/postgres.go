package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/geo"
	"github.com/kailas-cloud/oceanq/internal/domain/intent"
	"github.com/kailas-cloud/oceanq/internal/domain/plan"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
)

// Pool is the subset of pgxpool.Pool used by the store; pgxmock satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// PostgresStore reads profile metadata from Postgres with pgvector similarity search.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if poolCfg.MaxConns > 0 {
		pgxCfg.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		pgxCfg.MinConns = poolCfg.MinConns
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool (tests, shared pools).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS profiles (
	profile_id       TEXT PRIMARY KEY,
	latitude         DOUBLE PRECISION NOT NULL,
	longitude        DOUBLE PRECISION NOT NULL,
	observed_at      TIMESTAMPTZ NOT NULL,
	depth_min        DOUBLE PRECISION NOT NULL DEFAULT 0,
	depth_max        DOUBLE PRECISION NOT NULL DEFAULT 0,
	institution      TEXT NOT NULL DEFAULT '',
	platform_number  TEXT NOT NULL DEFAULT '',
	measurement_path TEXT NOT NULL,
	variables        TEXT[] NOT NULL DEFAULT '{}',
	data_quality     DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS profile_embeddings (
	profile_id   TEXT PRIMARY KEY REFERENCES profiles(profile_id) ON DELETE CASCADE,
	content_text TEXT NOT NULL DEFAULT '',
	embedding    vector NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_profiles_observed_at ON profiles(observed_at DESC, profile_id);
CREATE INDEX IF NOT EXISTS idx_profiles_lat_lon ON profiles(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_profiles_platform ON profiles(platform_number);
CREATE INDEX IF NOT EXISTS idx_profiles_variables ON profiles USING GIN (variables);
`

// Migrate creates tables and indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// QueryStructured returns profiles matching the plan, newest first.
func (s *PostgresStore) QueryStructured(
	ctx context.Context,
	p plan.StructuredPlan,
	limit int,
) ([]profile.Candidate, error) {
	return s.queryStructured(ctx, p, limit, "observed_at DESC, profile_id")
}

// SampleStructured returns up to limit matches ordered by a hash of profile_id,
// so the rows are spread over the whole match set.
func (s *PostgresStore) SampleStructured(
	ctx context.Context,
	p plan.StructuredPlan,
	limit int,
) ([]profile.Candidate, error) {
	return s.queryStructured(ctx, p, limit, "md5(profile_id), profile_id")
}

func (s *PostgresStore) queryStructured(
	ctx context.Context,
	p plan.StructuredPlan,
	limit int,
	orderBy string,
) ([]profile.Candidate, error) {
	where, args := buildFilter(postgresDialect{}, p)
	args = append(args, limit)
	sql := `SELECT ` + candidateColumns + `, 1.0::float8 AS score
		FROM profiles` + where + `
		ORDER BY ` + orderBy + `
		LIMIT ` + postgresDialect{}.placeholder(len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query structured: %w", err)
	}
	return collectCandidates(rows, profile.SourceStructured)
}

// CountStructured returns the unbounded match count for the plan.
func (s *PostgresStore) CountStructured(ctx context.Context, p plan.StructuredPlan) (int, error) {
	where, args := buildFilter(postgresDialect{}, p)
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM profiles`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count structured: %w", err)
	}
	return int(n), nil
}

// QueryBySimilarity returns profiles whose embedding cosine similarity reaches threshold.
func (s *PostgresStore) QueryBySimilarity(
	ctx context.Context,
	embedding []float32,
	threshold float64,
	limit int,
) ([]profile.Candidate, error) {
	sql := `SELECT ` + candidateColumns + `, 1 - (e.embedding <=> $1::vector) AS score
		FROM profile_embeddings e
		JOIN profiles USING (profile_id)
		WHERE 1 - (e.embedding <=> $1::vector) >= $2
		ORDER BY score DESC, observed_at DESC, profile_id
		LIMIT $3`

	rows, err := s.pool.Query(ctx, sql, vectorLiteral(embedding), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query by similarity: %w", err)
	}
	return collectCandidates(rows, profile.SourceSimilarity)
}

// Extent reports the dataset's spatial and temporal coverage. ok is false for an empty table.
func (s *PostgresStore) Extent(ctx context.Context) (plan.Extent, bool, error) {
	var (
		minLat, maxLat, minLon, maxLon *float64
		first, last                    *time.Time
	)
	err := s.pool.QueryRow(ctx, `SELECT min(latitude), max(latitude), min(longitude), max(longitude),
		min(observed_at), max(observed_at) FROM profiles`).
		Scan(&minLat, &maxLat, &minLon, &maxLon, &first, &last)
	if err != nil {
		return plan.Extent{}, false, fmt.Errorf("postgres: extent: %w", err)
	}
	if minLat == nil || first == nil {
		return plan.Extent{}, false, nil
	}
	return makeExtent(*minLat, *maxLat, *minLon, *maxLon, *first, *last), true, nil
}

// Upsert writes one profile and, when embedding is non-empty, its embedding.
func (s *PostgresStore) Upsert(ctx context.Context, c profile.Candidate, contentText string, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (profile_id, latitude, longitude, observed_at, depth_min, depth_max,
			institution, platform_number, measurement_path, variables, data_quality)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (profile_id) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			observed_at = EXCLUDED.observed_at,
			depth_min = EXCLUDED.depth_min,
			depth_max = EXCLUDED.depth_max,
			institution = EXCLUDED.institution,
			platform_number = EXCLUDED.platform_number,
			measurement_path = EXCLUDED.measurement_path,
			variables = EXCLUDED.variables,
			data_quality = EXCLUDED.data_quality`,
		c.ID, c.Lat, c.Lon, c.Time.UTC(), c.DepthMin, c.DepthMax,
		c.Institution, c.PlatformNumber, c.MeasurementPath, variableNames(c.VariablesAvailable), c.DataQualityScore,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert profile %s: %w", c.ID, err)
	}
	if len(embedding) == 0 {
		return nil
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO profile_embeddings (profile_id, content_text, embedding)
		VALUES ($1, $2, $3::vector)
		ON CONFLICT (profile_id) DO UPDATE SET
			content_text = EXCLUDED.content_text,
			embedding = EXCLUDED.embedding`,
		c.ID, contentText, vectorLiteral(embedding),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert embedding %s: %w", c.ID, err)
	}
	return nil
}

func collectCandidates(rows pgx.Rows, source profile.Source) ([]profile.Candidate, error) {
	defer rows.Close()

	var out []profile.Candidate
	for rows.Next() {
		var (
			c    profile.Candidate
			vars []string
		)
		if err := rows.Scan(
			&c.ID, &c.Lat, &c.Lon, &c.Time, &c.DepthMin, &c.DepthMax,
			&c.Institution, &c.PlatformNumber, &c.MeasurementPath, &vars, &c.DataQualityScore,
			&c.MatchScore,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan profile row: %w", err)
		}
		c.Time = c.Time.UTC()
		c.VariablesAvailable = parseVariables(vars)
		c.Source = source
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate profile rows: %w", err)
	}
	return out, nil
}

func parseVariables(names []string) []domain.Variable {
	out := make([]domain.Variable, 0, len(names))
	for _, n := range names {
		if v, ok := domain.ParseVariable(n); ok {
			out = append(out, v)
		}
	}
	return domain.SortVariables(out)
}

func variableNames(vars []domain.Variable) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = string(v)
	}
	return out
}

func makeExtent(minLat, maxLat, minLon, maxLon float64, first, last time.Time) plan.Extent {
	start := first.UTC().Truncate(24 * time.Hour)
	end := last.UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	return plan.Extent{
		BBox:      geo.NewBBox(minLat, maxLat, minLon, maxLon),
		TimeRange: intent.NewTimeRange(start, end),
	}
}
