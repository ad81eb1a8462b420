package profile

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/plan"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
)

// SQLiteStore is the single-file metadata store for local runs and tests.
// Similarity search is a brute-force cosine scan.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	profile_id       TEXT PRIMARY KEY,
	latitude         REAL NOT NULL,
	longitude        REAL NOT NULL,
	observed_at      TEXT NOT NULL,
	depth_min        REAL NOT NULL DEFAULT 0,
	depth_max        REAL NOT NULL DEFAULT 0,
	institution      TEXT NOT NULL DEFAULT '',
	platform_number  TEXT NOT NULL DEFAULT '',
	measurement_path TEXT NOT NULL,
	variables        TEXT NOT NULL DEFAULT ',',
	data_quality     REAL
);

CREATE TABLE IF NOT EXISTS profile_embeddings (
	profile_id   TEXT PRIMARY KEY REFERENCES profiles(profile_id) ON DELETE CASCADE,
	content_text TEXT NOT NULL DEFAULT '',
	embedding    BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_profiles_observed_at ON profiles(observed_at DESC, profile_id);
CREATE INDEX IF NOT EXISTS idx_profiles_lat_lon ON profiles(latitude, longitude);
`

// Migrate creates tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	_ = s.db.Close()
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// sqliteSpreadOrder scrambles rowids with a multiplicative hash so a LIMIT
// draws rows from the whole match set instead of its newest end.
const sqliteSpreadOrder = `(rowid * 2654435761) % 4294967296, profile_id`

// QueryStructured returns profiles matching the plan, newest first.
func (s *SQLiteStore) QueryStructured(
	ctx context.Context,
	p plan.StructuredPlan,
	limit int,
) ([]profile.Candidate, error) {
	return s.queryStructured(ctx, p, limit, "observed_at DESC, profile_id")
}

// SampleStructured returns up to limit matches in a stable pseudo-random order.
func (s *SQLiteStore) SampleStructured(
	ctx context.Context,
	p plan.StructuredPlan,
	limit int,
) ([]profile.Candidate, error) {
	return s.queryStructured(ctx, p, limit, sqliteSpreadOrder)
}

func (s *SQLiteStore) queryStructured(
	ctx context.Context,
	p plan.StructuredPlan,
	limit int,
	orderBy string,
) ([]profile.Candidate, error) {
	where, args := buildFilter(sqliteDialect{}, p)
	args = append(args, limit)
	q := `SELECT ` + candidateColumns + ` FROM profiles` + where + `
		ORDER BY ` + orderBy + `
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query structured: %w", err)
	}
	defer rows.Close()

	var out []profile.Candidate
	for rows.Next() {
		c, err := scanSQLiteCandidate(rows)
		if err != nil {
			return nil, err
		}
		c.MatchScore = 1
		c.Source = profile.SourceStructured
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate profile rows: %w", err)
	}
	return out, nil
}

// CountStructured returns the unbounded match count for the plan.
func (s *SQLiteStore) CountStructured(ctx context.Context, p plan.StructuredPlan) (int, error) {
	where, args := buildFilter(sqliteDialect{}, p)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM profiles`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count structured: %w", err)
	}
	return n, nil
}

// QueryBySimilarity scores every stored embedding by cosine similarity.
func (s *SQLiteStore) QueryBySimilarity(
	ctx context.Context,
	embedding []float32,
	threshold float64,
	limit int,
) ([]profile.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+candidateColumns+`, e.embedding
		FROM profile_embeddings e JOIN profiles USING (profile_id)`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query by similarity: %w", err)
	}
	defer rows.Close()

	var out []profile.Candidate
	for rows.Next() {
		var blob []byte
		c, err := scanSQLiteCandidate(rows, &blob)
		if err != nil {
			return nil, err
		}
		vec, err := domain.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("sqlite: profile %s embedding: %w", c.ID, err)
		}
		score := domain.Cosine(embedding, vec)
		if score < threshold {
			continue
		}
		c.MatchScore = score
		c.Source = profile.SourceSimilarity
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate embedding rows: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MatchScore != out[j].MatchScore {
			return out[i].MatchScore > out[j].MatchScore
		}
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.After(out[j].Time)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Extent reports the dataset's spatial and temporal coverage. ok is false for an empty table.
func (s *SQLiteStore) Extent(ctx context.Context) (plan.Extent, bool, error) {
	var (
		minLat, maxLat, minLon, maxLon sql.NullFloat64
		first, last                    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT min(latitude), max(latitude), min(longitude), max(longitude),
		min(observed_at), max(observed_at) FROM profiles`).
		Scan(&minLat, &maxLat, &minLon, &maxLon, &first, &last)
	if err != nil {
		return plan.Extent{}, false, fmt.Errorf("sqlite: extent: %w", err)
	}
	if !minLat.Valid || !first.Valid {
		return plan.Extent{}, false, nil
	}
	start, err := time.Parse(sqliteTimeLayout, first.String)
	if err != nil {
		return plan.Extent{}, false, fmt.Errorf("sqlite: extent start: %w", err)
	}
	end, err := time.Parse(sqliteTimeLayout, last.String)
	if err != nil {
		return plan.Extent{}, false, fmt.Errorf("sqlite: extent end: %w", err)
	}
	return makeExtent(minLat.Float64, maxLat.Float64, minLon.Float64, maxLon.Float64, start, end), true, nil
}

// Upsert writes one profile and, when embedding is non-empty, its embedding.
func (s *SQLiteStore) Upsert(ctx context.Context, c profile.Candidate, contentText string, embedding []float32) error {
	var quality any
	if c.DataQualityScore != nil {
		quality = *c.DataQualityScore
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (profile_id, latitude, longitude, observed_at, depth_min, depth_max,
			institution, platform_number, measurement_path, variables, data_quality)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_id) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			observed_at = excluded.observed_at,
			depth_min = excluded.depth_min,
			depth_max = excluded.depth_max,
			institution = excluded.institution,
			platform_number = excluded.platform_number,
			measurement_path = excluded.measurement_path,
			variables = excluded.variables,
			data_quality = excluded.data_quality`,
		c.ID, c.Lat, c.Lon, formatSQLiteTime(c.Time), c.DepthMin, c.DepthMax,
		c.Institution, c.PlatformNumber, c.MeasurementPath, joinVariables(c.VariablesAvailable), quality,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert profile %s: %w", c.ID, err)
	}
	if len(embedding) == 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profile_embeddings (profile_id, content_text, embedding) VALUES (?, ?, ?)
		ON CONFLICT (profile_id) DO UPDATE SET
			content_text = excluded.content_text,
			embedding = excluded.embedding`,
		c.ID, contentText, domain.EncodeVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert embedding %s: %w", c.ID, err)
	}
	return nil
}

func scanSQLiteCandidate(rows *sql.Rows, extra ...any) (profile.Candidate, error) {
	var (
		c        profile.Candidate
		observed string
		vars     string
		quality  sql.NullFloat64
	)
	dest := []any{
		&c.ID, &c.Lat, &c.Lon, &observed, &c.DepthMin, &c.DepthMax,
		&c.Institution, &c.PlatformNumber, &c.MeasurementPath, &vars, &quality,
	}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return c, fmt.Errorf("sqlite: scan profile row: %w", err)
	}
	t, err := time.Parse(sqliteTimeLayout, observed)
	if err != nil {
		return c, fmt.Errorf("sqlite: profile %s observed_at: %w", c.ID, err)
	}
	c.Time = t
	c.VariablesAvailable = parseVariables(strings.Split(strings.Trim(vars, ","), ","))
	if quality.Valid {
		q := quality.Float64
		c.DataQualityScore = &q
	}
	return c, nil
}

func joinVariables(vars []domain.Variable) string {
	return "," + strings.Join(variableNames(domain.SortVariables(vars)), ",") + ","
}
