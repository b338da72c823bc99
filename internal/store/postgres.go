package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WyZzYx/Jobsight/internal/model"
)

const uniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS job_postings (
	id               BIGSERIAL PRIMARY KEY,
	provider         TEXT        NOT NULL,
	provider_id      TEXT        NOT NULL,
	title            TEXT        NOT NULL DEFAULT '',
	company          TEXT        NOT NULL DEFAULT '',
	location         TEXT        NOT NULL DEFAULT '',
	work_arrangement TEXT        NOT NULL DEFAULT 'UNKNOWN',
	seniority        TEXT        NOT NULL DEFAULT 'MID',
	skills           TEXT[]      NOT NULL DEFAULT '{}',
	salary_min       INTEGER,
	salary_max       INTEGER,
	currency         TEXT        NOT NULL DEFAULT '',
	posted_at        TIMESTAMPTZ,
	url              TEXT        NOT NULL DEFAULT '',
	description      TEXT        NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT job_postings_provider_key UNIQUE (provider, provider_id)
);
CREATE INDEX IF NOT EXISTS idx_job_postings_posted_at ON job_postings (posted_at DESC NULLS LAST, id);
`

const postgresWhere = `
	WHERE ($1 = '' OR strpos(lower(title), lower($1)) > 0)
	  AND ($2 = '' OR strpos(lower(location), lower($2)) > 0)`

// PostgresStore persists postings in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ model.Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and ensures the job_postings table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating job_postings table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Exists(ctx context.Context, provider, providerID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM job_postings WHERE provider = $1 AND provider_id = $2)",
		provider, providerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking posting %s::%s: %w", provider, providerID, err)
	}
	return exists, nil
}

func (s *PostgresStore) Insert(ctx context.Context, p model.JobPosting) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO job_postings (provider, provider_id, title, company, location, work_arrangement,
			seniority, skills, salary_min, salary_max, currency, posted_at, url, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (provider, provider_id) DO NOTHING
		RETURNING id`,
		p.Provider, p.ProviderID, p.Title, p.Company, p.Location, string(p.WorkArrangement),
		string(p.Seniority), nonNilSkills(p.Skills), p.Salary.Min, p.Salary.Max,
		p.Currency, p.PostedAt, p.URL, p.Description,
	).Scan(&id)

	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return 0, model.ErrDuplicateKey
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		return 0, model.ErrDuplicateKey
	case err != nil:
		return 0, fmt.Errorf("inserting posting %s: %w", p.Key(), err)
	}
	return id, nil
}

// The count and the page come from one repeatable-read snapshot so they agree.
func (s *PostgresStore) FindPage(ctx context.Context, f model.PageFilter, page, size int) ([]model.JobPosting, int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, fmt.Errorf("beginning read: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM job_postings"+postgresWhere, f.Title, f.Location).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting postings: %w", err)
	}

	offset, ok := model.Offset(page, size)
	if !ok || int64(offset) >= total {
		return []model.JobPosting{}, total, nil
	}

	rows, err := tx.Query(ctx, `
		SELECT id, provider, provider_id, title, company, location, work_arrangement,
			seniority, skills, salary_min, salary_max, currency, posted_at, url, description
		FROM job_postings`+postgresWhere+`
		ORDER BY posted_at DESC NULLS LAST, id ASC
		LIMIT $3 OFFSET $4`,
		f.Title, f.Location, size, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying postings page: %w", err)
	}

	postings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.JobPosting, error) {
		var (
			p               model.JobPosting
			work, seniority string
			postedAt        *time.Time
		)
		err := row.Scan(&p.ID, &p.Provider, &p.ProviderID, &p.Title, &p.Company, &p.Location,
			&work, &seniority, &p.Skills, &p.Salary.Min, &p.Salary.Max, &p.Currency, &postedAt, &p.URL, &p.Description)
		if postedAt != nil {
			t := postedAt.UTC()
			p.PostedAt = &t
		}
		p.WorkArrangement = model.WorkArrangement(work)
		p.Seniority = model.Seniority(seniority)
		return p, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("reading postings page: %w", err)
	}
	if postings == nil {
		postings = []model.JobPosting{}
	}
	return postings, total, nil
}

func (s *PostgresStore) TopSkills(ctx context.Context, f model.PageFilter, limit int) ([]model.SkillCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT skill, COUNT(*) AS n
		FROM job_postings, unnest(skills) AS skill`+postgresWhere+`
		GROUP BY skill
		ORDER BY n DESC, skill ASC
		LIMIT $3`,
		f.Title, f.Location, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying top skills: %w", err)
	}
	counts, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.SkillCount])
	if err != nil {
		return nil, fmt.Errorf("reading top skills: %w", err)
	}
	return counts, nil
}

// Close returns the pool's connections.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
