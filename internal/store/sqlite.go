package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"

	"github.com/WyZzYx/Jobsight/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS job_postings (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	provider         TEXT    NOT NULL,
	provider_id      TEXT    NOT NULL,
	title            TEXT    NOT NULL DEFAULT '',
	company          TEXT    NOT NULL DEFAULT '',
	location         TEXT    NOT NULL DEFAULT '',
	work_arrangement TEXT    NOT NULL DEFAULT 'UNKNOWN',
	seniority        TEXT    NOT NULL DEFAULT 'MID',
	skills           TEXT    NOT NULL DEFAULT '[]',
	salary_min       INTEGER,
	salary_max       INTEGER,
	currency         TEXT    NOT NULL DEFAULT '',
	posted_at        INTEGER,
	url              TEXT    NOT NULL DEFAULT '',
	description      TEXT    NOT NULL DEFAULT '',
	created_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (provider, provider_id)
);
CREATE INDEX IF NOT EXISTS idx_job_postings_posted_at ON job_postings (posted_at DESC, id);
CREATE INDEX IF NOT EXISTS idx_job_postings_title_location ON job_postings (title, location);
`

// Empty filter values match every row. fold is the Unicode lower-casing
// registered below; the built-in lower() only folds ASCII.
const sqliteWhere = `
	WHERE (?1 = '' OR instr(fold(title), fold(?1)) > 0)
	  AND (?2 = '' OR instr(fold(location), fold(?2)) > 0)`

func init() {
	sqlite.MustRegisterDeterministicScalarFunction("fold", 1, foldSQL)
}

func foldSQL(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

const sqliteColumns = `id, provider, provider_id, title, company, location, work_arrangement,
	seniority, skills, salary_min, salary_max, currency, posted_at, url, description`

// SQLiteStore persists postings in a SQLite database.
// posted_at is stored as Unix milliseconds so it sorts numerically.
type SQLiteStore struct {
	db *sql.DB
}

var _ model.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// job_postings table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; the unique constraint still decides races.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating job_postings table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Exists returns true if a posting with the key has been stored.
func (s *SQLiteStore) Exists(ctx context.Context, provider, providerID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM job_postings WHERE provider = ? AND provider_id = ?",
		provider, providerID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking posting %s::%s: %w", provider, providerID, err)
	}
	return true, nil
}

// Insert stores p and returns its id. A conflicting key returns model.ErrDuplicateKey.
func (s *SQLiteStore) Insert(ctx context.Context, p model.JobPosting) (int64, error) {
	skills, err := json.Marshal(nonNilSkills(p.Skills))
	if err != nil {
		return 0, fmt.Errorf("encoding skills: %w", err)
	}

	var postedAt sql.NullInt64
	if p.PostedAt != nil {
		postedAt = sql.NullInt64{Int64: p.PostedAt.UnixMilli(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO job_postings (provider, provider_id, title, company, location, work_arrangement,
			seniority, skills, salary_min, salary_max, currency, posted_at, url, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_id) DO NOTHING`,
		p.Provider, p.ProviderID, p.Title, p.Company, p.Location, string(p.WorkArrangement),
		string(p.Seniority), string(skills), nullInt(p.Salary.Min), nullInt(p.Salary.Max),
		p.Currency, postedAt, p.URL, p.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting posting %s: %w", p.Key(), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("inserting posting %s: %w", p.Key(), err)
	}
	if n == 0 {
		return 0, model.ErrDuplicateKey
	}
	return res.LastInsertId()
}

// FindPage returns one page of matching postings, newest first, and the total match count.
// The count and the page are read in one transaction so they agree.
func (s *SQLiteStore) FindPage(ctx context.Context, f model.PageFilter, page, size int) ([]model.JobPosting, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("beginning read: %w", err)
	}
	defer tx.Rollback()

	var total int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM job_postings"+sqliteWhere, f.Title, f.Location).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting postings: %w", err)
	}

	offset, ok := model.Offset(page, size)
	if !ok || int64(offset) >= total {
		return []model.JobPosting{}, total, nil
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT "+sqliteColumns+" FROM job_postings"+sqliteWhere+`
		ORDER BY posted_at IS NULL, posted_at DESC, id ASC
		LIMIT ?3 OFFSET ?4`,
		f.Title, f.Location, size, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying postings page: %w", err)
	}
	defer rows.Close()

	postings := make([]model.JobPosting, 0, size)
	for rows.Next() {
		p, err := scanSQLitePosting(rows)
		if err != nil {
			return nil, 0, err
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading postings page: %w", err)
	}
	return postings, total, nil
}

// TopSkills counts skills across the matching postings, most frequent first.
func (s *SQLiteStore) TopSkills(ctx context.Context, f model.PageFilter, limit int) ([]model.SkillCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT j.value AS skill, COUNT(*) AS n
		FROM job_postings, json_each(job_postings.skills) AS j`+sqliteWhere+`
		GROUP BY j.value
		ORDER BY n DESC, skill ASC
		LIMIT ?3`,
		f.Title, f.Location, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying top skills: %w", err)
	}
	defer rows.Close()

	var out []model.SkillCount
	for rows.Next() {
		var sc model.SkillCount
		if err := rows.Scan(&sc.Skill, &sc.Count); err != nil {
			return nil, fmt.Errorf("scanning skill count: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLitePosting(rows *sql.Rows) (model.JobPosting, error) {
	var (
		p                 model.JobPosting
		work, seniority   string
		skills            string
		salaryMin, salMax sql.NullInt64
		postedAt          sql.NullInt64
	)
	err := rows.Scan(&p.ID, &p.Provider, &p.ProviderID, &p.Title, &p.Company, &p.Location,
		&work, &seniority, &skills, &salaryMin, &salMax, &p.Currency, &postedAt, &p.URL, &p.Description)
	if err != nil {
		return p, fmt.Errorf("scanning posting: %w", err)
	}

	p.WorkArrangement = model.WorkArrangement(work)
	p.Seniority = model.Seniority(seniority)
	if err := json.Unmarshal([]byte(skills), &p.Skills); err != nil {
		return p, fmt.Errorf("decoding skills for posting %d: %w", p.ID, err)
	}
	p.Salary.Min = intPtr(salaryMin)
	p.Salary.Max = intPtr(salMax)
	if postedAt.Valid {
		t := time.UnixMilli(postedAt.Int64).UTC()
		p.PostedAt = &t
	}
	return p, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nonNilSkills(skills []string) []string {
	if skills == nil {
		return []string{}
	}
	return skills
}
