package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const historySchema = `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		kind TEXT NOT NULL,
		title TEXT,
		audioPath TEXT NOT NULL,
		transcriptPath TEXT NOT NULL,
		summaryPath TEXT NOT NULL,
		bulletsPath TEXT NOT NULL,
		createdAt REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS jobs_created ON jobs(createdAt);
`

// History indexes processed jobs in a SQLite database next to the artifacts
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the history database at path
func OpenHistory(path string) (*History, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// Record inserts or replaces a job
func (h *History) Record(ctx context.Context, job *Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO jobs
			(id, source, kind, title, audioPath, transcriptPath, summaryPath, bulletsPath, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.Source, job.Kind, job.Title, job.AudioPath, job.TranscriptPath,
		job.SummaryPath, job.BulletsPath, unixFromTime(job.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Recent returns up to limit jobs, newest first
func (h *History) Recent(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, source, kind, title, audioPath, transcriptPath, summaryPath, bulletsPath, createdAt
		FROM jobs
		ORDER BY createdAt DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Get returns the job with the given id, or ErrNotFound
func (h *History) Get(ctx context.Context, id string) (*Job, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT id, source, kind, title, audioPath, transcriptPath, summaryPath, bulletsPath, createdAt
		FROM jobs
		WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var title sql.NullString
	var createdAt float64
	if err := row.Scan(&job.ID, &job.Source, &job.Kind, &title, &job.AudioPath,
		&job.TranscriptPath, &job.SummaryPath, &job.BulletsPath, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	job.Title = title.String
	job.CreatedAt = timeFromUnix(createdAt)
	return &job, nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
