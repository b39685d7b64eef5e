// Package sqlite is the embedded job store. It is the default driver and the
// store used by tests, backed by the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cronkeeper/internal/domain"
	"cronkeeper/internal/logger"
	"cronkeeper/internal/repository"
	repositoryIface "cronkeeper/internal/repository/iface"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const jobColumns = `id, name, description, cron_expression, status, enabled, url, method,
	headers, body, timeout_seconds, retry_count, retry_delay_ms, last_execution,
	created_at, updated_at`

const runStateColumns = `id, name, cron_expression, status, enabled`

// Config configures the SQLite store
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

type jobRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// Open opens (creating when needed) the database at cfg.Path and applies migrations.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, cfg Config, log logger.Logger) (*sql.DB, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One connection: SQLite has a single writer and ":memory:" is per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	if path != ":memory:" {
		_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
		_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("sqlite job store opened", logger.String("path", path))
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// NewJobRepository creates a job repository on an opened database
func NewJobRepository(db *sql.DB, log logger.Logger) repositoryIface.JobRepository {
	return &jobRepository{
		db:     db,
		logger: log.With(logger.String("component", "job_repository")),
	}
}

func (r *jobRepository) Create(ctx context.Context, job *domain.JobDefinition) error {
	headers, err := encodeHeaders(job.Headers)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO cron_jobs (
			name, description, cron_expression, status, enabled, url, method,
			headers, body, timeout_seconds, retry_count, retry_delay_ms, last_execution,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.Name, nullString(job.Description), job.CronExpression, string(job.Status), job.Enabled,
		job.URL, job.Method, headers, nullString(job.Body), job.TimeoutSeconds, job.RetryCount,
		job.RetryDelayMS, formatOptionalTime(job.LastExecution),
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("failed to create job", logger.Error(err))
		return fmt.Errorf("failed to create job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read job id: %w", err)
	}
	job.ID = id

	r.logger.Info("job created", logger.Int64("job_id", id))
	return nil
}

// Update writes the definition fields of job. Status and enabled change only
// through WriteRunState.
func (r *jobRepository) Update(ctx context.Context, job *domain.JobDefinition) error {
	headers, err := encodeHeaders(job.Headers)
	if err != nil {
		return err
	}
	job.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE cron_jobs SET
			name = ?, description = ?, cron_expression = ?,
			url = ?, method = ?, headers = ?, body = ?, timeout_seconds = ?,
			retry_count = ?, retry_delay_ms = ?, last_execution = ?, updated_at = ?
		WHERE id = ?`,
		job.Name, nullString(job.Description), job.CronExpression,
		job.URL, job.Method, headers, nullString(job.Body), job.TimeoutSeconds,
		job.RetryCount, job.RetryDelayMS, formatOptionalTime(job.LastExecution),
		formatTime(job.UpdatedAt), job.ID,
	)
	if err != nil {
		r.logger.Error("failed to update job", logger.Int64("job_id", job.ID), logger.Error(err))
		return fmt.Errorf("failed to update job: %w", err)
	}
	return expectOneRow(res, job.ID)
}

func (r *jobRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cron_jobs WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("failed to delete job", logger.Int64("job_id", id), logger.Error(err))
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return expectOneRow(res, id)
}

func (r *jobRepository) FindJob(ctx context.Context, id int64) (*domain.JobDefinition, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM cron_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", repository.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job %d: %w", id, err)
	}
	return job, nil
}

// WriteRunState writes status and enabled in one statement
func (r *jobRepository) WriteRunState(ctx context.Context, id int64, status domain.JobStatus, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cron_jobs SET status = ?, enabled = ?, updated_at = ? WHERE id = ?`,
		string(status), enabled, formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		r.logger.Error("failed to write run state", logger.Int64("job_id", id), logger.Error(err))
		return fmt.Errorf("failed to write run state: %w", err)
	}
	if err := expectOneRow(res, id); err != nil {
		return err
	}

	r.logger.Debug("run state written",
		logger.Int64("job_id", id),
		logger.String("status", string(status)),
		logger.Bool("enabled", enabled))
	return nil
}

func (r *jobRepository) FindSchedulableJobs(ctx context.Context) ([]*domain.JobDefinition, error) {
	return r.queryRunStates(ctx, `SELECT `+runStateColumns+` FROM cron_jobs WHERE status = ? AND enabled = 1 ORDER BY id`,
		string(domain.JobStatusActive))
}

func (r *jobRepository) FindRunStateConflicts(ctx context.Context) ([]*domain.JobDefinition, error) {
	return r.queryRunStates(ctx, `SELECT `+runStateColumns+` FROM cron_jobs
		WHERE (status = ? AND enabled = 0) OR (status <> ? AND enabled = 1) ORDER BY id`,
		string(domain.JobStatusActive), string(domain.JobStatusActive))
}

// queryRunStates reads only the run-state columns, so a row whose definition
// columns are corrupt is still returned and fails later in FindJob on its own
func (r *jobRepository) queryRunStates(ctx context.Context, query string, args ...interface{}) ([]*domain.JobDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query run states", logger.Error(err))
		return nil, fmt.Errorf("failed to query run states: %w", err)
	}
	defer rows.Close()

	jobs := make([]*domain.JobDefinition, 0)
	for rows.Next() {
		var job domain.JobDefinition
		var status string
		if err := rows.Scan(&job.ID, &job.Name, &job.CronExpression, &status, &job.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan run state: %w", err)
		}
		job.Status = domain.JobStatus(status)
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run states: %w", err)
	}
	return jobs, nil
}

func (r *jobRepository) List(ctx context.Context) ([]*domain.JobDefinition, error) {
	return r.query(ctx, `SELECT `+jobColumns+` FROM cron_jobs ORDER BY id`)
}

func (r *jobRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.JobDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query jobs", logger.Error(err))
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*domain.JobDefinition, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*domain.JobDefinition, error) {
	var job domain.JobDefinition
	var status, createdAt, updatedAt string
	var description, headers, body, lastExecution sql.NullString

	err := row.Scan(
		&job.ID,
		&job.Name,
		&description,
		&job.CronExpression,
		&status,
		&job.Enabled,
		&job.URL,
		&job.Method,
		&headers,
		&body,
		&job.TimeoutSeconds,
		&job.RetryCount,
		&job.RetryDelayMS,
		&lastExecution,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(status)
	job.Description = description.String
	job.Body = body.String

	if headers.Valid && headers.String != "" {
		if err := json.Unmarshal([]byte(headers.String), &job.Headers); err != nil {
			return nil, fmt.Errorf("failed to decode headers for job %d: %w", job.ID, err)
		}
	}

	// A timestamp that does not parse indicates a corrupt row
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at for job %d: %w", job.ID, err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at for job %d: %w", job.ID, err)
	}
	if lastExecution.Valid && lastExecution.String != "" {
		t, err := time.Parse(time.RFC3339Nano, lastExecution.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last_execution for job %d: %w", job.ID, err)
		}
		job.LastExecution = &t
	}

	return &job, nil
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", repository.ErrNotFound, id)
	}
	return nil
}

func encodeHeaders(headers map[string]string) (interface{}, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode headers: %w", err)
	}
	return string(b), nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
