package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit is used by ListRuns when limit is not positive.
const DefaultListLimit = 20

const runColumns = `id, identifier, url, artifact, coordinate_count, status, failed_stage, error, started_at, completed_at`

// CreateRun records the start of a pipeline run.
func (s *SQLiteStore) CreateRun(ctx context.Context, identifier, url, artifact string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:         generateID(),
		Identifier: identifier,
		URL:        url,
		Artifact:   artifact,
		Status:     RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("identifier", identifier))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, identifier, url, artifact, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Identifier, run.URL, run.Artifact, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run finished with the given outcome.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, outcome RunOutcome) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errMsg sql.NullString
	if outcome.Error != "" {
		errMsg = sql.NullString{String: outcome.Error, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, coordinate_count = ?, failed_stage = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(outcome.Status), outcome.CoordinateCount, outcome.FailedStage, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var status string
	var errMsg sql.NullString
	var completedAt sql.NullTime

	if err := row.Scan(
		&run.ID, &run.Identifier, &run.URL, &run.Artifact, &run.CoordinateCount,
		&status, &run.FailedStage, &errMsg, &run.StartedAt, &completedAt,
	); err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return run, nil
}
