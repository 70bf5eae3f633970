package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/shared"
)

// ViolationFilter narrows [ViolationRepository.List]. Zero fields match everything.
type ViolationFilter struct {
	RunID string
	Kind  models.ViolationKind
	Limit int // Most recent N when positive
}

// ViolationRepository persists protocol violations observed while polling.
//
// It satisfies tasks.ViolationRecorder so an orchestrator can write to it directly.
type ViolationRepository struct {
	db *sql.DB
}

// NewViolationRepository creates a new ViolationRepository with the given database connection
func NewViolationRepository(db *sql.DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// RecordViolation stores v, discarding the persisted form.
func (r *ViolationRepository) RecordViolation(ctx context.Context, v models.ProtocolViolation) error {
	_, err := r.Create(ctx, v)
	return err
}

// Create inserts a violation with a generated ID and sequence
func (r *ViolationRepository) Create(ctx context.Context, v models.ProtocolViolation) (*models.PersistedViolation, error) {
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if v.ObservedAt.IsZero() {
		v.ObservedAt = time.Now()
	}
	v.ObservedAt = v.ObservedAt.UTC()

	id := shared.GenerateID()

	query := `
		INSERT INTO violations (id, sequence, run_id, job_id, kind, detail, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var sequence int
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		if sequence, err = NextSequence(ctx, tx, "violations"); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, query,
			id,
			sequence,
			v.RunID,
			string(v.JobID),
			string(v.Kind),
			v.Detail,
			v.ObservedAt,
		); err != nil {
			return fmt.Errorf("failed to insert violation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.PersistedViolation{ID: id, Sequence: sequence, ProtocolViolation: v}, nil
}

// Get retrieves a violation by ID
func (r *ViolationRepository) Get(ctx context.Context, id string) (*models.PersistedViolation, error) {
	query := `
		SELECT id, sequence, run_id, job_id, kind, detail, observed_at
		FROM violations
		WHERE id = ?
	`

	v, err := scanViolation(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("violation not found: %s", id)
	}
	return v, err
}

// List returns violations matching filter, oldest first
func (r *ViolationRepository) List(ctx context.Context, filter ViolationFilter) ([]*models.PersistedViolation, error) {
	query := `
		SELECT id, sequence, run_id, job_id, kind, detail, observed_at
		FROM violations
		WHERE 1 = 1
	`

	args := []any{}

	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}

	if filter.Limit > 0 {
		query += " ORDER BY sequence DESC LIMIT ?"
		args = append(args, filter.Limit)
	} else {
		query += " ORDER BY sequence ASC"
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	var violations []*models.PersistedViolation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if filter.Limit > 0 {
		slices.Reverse(violations)
	}

	return violations, nil
}

// CountByKind returns the number of stored violations per kind
func (r *ViolationRepository) CountByKind(ctx context.Context) (map[models.ViolationKind]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM violations GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("failed to count violations: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ViolationKind]int)
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan violation count: %w", err)
		}
		counts[models.ViolationKind(kind)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return counts, nil
}

// Clear deletes all stored violations and returns how many were removed.
// Sequence numbers keep increasing across clears.
func (r *ViolationRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM violations")
	if err != nil {
		return 0, fmt.Errorf("failed to clear violations: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanViolation scans a single row from [sql.Row] or [sql.Rows] into a [models.PersistedViolation]
func scanViolation(s scanner) (*models.PersistedViolation, error) {
	var (
		id         string
		sequence   int
		runID      string
		jobID      string
		kind       string
		detail     string
		observedAt time.Time
	)

	err := s.Scan(&id, &sequence, &runID, &jobID, &kind, &detail, &observedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan violation: %w", err)
	}

	return &models.PersistedViolation{
		ID:       id,
		Sequence: sequence,
		ProtocolViolation: models.ProtocolViolation{
			RunID:      runID,
			JobID:      models.JobID(jobID),
			Kind:       models.ViolationKind(kind),
			Detail:     detail,
			ObservedAt: observedAt.UTC(),
		},
	}, nil
}
