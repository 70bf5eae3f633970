package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	return db
}

func violation(run string, job models.JobID, kind models.ViolationKind) models.ProtocolViolation {
	return models.ProtocolViolation{RunID: run, JobID: job, Kind: kind, Detail: "completed -> active"}
}

func TestViolationRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewViolationRepository(db)
		observed := time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)
		v := violation("run-1", "j1", models.ViolationRegression)
		v.ObservedAt = observed

		stored, err := repo.Create(ctx, v)
		if err != nil {
			t.Fatalf("failed to create violation: %v", err)
		}

		if stored.ID == "" {
			t.Error("violation ID should be set after creation")
		}
		if stored.Sequence != 1 {
			t.Errorf("expected sequence 1, got %d", stored.Sequence)
		}

		retrieved, err := repo.Get(ctx, stored.ID)
		if err != nil {
			t.Fatalf("failed to get violation: %v", err)
		}
		if retrieved.RunID != "run-1" || retrieved.JobID != "j1" || retrieved.Kind != models.ViolationRegression {
			t.Errorf("unexpected violation %+v", retrieved)
		}
		if retrieved.Detail != "completed -> active" {
			t.Errorf("expected detail to round trip, got %q", retrieved.Detail)
		}
		if !retrieved.ObservedAt.Equal(observed) {
			t.Errorf("expected observed at %v, got %v", observed, retrieved.ObservedAt)
		}
	})

	t.Run("Create Defaults ObservedAt", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewViolationRepository(db)
		before := time.Now().Add(-time.Second)

		stored, err := repo.Create(ctx, violation("run-1", "", models.ViolationCountMismatch))
		if err != nil {
			t.Fatalf("failed to create violation: %v", err)
		}
		if stored.ObservedAt.Before(before) {
			t.Errorf("expected observed at to default to now, got %v", stored.ObservedAt)
		}
	})

	t.Run("Create Validation", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewViolationRepository(db)

		tests := []struct {
			name string
			v    models.ProtocolViolation
		}{
			{"missing run id", violation("", "j1", models.ViolationRegression)},
			{"unknown kind", violation("run-1", "j1", "bogus")},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := repo.Create(ctx, tt.v); !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
			})
		}
	})

	t.Run("RecordViolation", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewViolationRepository(db)
		if err := repo.RecordViolation(ctx, violation("run-1", "j1", models.ViolationIDMismatch)); err != nil {
			t.Fatalf("failed to record violation: %v", err)
		}

		all, err := repo.List(ctx, ViolationFilter{})
		if err != nil {
			t.Fatalf("failed to list violations: %v", err)
		}
		if len(all) != 1 || all[0].Kind != models.ViolationIDMismatch {
			t.Errorf("expected one id mismatch, got %v", all)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewViolationRepository(db)
		seed := []models.ProtocolViolation{
			violation("run-1", "a", models.ViolationRegression),
			violation("run-1", "", models.ViolationCountMismatch),
			violation("run-2", "b", models.ViolationRegression),
			violation("run-2", "c", models.ViolationIDMismatch),
		}
		for _, v := range seed {
			if _, err := repo.Create(ctx, v); err != nil {
				t.Fatalf("failed to seed violation: %v", err)
			}
		}

		tests := []struct {
			name    string
			filter  ViolationFilter
			wantJob []models.JobID
		}{
			{"all", ViolationFilter{}, []models.JobID{"a", "", "b", "c"}},
			{"by run", ViolationFilter{RunID: "run-2"}, []models.JobID{"b", "c"}},
			{"by kind", ViolationFilter{Kind: models.ViolationRegression}, []models.JobID{"a", "b"}},
			{"run and kind", ViolationFilter{RunID: "run-1", Kind: models.ViolationRegression}, []models.JobID{"a"}},
			{"limit keeps most recent", ViolationFilter{Limit: 2}, []models.JobID{"b", "c"}},
			{"no match", ViolationFilter{RunID: "run-3"}, nil},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.List(ctx, tt.filter)
				if err != nil {
					t.Fatalf("failed to list violations: %v", err)
				}
				if len(got) != len(tt.wantJob) {
					t.Fatalf("expected %d violations, got %d", len(tt.wantJob), len(got))
				}
				for i, v := range got {
					if v.JobID != tt.wantJob[i] {
						t.Errorf("position %d: expected job %q, got %q", i, tt.wantJob[i], v.JobID)
					}
					if i > 0 && v.Sequence <= got[i-1].Sequence {
						t.Errorf("expected ascending sequence, got %d after %d", v.Sequence, got[i-1].Sequence)
					}
				}
			})
		}
	})

	t.Run("CountByKind", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewViolationRepository(db)
		for _, kind := range []models.ViolationKind{models.ViolationRegression, models.ViolationRegression, models.ViolationCountMismatch} {
			if _, err := repo.Create(ctx, violation("run-1", "j1", kind)); err != nil {
				t.Fatalf("failed to seed violation: %v", err)
			}
		}

		counts, err := repo.CountByKind(ctx)
		if err != nil {
			t.Fatalf("failed to count violations: %v", err)
		}
		if counts[models.ViolationRegression] != 2 || counts[models.ViolationCountMismatch] != 1 {
			t.Errorf("unexpected counts %v", counts)
		}
		if _, ok := counts[models.ViolationIDMismatch]; ok {
			t.Error("expected no entry for kinds never recorded")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewViolationRepository(db)
		for range 3 {
			if _, err := repo.Create(ctx, violation("run-1", "j1", models.ViolationRegression)); err != nil {
				t.Fatalf("failed to seed violation: %v", err)
			}
		}

		removed, err := repo.Clear(ctx)
		if err != nil {
			t.Fatalf("failed to clear violations: %v", err)
		}
		if removed != 3 {
			t.Errorf("expected 3 removed, got %d", removed)
		}

		counts, err := repo.CountByKind(ctx)
		if err != nil {
			t.Fatalf("failed to count violations: %v", err)
		}
		if len(counts) != 0 {
			t.Errorf("expected empty ledger, got %v", counts)
		}

		next, err := repo.Create(ctx, violation("run-2", "j2", models.ViolationRegression))
		if err != nil {
			t.Fatalf("failed to create violation: %v", err)
		}
		if next.Sequence != 4 {
			t.Errorf("expected sequence to continue at 4, got %d", next.Sequence)
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewViolationRepository(db).Get(ctx, "nonexistent-id"); err == nil {
			t.Fatal("expected error when getting nonexistent violation")
		}
	})
}

func TestNextSequence(t *testing.T) {
	ctx := context.Background()

	t.Run("Increments", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		for want := 1; want <= 3; want++ {
			var got int
			err := inTx(ctx, db, func(tx *sql.Tx) error {
				var err error
				got, err = NextSequence(ctx, tx, "violations")
				return err
			})
			if err != nil {
				t.Fatalf("failed to get sequence: %v", err)
			}
			if got != want {
				t.Errorf("expected sequence %d, got %d", want, got)
			}
		}
	})

	t.Run("Rolled Back With Caller", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		boom := errors.New("boom")
		err := inTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := NextSequence(ctx, tx, "violations"); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}

		v, err := NewViolationRepository(db).Create(ctx, models.ProtocolViolation{
			RunID: "run-1",
			JobID: "job-1",
			Kind:  models.ViolationRegression,
		})
		if err != nil {
			t.Fatalf("failed to create violation: %v", err)
		}
		if v.Sequence != 1 {
			t.Errorf("expected sequence 1 after rollback, got %d", v.Sequence)
		}
	})

	t.Run("Unknown Table", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		err := inTx(ctx, db, func(tx *sql.Tx) error {
			_, err := NextSequence(ctx, tx, "nope")
			return err
		})
		if err == nil {
			t.Error("expected error for missing sequence table")
		}
	})
}
