package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/repositories"
	"github.com/desertthunder/webpq/internal/shared"
	"github.com/urfave/cli/v3"
)

var violationKinds = []models.ViolationKind{
	models.ViolationRegression, models.ViolationCountMismatch, models.ViolationIDMismatch,
}

// ViolationsList prints recorded protocol violations, oldest first, followed by per-kind totals.
func (r *Runner) ViolationsList(ctx context.Context, cmd *cli.Command) error {
	kind := models.ViolationKind(cmd.String("kind"))
	if kind != "" && !slices.Contains(violationKinds, kind) {
		return fmt.Errorf("%w: unknown violation kind %q", shared.ErrInvalidFlag, kind)
	}

	db, repo, err := r.openLedger(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	violations, err := repo.List(ctx, repositories.ViolationFilter{
		RunID: cmd.String("run"),
		Kind:  kind,
		Limit: int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(violations, true)
	}

	if len(violations) == 0 {
		r.writePlain("No violations recorded\n")
		return nil
	}

	for _, v := range violations {
		r.writePlain("#%d %s [run %s] %s\n", v.Sequence, v.ObservedAt.Local().Format("2006-01-02 15:04:05"), v.RunID, v.String())
	}

	counts, err := repo.CountByKind(ctx)
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Totals")
	for _, k := range violationKinds {
		r.writePlain("%s: %d\n", k, counts[k])
	}
	return nil
}

// ViolationsClear deletes every recorded violation.
func (r *Runner) ViolationsClear(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := r.openLedger(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := repo.Clear(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("violations cleared", "count", n)
	r.writePlain("✓ Removed %d violations\n", n)
	return nil
}
