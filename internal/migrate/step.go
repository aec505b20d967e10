// Copyright 2024 evolvedb.

package migrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/juju/zaputil/zapctx"
	"go.uber.org/zap"

	"github.com/evolvedb/evolve/internal/db"
	"github.com/evolvedb/evolve/internal/errors"
	"github.com/evolvedb/evolve/internal/schema"
	"github.com/evolvedb/evolve/internal/servermon"
	"github.com/evolvedb/evolve/internal/version"
)

// A StepExecutor applies single version-to-version migration steps to a
// live database.
type StepExecutor struct {
	// Model is the annotated schema template.
	Model *schema.Model

	// Database is the database being migrated.
	Database *db.Database

	// Differ is the diff collaborator.
	Differ Differ

	// Hooks is the upgrade-hook collaborator. If nil no hooks are run.
	Hooks UpgradeHooks
}

// A StepResult describes the outcome of a single applied step.
type StepResult struct {
	// From and To are the step's version pair.
	From version.Version
	To   version.Version

	// NoOp reports that the step's versions were equal and nothing was
	// executed.
	NoOp bool

	// Statements holds the DDL statements that were executed, after
	// boilerplate filtering, excluding hook-supplied statements.
	Statements []string
}

// hooks returns the configured hook collaborator, or NoHooks.
func (e *StepExecutor) hooks() UpgradeHooks {
	if e.Hooks == nil {
		return NoHooks{}
	}
	return e.Hooks
}

// ApplyStep migrates the database from the current version to the target
// version. The DDL produced by the diff collaborator, the statements and
// after-hooks supplied by the upgrade collaborator, and the version
// record write are executed in one transaction: a single failure rolls
// the whole step back, leaving the database and the version record
// exactly as they were, and returns an error with a code of
// errors.CodeStepExecution naming the offending statement.
//
// When current equals target the step is a no-op: no DDL runs, the
// version record is untouched and the result reports NoOp.
func (e *StepExecutor) ApplyStep(ctx context.Context, current, target version.Version) (*StepResult, error) {
	const op = errors.Op("migrate.ApplyStep")

	if e.Database == nil || e.Database.DB == nil {
		return nil, errors.E(op, errors.CodeServerConfiguration, "database not configured")
	}
	if e.Differ == nil {
		return nil, errors.E(op, errors.CodeServerConfiguration, "no diff collaborator configured")
	}
	res := &StepResult{From: current, To: target}
	if current.Equal(target) {
		zapctx.Info(ctx, "database already at version, nothing to do", zap.Stringer("version", target))
		res.NoOp = true
		return res, nil
	}
	dialect := e.Database.Name()
	durationObserver := servermon.StepDurationHistogram.WithLabelValues(dialect)
	defer func(start time.Time) {
		durationObserver.Observe(time.Since(start).Seconds())
	}(time.Now())

	// The current-version projection comes from the live context. The
	// target-version projection needs a second context bound with the
	// same credentials; the database is not at that version yet, so the
	// version-match safety check is suppressed for that one context.
	liveCtx, err := schema.NewContext(ctx, schema.ContextParams{
		Model:    e.Model,
		Database: e.Database,
		Version:  current,
	})
	if err != nil {
		return nil, errors.E(op, err)
	}
	targetCtx, err := schema.NewContext(ctx, schema.ContextParams{
		Model:            e.Model,
		Database:         e.Database,
		Version:          target,
		SkipVersionCheck: true,
	})
	if err != nil {
		return nil, errors.E(op, err)
	}
	from, _, err := liveCtx.Project()
	if err != nil {
		return nil, errors.E(op, err)
	}
	to, _, err := targetCtx.Project()
	if err != nil {
		return nil, errors.E(op, err)
	}

	for _, h := range e.hooks().Before(target) {
		if err := h(ctx, e.Database); err != nil {
			return nil, errors.E(op, err, fmt.Sprintf("before-hook for version %s failed", target))
		}
	}

	stmts, err := e.Differ.Diff(ctx, from, to, dialect)
	if err != nil {
		servermon.DiffErrorCount.WithLabelValues(dialect).Inc()
		return nil, errors.E(op, errors.CodeDiffGeneration, err)
	}
	res.Statements = filterStatements(stmts)
	zapctx.Info(ctx, "applying migration step",
		zap.Stringer("from", current),
		zap.Stringer("to", target),
		zap.Int("statements", len(res.Statements)),
	)

	err = e.Database.Transaction(func(tx *db.Database) error {
		for _, stmt := range e.hooks().UpgradeTo(target) {
			if err := tx.Exec(ctx, stmt); err != nil {
				return errors.E(errors.CodeStepExecution, err, fmt.Sprintf("upgrade statement %q failed", stmt))
			}
			servermon.StatementCount.WithLabelValues(dialect).Inc()
		}
		for _, stmt := range res.Statements {
			if err := tx.Exec(ctx, stmt); err != nil {
				return errors.E(errors.CodeStepExecution, err, fmt.Sprintf("statement %q failed", stmt))
			}
			servermon.StatementCount.WithLabelValues(dialect).Inc()
		}
		for _, h := range e.hooks().After(target) {
			if err := h(ctx, tx); err != nil {
				return errors.E(errors.CodeStepExecution, err, fmt.Sprintf("after-hook for version %s failed", target))
			}
		}
		// Folding the record write into the step transaction closes the
		// window where the schema and the recorded version could
		// diverge on a crash.
		return tx.SetCurrentVersion(ctx, target)
	})
	if err != nil {
		servermon.StepErrorCount.WithLabelValues(dialect).Inc()
		return nil, errors.E(op, err)
	}
	servermon.StepAppliedCount.WithLabelValues(dialect).Inc()
	return res, nil
}

// filterStatements removes dialect boilerplate from the diff output:
// empty lines, pure comment lines and transaction-boundary markers. The
// executor supplies its own transaction.
func filterStatements(stmts []string) []string {
	filtered := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
		if s == "" || strings.HasPrefix(s, "--") {
			continue
		}
		if strings.HasPrefix(s, "/*") && strings.HasSuffix(s, "*/") {
			continue
		}
		switch strings.ToUpper(s) {
		case "BEGIN", "BEGIN TRANSACTION", "START TRANSACTION", "COMMIT", "END", "END TRANSACTION":
			continue
		}
		filtered = append(filtered, stmt)
	}
	return filtered
}
