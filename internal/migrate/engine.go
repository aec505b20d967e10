// Copyright 2024 evolvedb.

package migrate

import (
	"context"
	"sync/atomic"

	"github.com/juju/zaputil/zapctx"
	"go.uber.org/zap"

	"github.com/evolvedb/evolve/internal/db"
	"github.com/evolvedb/evolve/internal/errors"
	"github.com/evolvedb/evolve/internal/schema"
	"github.com/evolvedb/evolve/internal/version"
)

// An Engine drives a complete migration run: it reads the stored version,
// plans the ordered sequence of adjacent steps up to the schema's
// declared version and applies them one at a time. Steps are strictly
// sequential; each step's target becomes the next step's current version.
type Engine struct {
	// Model is the annotated schema template.
	Model *schema.Model

	// Database is the database being migrated.
	Database *db.Database

	// Differ is the diff collaborator.
	Differ Differ

	// Hooks is the upgrade-hook collaborator. If nil no hooks are run.
	Hooks UpgradeHooks

	// running holds whether a migration run is in flight. It is used
	// to reject re-entrant runs; callers must additionally ensure at
	// most one process migrates a given database at a time.
	running uint32
}

// hooks returns the configured hook collaborator, or NoHooks.
func (e *Engine) hooks() UpgradeHooks {
	if e.Hooks == nil {
		return NoHooks{}
	}
	return e.Hooks
}

// Upgrade migrates the database from its currently recorded version to
// the version declared by the schema template. It returns the last
// version that was successfully committed: on success that is the
// declared version, on a step failure it is the version of the last
// committed step, so the caller can retry and resume from that point.
//
// A fresh database with no version record is seeded with the template's
// base version; a template that declares no base version results in an
// error with a code of errors.CodeMissingBaseVersion. A second Upgrade
// call while one is in flight fails with errors.CodeUpgradeInProgress.
func (e *Engine) Upgrade(ctx context.Context) (version.Version, error) {
	const op = errors.Op("migrate.Upgrade")

	if e.Model == nil {
		return version.Version{}, errors.E(op, errors.CodeServerConfiguration, "no schema model configured")
	}
	if e.Database == nil || e.Database.DB == nil {
		return version.Version{}, errors.E(op, errors.CodeServerConfiguration, "database not configured")
	}
	if !atomic.CompareAndSwapUint32(&e.running, 0, 1) {
		return version.Version{}, errors.E(op, errors.CodeUpgradeInProgress)
	}
	defer atomic.StoreUint32(&e.running, 0)

	if err := e.Database.Init(ctx); err != nil {
		return version.Version{}, errors.E(op, err)
	}
	current, ok, err := e.Database.CurrentVersion(ctx)
	if err != nil {
		return version.Version{}, errors.E(op, err)
	}
	if !ok {
		if e.Model.BaseVersion == nil {
			return version.Version{}, errors.E(op, errors.CodeMissingBaseVersion, "schema template declares no base version")
		}
		current = *e.Model.BaseVersion
		if err := e.Database.SetCurrentVersion(ctx, current); err != nil {
			return version.Version{}, errors.E(op, err)
		}
		zapctx.Info(ctx, "seeded version record", zap.Stringer("version", current))
	}

	// Projecting at the declared version walks the whole template and
	// discovers every version literal it mentions, including those on
	// entities long since dropped. Those literals are step boundaries.
	_, discovered, err := schema.Project(e.Model, e.Model.Version)
	if err != nil {
		return current, errors.E(op, err)
	}
	hookVersions, err := e.hooks().Versions()
	if err != nil {
		return current, errors.E(op, err)
	}
	ordered := OrderedVersions(current, e.Model.Version, hookVersions, discovered)
	steps := Plan(ordered, current, e.Model.Version)
	if len(steps) == 0 {
		zapctx.Info(ctx, "database already at declared version", zap.Stringer("version", current))
		return current, nil
	}

	executor := &StepExecutor{
		Model:    e.Model,
		Database: e.Database,
		Differ:   e.Differ,
		Hooks:    e.Hooks,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return current, errors.E(op, err)
		}
		if _, err := executor.ApplyStep(ctx, step.From, step.To); err != nil {
			// Steps already committed stay committed; the caller can
			// resume from the returned version.
			return current, errors.E(op, err)
		}
		current = step.To
	}
	return current, nil
}
