package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/config"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/repo"
)

// ResolveProjectAndConfig picks the active project and loads its document
// config, seeding defaults into the ledger when none is stored yet. It
// prefers the explicit override, then the single project in the workspace.
// Projects are never created implicitly here: the equity pool size has to be
// stated, so creation goes through `swq project create`.
func ResolveProjectAndConfig(ctx context.Context, workspace, projectOverride string, r repo.Repo) (string, *config.Config, error) {
	projectID := projectOverride
	if projectID == "" {
		p, err := r.SingleProject(ctx)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return "", nil, fmt.Errorf("no project in workspace; run swq project create")
			}
			return "", nil, err
		}
		projectID = p.ID
	}
	if _, err := r.GetProject(ctx, projectID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil, fmt.Errorf("project %s not found; run swq project create", projectID)
		}
		return "", nil, err
	}

	cfg, err := r.GetProjectConfig(ctx, projectID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return "", nil, err
		}
		// Prefer a workspace sweaquity.yml over built-in defaults.
		if fileCfg, ferr := config.LoadOptional(workspace); ferr == nil && fileCfg != nil {
			cfg = fileCfg
		} else {
			cfg = config.Default(projectID)
		}
		if err := r.UpsertProjectConfig(ctx, projectID, cfg); err != nil {
			return "", nil, fmt.Errorf("seed project config: %w", err)
		}
	}
	cfg.Project.ID = projectID
	return projectID, cfg, nil
}
