// Package cli implements the import and watch commands.
package cli

import (
	"fmt"

	"github.com/mrlokans/koimport/internal/config"
	"github.com/mrlokans/koimport/internal/decision"
	"github.com/mrlokans/koimport/internal/importer"
	"github.com/mrlokans/koimport/internal/index"
	"github.com/mrlokans/koimport/internal/merge"
	"github.com/mrlokans/koimport/internal/render"
	"github.com/mrlokans/koimport/internal/snapshot"
	"github.com/mrlokans/koimport/internal/vault"
)

// Engine bundles the long-lived import components so both commands wire them
// the same way.
type Engine struct {
	Config     *config.Config
	Vault      *vault.Vault
	Index      *index.Index
	Candidates *index.CandidateIndex
	Snapshots  *snapshot.Store
	Resolver   *merge.Resolver
	Renderer   *render.Renderer
}

// NewEngine builds the engine from config. The caller owns Close().
func NewEngine(cfg *config.Config) (*Engine, error) {
	if cfg.Vault.Dir == "" {
		return nil, fmt.Errorf("vault directory is not set (VAULT_DIR)")
	}

	idx, err := index.NewIndex(cfg.Index.Path)
	if err != nil {
		return nil, err
	}

	candidates, err := index.NewCandidateIndex(idx, cfg.Index.CacheSize)
	if err != nil {
		idx.Close()
		return nil, err
	}

	snapshots := snapshot.NewStore(cfg.Snapshot.Dir, cfg.Snapshot.BackupDir)
	if cfg.Snapshot.RetryMaxTries > 0 {
		snapshots.MaxTries = cfg.Snapshot.RetryMaxTries
	}
	if cfg.Snapshot.RetryInterval > 0 {
		snapshots.Interval = cfg.Snapshot.RetryInterval
	}

	v := vault.New(cfg.Vault.Dir)

	return &Engine{
		Config:     cfg,
		Vault:      v,
		Index:      idx,
		Candidates: candidates,
		Snapshots:  snapshots,
		Resolver:   merge.NewResolver(v, snapshots, cfg.Vault.HighlightsDir),
		Renderer:   render.NewRenderer(),
	}, nil
}

// NewImporter assembles a batch importer with the given prompt surface.
func (e *Engine) NewImporter(prompter decision.Prompter, interactive bool) *importer.Importer {
	controller := decision.NewController(e.Resolver, prompter)
	return importer.New(e.Vault, e.Snapshots, e.Candidates, e.Resolver, controller, e.Renderer, importer.Options{
		Workers:     e.Config.Import.Workers,
		AutoMerge:   e.Config.Import.AutoMergeEnabled,
		Interactive: interactive,
	})
}

func (e *Engine) Close() error {
	return e.Index.Close()
}
