// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/pdiddy/submission-analyzer/internal/batch"
	"github.com/pdiddy/submission-analyzer/internal/model"
	"github.com/pdiddy/submission-analyzer/internal/pipeline"
	"github.com/pdiddy/submission-analyzer/internal/runlog"
	"github.com/pdiddy/submission-analyzer/internal/secrets"
	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// session holds what every phase command needs: the validated batch
// configuration, the run log and a model client.
type session struct {
	cfg   types.BatchConfig
	paths batch.Paths
	log   *runlog.Logger
	deps  pipeline.Deps
}

// resolveBatch builds the configuration of batch id from viper and the
// credential sources. It does not validate.
func resolveBatch(id string) (types.BatchConfig, error) {
	settings, err := batch.Load(viper.GetViper())
	if err != nil {
		return types.BatchConfig{}, err
	}
	cfg, err := batch.Resolve(id, settings)
	if err != nil {
		return types.BatchConfig{}, err
	}
	key, err := secrets.APIKey(cfg.Model.Provider, secrets.DefaultDir)
	if err != nil {
		return types.BatchConfig{}, err
	}
	cfg.APIKey = key
	return cfg, nil
}

// openSession validates the batch before any model call, prepares the
// output directory and opens the run log.
func openSession(ctx context.Context, id string) (*session, error) {
	cfg, err := resolveBatch(id)
	if err != nil {
		return nil, err
	}
	return openSessionFor(ctx, cfg)
}

// openSessionFor is openSession for an already resolved configuration.
func openSessionFor(ctx context.Context, cfg types.BatchConfig) (*session, error) {
	if err := batch.Validate(cfg); err != nil {
		return nil, err
	}

	paths, err := batch.Prepare(cfg)
	if err != nil {
		return nil, err
	}
	log, err := runlog.Open(paths.Logs, os.Stderr)
	if err != nil {
		return nil, err
	}

	backend, err := model.NewBackend(ctx, cfg.Model, cfg.APIKey)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("creating %s backend: %w", cfg.Model.Provider, err)
	}

	return &session{
		cfg:   cfg,
		paths: paths,
		log:   log,
		deps: pipeline.Deps{
			Requester: model.NewClient(backend, log),
			Log:       log,
		},
	}, nil
}

func (s *session) close() {
	s.log.Close()
}
