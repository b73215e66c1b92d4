package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"supportlens/internal/app"
	"supportlens/internal/bootstrap"
	"supportlens/internal/config"
	"supportlens/internal/platform/logger"
)

type ingester interface {
	IngestDir(ctx context.Context, dir string) (*app.IngestResult, error)
	StagingDir() string
}

type searcher interface {
	Search(ctx context.Context, query string, k int) ([]app.SearchResult, error)
}

type answerer interface {
	Answer(ctx context.Context, query string) (*app.GeneratedAnswer, error)
	AnswerStream(ctx context.Context, query string, onChunk func(chunk string) error) (*app.GeneratedAnswer, error)
}

type services struct {
	Ingest ingester
	Search searcher
	Query  answerer
	Close  func()
}

// env is everything a command needs from the outside world. Tests swap in
// fakes; main uses defaultEnv.
type env struct {
	loadConfig   func() (*config.Config, error)
	openServices func(ctx context.Context, cfg *config.Config) (*services, error)
}

func defaultEnv() env {
	return env{
		loadConfig: config.Load,
		openServices: func(ctx context.Context, cfg *config.Config) (*services, error) {
			log, err := logger.New(cfg.App.LogMode)
			if err != nil {
				return nil, fmt.Errorf("init logger failed: %w", err)
			}
			a, err := bootstrap.New(ctx, cfg, log, bootstrap.Options{})
			if err != nil {
				log.Sync()
				return nil, err
			}
			return &services{
				Ingest: a.Ingest,
				Search: a.Search,
				Query:  a.Query,
				Close: func() {
					if err := a.Close(); err != nil {
						log.Warn("close resources failed", "error", err)
					}
					log.Sync()
				},
			}, nil
		},
	}
}

func newRootCmd(e env) *cobra.Command {
	root := &cobra.Command{
		Use:          "supportlensctl",
		Short:        "Operate the support document retrieval engine",
		SilenceUsage: true,
	}
	root.AddCommand(
		newIngestCmd(e),
		newSearchCmd(e),
		newAskCmd(e),
		newTokenCmd(e),
	)
	return root
}

// withServices loads config, opens the stores and runs fn against them.
func withServices(cmd *cobra.Command, e env, fn func(*config.Config, *services) error) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	svc, err := e.openServices(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if svc.Close != nil {
		defer svc.Close()
	}
	return fn(cfg, svc)
}
