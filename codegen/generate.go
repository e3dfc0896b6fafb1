package codegen

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ridoystarlord/rapidgen/logger"
	"github.com/ridoystarlord/rapidgen/schema"
)

// Target is one generated file.
type Target struct {
	Output  string
	Package string
}

// Config selects which files Generate writes. A nil target is skipped.
type Config struct {
	Client *Target
	Server *Target
	// ClientPackage is the client's import path, needed when the server is
	// generated into a different package.
	ClientPackage string
}

type job struct {
	name   string
	target *Target
	gen    func(*schema.Database, Options) ([]byte, error)
	opts   Options
}

// Generate renders and writes the configured files concurrently and returns
// the paths written.
func Generate(ctx context.Context, db *schema.Database, cfg Config) ([]string, error) {
	var jobs []job
	if cfg.Client != nil {
		jobs = append(jobs, job{"client", cfg.Client, GenerateClient, Options{Package: cfg.Client.Package}})
	}
	if cfg.Server != nil {
		opts := Options{Package: cfg.Server.Package}
		if cfg.Client == nil || cfg.Client.Package != cfg.Server.Package {
			opts.ClientPackage = cfg.ClientPackage
		}
		jobs = append(jobs, job{"server", cfg.Server, GenerateServer, opts})
	}

	log := logger.L().With().Str("component", "codegen").Logger()
	written := make([]string, len(jobs))
	errg, ctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		errg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := j.gen(db, j.opts)
			if err != nil {
				return fmt.Errorf("generating %s: %w", j.name, err)
			}
			if err := WriteGeneratedFile(j.target.Output, content); err != nil {
				return fmt.Errorf("writing %s: %w", j.name, err)
			}
			log.Debugf("wrote %s to %s (%d bytes)", j.name, j.target.Output, len(content))
			written[i] = j.target.Output
			return nil
		})
	}
	if err := errg.Wait(); err != nil {
		return nil, err
	}
	return written, nil
}
