package config

import (
	"context"
	"fmt"

	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/fsutil"
)

// Loader is the interface for a format-specific descriptor loader.
type Loader interface {
	// Extensions lists the file extensions the loader understands,
	// including the leading dot.
	Extensions() []string
	// Load reads the given files and translates them into the
	// format-agnostic model.
	Load(ctx context.Context, files ...string) (*Model, error)
}

// LoadAll discovers descriptor files under paths for every loader, loads
// them, merges the results and validates the combined model. Paths may be
// files or directories; missing paths are skipped.
func LoadAll(ctx context.Context, paths []string, loaders ...Loader) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := &Model{}

	for _, l := range loaders {
		files, err := fsutil.FindFilesByExtension(paths, l.Extensions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to discover descriptor files: %w", err)
		}
		if len(files) == 0 {
			continue
		}
		logger.Debug("Discovered descriptor files.", "extensions", l.Extensions(), "count", len(files))

		m, err := l.Load(ctx, files...)
		if err != nil {
			return nil, err
		}
		model.Merge(m)
	}

	if len(model.Services) == 0 {
		logger.Warn("No service descriptors found.", "paths", paths)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Service descriptors loaded.", "services", len(model.Services))
	return model, nil
}
