// Package blob opens the configured blob backend.
package blob

import (
	"context"
	"fmt"

	"simcore/internal/blob/core"
	"simcore/internal/infra/blob/fs"
	"simcore/internal/infra/blob/memory"
	"simcore/internal/infra/blob/s3"
)

// Store is the blob contract used by the archive layer.
type Store = core.Store

// Config re-exports core.Config.
type Config = core.Config

// Open returns the backend cfg selects. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case core.DriverFilesystem, "":
		return fs.New(cfg.FSRoot)
	case core.DriverMemory:
		return memory.New(), nil
	case core.DriverS3:
		return s3.New(ctx, s3.FromCore(cfg))
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// OpenFromEnv is Open with core.ConfigFromEnv.
func OpenFromEnv(ctx context.Context) (Store, error) {
	return Open(ctx, core.ConfigFromEnv())
}
