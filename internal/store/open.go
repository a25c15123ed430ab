package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/movieme/internal/metrics"
)

// Options selects and configures a backend for Open.
type Options struct {
	// Driver is one of memory, sqlite, badger, s3 or file.
	Driver string
	// Path is the database file (sqlite) or directory (badger, file).
	Path string
	// Key overrides DefaultKey.
	Key string
	S3  S3Config

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Drivers lists the accepted Options.Driver values.
var Drivers = []string{DriverMemory, DriverSQLite, DriverBadger, DriverS3, DriverFile}

// Open builds the backend named by opts.Driver and wraps it in a Store.
func Open(ctx context.Context, opts Options) (*Store, error) {
	backend, err := openBackend(ctx, opts)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("store opened", "driver", backend.Driver(), "path", opts.Path)

	return New(backend,
		WithKey(opts.Key),
		WithLogger(logger),
		WithMetrics(opts.Metrics),
	), nil
}

func openBackend(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryBackend(), nil
	case DriverSQLite, "":
		if opts.Path == "" {
			return nil, fmt.Errorf("%s: path is required", DriverSQLite)
		}
		return OpenSQLite(opts.Path)
	case DriverBadger:
		return OpenBadger(BadgerConfig{
			Dir:        opts.Path,
			SyncWrites: true,
			Logger:     opts.Logger,
			GCInterval: 5 * time.Minute,
		})
	case DriverS3:
		return OpenS3(ctx, opts.S3)
	case DriverFile:
		return OpenFile(opts.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q (want one of %v)", opts.Driver, Drivers)
	}
}
