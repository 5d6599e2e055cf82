package storage

import (
	"context"
	"fmt"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// Options selects and configures a Store implementation.
type Options struct {
	Driver        string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
	FilePath      string
}

// Open returns the Store selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverSQLite:
		return NewSQLiteStore(opts.SQLitePath)
	case DriverMongo:
		return NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase)
	case DriverFile:
		return NewFileStore(opts.FilePath)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
