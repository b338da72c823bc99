package store

import (
	"context"
	"fmt"

	"github.com/WyZzYx/Jobsight/internal/model"
)

// Open returns the store selected by driver: "sqlite" (default), "postgres" or "memory".
func Open(ctx context.Context, driver, path, dsn string) (model.Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLiteStore(path)
	case "postgres":
		return NewPostgresStore(ctx, dsn)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
