// Package storage is the key-value gateway to durable state. Values are
// opaque text; callers own the encoding.
package storage

import (
	"context"
	"fmt"
)

// Store reads and writes named text entries.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config selects and configures a Store implementation.
type Config struct {
	Driver   string
	DSN      string // sqlite file or postgres DSN
	RedisURL string
}

// Open builds the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, DriverPostgres:
		db, err := OpenGORM(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return NewGORMStore(ctx, db)
	case DriverRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Keys names the persisted entries. All keys share Prefix.
type Keys struct {
	Prefix string
}

// DefaultKeys uses the "se_" prefix.
var DefaultKeys = Keys{Prefix: "se_"}

func (k Keys) Users() string   { return k.Prefix + "users" }
func (k Keys) Posts() string   { return k.Prefix + "posts" }
func (k Keys) Current() string { return k.Prefix + "current" }
func (k Keys) Market() string  { return k.Prefix + "market" }

// Draft is the per-user draft key.
func (k Keys) Draft(username string) string {
	return k.Prefix + "draft_" + username
}

// Saved is the saved-items key for owner; an empty owner selects the
// device-wide list.
func (k Keys) Saved(owner string) string {
	if owner == "" {
		return k.Prefix + "saved_items"
	}
	return k.Prefix + "saved_items_" + owner
}
