package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver        string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	DatabaseURL   string
}

// Migrator is implemented by backends that need a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Open connects to the configured backend and verifies it answers a ping.
// SQL backends are migrated on open.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		st  Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, "":
		st, err = openSQLite(opts.SQLitePath)
	case DriverRedis:
		st = NewRedis(redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
		}))
	case DriverPostgres:
		st, err = openPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, err
	}
	if m, ok := st.(Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
	}
	return st, nil
}

func openSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "booking.db"
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		// writers wait on each other instead of failing with SQLITE_BUSY
		dsn += "?_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite open %s: %w", ErrUnavailable, path, err)
	}
	return NewSQLite(db)
}

func openPostgres(ctx context.Context, url string) (*Postgres, error) {
	if url == "" {
		return nil, fmt.Errorf("store: DATABASE_URL is required for the postgres driver")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres connect: %w", ErrUnavailable, err)
	}
	return NewPostgres(pool), nil
}
