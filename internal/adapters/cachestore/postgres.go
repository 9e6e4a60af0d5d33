package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/matshaug/flagline/internal/adapters/database"
	"github.com/matshaug/flagline/internal/config"
	"github.com/matshaug/flagline/internal/domain"
)

const enabledSettingKey = "extension_enabled"

type PostgresSnapshotStore struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresSnapshotStore(db *sqlx.DB, schema string) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db, schema: schema}
}

type dbCacheEntry struct {
	Handle   string    `db:"handle"`
	Location string    `db:"location"`
	CachedAt time.Time `db:"cached_at"`
	Expiry   time.Time `db:"expiry"`
}

func (p *PostgresSnapshotStore) Load(ctx context.Context) (map[string]domain.CacheEntry, error) {
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("Load: failed to get connection: %w", err)
	}
	defer conn.Close()

	if err := p.setSearchPath(ctx, conn); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	var rows []dbCacheEntry
	err = conn.SelectContext(ctx, &rows, "SELECT handle, location, cached_at, expiry FROM location_cache")
	if err != nil {
		return nil, fmt.Errorf("Load: failed to select entries: %w", err)
	}

	entries := make(map[string]domain.CacheEntry, len(rows))
	for _, row := range rows {
		location := row.Location
		entries[row.Handle] = domain.CacheEntry{
			Location: &location,
			CachedAt: row.CachedAt,
			Expiry:   row.Expiry,
		}
	}
	return entries, nil
}

// Save replaces the persisted snapshot. Entries without a location are the
// caller's responsibility to filter; they are skipped here as a safety net.
func (p *PostgresSnapshotStore) Save(ctx context.Context, entries map[string]domain.CacheEntry) error {
	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Save: failed to start transaction: %w", err)
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		return fmt.Errorf("Save: failed to set search path: %w", err)
	}

	_, err = txx.ExecContext(ctx, "DELETE FROM location_cache")
	if err != nil {
		return fmt.Errorf("Save: failed to clear old snapshot: %w", err)
	}

	for handle, entry := range entries {
		if entry.Location == nil {
			continue
		}
		_, err = txx.ExecContext(
			ctx,
			`INSERT INTO location_cache (handle, location, cached_at, expiry)
			VALUES ($1, $2, $3, $4)`,
			handle,
			*entry.Location,
			entry.CachedAt,
			entry.Expiry,
		)
		if err != nil {
			return fmt.Errorf("Save: failed to insert entry: %w", err)
		}
	}

	if err := txx.Commit(); err != nil {
		return fmt.Errorf("Save: failed to commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresSnapshotStore) Enabled(ctx context.Context) (bool, error) {
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return true, fmt.Errorf("Enabled: failed to get connection: %w", err)
	}
	defer conn.Close()

	if err := p.setSearchPath(ctx, conn); err != nil {
		return true, fmt.Errorf("Enabled: %w", err)
	}

	var value string
	err = conn.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = $1", enabledSettingKey)
	if errors.Is(err, sql.ErrNoRows) {
		// Annotation is on until explicitly toggled off.
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("Enabled: failed to select setting: %w", err)
	}
	return value == "true", nil
}

func (p *PostgresSnapshotStore) SetEnabled(ctx context.Context, enabled bool) error {
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("SetEnabled: failed to get connection: %w", err)
	}
	defer conn.Close()

	if err := p.setSearchPath(ctx, conn); err != nil {
		return fmt.Errorf("SetEnabled: %w", err)
	}

	value := "false"
	if enabled {
		value = "true"
	}
	_, err = conn.ExecContext(
		ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		enabledSettingKey,
		value,
	)
	if err != nil {
		return fmt.Errorf("SetEnabled: failed to upsert setting: %w", err)
	}
	return nil
}

func (p *PostgresSnapshotStore) setSearchPath(ctx context.Context, conn *sqlx.Conn) error {
	_, err := conn.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		return fmt.Errorf("failed to set search path: %w", err)
	}
	return nil
}

// NewPostgresSnapshotStoreOrStub connects to Postgres and migrates the
// schema. In development a connection failure falls back to the in-memory
// stub so the annotator still runs, just without cross-session caching.
func NewPostgresSnapshotStoreOrStub(ctx context.Context, conf config.Config, logger *slog.Logger) (SnapshotStore, error) {
	connectionString := conf.DatabaseURL()
	if connectionString == "" {
		connectionString = database.LOCAL_CONNECTION_STRING
	}

	schemaName := database.GetSchemaName(!conf.IsProduction())

	logger.Info("Initializing database connection")
	db, err := database.NewPostgresDatabase(connectionString)

	if err == nil {
		err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, schemaName)
		if err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return NewPostgresSnapshotStore(db, schemaName), nil
	}

	if conf.IsDevelopment() {
		logger.Warn("Failed to connect to database. Falling back to stub snapshot store.", "error", err.Error())
		return NewStubSnapshotStore(), nil
	}

	return nil, fmt.Errorf("failed to connect to database: %w", err)
}
