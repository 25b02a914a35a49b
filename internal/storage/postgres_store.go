package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/soltixdb/weathermetrics/internal/config"
	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/models"
	"github.com/soltixdb/weathermetrics/internal/utils"
)

const (
	defaultReadingTable = "weather_reading"
	defaultMetricTable  = "weather_metric"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresStore keeps readings in two PostgreSQL tables: one row per reading
// and one row per metric, ordered by position within the reading.
type PostgresStore struct {
	db           *sql.DB
	readingTable string
	metricTable  string
	logger       *logging.Logger
}

// PostgresOption configures the store
type PostgresOption func(*PostgresStore)

// WithTablePrefix prepends prefix to both table names
func WithTablePrefix(prefix string) PostgresOption {
	return func(s *PostgresStore) {
		if prefix != "" {
			s.readingTable = prefix + defaultReadingTable
			s.metricTable = prefix + defaultMetricTable
		}
	}
}

// NewPostgresStore opens a connection pool, verifies it and creates the
// tables when missing
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig, logger *logging.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLife > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLife)
	}

	pingCtx, cancel := context.WithTimeout(ctx, utils.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	store, err := newPostgresStoreWithDB(db, logger, WithTablePrefix(cfg.TablePrefix))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	store.logger.Info("Postgres store initialized",
		"reading_table", store.readingTable,
		"metric_table", store.metricTable,
		"max_open_conns", cfg.MaxOpenConns)
	return store, nil
}

func newPostgresStoreWithDB(db *sql.DB, logger *logging.Logger, opts ...PostgresOption) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("postgres store: nil db")
	}
	if logger == nil {
		logger = logging.Global()
	}
	logger = logger.Named("storage.postgres")
	s := &PostgresStore{
		db:           db,
		readingTable: defaultReadingTable,
		metricTable:  defaultMetricTable,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !identifierPattern.MatchString(s.readingTable) || !identifierPattern.MatchString(s.metricTable) {
		return nil, fmt.Errorf("postgres store: invalid table name %q", s.readingTable)
	}
	return s, nil
}

// EnsureSchema creates the tables and indexes if they do not exist.
// Existing tables are never altered.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id        TEXT PRIMARY KEY,
	seq       BIGSERIAL NOT NULL,
	sensor_id TEXT NOT NULL,
	ts        TIMESTAMPTZ NOT NULL
)`, s.readingTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_ts_idx ON %s (ts, seq)`, s.readingTable, s.readingTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_sensor_ts_idx ON %s (sensor_id, ts, seq)`, s.readingTable, s.readingTable),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	reading_id   TEXT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	metric_name  TEXT NOT NULL,
	metric_value DOUBLE PRECISION NOT NULL,
	unit         TEXT,
	PRIMARY KEY (reading_id, position)
)`, s.metricTable, s.readingTable),
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Append inserts the reading and its metrics in one transaction.
// TIMESTAMPTZ keeps microseconds, so the timestamp is truncated before
// storing and the returned reading matches what a later List yields.
func (s *PostgresStore) Append(ctx context.Context, reading models.Reading) (models.Reading, error) {
	stored := prepareReading(reading)
	stored.Timestamp = stored.Timestamp.Truncate(time.Microsecond)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Reading{}, fmt.Errorf("failed to begin transaction: %w", err)
	}

	insertReading := fmt.Sprintf(`INSERT INTO %s (id, sensor_id, ts) VALUES ($1, $2, $3)`, s.readingTable)
	if _, err := tx.ExecContext(ctx, insertReading, stored.ID, stored.SensorID, stored.Timestamp); err != nil {
		_ = tx.Rollback()
		return models.Reading{}, fmt.Errorf("failed to insert reading: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (reading_id, position, metric_name, metric_value, unit) VALUES ($1, $2, $3, $4, $5)`,
		s.metricTable))
	if err != nil {
		_ = tx.Rollback()
		return models.Reading{}, fmt.Errorf("failed to prepare metric insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range stored.Metrics {
		unit := sql.NullString{}
		if m.Unit != "" {
			unit = sql.NullString{String: m.Unit, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, stored.ID, i, string(m.MetricName), m.MetricValue, unit); err != nil {
			_ = tx.Rollback()
			return models.Reading{}, fmt.Errorf("failed to insert metric: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Reading{}, fmt.Errorf("failed to commit reading: %w", err)
	}
	return stored, nil
}

// List returns the readings of the given sensors, or all readings
func (s *PostgresStore) List(ctx context.Context, sensorIDs []string) ([]models.Reading, error) {
	return s.query(ctx, sensorIDs, nil, nil)
}

// ListBetween returns readings with timestamps within [start, end]
func (s *PostgresStore) ListBetween(ctx context.Context, sensorIDs []string, start, end time.Time) ([]models.Reading, error) {
	return s.query(ctx, sensorIDs, &start, &end)
}

func (s *PostgresStore) query(ctx context.Context, sensorIDs []string, start, end *time.Time) ([]models.Reading, error) {
	query := fmt.Sprintf(`
SELECT r.id, r.sensor_id, r.ts, m.metric_name, m.metric_value, m.unit
FROM %s r
LEFT JOIN %s m ON m.reading_id = r.id
WHERE 1 = 1`, s.readingTable, s.metricTable)

	var args []any
	if len(sensorIDs) > 0 {
		args = append(args, uniqueSensors(sensorIDs))
		query += fmt.Sprintf(" AND r.sensor_id = ANY($%d)", len(args))
	}
	if start != nil {
		args = append(args, start.UTC())
		query += fmt.Sprintf(" AND r.ts >= $%d", len(args))
	}
	if end != nil {
		args = append(args, end.UTC())
		query += fmt.Sprintf(" AND r.ts <= $%d", len(args))
	}
	query += " ORDER BY r.ts, r.seq, m.position"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := make([]models.Reading, 0)
	for rows.Next() {
		var (
			id, sensorID string
			ts           time.Time
			name, unit   sql.NullString
			value        sql.NullFloat64
		)
		if err := rows.Scan(&id, &sensorID, &ts, &name, &value, &unit); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}

		// Rows of one reading are adjacent thanks to the ORDER BY
		if n := len(readings); n == 0 || readings[n-1].ID != id {
			readings = append(readings, models.Reading{
				ID:        id,
				SensorID:  sensorID,
				Timestamp: ts.UTC(),
				Metrics:   []models.Metric{},
			})
		}
		if name.Valid {
			last := &readings[len(readings)-1]
			last.Metrics = append(last.Metrics, models.Metric{
				MetricName:  models.MetricName(name.String),
				MetricValue: value.Float64,
				Unit:        unit.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return readings, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
