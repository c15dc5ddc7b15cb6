package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
)

// observedAtLayout is fixed width in UTC so that text order in SQLite
// matches time order.
const observedAtLayout = "2006-01-02T15:04:05.000000000Z"

const defaultListLimit = 1000

// SQLiteStore keeps readings in the local sensor_readings table.
type SQLiteStore struct {
	db    *sql.DB
	limit int
}

// NewSQLiteStore creates a store over db. List returns at most limit rows;
// a non-positive limit uses the default.
func NewSQLiteStore(db *sql.DB, limit int) *SQLiteStore {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return &SQLiteStore{db: db, limit: limit}
}

// Append inserts one reading.
func (s *SQLiteStore) Append(ctx context.Context, r greenhouse.Reading) error {
	at := r.ObservedAt
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sensor_readings (sensor_type, value, observed_at) VALUES (?, ?, ?)`,
		string(r.Sensor), r.Value, at.UTC().Format(observedAtLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// List returns the newest readings, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]greenhouse.Reading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sensor_type, value, observed_at FROM sensor_readings
		 ORDER BY observed_at DESC, id DESC LIMIT ?`,
		s.limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var (
		readings []greenhouse.Reading
		errs     []error
	)
	for rows.Next() {
		var (
			sensor, observed string
			value            float64
		)
		if err := rows.Scan(&sensor, &value, &observed); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}

		kind, err := greenhouse.ParseSensorKind(sensor)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		at, err := time.Parse(observedAtLayout, observed)
		if err != nil {
			errs = append(errs, fmt.Errorf("observed_at %q: %w", observed, err))
			continue
		}
		readings = append(readings, greenhouse.Reading{Sensor: kind, Value: value, ObservedAt: at})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}

	return readings, errors.Join(errs...)
}

// Prune deletes readings observed before cutoff and returns how many
// were removed.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sensor_readings WHERE observed_at < ?`,
		cutoff.UTC().Format(observedAtLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning readings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning readings: %w", err)
	}
	return n, nil
}

// PruneEvery deletes readings older than retention once per interval until
// ctx is cancelled. A non-positive retention disables pruning.
func (s *SQLiteStore) PruneEvery(ctx context.Context, retention, interval time.Duration, logger Logger) {
	if retention <= 0 || interval <= 0 {
		return
	}
	if logger == nil {
		logger = nopLogger{}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.Prune(ctx, now.Add(-retention))
			if err != nil {
				logger.Warn("pruning history failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("pruned history", "rows", n)
			}
		}
	}
}
