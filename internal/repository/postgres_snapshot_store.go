package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"RatePull/internal/domain/models"
	domrepo "RatePull/internal/domain/repository"
	applogger "RatePull/pkg/logger"
	pkgpg "RatePull/pkg/postgres"
)

// PGSnapshotStore implements SnapshotStore backed by Postgres.
type PGSnapshotStore struct {
	db *sql.DB
	cl *pkgpg.Client
	l  *applogger.Logger
}

func NewPGSnapshotStore(pg *pkgpg.Client) *PGSnapshotStore {
	return &PGSnapshotStore{db: pg.DB(), cl: pg}
}

// SetLogger injects a structured logger.
func (s *PGSnapshotStore) SetLogger(l *applogger.Logger) { s.l = l }

var schemaStmts = []string{
	`CREATE TABLE IF NOT EXISTS rate_snapshots (
        bank          TEXT NOT NULL,
        code          TEXT NOT NULL,
        name          TEXT,
        buy_cash      DOUBLE PRECISION,
        buy_transfer  DOUBLE PRECISION,
        sell          DOUBLE PRECISION,
        observed_at   TIMESTAMPTZ NOT NULL,
        source        TEXT NOT NULL DEFAULT '',
        recorded_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (bank, code, observed_at)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_rate_snapshots_code_observed
        ON rate_snapshots (code, observed_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_rate_snapshots_bank_observed
        ON rate_snapshots (bank, observed_at DESC)`,
}

// Init creates the snapshot table and indexes if missing.
func (s *PGSnapshotStore) Init(ctx context.Context) error {
	if err := s.cl.InitSchema(ctx, schemaStmts); err != nil {
		return models.NewStorageError("init", err)
	}
	return nil
}

const selectCols = `bank, code, name, buy_cash, buy_transfer, sell, observed_at, source, recorded_at`

const upsertQ = `
    INSERT INTO rate_snapshots
        (bank, code, name, buy_cash, buy_transfer, sell, observed_at, source, recorded_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
    ON CONFLICT (bank, code, observed_at) DO UPDATE SET
        name         = EXCLUDED.name,
        buy_cash     = EXCLUDED.buy_cash,
        buy_transfer = EXCLUDED.buy_transfer,
        sell         = EXCLUDED.sell,
        source       = EXCLUDED.source,
        recorded_at  = now()
    RETURNING (xmax = 0) AS inserted
`

// BulkUpsert writes each snapshot independently; one bad record does not
// abort the batch. Insert vs update is detected via xmax = 0 on the
// returned row.
func (s *PGSnapshotStore) BulkUpsert(ctx context.Context, snaps []models.Snapshot) (models.UpsertResult, error) {
	start := time.Now()
	var res models.UpsertResult
	var errs []error

	for i := range snaps {
		snap := &snaps[i]
		var inserted bool
		err := s.db.QueryRowContext(ctx, upsertQ,
			snap.Bank, snap.Code, snap.Name,
			snap.BuyCash, snap.BuyTransfer, snap.Sell,
			snap.ObservedAt, snap.Source,
		).Scan(&inserted)
		if err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("upsert %s/%s@%s: %w",
				snap.Bank, snap.Code, snap.ObservedAt.Format(time.RFC3339), err))
			continue
		}
		if inserted {
			res.Upserted++
		} else {
			res.Updated++
			res.Matched++
		}
	}

	if s.l != nil {
		s.l.Info("postgres bulk_upsert done",
			applogger.Int("total", len(snaps)),
			applogger.Int("upserted", res.Upserted),
			applogger.Int("updated", res.Updated),
			applogger.Int("failed", res.Failed),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	if len(errs) > 0 {
		return res, models.NewStorageError("bulk_upsert", errors.Join(errs...))
	}
	return res, nil
}

func (s *PGSnapshotStore) FindLatest(ctx context.Context, bank, code string) (*models.Snapshot, error) {
	q := `SELECT ` + selectCols + `
        FROM rate_snapshots
        WHERE bank = $1 AND code = $2
        ORDER BY observed_at DESC
        LIMIT 1`
	return s.queryOne(ctx, "find_latest", q, bank, code)
}

func (s *PGSnapshotStore) FindInWindow(ctx context.Context, bank, code string, from, to time.Time) ([]models.Snapshot, error) {
	q := `SELECT ` + selectCols + `
        FROM rate_snapshots
        WHERE bank = $1 AND code = $2 AND observed_at >= $3 AND observed_at <= $4
        ORDER BY observed_at ASC`
	return s.queryMany(ctx, "find_in_window", q, bank, code, from, to)
}

func (s *PGSnapshotStore) FindAllInWindow(ctx context.Context, code string, from, to time.Time) ([]models.Snapshot, error) {
	q := `SELECT ` + selectCols + `
        FROM rate_snapshots
        WHERE code = $1 AND observed_at >= $2 AND observed_at <= $3
        ORDER BY observed_at ASC`
	return s.queryMany(ctx, "find_all_in_window", q, code, from, to)
}

func (s *PGSnapshotStore) AggregateMinMax(ctx context.Context, bank, code string, from, to time.Time, field models.Field) (*float64, *float64, error) {
	col, err := fieldColumn(field)
	if err != nil {
		return nil, nil, err
	}
	q := fmt.Sprintf(`SELECT MIN(%s), MAX(%s)
        FROM rate_snapshots
        WHERE bank = $1 AND code = $2 AND observed_at >= $3 AND observed_at <= $4`, col, col)

	var min, max *float64
	if err := s.db.QueryRowContext(ctx, q, bank, code, from, to).Scan(&min, &max); err != nil {
		s.logQueryErr("aggregate_minmax", err)
		return nil, nil, models.NewStorageError("aggregate_minmax", err)
	}
	return min, max, nil
}

func (s *PGSnapshotStore) LatestPerBank(ctx context.Context, code string) ([]models.Snapshot, error) {
	q := `SELECT DISTINCT ON (bank) ` + selectCols + `
        FROM rate_snapshots
        WHERE code = $1
        ORDER BY bank ASC, observed_at DESC`
	return s.queryMany(ctx, "latest_per_bank", q, code)
}

func (s *PGSnapshotStore) LatestPerCode(ctx context.Context, bank string) ([]models.Snapshot, error) {
	q := `SELECT DISTINCT ON (code) ` + selectCols + `
        FROM rate_snapshots
        WHERE bank = $1
        ORDER BY code ASC, observed_at DESC`
	return s.queryMany(ctx, "latest_per_code", q, bank)
}

func (s *PGSnapshotStore) FindLatestAtOrBefore(ctx context.Context, bank, code string, cutoff time.Time) (*models.Snapshot, error) {
	q := `SELECT ` + selectCols + `
        FROM rate_snapshots
        WHERE bank = $1 AND code = $2 AND observed_at <= $3
        ORDER BY observed_at DESC
        LIMIT 1`
	return s.queryOne(ctx, "find_latest_at_or_before", q, bank, code, cutoff)
}

func (s *PGSnapshotStore) FindLatestWithValue(ctx context.Context, bank, code string, from, to time.Time, field models.Field, value float64) (*models.Snapshot, error) {
	col, err := fieldColumn(field)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT `+selectCols+`
        FROM rate_snapshots
        WHERE bank = $1 AND code = $2
          AND observed_at >= $3 AND observed_at <= $4
          AND %s = $5
        ORDER BY observed_at DESC
        LIMIT 1`, col)
	return s.queryOne(ctx, "find_latest_with_value", q, bank, code, from, to, value)
}

func (s *PGSnapshotStore) Health(ctx context.Context) error {
	return s.cl.Health(ctx)
}

func (s *PGSnapshotStore) Close() error {
	return s.cl.Close()
}

func (s *PGSnapshotStore) queryOne(ctx context.Context, op, q string, args ...any) (*models.Snapshot, error) {
	var snap models.Snapshot
	err := s.db.QueryRowContext(ctx, q, args...).Scan(
		&snap.Bank, &snap.Code, &snap.Name,
		&snap.BuyCash, &snap.BuyTransfer, &snap.Sell,
		&snap.ObservedAt, &snap.Source, &snap.RecordedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logQueryErr(op, err)
		return nil, models.NewStorageError(op, err)
	}
	return &snap, nil
}

func (s *PGSnapshotStore) queryMany(ctx context.Context, op, q string, args ...any) ([]models.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.logQueryErr(op, err)
		return nil, models.NewStorageError(op, err)
	}
	defer rows.Close()

	out := make([]models.Snapshot, 0, 64)
	for rows.Next() {
		var snap models.Snapshot
		if err := rows.Scan(
			&snap.Bank, &snap.Code, &snap.Name,
			&snap.BuyCash, &snap.BuyTransfer, &snap.Sell,
			&snap.ObservedAt, &snap.Source, &snap.RecordedAt,
		); err != nil {
			s.logQueryErr(op, err)
			return nil, models.NewStorageError(op, err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		s.logQueryErr(op, err)
		return nil, models.NewStorageError(op, err)
	}
	return out, nil
}

func (s *PGSnapshotStore) logQueryErr(op string, err error) {
	if s.l != nil {
		s.l.Error("postgres query error",
			applogger.String("op", op),
			applogger.Error(err),
		)
	}
}

// fieldColumn whitelists the sortable price columns; field values never
// reach the query text unvalidated.
func fieldColumn(f models.Field) (string, error) {
	switch f {
	case models.FieldBuyCash:
		return "buy_cash", nil
	case models.FieldBuyTransfer:
		return "buy_transfer", nil
	case models.FieldSell:
		return "sell", nil
	default:
		return "", fmt.Errorf("unsupported field: %s", f)
	}
}

var _ domrepo.SnapshotStore = (*PGSnapshotStore)(nil)
