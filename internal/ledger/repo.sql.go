package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists serial numbers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	Insert(ctx context.Context, sn SerialNumber) (SerialNumber, error)
	InsertSkipDuplicate(ctx context.Context, sn SerialNumber) (SerialNumber, bool, error)
	GetForUpdate(ctx context.Context, id int64) (SerialNumber, error)
	Update(ctx context.Context, sn SerialNumber) error
}

type txRepository struct {
	tx pgx.Tx
}

const serialColumns = `id, serial, product_id, status, location_id, notes, inventory_date, aging_status, needs_attention, last_alert_sent, created_at, updated_at`

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id int64) (SerialNumber, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+serialColumns+` FROM serial_numbers WHERE id = $1`, id)
	return scanSerial(row)
}

func (r *Repository) ListByProduct(ctx context.Context, productID int64) ([]SerialNumber, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+serialColumns+` FROM serial_numbers WHERE product_id = $1 ORDER BY serial ASC`, productID)
	if err != nil {
		return nil, err
	}
	return scanSerials(rows)
}

// ListAvailable returns IN_STOCK units for a product, serial ascending.
func (r *Repository) ListAvailable(ctx context.Context, productID int64) ([]SerialNumber, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+serialColumns+` FROM serial_numbers WHERE product_id = $1 AND status = $2 ORDER BY serial ASC`, productID, StatusInStock)
	if err != nil {
		return nil, err
	}
	return scanSerials(rows)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM serial_numbers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CountByStatus(ctx context.Context, productID int64) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM serial_numbers WHERE product_id = $1 GROUP BY status`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[Status]int{}
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *Repository) CountByAging(ctx context.Context, productID int64) (map[AgingStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT aging_status, COUNT(*) FROM serial_numbers WHERE product_id = $1 GROUP BY aging_status`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[AgingStatus]int{}
	for rows.Next() {
		var status AgingStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ListAgingSnapshot streams every tracked unit for the aging sweep.
func (r *Repository) ListAgingSnapshot(ctx context.Context) ([]SerialNumber, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+serialColumns+` FROM serial_numbers ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	return scanSerials(rows)
}

// UpdateAging rewrites the computed aging fields for one unit.
func (r *Repository) UpdateAging(ctx context.Context, id int64, aging AgingStatus, needsAttention bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE serial_numbers SET aging_status = $1, needs_attention = $2, updated_at = NOW() WHERE id = $3`, aging, needsAttention, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StampAlert records when a stock alert was last sent for the unit.
func (r *Repository) StampAlert(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE serial_numbers SET last_alert_sent = $1, updated_at = NOW() WHERE id = $2`, at, id)
	return err
}

func (r *txRepository) Insert(ctx context.Context, sn SerialNumber) (SerialNumber, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO serial_numbers (serial, product_id, status, location_id, notes, inventory_date, aging_status, needs_attention, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW()) RETURNING `+serialColumns,
		sn.Serial, sn.ProductID, sn.Status, sn.LocationID, sn.Notes, sn.InventoryDate, sn.AgingStatus, sn.NeedsAttention)
	created, err := scanSerial(row)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return SerialNumber{}, ErrDuplicateSerial
		case isForeignKeyViolation(err):
			return SerialNumber{}, ErrProductNotFound
		}
		return SerialNumber{}, err
	}
	return created, nil
}

// InsertSkipDuplicate inserts a unit; an existing serial is reported via the
// boolean instead of an error so bulk registration can continue.
func (r *txRepository) InsertSkipDuplicate(ctx context.Context, sn SerialNumber) (SerialNumber, bool, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO serial_numbers (serial, product_id, status, location_id, notes, inventory_date, aging_status, needs_attention, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())
ON CONFLICT (serial) DO NOTHING RETURNING `+serialColumns,
		sn.Serial, sn.ProductID, sn.Status, sn.LocationID, sn.Notes, sn.InventoryDate, sn.AgingStatus, sn.NeedsAttention)
	created, err := scanSerial(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return SerialNumber{}, true, nil
		}
		if isForeignKeyViolation(err) {
			return SerialNumber{}, false, ErrProductNotFound
		}
		return SerialNumber{}, false, err
	}
	return created, false, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (SerialNumber, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+serialColumns+` FROM serial_numbers WHERE id = $1 FOR UPDATE`, id)
	return scanSerial(row)
}

func (r *txRepository) Update(ctx context.Context, sn SerialNumber) error {
	tag, err := r.tx.Exec(ctx, `UPDATE serial_numbers
SET status = $1, location_id = $2, notes = $3, inventory_date = $4, aging_status = $5, needs_attention = $6, last_alert_sent = $7, updated_at = NOW()
WHERE id = $8`,
		sn.Status, sn.LocationID, sn.Notes, sn.InventoryDate, sn.AgingStatus, sn.NeedsAttention, sn.LastAlertSent, sn.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSerial(row rowScanner) (SerialNumber, error) {
	var sn SerialNumber
	err := row.Scan(&sn.ID, &sn.Serial, &sn.ProductID, &sn.Status, &sn.LocationID, &sn.Notes, &sn.InventoryDate, &sn.AgingStatus, &sn.NeedsAttention, &sn.LastAlertSent, &sn.CreatedAt, &sn.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SerialNumber{}, ErrNotFound
		}
		return SerialNumber{}, err
	}
	return sn, nil
}

func scanSerials(rows pgx.Rows) ([]SerialNumber, error) {
	defer rows.Close()
	var serials []SerialNumber
	for rows.Next() {
		var sn SerialNumber
		if err := rows.Scan(&sn.ID, &sn.Serial, &sn.ProductID, &sn.Status, &sn.LocationID, &sn.Notes, &sn.InventoryDate, &sn.AgingStatus, &sn.NeedsAttention, &sn.LastAlertSent, &sn.CreatedAt, &sn.UpdatedAt); err != nil {
			return nil, err
		}
		serials = append(serials, sn)
	}
	return serials, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
