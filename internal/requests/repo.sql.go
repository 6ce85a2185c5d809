package requests

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists stock requests in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LockedSerial is the slice of a serial number row the workflow needs while
// holding its lock.
type LockedSerial struct {
	ID        int64
	Serial    string
	ProductID int64
	Status    string
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	ProductExists(ctx context.Context, productID int64) (bool, error)
	LockSerials(ctx context.Context, ids []int64) ([]LockedSerial, error)
	InsertRequest(ctx context.Context, req StockRequest) (StockRequest, error)
	GetRequestForUpdate(ctx context.Context, id int64) (StockRequest, error)
	UpdateRequest(ctx context.Context, req StockRequest) error
	ClaimSerialOut(ctx context.Context, serialID int64) (bool, error)
}

type txRepository struct {
	tx pgx.Tx
}

const requestColumns = `id, ref, product_id, requester_id, serial_number_id, quantity, status, notes, approver_id, created_at, updated_at`

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("requests repository not initialised")
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

func (r *Repository) Get(ctx context.Context, id int64) (StockRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM stock_requests WHERE id = $1`, id)
	return scanRequest(row)
}

// ListForUser returns the user's own requests, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]StockRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM stock_requests WHERE requester_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

// ListPending returns every PENDING request, oldest first, for review queues.
func (r *Repository) ListPending(ctx context.Context) ([]StockRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM stock_requests WHERE status = $1 ORDER BY created_at ASC`, StatusPending)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stock_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	return exists, err
}

// LockSerials locks the given serial rows in id order so concurrent creates
// queue up instead of deadlocking.
func (r *txRepository) LockSerials(ctx context.Context, ids []int64) ([]LockedSerial, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, serial, product_id, status FROM serial_numbers WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var serials []LockedSerial
	for rows.Next() {
		var s LockedSerial
		if err := rows.Scan(&s.ID, &s.Serial, &s.ProductID, &s.Status); err != nil {
			return nil, err
		}
		serials = append(serials, s)
	}
	return serials, rows.Err()
}

// InsertRequest persists one request. A partial unique index allows at most
// one PENDING request per serial number; losing that race surfaces as
// ErrUnavailableSerials.
func (r *txRepository) InsertRequest(ctx context.Context, req StockRequest) (StockRequest, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO stock_requests (ref, product_id, requester_id, serial_number_id, quantity, status, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW()) RETURNING `+requestColumns,
		req.Ref, req.ProductID, req.RequesterID, req.SerialNumberID, req.Quantity, req.Status, req.Notes)
	created, err := scanRequest(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return StockRequest{}, ErrUnavailableSerials
		}
		return StockRequest{}, err
	}
	return created, nil
}

func (r *txRepository) GetRequestForUpdate(ctx context.Context, id int64) (StockRequest, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM stock_requests WHERE id = $1 FOR UPDATE`, id)
	return scanRequest(row)
}

func (r *txRepository) UpdateRequest(ctx context.Context, req StockRequest) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_requests SET status = $1, notes = $2, approver_id = $3, updated_at = NOW() WHERE id = $4`,
		req.Status, req.Notes, req.ApproverID, req.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimSerialOut moves the unit IN_STOCK -> OUT_OF_STOCK. Returns false when
// the unit was no longer in stock.
func (r *txRepository) ClaimSerialOut(ctx context.Context, serialID int64) (bool, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE serial_numbers SET status = 'OUT_OF_STOCK', updated_at = NOW() WHERE id = $1 AND status = 'IN_STOCK'`, serialID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (StockRequest, error) {
	var req StockRequest
	err := row.Scan(&req.ID, &req.Ref, &req.ProductID, &req.RequesterID, &req.SerialNumberID, &req.Quantity, &req.Status, &req.Notes, &req.ApproverID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockRequest{}, ErrNotFound
		}
		return StockRequest{}, err
	}
	return req, nil
}

func scanRequests(rows pgx.Rows) ([]StockRequest, error) {
	defer rows.Close()
	var requests []StockRequest
	for rows.Next() {
		var req StockRequest
		if err := rows.Scan(&req.ID, &req.Ref, &req.ProductID, &req.RequesterID, &req.SerialNumberID, &req.Quantity, &req.Status, &req.Notes, &req.ApproverID, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
