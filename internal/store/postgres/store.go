// Package postgres is the production store: materials, orders, idempotency keys, the outbox and
// notifications in one Postgres database.
package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	"github.com/nazeru/materials-marketplace-go/internal/order/tx"
	"github.com/nazeru/materials-marketplace-go/pkg/outbox"
)

//go:embed schema.sql
var schema string

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool  *pgxpool.Pool
	topic string
}

var (
	_ tx.Store      = (*Store)(nil)
	_ outbox.Source = (*Store)(nil)
)

// New wraps pool. Outbox records are addressed to topic.
func New(pool *pgxpool.Pool, topic string) *Store {
	return &Store{pool: pool, topic: topic}
}

// Connect opens a pool on dsn and checks it answers.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables that do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InTx runs fn in one read-committed transaction. Row locks taken through tx.Tx serialize
// competing writers; deadlocks and serialization failures surface as domain.ErrConflict.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, t tx.Tx) error) error {
	return s.withTx(ctx, "pg.tx", func(q pgx.Tx) error {
		return fn(ctx, &storeTx{q: q, topic: s.topic})
	})
}

func (s *Store) GetOrder(ctx context.Context, id domain.OrderID) (domain.Order, error) {
	return getOrder(ctx, s.pool, id, false)
}

func (s *Store) ListOrders(ctx context.Context, q domain.OrderQuery) ([]domain.Order, int, error) {
	where, args := orderWhere(q)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM orders o`+where, args...).Scan(&total); err != nil {
		return nil, 0, classify("order.list", err)
	}

	args = append(args, q.Limit, q.Offset())
	sql := fmt.Sprintf(`SELECT %s FROM orders o%s ORDER BY o.order_date DESC, o.id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args))
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, classify("order.list", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, classify("order.list", err)
	}
	if err := attachItems(ctx, s.pool, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func orderWhere(q domain.OrderQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.VendorID != "" {
		args = append(args, q.VendorID)
		conds = append(conds, fmt.Sprintf("o.vendor_id = $%d", len(args)))
	}
	if q.SupplierID != "" {
		args = append(args, q.SupplierID)
		conds = append(conds, fmt.Sprintf("EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.supplier_id = $%d)", len(args)))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		conds = append(conds, fmt.Sprintf("o.status = $%d", len(args)))
	}
	return whereClause(conds), args
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	out := " WHERE " + conds[0]
	for _, c := range conds[1:] {
		out += " AND " + c
	}
	return out
}

func (s *Store) FetchPending(ctx context.Context, limit int) ([]outbox.Record, error) {
	return outbox.FetchPending(ctx, s.pool, limit)
}

func (s *Store) MarkSent(ctx context.Context, id int64) error {
	return outbox.MarkSent(ctx, s.pool, id)
}
