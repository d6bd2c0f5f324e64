package postgres

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	"github.com/nazeru/materials-marketplace-go/pkg/contracts"
	"github.com/nazeru/materials-marketplace-go/pkg/outbox"
)

const orderColumns = `o.id, o.vendor_id, o.vendor_name, o.total_amount, o.status, o.order_date, o.delivery_address,
	o.payment_status, o.payment_method, o.notes, o.tracking_number, o.estimated_delivery, o.actual_delivery, o.updated_at`

func scanOrder(row pgx.CollectableRow) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.VendorID, &o.VendorName, &o.TotalAmount, &o.Status, &o.OrderDate, &o.DeliveryAddress,
		&o.PaymentStatus, &o.PaymentMethod, &o.Notes, &o.TrackingNumber, &o.EstimatedDelivery, &o.ActualDelivery, &o.UpdatedAt)
	return o, err
}

func getOrder(ctx context.Context, q querier, id domain.OrderID, forUpdate bool) (domain.Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, sql, string(id))
	if err != nil {
		return domain.Order{}, classify("order.get", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.NotFound("order.get", "Order not found: %s", id)
	}
	if err != nil {
		return domain.Order{}, classify("order.get", err)
	}
	orders := []domain.Order{o}
	if err := attachItems(ctx, q, orders); err != nil {
		return domain.Order{}, err
	}
	return orders[0], nil
}

// attachItems loads the lines of every order in one query.
func attachItems(ctx context.Context, q querier, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[domain.OrderID]int, len(orders))
	for i, o := range orders {
		ids[i] = string(o.ID)
		index[o.ID] = i
		orders[i].Materials = []domain.LineItem{}
	}
	rows, err := q.Query(ctx, `SELECT order_id, material_id, material_name, quantity, price, unit, supplier_id, supplier_name, total_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return classify("order.items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID domain.OrderID
			li      domain.LineItem
		)
		if err := rows.Scan(&orderID, &li.MaterialID, &li.MaterialName, &li.Quantity, &li.Price, &li.Unit,
			&li.SupplierID, &li.SupplierName, &li.TotalPrice); err != nil {
			return classify("order.items", err)
		}
		i := index[orderID]
		orders[i].Materials = append(orders[i].Materials, li)
	}
	return classify("order.items", rows.Err())
}

// storeTx adapts a pgx transaction to tx.Tx.
type storeTx struct {
	q     querier
	topic string
}

// LockMaterials takes row locks in id order so concurrent orders over the same materials
// queue instead of deadlocking.
func (t *storeTx) LockMaterials(ctx context.Context, ids []domain.MaterialID) (map[domain.MaterialID]domain.Material, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = string(id)
	}
	sort.Strings(keys)
	rows, err := t.q.Query(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = ANY($1) ORDER BY id FOR UPDATE`, keys)
	if err != nil {
		return nil, classify("material.lock", err)
	}
	ms, err := pgx.CollectRows(rows, scanMaterial)
	if err != nil {
		return nil, classify("material.lock", err)
	}
	out := make(map[domain.MaterialID]domain.Material, len(ms))
	for _, m := range ms {
		out[m.ID] = m
	}
	return out, nil
}

func (t *storeTx) AdjustStock(ctx context.Context, id domain.MaterialID, delta int) error {
	tag, err := t.q.Exec(ctx, `UPDATE materials SET quantity = quantity + $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND quantity + $2 >= 0`, string(id), delta)
	if err != nil {
		return classify("material.adjust", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var (
		name string
		qty  int
	)
	err = t.q.QueryRow(ctx, `SELECT name, quantity FROM materials WHERE id = $1`, string(id)).Scan(&name, &qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound("material.adjust", "Material not found: %s", id)
	}
	if err != nil {
		return classify("material.adjust", err)
	}
	return domain.Validation("material.adjust", "Insufficient stock for %s. Available: %d", name, qty)
}

func (t *storeTx) LockOrder(ctx context.Context, id domain.OrderID) (domain.Order, error) {
	return getOrder(ctx, t.q, id, true)
}

func (t *storeTx) InsertOrder(ctx context.Context, o domain.Order) error {
	_, err := t.q.Exec(ctx, `INSERT INTO orders(id, vendor_id, vendor_name, total_amount, status, order_date, delivery_address,
		payment_status, payment_method, notes, tracking_number, estimated_delivery, actual_delivery, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		string(o.ID), o.VendorID, o.VendorName, o.TotalAmount, string(o.Status), o.OrderDate, o.DeliveryAddress,
		o.PaymentStatus, o.PaymentMethod, o.Notes, o.TrackingNumber, o.EstimatedDelivery, o.ActualDelivery, o.UpdatedAt)
	if err != nil {
		return classify("order.insert", err)
	}
	for i, li := range o.Materials {
		_, err = t.q.Exec(ctx, `INSERT INTO order_items(order_id, line_no, material_id, material_name, quantity, price, unit,
			supplier_id, supplier_name, total_price) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			string(o.ID), i, string(li.MaterialID), li.MaterialName, li.Quantity, li.Price, li.Unit,
			li.SupplierID, li.SupplierName, li.TotalPrice)
		if err != nil {
			return classify("order.insert", err)
		}
	}
	return nil
}

// UpdateOrder writes the mutable order fields. Lines and totals never change after insert.
func (t *storeTx) UpdateOrder(ctx context.Context, o domain.Order) error {
	tag, err := t.q.Exec(ctx, `UPDATE orders SET status = $2, payment_status = $3, notes = $4, tracking_number = $5,
		estimated_delivery = $6, actual_delivery = $7, updated_at = $8 WHERE id = $1`,
		string(o.ID), string(o.Status), o.PaymentStatus, o.Notes, o.TrackingNumber, o.EstimatedDelivery, o.ActualDelivery, o.UpdatedAt)
	if err != nil {
		return classify("order.update", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("order.update", "Order not found: %s", o.ID)
	}
	return nil
}

func (t *storeTx) LookupIdempotency(ctx context.Context, vendorID, key string) (domain.OrderID, error) {
	var id string
	err := t.q.QueryRow(ctx, `SELECT order_id FROM order_idempotency WHERE vendor_id = $1 AND idempotency_key = $2`,
		vendorID, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", classify("order.idempotency", err)
	}
	return domain.OrderID(id), nil
}

func (t *storeTx) SaveIdempotency(ctx context.Context, vendorID, key string, id domain.OrderID) error {
	_, err := t.q.Exec(ctx, `INSERT INTO order_idempotency(vendor_id, idempotency_key, order_id) VALUES ($1, $2, $3)`,
		vendorID, key, string(id))
	return classify("order.idempotency", err)
}

func (t *storeTx) AppendOutbox(ctx context.Context, evt contracts.Event) error {
	rec, err := outbox.NewRecord(t.topic, evt)
	if err != nil {
		return err
	}
	return classify("outbox.insert", outbox.Insert(ctx, t.q, rec))
}
