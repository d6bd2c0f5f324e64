package embedded

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	"github.com/nazeru/materials-marketplace-go/pkg/contracts"
	"github.com/nazeru/materials-marketplace-go/pkg/outbox"
)

// storeTx adapts a badger transaction to tx.Tx. Every Get joins the read set, so the commit
// fails with badger.ErrConflict when another transaction changed a key this one relied on.
type storeTx struct {
	txn   *badger.Txn
	store *Store
}

func (t *storeTx) LockMaterials(_ context.Context, ids []domain.MaterialID) (map[domain.MaterialID]domain.Material, error) {
	out := make(map[domain.MaterialID]domain.Material, len(ids))
	for _, id := range ids {
		var m domain.Material
		err := getJSON(t.txn, materialKey(id), &m)
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = m
	}
	return out, nil
}

func (t *storeTx) AdjustStock(_ context.Context, id domain.MaterialID, delta int) error {
	var m domain.Material
	err := getJSON(t.txn, materialKey(id), &m)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return materialNotFound(id)
	}
	if err != nil {
		return err
	}
	if m.Quantity+delta < 0 {
		return domain.Validation("material.adjust", "Insufficient stock for %s. Available: %d", m.Name, m.Quantity)
	}
	m.Quantity += delta
	m.Version++
	m.UpdatedAt = time.Now().UTC()
	return setJSON(t.txn, materialKey(id), m)
}

func (t *storeTx) LockOrder(_ context.Context, id domain.OrderID) (domain.Order, error) {
	var o domain.Order
	err := getJSON(t.txn, orderKey(id), &o)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Order{}, orderNotFound(id)
	}
	return o, err
}

func (t *storeTx) InsertOrder(_ context.Context, o domain.Order) error {
	_, err := t.txn.Get(orderKey(o.ID))
	if err == nil {
		return &domain.Error{Op: "order.insert", Kind: domain.ErrDuplicate, Message: "order already exists"}
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return setJSON(t.txn, orderKey(o.ID), o)
}

func (t *storeTx) UpdateOrder(_ context.Context, o domain.Order) error {
	if _, err := t.txn.Get(orderKey(o.ID)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return orderNotFound(o.ID)
		}
		return err
	}
	return setJSON(t.txn, orderKey(o.ID), o)
}

func (t *storeTx) LookupIdempotency(_ context.Context, vendorID, key string) (domain.OrderID, error) {
	item, err := t.txn.Get(idemKey(vendorID, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return domain.OrderID(val), nil
}

func (t *storeTx) SaveIdempotency(ctx context.Context, vendorID, key string, id domain.OrderID) error {
	existing, err := t.LookupIdempotency(ctx, vendorID, key)
	if err != nil {
		return err
	}
	if existing != "" {
		return &domain.Error{Op: "order.idempotency", Kind: domain.ErrDuplicate, Message: "idempotency key already used"}
	}
	return t.txn.Set(idemKey(vendorID, key), []byte(id))
}

func (t *storeTx) AppendOutbox(_ context.Context, evt contracts.Event) error {
	rec, err := outbox.NewRecord(t.store.topic, evt)
	if err != nil {
		return err
	}
	n, err := t.store.seq.Next()
	if err != nil {
		return err
	}
	rec.ID = int64(n) + 1
	return setJSON(t.txn, pendingKey(rec.ID), rec)
}

func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].OrderDate.After(orders[j].OrderDate)
		}
		return orders[i].ID > orders[j].ID
	})
}
