// Package embedded keeps the marketplace in a badger database. An empty directory opens an
// in-memory instance, which the workflow tests use.
package embedded

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	"github.com/nazeru/materials-marketplace-go/internal/order/tx"
)

const (
	prefixMaterial = "material/"
	prefixOrder    = "order/"
	prefixIdem     = "idem/"
	prefixCart     = "cart/"
	prefixUser     = "user/"
	prefixEmail    = "email/"
	prefixPending  = "outbox/pending/"
	prefixSent     = "outbox/sent/"
	keyOutboxSeq   = "seq/outbox"
)

type Store struct {
	db    *badger.DB
	seq   *badger.Sequence
	topic string
}

// Open opens the database in dir. Outbox records are addressed to topic.
func Open(dir, topic string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithInMemory(dir == "").WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(keyOutboxSeq), 100)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("outbox sequence: %w", err)
	}
	return &Store{db: db, seq: seq, topic: topic}, nil
}

func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}

func (s *Store) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger is closed")
	}
	return nil
}

var _ tx.Store = (*Store)(nil)

// InTx runs fn in one read-write badger transaction. A commit that loses against a concurrent
// writer of any key fn read surfaces as domain.ErrConflict.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, t tx.Tx) error) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(ctx, &storeTx{txn: txn, store: s})
	})
	if errors.Is(err, badger.ErrConflict) {
		return domain.Conflict("embedded.commit", err)
	}
	return err
}

func (s *Store) GetOrder(_ context.Context, id domain.OrderID) (domain.Order, error) {
	var o domain.Order
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, orderKey(id), &o)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Order{}, orderNotFound(id)
	}
	return o, err
}

func (s *Store) ListOrders(_ context.Context, q domain.OrderQuery) ([]domain.Order, int, error) {
	var all []domain.Order
	err := s.db.View(func(txn *badger.Txn) error {
		return scanJSON(txn, prefixOrder, func() any { return &domain.Order{} }, func(v any) {
			o := *v.(*domain.Order)
			if matchOrder(q, o) {
				all = append(all, o)
			}
		})
	})
	if err != nil {
		return nil, 0, err
	}
	sortOrders(all)
	return page(all, q.Offset(), q.Limit), len(all), nil
}

func matchOrder(q domain.OrderQuery, o domain.Order) bool {
	if q.VendorID != "" && o.VendorID != q.VendorID {
		return false
	}
	if q.SupplierID != "" && !o.HasSupplier(q.SupplierID) {
		return false
	}
	if q.Status != "" && o.Status != q.Status {
		return false
	}
	return true
}

func orderKey(id domain.OrderID) []byte       { return []byte(prefixOrder + string(id)) }
func materialKey(id domain.MaterialID) []byte { return []byte(prefixMaterial + string(id)) }
func idemKey(vendorID, key string) []byte     { return []byte(prefixIdem + vendorID + "/" + key) }
func cartKey(userID string) []byte            { return []byte(prefixCart + userID) }
func pendingKey(id int64) []byte              { return []byte(fmt.Sprintf("%s%020d", prefixPending, id)) }
func sentKey(id int64) []byte                 { return []byte(fmt.Sprintf("%s%020d", prefixSent, id)) }

func orderNotFound(id domain.OrderID) error {
	return domain.NotFound("order.get", "Order not found: %s", id)
}

func materialNotFound(id domain.MaterialID) error {
	return domain.NotFound("material.get", "Material not found: %s", id)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// scanJSON decodes every value under prefix with a fresh target from alloc.
func scanJSON(txn *badger.Txn, prefix string, alloc func() any, visit func(any)) error {
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: []byte(prefix)})
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		v := alloc()
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, v) }); err != nil {
			return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		visit(v)
	}
	return nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
