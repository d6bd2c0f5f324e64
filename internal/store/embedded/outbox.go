package embedded

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/nazeru/materials-marketplace-go/pkg/outbox"
)

var _ outbox.Source = (*Store)(nil)

// FetchPending returns up to limit unsent records in id order.
func (s *Store) FetchPending(_ context.Context, limit int) ([]outbox.Record, error) {
	var out []outbox.Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: limit, Prefix: []byte(prefixPending)})
		defer it.Close()
		for it.Rewind(); it.Valid() && len(out) < limit; it.Next() {
			var rec outbox.Record
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// MarkSent moves the record from the pending to the sent keyspace.
func (s *Store) MarkSent(_ context.Context, id int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var rec outbox.Record
		err := getJSON(txn, pendingKey(id), &rec)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		rec.SentAt = &now
		if err := txn.Delete(pendingKey(id)); err != nil {
			return err
		}
		return setJSON(txn, sentKey(id), rec)
	})
}
