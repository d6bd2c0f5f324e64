package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/nazeru/materials-marketplace-go/internal/notify"
)

var _ notify.Store = (*Store)(nil)

// SaveNotifications claims eventID in the inbox and stores ns in the same transaction.
func (s *Store) SaveNotifications(ctx context.Context, eventID string, ns []notify.Notification) (bool, error) {
	fresh := false
	err := s.withTx(ctx, "notification.save", func(q pgx.Tx) error {
		tag, err := q.Exec(ctx, `INSERT INTO inbox(event_id, received_at) VALUES ($1, now()) ON CONFLICT (event_id) DO NOTHING`, eventID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		fresh = true
		for _, n := range ns {
			if _, err := q.Exec(ctx, `INSERT INTO notifications(event_id, recipient_id, order_id, type, message, created_at)
				VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (event_id, recipient_id) DO NOTHING`,
				n.EventID, n.RecipientID, n.OrderID, n.Type, n.Message, n.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
	return fresh, err
}

func (s *Store) ListNotifications(ctx context.Context, recipientID string, limit int) ([]notify.Notification, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, event_id, recipient_id, order_id, type, message, created_at
		FROM notifications WHERE recipient_id = $1 ORDER BY id DESC LIMIT $2`, recipientID, limit)
	if err != nil {
		return nil, classify("notification.list", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notify.Notification, error) {
		var n notify.Notification
		err := row.Scan(&n.ID, &n.EventID, &n.RecipientID, &n.OrderID, &n.Type, &n.Message, &n.CreatedAt)
		return n, err
	})
	if err != nil {
		return nil, classify("notification.list", err)
	}
	if out == nil {
		out = []notify.Notification{}
	}
	return out, nil
}
