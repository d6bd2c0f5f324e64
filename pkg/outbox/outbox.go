package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nazeru/materials-marketplace-go/pkg/contracts"
)

type Record struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at"`
}

// NewRecord encodes evt for topic, keyed by its order id.
func NewRecord(topic string, evt contracts.Event) (Record, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return Record{}, err
	}
	return Record{
		EventID:   evt.EventID,
		Topic:     topic,
		Key:       evt.OrderID,
		Payload:   data,
		CreatedAt: evt.CreatedAt,
	}, nil
}

// DB is satisfied by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func Insert(ctx context.Context, db DB, rec Record) error {
	_, err := db.Exec(ctx, `INSERT INTO outbox(event_id, topic, key, payload) VALUES ($1, $2, $3, $4)`, rec.EventID, rec.Topic, rec.Key, []byte(rec.Payload))
	return err
}

func MarkSent(ctx context.Context, db DB, id int64) error {
	_, err := db.Exec(ctx, `UPDATE outbox SET sent_at=now() WHERE id=$1`, id)
	return err
}

func FetchPending(ctx context.Context, db DB, limit int) ([]Record, error) {
	rows, err := db.Query(ctx, `SELECT id, event_id, topic, key, payload, created_at, sent_at FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
