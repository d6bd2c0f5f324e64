package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

const (
	keyPrefix       = "marketplace:cart:"
	maxWatchRetries = 5
)

// RedisStore keeps one JSON document per cart. Updates run under WATCH so concurrent edits of
// the same cart never lose an item.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps client. A zero ttl keeps carts until they are cleared.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Connect parses url and checks the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func read(ctx context.Context, g getter, userID string) (domain.Cart, error) {
	data, err := g.Get(ctx, keyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewCart(userID, nil, time.Time{}), nil
	}
	if err != nil {
		return domain.Cart{}, err
	}
	var c domain.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.Cart{}, fmt.Errorf("decode cart %s: %w", userID, err)
	}
	return domain.NewCart(userID, c.Items, c.UpdatedAt), nil
}

func (s *RedisStore) LoadCart(ctx context.Context, userID string) (domain.Cart, error) {
	return read(ctx, s.client, userID)
}

func (s *RedisStore) UpdateCart(ctx context.Context, userID string, fn func([]domain.CartItem) ([]domain.CartItem, error)) (domain.Cart, error) {
	key := keyPrefix + userID
	var out domain.Cart
	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := read(ctx, tx, userID)
			if err != nil {
				return err
			}
			items, err := fn(cur.Items)
			if err != nil {
				return err
			}
			out = domain.NewCart(userID, items, time.Now().UTC())
			data, err := json.Marshal(out)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, key, data, s.ttl)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.Cart{}, err
		}
		return out, nil
	}
	return domain.Cart{}, domain.Conflict("cart.update", redis.TxFailedErr)
}

func (s *RedisStore) ClearCart(ctx context.Context, userID string) error {
	return s.client.Del(ctx, keyPrefix+userID).Err()
}
