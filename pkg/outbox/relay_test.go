package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazeru/materials-marketplace-go/pkg/contracts"
)

type memSource struct {
	recs []Record
	sent map[int64]bool
}

func (s *memSource) FetchPending(_ context.Context, limit int) ([]Record, error) {
	var out []Record
	for _, r := range s.recs {
		if s.sent[r.ID] {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memSource) MarkSent(_ context.Context, id int64) error {
	s.sent[id] = true
	return nil
}

type flakyPublisher struct {
	failKey string
	keys    []string
}

func (p *flakyPublisher) Publish(_ context.Context, _, key string, _ []byte) error {
	if key == p.failKey {
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, key)
	return nil
}

func newSource(t *testing.T, orderIDs ...string) *memSource {
	t.Helper()
	src := &memSource{sent: map[int64]bool{}}
	for i, id := range orderIDs {
		rec, err := NewRecord("marketplace.orders", contracts.NewEvent(contracts.EventOrderCreated, id, contracts.OrderPayload{}))
		require.NoError(t, err)
		rec.ID = int64(i + 1)
		src.recs = append(src.recs, rec)
	}
	return src
}

func TestDrainPublishesInOrder(t *testing.T) {
	src := newSource(t, "o-1", "o-2", "o-3")
	pub := &flakyPublisher{}
	r := &Relay{Source: src, Publisher: pub, Batch: 10}

	n, err := r.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"o-1", "o-2", "o-3"}, pub.keys)

	n, err = r.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrainStopsAtFirstFailure(t *testing.T) {
	src := newSource(t, "o-1", "o-2", "o-3")
	pub := &flakyPublisher{failKey: "o-2"}
	r := &Relay{Source: src, Publisher: pub, Batch: 10}

	n, err := r.Drain(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, src.sent[1])
	assert.False(t, src.sent[2])
	assert.False(t, src.sent[3])
}

func TestDrainRespectsBatch(t *testing.T) {
	src := newSource(t, "o-1", "o-2", "o-3")
	r := &Relay{Source: src, Publisher: &flakyPublisher{}, Batch: 2}

	n, err := r.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
