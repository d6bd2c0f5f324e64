package idempotency

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/orders", nil)
	assert.Equal(t, "", Key(r))

	r.Header.Set(Header, "  abc-123 ")
	assert.Equal(t, "abc-123", Key(r))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(""))
	assert.True(t, Valid(strings.Repeat("k", MaxKeyLength)))
	assert.False(t, Valid(strings.Repeat("k", MaxKeyLength+1)))
}
