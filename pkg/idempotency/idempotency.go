package idempotency

import (
	"net/http"
	"strings"
)

const Header = "Idempotency-Key"

// MaxKeyLength bounds the keys accepted from clients.
const MaxKeyLength = 128

func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// Valid reports whether key is usable; the empty key means "no idempotency".
func Valid(key string) bool {
	return len(key) <= MaxKeyLength
}
