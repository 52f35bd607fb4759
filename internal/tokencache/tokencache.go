// Package tokencache keeps the marketplace OAuth token between calls and,
// with Redis, between runs.
package tokencache

import (
	"context"
	"sync"
	"time"

	"preisradar/internal/apis/ebay/responses"
)

// Skew is how long before expiry a token is treated as expired.
const Skew = 60 * time.Second

type Cache interface {
	// Get returns ok=false when nothing usable is stored.
	Get(ctx context.Context) (responses.Token, bool, error)
	Set(ctx context.Context, tok responses.Token) error
}

type Memory struct {
	mu  sync.Mutex
	tok responses.Token
	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Get(_ context.Context) (responses.Token, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.tok.Valid(m.now(), Skew) {
		return responses.Token{}, false, nil
	}
	return m.tok, true, nil
}

func (m *Memory) Set(_ context.Context, tok responses.Token) error {
	m.mu.Lock()
	m.tok = tok
	m.mu.Unlock()
	return nil
}

var _ Cache = (*Memory)(nil)
