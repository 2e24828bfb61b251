package wallet

import (
	"context"
	"sync"
)

// accountLocks hands out one lease per account at a time. Providers attach
// the lease to the KeyPair they return, so a second Resolve for the same
// account waits until the first KeyPair is wiped. This serializes nonce
// issuance for callers sharing a provider.
type accountLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func (l *accountLocks) acquire(ctx context.Context, account string) (func(), error) {
	l.mu.Lock()
	if l.slots == nil {
		l.slots = make(map[string]chan struct{})
	}
	slot, ok := l.slots[account]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[account] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
