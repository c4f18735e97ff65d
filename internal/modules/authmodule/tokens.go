package authmodule

import (
	"sync"
	"time"

	"github.com/filmsearch/filmsearch/internal/utils"
)

func newTokenID() string {
	return utils.GenerateUUID()
}

// revokedTokens remembers revoked token IDs until they would have expired
// anyway. In-process only; a restart clears it along with the sessions that
// minted the tokens.
type revokedTokens struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newRevokedTokens() *revokedTokens {
	return &revokedTokens{entries: make(map[string]time.Time)}
}

func (r *revokedTokens) add(id string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = expiresAt
	r.sweepLocked()
}

func (r *revokedTokens) contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.entries[id]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(r.entries, id)
		return false
	}
	return true
}

func (r *revokedTokens) sweepLocked() {
	now := time.Now()
	for id, exp := range r.entries {
		if now.After(exp) {
			delete(r.entries, id)
		}
	}
}
