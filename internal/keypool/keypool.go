// Package keypool manages the pool of AI API credentials: selection of the
// next usable key and status bookkeeping when a key fails. Keys are only ever
// un-blocked by explicit user action (re-enable or re-test), never by the
// retry machinery.
package keypool

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adventure-server/internal/models"
)

// FailureReason classifies why a credential failed an attempt.
type FailureReason string

const (
	FailureQuotaExceeded FailureReason = "quota_exceeded"
	FailureInvalid       FailureReason = "invalid"
)

// Pool holds credentials in insertion order. All methods are safe for
// concurrent use; sessions sharing a pool may mark keys from separate turns.
type Pool struct {
	mu     sync.Mutex
	keys   []*models.APIKey
	logger *zap.Logger
}

// New creates an empty pool.
func New(logger *zap.Logger) *Pool {
	return &Pool{logger: logger.Named("KeyPool")}
}

// NewFromValues seeds a pool with keys from configuration. Names are
// generated; ids are fresh UUIDs.
func NewFromValues(values []string, logger *zap.Logger) *Pool {
	p := New(logger)
	for i, v := range values {
		if v == "" {
			continue
		}
		p.Add(models.APIKey{
			ID:      uuid.NewString(),
			Name:    fmt.Sprintf("key-%d", i+1),
			Value:   v,
			Enabled: true,
			Status:  models.APIKeyStatusUnchecked,
		})
	}
	return p
}

// Add appends a credential to the pool, preserving stored order.
func (p *Pool) Add(key models.APIKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := key
	p.keys = append(p.keys, &k)
	p.logger.Info("API key added", zap.String("keyID", k.ID), zap.String("name", k.Name))
}

// Remove deletes a credential by id, reporting whether it was present.
func (p *Pool) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, k := range p.keys {
		if k.ID == id {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			p.logger.Info("API key removed", zap.String("keyID", id))
			return true
		}
	}
	return false
}

// SelectUsable returns a copy of the first enabled, non-blocked key in stored
// order. The second return is false when no key qualifies.
func (p *Pool) SelectUsable() (models.APIKey, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range p.keys {
		if k.Usable() {
			return *k, true
		}
	}
	return models.APIKey{}, false
}

// EnabledCount reports how many keys are currently usable. The turn resolver
// uses this as the retry bound for a single turn.
func (p *Pool) EnabledCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, k := range p.keys {
		if k.Usable() {
			n++
		}
	}
	return n
}

// MarkFailed records a classified failure against a key. Idempotent: marking
// an already-blocked key just overwrites its status.
func (p *Pool) MarkFailed(id string, reason FailureReason) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range p.keys {
		if k.ID != id {
			continue
		}
		switch reason {
		case FailureQuotaExceeded:
			k.Status = models.APIKeyStatusQuotaExceeded
		default:
			k.Status = models.APIKeyStatusInvalid
		}
		p.logger.Warn("API key marked failed",
			zap.String("keyID", id),
			zap.String("reason", string(reason)))
		return
	}
}

// MarkValid flips a key back to valid after a successful call or an explicit
// re-test. This is the only status transition toward usable besides SetEnabled.
func (p *Pool) MarkValid(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range p.keys {
		if k.ID == id {
			k.Status = models.APIKeyStatusValid
			return
		}
	}
}

// SetEnabled toggles a key, reporting whether it was present. Re-enabling
// also resets a blocked status back to unchecked so the key re-enters
// rotation.
func (p *Pool) SetEnabled(id string, enabled bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range p.keys {
		if k.ID != id {
			continue
		}
		k.Enabled = enabled
		if enabled && (k.Status == models.APIKeyStatusInvalid || k.Status == models.APIKeyStatusQuotaExceeded) {
			k.Status = models.APIKeyStatusUnchecked
		}
		p.logger.Info("API key toggled", zap.String("keyID", id), zap.Bool("enabled", enabled))
		return true
	}
	return false
}

// Snapshot returns copies of all keys in stored order. Secrets are included;
// callers rendering the list must use the model's JSON shape, which omits them.
func (p *Pool) Snapshot() []models.APIKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.APIKey, 0, len(p.keys))
	for _, k := range p.keys {
		out = append(out, *k)
	}
	return out
}
