package models

// APIKeyStatus is the lifecycle status of a stored credential.
type APIKeyStatus string

const (
	APIKeyStatusUnchecked     APIKeyStatus = "unchecked"
	APIKeyStatusValid         APIKeyStatus = "valid"
	APIKeyStatusInvalid       APIKeyStatus = "invalid"
	APIKeyStatusQuotaExceeded APIKeyStatus = "quota_exceeded"
)

// APIKey is one credential in the key pool. Value is an opaque secret and must
// never appear in logs; components identify keys by ID only.
type APIKey struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Value   string       `json:"-"`
	Enabled bool         `json:"enabled"`
	Status  APIKeyStatus `json:"status"`
}

// Usable reports whether the key may be handed out for an attempt.
// Invalid and quota-exceeded keys stay blocked until the user re-tests or
// re-enables them; nothing in the engine flips them back automatically.
func (k APIKey) Usable() bool {
	return k.Enabled && k.Status != APIKeyStatusInvalid && k.Status != APIKeyStatusQuotaExceeded
}
