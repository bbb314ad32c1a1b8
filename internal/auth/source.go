package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Source resolves an access key to its quota decision.
type Source interface {
	// KeyLimit returns the decision for key and true, or false when the key is
	// unknown. A non-nil error means the lookup itself failed and says nothing
	// about whether the key exists.
	KeyLimit(ctx context.Context, key string) (limit KeyLimit, found bool, err error)
}

// LookupError reports a failure reaching or reading the key limit store.
type LookupError struct {
	Err error
}

// NewLookupError wraps err as a key limit lookup failure.
func NewLookupError(err error) *LookupError {
	return &LookupError{Err: err}
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("key limit lookup: %v", e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Fingerprint returns a short, stable identifier for a key that is safe to log.
func Fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))

	return hex.EncodeToString(sum[:6])
}
