package auth

import "strconv"

// UnlimitedKey is the standing access key that always resolves to Unlimited
// without consulting the backing store.
const UnlimitedKey = "unlimit"

// KeyLimit is the quota decision for an access key: either unlimited or
// capped at a non-negative number of rows. The zero value is Limit(0).
type KeyLimit struct {
	unlimited bool
	max       int
}

// Unlimited returns a decision with no cap.
func Unlimited() KeyLimit {
	return KeyLimit{unlimited: true}
}

// Limit returns a decision capped at n rows. Negative values are clamped to zero.
func Limit(n int) KeyLimit {
	if n < 0 {
		n = 0
	}

	return KeyLimit{max: n}
}

// IsUnlimited reports whether the decision carries no cap.
func (l KeyLimit) IsUnlimited() bool {
	return l.unlimited
}

// Max returns the cap and true, or zero and false for an unlimited decision.
func (l KeyLimit) Max() (int, bool) {
	return l.max, !l.unlimited
}

func (l KeyLimit) String() string {
	if l.unlimited {
		return "unlimited"
	}

	return "limit(" + strconv.Itoa(l.max) + ")"
}

// Truncate keeps the first n items of the slice when the decision is capped.
// Order is preserved; the slice is never re-sorted.
func Truncate[T any](l KeyLimit, items []T) []T {
	if l.unlimited || len(items) <= l.max {
		return items
	}

	return items[:l.max]
}

// Reserved resolves keys that never reach a backing store.
// Every Source implementation consults it before its own lookup.
func Reserved(key string) (KeyLimit, bool) {
	if key == UnlimitedKey {
		return Unlimited(), true
	}

	return KeyLimit{}, false
}
