// Package usage describes the events emitted when a key lists records and
// the consumers that record them.
package usage

import "time"

// TopicRecordsListed is the stream carrying ListedEvent messages.
const TopicRecordsListed = "records.listed"

// ListedEvent is emitted after a successful limited listing.
// The raw access key is never included, only its fingerprint.
type ListedEvent struct {
	RequestID      string    `json:"requestId,omitempty"`
	KeyFingerprint string    `json:"keyFingerprint"`
	Unlimited      bool      `json:"unlimited"`
	Limit          int       `json:"limit"`
	Total          int       `json:"total"`
	Returned       int       `json:"returned"`
	ClientIP       string    `json:"clientIp"`
	UserAgent      string    `json:"userAgent"`
	ListedAt       time.Time `json:"listedAt"`
}

// Truncated reports whether the key's limit cut rows from the response.
func (e *ListedEvent) Truncated() bool {
	return e.Returned < e.Total
}
