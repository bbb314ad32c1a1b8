package handlers

import "github.com/serroba/rowquota/internal/records"

// ListWithLimitsRequest is the request for listing records under a key's quota.
type ListWithLimitsRequest struct {
	Key string `doc:"Access key resolving to a row quota" example:"works" query:"key" required:"true"`
}

// ListResponse carries a JSON array of records.
type ListResponse struct {
	Body []records.Record
}

// LastResponse carries the most recent record.
type LastResponse struct {
	Body records.Record
}

// PrefixRequest selects records whose col1 starts with a single character.
type PrefixRequest struct {
	Char string `doc:"Exactly one character" example:"c" path:"char"`
}

// PrefixResponse carries the matching col1 values.
type PrefixResponse struct {
	Body []string
}
