package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/rowquota/internal/ratelimit"
)

// RegisterRoutes registers the record routes with per-endpoint rate limit configuration.
func RegisterRoutes(api huma.API, h *RecordsHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "root",
		Method:        http.MethodGet,
		Path:          "/",
		Summary:       "Liveness",
		Tags:          []string{"Health"},
		DefaultStatus: http.StatusOK,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
		},
	}, h.Root)

	huma.Register(api, huma.Operation{
		OperationID: "list-records",
		Method:      http.MethodGet,
		Path:        "/list",
		Summary:     "List all records",
		Tags:        []string{"Records"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "list-records-from-request",
		Method:      http.MethodGet,
		Path:        "/listr",
		Summary:     "List all records using the request-scoped data source",
		Tags:        []string{"Records"},
	}, h.ListFromContext)

	huma.Register(api, huma.Operation{
		OperationID: "list-records-limited",
		Method:      http.MethodGet,
		Path:        "/listl",
		Summary:     "List records under an access key's quota",
		Description: "Returns at most the number of records the key allows. Unknown keys are rejected.",
		Tags:        []string{"Records"},
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, h.ListWithLimits)

	huma.Register(api, huma.Operation{
		OperationID: "last-record",
		Method:      http.MethodGet,
		Path:        "/last",
		Summary:     "Most recent record",
		Tags:        []string{"Records"},
		Errors:      []int{http.StatusNotFound},
	}, h.Last)

	huma.Register(api, huma.Operation{
		OperationID: "records-by-prefix",
		Method:      http.MethodGet,
		Path:        "/list/prefix/{char}",
		Summary:     "col1 values starting with a character",
		Tags:        []string{"Records"},
		Errors:      []int{http.StatusBadRequest},
	}, h.StartingWith)
}
