package handlers

import "github.com/VictoriaMetrics/metrics"

var (
	listedOK           = metrics.NewCounter(`rowquota_listl_requests_total{outcome="ok"}`)
	listedTruncated    = metrics.NewCounter(`rowquota_listl_truncated_total`)
	listedUnauthorized = metrics.NewCounter(`rowquota_listl_requests_total{outcome="unauthorized"}`)
	listedLookupFailed = metrics.NewCounter(`rowquota_listl_requests_total{outcome="lookup_error"}`)
	listedFetchFailed  = metrics.NewCounter(`rowquota_listl_requests_total{outcome="fetch_error"}`)
	rowsReturned       = metrics.NewCounter(`rowquota_rows_returned_total`)
	publishFailed      = metrics.NewCounter(`rowquota_usage_publish_errors_total`)
)
