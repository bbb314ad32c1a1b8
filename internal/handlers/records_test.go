package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/VictoriaMetrics/metrics"
	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/rowquota/internal/auth"
	"github.com/serroba/rowquota/internal/handlers"
	"github.com/serroba/rowquota/internal/records"
	"github.com/serroba/rowquota/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHandler(source records.DataSource, keys auth.Source, pub *recordingPublisher) *handlers.RecordsHandler {
	if pub == nil {
		pub = &recordingPublisher{}
	}

	return handlers.NewRecordsHandler(source, keys, pub.publish(), zap.NewNop())
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()

	var se huma.StatusError

	require.Error(t, err)
	require.True(t, errors.As(err, &se), "expected huma status error, got %v", err)
	assert.Equal(t, status, se.GetStatus())
}

func worksKeys() *mockKeys {
	return &mockKeys{limits: map[string]auth.KeyLimit{"works": auth.Limit(10)}}
}

func TestListWithLimits(t *testing.T) {
	t.Run("limited key gets first n rows", func(t *testing.T) {
		source := &mockSource{rows: fiftyRows()}
		handler := newHandler(source, worksKeys(), nil)

		resp, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "works"})

		require.NoError(t, err)
		require.Len(t, resp.Body, 10)
		assert.Equal(t, fiftyRows()[:10], resp.Body)
		assert.Equal(t, 1, source.allCalls)
	})

	t.Run("reserved key gets every row", func(t *testing.T) {
		source := &mockSource{rows: fiftyRows()}
		handler := newHandler(source, worksKeys(), nil)

		resp, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: auth.UnlimitedKey})

		require.NoError(t, err)
		assert.Equal(t, fiftyRows(), resp.Body)
	})

	t.Run("reserved key ignores a failing key store", func(t *testing.T) {
		source := &mockSource{rows: fiftyRows()}
		keys := &mockKeys{err: errMock}
		handler := newHandler(source, keys, nil)

		resp, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "unlimit"})

		require.NoError(t, err)
		assert.Len(t, resp.Body, 50)
	})

	t.Run("unknown key is unauthorized and rows are never fetched", func(t *testing.T) {
		source := &mockSource{rows: fiftyRows()}
		keys := worksKeys()
		handler := newHandler(source, keys, nil)

		resp, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "noworks"})

		assert.Nil(t, resp)
		requireStatus(t, err, http.StatusUnauthorized)
		assert.Equal(t, 1, keys.calls)
		assert.Zero(t, source.allCalls)
	})

	t.Run("lookup failure is internal and rows are never fetched", func(t *testing.T) {
		source := &mockSource{rows: fiftyRows()}
		handler := newHandler(source, &mockKeys{err: errMock}, nil)

		resp, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "works"})

		assert.Nil(t, resp)
		requireStatus(t, err, http.StatusInternalServerError)
		assert.NotContains(t, err.Error(), errMock.Error())
		assert.Zero(t, source.allCalls)
	})

	t.Run("fetch failure after auth is internal with no rows", func(t *testing.T) {
		source := &mockSource{allErr: errMock}
		handler := newHandler(source, worksKeys(), nil)

		resp, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "works"})

		assert.Nil(t, resp)
		requireStatus(t, err, http.StatusInternalServerError)
		assert.Equal(t, 1, source.allCalls)
	})

	t.Run("limit above row count returns all rows", func(t *testing.T) {
		source := &mockSource{rows: fiftyRows()[:4]}
		handler := newHandler(source, worksKeys(), nil)

		resp, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "works"})

		require.NoError(t, err)
		assert.Len(t, resp.Body, 4)
	})

	t.Run("zero limit returns an empty array", func(t *testing.T) {
		source := &mockSource{rows: fiftyRows()}
		keys := &mockKeys{limits: map[string]auth.KeyLimit{"none": auth.Limit(0)}}
		handler := newHandler(source, keys, nil)

		resp, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "none"})

		require.NoError(t, err)
		assert.NotNil(t, resp.Body)
		assert.Empty(t, resp.Body)
	})

	t.Run("truncation keeps fetch order", func(t *testing.T) {
		source := &mockSource{rows: []records.Record{{ID: 9, Col1: "z"}, {ID: 2, Col1: "b"}, {ID: 5, Col1: "m"}}}
		keys := &mockKeys{limits: map[string]auth.KeyLimit{"two": auth.Limit(2)}}
		handler := newHandler(source, keys, nil)

		resp, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "two"})

		require.NoError(t, err)
		assert.Equal(t, []records.Record{{ID: 9, Col1: "z"}, {ID: 2, Col1: "b"}}, resp.Body)
	})

	t.Run("works against the memory store", func(t *testing.T) {
		mem := store.NewMemoryStore()
		for _, rec := range fiftyRows() {
			mem.Insert(rec)
		}

		mem.SetKeyLimit("works", 10)

		handler := newHandler(mem, mem, nil)

		limited, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "works"})
		require.NoError(t, err)
		assert.Len(t, limited.Body, 10)

		all, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "unlimit"})
		require.NoError(t, err)
		assert.Len(t, all.Body, 50)

		_, err = handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "noworks"})
		requireStatus(t, err, http.StatusUnauthorized)
	})
}

func TestListWithLimits_UsageEvents(t *testing.T) {
	t.Run("publishes fingerprinted event with request meta", func(t *testing.T) {
		pub := &recordingPublisher{}
		handler := newHandler(&mockSource{rows: fiftyRows()}, worksKeys(), pub)

		ctx := handlers.ContextWithRequestMeta(context.Background(), handlers.RequestMeta{
			RequestID: "req-1",
			ClientIP:  "203.0.113.9",
			UserAgent: "curl/8.0",
		})

		_, err := handler.ListWithLimits(ctx, &handlers.ListWithLimitsRequest{Key: "works"})
		require.NoError(t, err)

		events := pub.published()
		require.Len(t, events, 1)

		event := events[0]
		assert.Equal(t, "req-1", event.RequestID)
		assert.Equal(t, auth.Fingerprint("works"), event.KeyFingerprint)
		assert.False(t, event.Unlimited)
		assert.Equal(t, 10, event.Limit)
		assert.Equal(t, 50, event.Total)
		assert.Equal(t, 10, event.Returned)
		assert.Equal(t, "203.0.113.9", event.ClientIP)
		assert.Equal(t, "curl/8.0", event.UserAgent)
		assert.False(t, event.ListedAt.IsZero())
	})

	t.Run("marks unlimited listings", func(t *testing.T) {
		pub := &recordingPublisher{}
		handler := newHandler(&mockSource{rows: fiftyRows()}, worksKeys(), pub)

		_, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "unlimit"})
		require.NoError(t, err)

		events := pub.published()
		require.Len(t, events, 1)
		assert.True(t, events[0].Unlimited)
		assert.Equal(t, 50, events[0].Returned)
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		pub := &recordingPublisher{err: errMock}
		handler := newHandler(&mockSource{rows: fiftyRows()}, worksKeys(), pub)

		resp, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "works"})

		require.NoError(t, err)
		assert.Len(t, resp.Body, 10)
	})

	t.Run("failed requests publish nothing", func(t *testing.T) {
		pub := &recordingPublisher{}
		handler := newHandler(&mockSource{rows: fiftyRows()}, worksKeys(), pub)

		_, err := handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "noworks"})
		require.Error(t, err)

		assert.Empty(t, pub.published())
	})
}

func TestListWithLimits_Metrics(t *testing.T) {
	unauthorized := metrics.GetOrCreateCounter(`rowquota_listl_requests_total{outcome="unauthorized"}`)
	ok := metrics.GetOrCreateCounter(`rowquota_listl_requests_total{outcome="ok"}`)
	truncated := metrics.GetOrCreateCounter(`rowquota_listl_truncated_total`)

	beforeUnauthorized, beforeOK, beforeTruncated := unauthorized.Get(), ok.Get(), truncated.Get()

	handler := newHandler(&mockSource{rows: fiftyRows()}, worksKeys(), nil)

	_, _ = handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "noworks"})
	_, _ = handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "works"})
	_, _ = handler.ListWithLimits(context.Background(), &handlers.ListWithLimitsRequest{Key: "unlimit"})

	assert.Equal(t, beforeUnauthorized+1, unauthorized.Get())
	assert.Equal(t, beforeOK+2, ok.Get())
	assert.Equal(t, beforeTruncated+1, truncated.Get())
}

func TestList(t *testing.T) {
	t.Run("returns every row without a key", func(t *testing.T) {
		source := &mockSource{rows: []records.Record{{ID: 6, Col1: "wyoming"}}}
		keys := &mockKeys{}
		handler := newHandler(source, keys, nil)

		resp, err := handler.List(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, []records.Record{{ID: 6, Col1: "wyoming"}}, resp.Body)
		assert.Zero(t, keys.calls)
	})

	t.Run("empty store returns empty array", func(t *testing.T) {
		handler := newHandler(&mockSource{}, &mockKeys{}, nil)

		resp, err := handler.List(context.Background(), nil)

		require.NoError(t, err)
		assert.NotNil(t, resp.Body)
		assert.Empty(t, resp.Body)
	})

	t.Run("fetch failure is internal", func(t *testing.T) {
		handler := newHandler(&mockSource{allErr: errMock}, &mockKeys{}, nil)

		resp, err := handler.List(context.Background(), nil)

		assert.Nil(t, resp)
		requireStatus(t, err, http.StatusInternalServerError)
	})
}

func TestListFromContext(t *testing.T) {
	t.Run("uses the data source from the request context", func(t *testing.T) {
		injected := &mockSource{rows: []records.Record{{ID: 1, Col1: "held"}}}
		fromRequest := &mockSource{rows: []records.Record{{ID: 6, Col1: "wyoming"}}}
		handler := newHandler(injected, &mockKeys{}, nil)

		ctx := records.ContextWithSource(context.Background(), fromRequest)
		resp, err := handler.ListFromContext(ctx, nil)

		require.NoError(t, err)
		assert.Equal(t, []records.Record{{ID: 6, Col1: "wyoming"}}, resp.Body)
		assert.Zero(t, injected.allCalls)
		assert.Equal(t, 1, fromRequest.allCalls)
	})

	t.Run("missing data source is internal", func(t *testing.T) {
		handler := newHandler(&mockSource{}, &mockKeys{}, nil)

		resp, err := handler.ListFromContext(context.Background(), nil)

		assert.Nil(t, resp)
		requireStatus(t, err, http.StatusInternalServerError)
	})

	t.Run("fetch failure is internal", func(t *testing.T) {
		handler := newHandler(&mockSource{}, &mockKeys{}, nil)
		ctx := records.ContextWithSource(context.Background(), &mockSource{allErr: errMock})

		_, err := handler.ListFromContext(ctx, nil)

		requireStatus(t, err, http.StatusInternalServerError)
	})
}

func TestListAll(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Insert(records.Record{ID: 2, Col1: "b"})
	mem.Insert(records.Record{ID: 1, Col1: "a"})

	rows, err := handlers.ListAll(context.Background(), mem)

	require.NoError(t, err)
	assert.Equal(t, []records.Record{{ID: 1, Col1: "a"}, {ID: 2, Col1: "b"}}, rows)

	_, err = handlers.ListAll(context.Background(), &mockSource{allErr: errMock})

	var sourceErr *records.SourceError
	assert.ErrorAs(t, err, &sourceErr)
}

func TestLast(t *testing.T) {
	t.Run("returns the last record", func(t *testing.T) {
		handler := newHandler(&mockSource{rows: fiftyRows()}, &mockKeys{}, nil)

		resp, err := handler.Last(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, records.Record{ID: 50, Col1: "row-50"}, resp.Body)
	})

	t.Run("empty store is not found", func(t *testing.T) {
		handler := newHandler(&mockSource{}, &mockKeys{}, nil)

		_, err := handler.Last(context.Background(), nil)

		requireStatus(t, err, http.StatusNotFound)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		handler := newHandler(&mockSource{lastErr: errMock}, &mockKeys{}, nil)

		_, err := handler.Last(context.Background(), nil)

		requireStatus(t, err, http.StatusInternalServerError)
	})
}

func TestStartingWith(t *testing.T) {
	rows := []records.Record{
		{ID: 1, Col1: "cornflour"},
		{ID: 2, Col1: "bread"},
		{ID: 3, Col1: "creatures"},
		{ID: 4, Col1: "Cabbage"},
	}

	t.Run("returns matching values in order", func(t *testing.T) {
		handler := newHandler(&mockSource{rows: rows}, &mockKeys{}, nil)

		resp, err := handler.StartingWith(context.Background(), &handlers.PrefixRequest{Char: "c"})

		require.NoError(t, err)
		assert.Equal(t, []string{"cornflour", "creatures"}, resp.Body)
	})

	t.Run("accepts a multibyte character", func(t *testing.T) {
		handler := newHandler(&mockSource{rows: []records.Record{{ID: 1, Col1: "éclair"}}}, &mockKeys{}, nil)

		resp, err := handler.StartingWith(context.Background(), &handlers.PrefixRequest{Char: "é"})

		require.NoError(t, err)
		assert.Equal(t, []string{"éclair"}, resp.Body)
	})

	t.Run("rejects more than one character", func(t *testing.T) {
		source := &mockSource{rows: rows}
		handler := newHandler(source, &mockKeys{}, nil)

		_, err := handler.StartingWith(context.Background(), &handlers.PrefixRequest{Char: "co"})

		requireStatus(t, err, http.StatusBadRequest)
		assert.Zero(t, source.allCalls)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		handler := newHandler(&mockSource{rows: rows}, &mockKeys{}, nil)

		_, err := handler.StartingWith(context.Background(), &handlers.PrefixRequest{})

		requireStatus(t, err, http.StatusBadRequest)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		handler := newHandler(&mockSource{allErr: errMock}, &mockKeys{}, nil)

		_, err := handler.StartingWith(context.Background(), &handlers.PrefixRequest{Char: "c"})

		requireStatus(t, err, http.StatusInternalServerError)
	})
}
