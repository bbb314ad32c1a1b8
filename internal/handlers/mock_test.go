package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/serroba/rowquota/internal/auth"
	"github.com/serroba/rowquota/internal/messaging"
	"github.com/serroba/rowquota/internal/records"
	"github.com/serroba/rowquota/internal/usage"
)

var errMock = errors.New("mock error")

// mockSource is a scripted records.DataSource that counts calls.
type mockSource struct {
	rows      []records.Record
	allErr    error
	lastErr   error
	allCalls  int
	lastCalls int
}

func (m *mockSource) SelectAll(_ context.Context) ([]records.Record, error) {
	m.allCalls++

	if m.allErr != nil {
		return nil, records.NewSourceError("select all", m.allErr)
	}

	return m.rows, nil
}

func (m *mockSource) SelectLast(_ context.Context) (records.Record, error) {
	m.lastCalls++

	if m.lastErr != nil {
		return records.Record{}, records.NewSourceError("select last", m.lastErr)
	}

	if len(m.rows) == 0 {
		return records.Record{}, records.NewSourceError("select last", records.ErrEmpty)
	}

	return m.rows[len(m.rows)-1], nil
}

// mockKeys is a scripted auth.Source. Like every real source it resolves the
// reserved key before consulting its table.
type mockKeys struct {
	limits map[string]auth.KeyLimit
	err    error
	calls  int
}

func (m *mockKeys) KeyLimit(_ context.Context, key string) (auth.KeyLimit, bool, error) {
	m.calls++

	if limit, ok := auth.Reserved(key); ok {
		return limit, true, nil
	}

	if m.err != nil {
		return auth.KeyLimit{}, false, auth.NewLookupError(m.err)
	}

	limit, ok := m.limits[key]

	return limit, ok, nil
}

// recordingPublisher captures published usage events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*usage.ListedEvent
	err    error
}

func (r *recordingPublisher) publish() messaging.Publish[usage.ListedEvent] {
	return func(_ context.Context, event *usage.ListedEvent) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.events = append(r.events, event)

		return r.err
	}
}

func (r *recordingPublisher) published() []*usage.ListedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*usage.ListedEvent(nil), r.events...)
}

func fiftyRows() []records.Record {
	rows := make([]records.Record, 0, 50)
	for i := 1; i <= 50; i++ {
		rows = append(rows, records.Record{ID: int64(i), Col1: fmt.Sprintf("row-%02d", i)})
	}

	return rows
}
