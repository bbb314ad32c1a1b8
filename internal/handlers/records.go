package handlers

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/rowquota/internal/auth"
	"github.com/serroba/rowquota/internal/messaging"
	"github.com/serroba/rowquota/internal/model"
	"github.com/serroba/rowquota/internal/records"
	"github.com/serroba/rowquota/internal/usage"
	"go.uber.org/zap"
)

const msgInternal = "internal server error"

// RecordsHandler serves record listings. The data source and key source are
// shared by every request and never rebuilt per request.
type RecordsHandler struct {
	source        records.DataSource
	keys          auth.Source
	publishListed messaging.Publish[usage.ListedEvent]
	logger        *zap.Logger
	now           func() time.Time
}

// NewRecordsHandler creates a records handler.
func NewRecordsHandler(
	source records.DataSource,
	keys auth.Source,
	publishListed messaging.Publish[usage.ListedEvent],
	logger *zap.Logger,
) *RecordsHandler {
	return &RecordsHandler{
		source:        source,
		keys:          keys,
		publishListed: publishListed,
		logger:        logger,
		now:           time.Now,
	}
}

// ListAll fetches every record from source. It is generic over the concrete
// source so callers holding a concrete store get static dispatch.
func ListAll[D records.DataSource](ctx context.Context, source D) ([]records.Record, error) {
	rows, err := source.SelectAll(ctx)
	if err != nil {
		return nil, err
	}

	if rows == nil {
		rows = []records.Record{}
	}

	return rows, nil
}

// List returns every record without any key check.
func (h *RecordsHandler) List(ctx context.Context, _ *struct{}) (*ListResponse, error) {
	rows, err := ListAll(ctx, h.source)
	if err != nil {
		return nil, h.internal(ctx, "list records", err)
	}

	return &ListResponse{Body: rows}, nil
}

// ListFromContext behaves like List but resolves the data source from the
// request context.
func (h *RecordsHandler) ListFromContext(ctx context.Context, _ *struct{}) (*ListResponse, error) {
	source, ok := records.SourceFromContext(ctx)
	if !ok {
		return nil, h.internal(ctx, "list records", errors.New("no data source in request context"))
	}

	rows, err := ListAll(ctx, source)
	if err != nil {
		return nil, h.internal(ctx, "list records", err)
	}

	return &ListResponse{Body: rows}, nil
}

// ListWithLimits resolves the key's quota, fetches all records and keeps the
// first n when the key is capped. An unknown key or a failed lookup stops the
// request before any rows are fetched.
func (h *RecordsHandler) ListWithLimits(ctx context.Context, req *ListWithLimitsRequest) (*ListResponse, error) {
	fingerprint := auth.Fingerprint(req.Key)

	limit, found, err := h.keys.KeyLimit(ctx, req.Key)
	if err != nil {
		listedLookupFailed.Inc()

		return nil, h.internal(ctx, "key limit lookup", err, zap.String("key", fingerprint))
	}

	if !found {
		listedUnauthorized.Inc()
		h.logger.Info("unknown access key", zap.String("key", fingerprint))

		return nil, huma.Error401Unauthorized("invalid key")
	}

	rows, err := ListAll(ctx, h.source)
	if err != nil {
		listedFetchFailed.Inc()

		return nil, h.internal(ctx, "list records", err, zap.String("key", fingerprint))
	}

	out := auth.Truncate(limit, rows)

	listedOK.Inc()
	rowsReturned.Add(len(out))

	if len(out) < len(rows) {
		listedTruncated.Inc()
	}

	h.publishUsage(ctx, fingerprint, limit, len(rows), len(out))

	return &ListResponse{Body: out}, nil
}

// Last returns the record with the highest id.
func (h *RecordsHandler) Last(ctx context.Context, _ *struct{}) (*LastResponse, error) {
	rec, err := h.source.SelectLast(ctx)
	if errors.Is(err, records.ErrEmpty) {
		return nil, huma.Error404NotFound("no records")
	}

	if err != nil {
		return nil, h.internal(ctx, "select last record", err)
	}

	return &LastResponse{Body: rec}, nil
}

// StartingWith returns the col1 values beginning with the requested character.
func (h *RecordsHandler) StartingWith(ctx context.Context, req *PrefixRequest) (*PrefixResponse, error) {
	if utf8.RuneCountInString(req.Char) != 1 {
		return nil, huma.Error400BadRequest("char must be exactly one character")
	}

	prefix, _ := utf8.DecodeRuneInString(req.Char)

	values, err := model.RecordsStartingWith(ctx, h.source, prefix)
	if err != nil {
		return nil, h.internal(ctx, "filter records", err)
	}

	return &PrefixResponse{Body: values}, nil
}

// Root answers liveness probes.
func (h *RecordsHandler) Root(_ context.Context, _ *struct{}) (*struct{}, error) {
	return nil, nil
}

func (h *RecordsHandler) publishUsage(ctx context.Context, fingerprint string, limit auth.KeyLimit, total, returned int) {
	meta := RequestMetaFromContext(ctx)
	maxRows, _ := limit.Max()

	event := &usage.ListedEvent{
		RequestID:      meta.RequestID,
		KeyFingerprint: fingerprint,
		Unlimited:      limit.IsUnlimited(),
		Limit:          maxRows,
		Total:          total,
		Returned:       returned,
		ClientIP:       meta.ClientIP,
		UserAgent:      meta.UserAgent,
		ListedAt:       h.now(),
	}

	if err := h.publishListed(ctx, event); err != nil {
		publishFailed.Inc()
		h.logger.Error("failed to publish usage event",
			zap.String("request_id", meta.RequestID),
			zap.String("key", fingerprint),
			zap.Error(err),
		)
	}
}

// internal logs err and returns the opaque 500 shown to callers.
func (h *RecordsHandler) internal(ctx context.Context, op string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	if id := RequestMetaFromContext(ctx).RequestID; id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	h.logger.Error("request failed", fields...)

	return huma.Error500InternalServerError(msgInternal)
}
