package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	// Empty context returns empty string
	assert.Equal(t, "", RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
}

func TestBatchIDContext(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", BatchIDFromContext(ctx))

	ctx = WithBatchID(ctx, "batch-456")
	assert.Equal(t, "batch-456", BatchIDFromContext(ctx))
}

func TestRequestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	rc := RequestContext{
		RequestID: "req-1",
		BatchID:   "batch-1",
	}
	ctx = WithRequestContext(ctx, rc)

	got := RequestContextFromContext(ctx)
	assert.Equal(t, rc, got)
}

func TestRequestContextPartial(t *testing.T) {
	ctx := context.Background()

	// Only a request ID; the batch ID stays absent.
	ctx = WithRequestContext(ctx, RequestContext{RequestID: "req-only"})

	got := RequestContextFromContext(ctx)
	assert.Equal(t, "req-only", got.RequestID)
	assert.Equal(t, "", got.BatchID)
}

func TestContextOverwrite(t *testing.T) {
	ctx := context.Background()

	ctx = WithRequestID(ctx, "first")
	ctx = WithRequestID(ctx, "second")

	assert.Equal(t, "second", RequestIDFromContext(ctx))
}
