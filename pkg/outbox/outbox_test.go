package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coltonheil/email-automation/pkg/trace"
)

func TestRetryDelayDoublesAndCaps(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryDelay(1))
	assert.Equal(t, 4*time.Second, retryDelay(2))
	assert.Equal(t, 8*time.Second, retryDelay(3))
	assert.Equal(t, 256*time.Second, retryDelay(8))
	assert.Equal(t, 5*time.Minute, retryDelay(9))
	assert.Equal(t, 5*time.Minute, retryDelay(60), "huge attempt counts stay capped")
	assert.Equal(t, 2*time.Second, retryDelay(0), "attempt numbering starts at one")
}

func TestTraceContextFromPayload(t *testing.T) {
	ctx := traceContext(context.Background(), []byte(`{"trace_id":"abc-123","draft_id":7}`))
	assert.Equal(t, "abc-123", trace.FromContext(ctx))

	ctx = traceContext(context.Background(), []byte(`{"draft_id":7}`))
	assert.Empty(t, trace.FromContext(ctx))

	ctx = traceContext(context.Background(), []byte(`not json`))
	assert.Empty(t, trace.FromContext(ctx))
}
