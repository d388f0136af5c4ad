package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/restaurant-pos/pkg/logging"
)

func TestTraceparentRoundTripsThroughKafkaHeaders(t *testing.T) {
	tp, err := Init(context.Background(), "test", "", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	tp1 := Traceparent(ctx)
	require.NotEmpty(t, tp1)

	headers := InjectKafkaHeaders(ctx, []kafka.Header{{Key: "event_type", Value: []byte("x")}})
	assert.Equal(t, tp1, HeaderValue(headers, TraceparentHeader))
	assert.Equal(t, "x", HeaderValue(headers, "event_type"))

	back := trace.SpanContextFromContext(ExtractKafkaHeaders(context.Background(), headers))
	assert.Equal(t, span.SpanContext().TraceID(), back.TraceID())

	stored := trace.SpanContextFromContext(FromTraceparent(context.Background(), tp1))
	assert.Equal(t, span.SpanContext().TraceID(), stored.TraceID())
}

func TestTraceparentEmptyWithoutSpan(t *testing.T) {
	assert.Empty(t, Traceparent(context.Background()))
	assert.Equal(t, context.Background(), FromTraceparent(context.Background(), ""))
}
