// ABOUTME: Tests for pipeline run spans
// ABOUTME: Records spans in memory and checks names and error status
package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestRunEmitsStageSpan(t *testing.T) {
	rec := withSpanRecorder(t)
	s := newTestStore(t)

	_, err := newRunner(s, &fakeStages{}, nil).RunScoring(context.Background(), uuid.New())
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.scoring", spans[0].Name())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestFailedRunMarksSpan(t *testing.T) {
	rec := withSpanRecorder(t)
	s := newTestStore(t)

	_, err := newRunner(s, &fakeStages{inferErr: errors.New("boom")}, nil).RunAccount(context.Background(), uuid.New())
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.full", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Status().Description, "boom")
}
