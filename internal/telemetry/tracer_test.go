package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitTracerProviderWithoutEndpoint(t *testing.T) {
	tp, err := InitTracerProvider("order-service", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := Tracer().Start(context.Background(), "test")
	defer span.End()
	require.True(t, span.SpanContext().IsValid())
}
