package dispatch

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/skyspect/inspection/internal/dispatch"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
