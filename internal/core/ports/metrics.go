package ports

import (
	"context"
	"time"
)

// MetricsSink receives request and store measurements.
type MetricsSink interface {
	// RecordHTTPRequest records one served request by its route template.
	RecordHTTPRequest(method, route string, status int, latency time.Duration)

	// RecordStoreOperation records one repository call.
	RecordStoreOperation(operation string, latency time.Duration, err error)
}

// FlushableMetricsSink buffers measurements until Flush ships them elsewhere.
type FlushableMetricsSink interface {
	MetricsSink
	Flush(ctx context.Context) error
}
