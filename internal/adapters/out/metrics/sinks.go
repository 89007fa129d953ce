package metrics

import (
	"context"
	"errors"
	"time"

	"orderadmin/internal/core/ports"
)

// Discard is a sink that drops every measurement.
var Discard ports.MetricsSink = discard{}

type discard struct{}

func (discard) RecordHTTPRequest(string, string, int, time.Duration) {}

func (discard) RecordStoreOperation(string, time.Duration, error) {}

// Multi fans every measurement out to all sinks. Flush flushes the sinks that buffer.
type Multi []ports.MetricsSink

func (m Multi) RecordHTTPRequest(method, route string, status int, latency time.Duration) {
	for _, s := range m {
		s.RecordHTTPRequest(method, route, status, latency)
	}
}

func (m Multi) RecordStoreOperation(operation string, latency time.Duration, err error) {
	for _, s := range m {
		s.RecordStoreOperation(operation, latency, err)
	}
}

func (m Multi) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if f, ok := s.(ports.FlushableMetricsSink); ok {
			errs = append(errs, f.Flush(ctx))
		}
	}
	return errors.Join(errs...)
}
