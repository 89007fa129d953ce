package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	// maxDatumsPerCall is the PutMetricData limit on metric data per request.
	maxDatumsPerCall = 1000

	// maxBuffered bounds memory when flushes keep failing; newer data is dropped.
	maxBuffered = 20 * maxDatumsPerCall

	DefaultRegion = "us-east-1"
)

// CloudWatchAPI is the subset of the CloudWatch client the sink uses.
type CloudWatchAPI interface {
	PutMetricData(
		ctx context.Context,
		params *cloudwatch.PutMetricDataInput,
		optFns ...func(*cloudwatch.Options),
	) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchSink buffers measurements as metric data and ships them on Flush.
type CloudWatchSink struct {
	client    CloudWatchAPI
	namespace string
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []types.MetricDatum
	dropped int64
}

// NewCloudWatchSink creates a sink publishing under namespace.
func NewCloudWatchSink(client CloudWatchAPI, namespace string, logger *slog.Logger) *CloudWatchSink {
	return &CloudWatchSink{
		client:    client,
		namespace: namespace,
		logger:    logger.With("component", "cloudwatch_metrics"),
		now:       time.Now,
	}
}

// NewCloudWatchClient loads the default AWS configuration for region.
func NewCloudWatchClient(ctx context.Context, region string) (*cloudwatch.Client, error) {
	if region == "" {
		region = DefaultRegion
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cloudwatch.NewFromConfig(cfg), nil
}

// RecordHTTPRequest implements ports.MetricsSink.
func (s *CloudWatchSink) RecordHTTPRequest(method, route string, status int, latency time.Duration) {
	dims := []types.Dimension{
		{Name: aws.String("Method"), Value: aws.String(method)},
		{Name: aws.String("Route"), Value: aws.String(route)},
		{Name: aws.String("StatusClass"), Value: aws.String(strconv.Itoa(status/100) + "xx")},
	}

	s.add(
		s.datum("RequestLatency", dims, toMillis(latency), types.StandardUnitMilliseconds),
		s.datum("RequestCount", dims, 1, types.StandardUnitCount),
	)
}

// RecordStoreOperation implements ports.MetricsSink.
func (s *CloudWatchSink) RecordStoreOperation(operation string, latency time.Duration, err error) {
	dims := []types.Dimension{
		{Name: aws.String("Operation"), Value: aws.String(operation)},
	}

	failed := 0.0
	if err != nil {
		failed = 1
	}

	s.add(
		s.datum("StoreLatency", dims, toMillis(latency), types.StandardUnitMilliseconds),
		s.datum("StoreErrors", dims, failed, types.StandardUnitCount),
	)
}

// Flush sends everything buffered so far. Data of a failed call is put back so the
// next flush retries it.
func (s *CloudWatchSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	dropped := s.dropped
	s.dropped = 0
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.WarnContext(ctx, "Metric data dropped while buffer was full", "dropped", dropped)
	}

	for start := 0; start < len(batch); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(batch))

		_, err := s.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(s.namespace),
			MetricData: batch[start:end],
		})
		if err != nil {
			s.requeue(batch[start:])
			return fmt.Errorf("put metric data: %w", err)
		}
	}

	if len(batch) > 0 {
		s.logger.DebugContext(ctx, "Metric data flushed", "datums", len(batch))
	}
	return nil
}

// Pending reports how many metric data wait for the next flush.
func (s *CloudWatchSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *CloudWatchSink) datum(name string, dims []types.Dimension, value float64, unit types.StandardUnit) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: dims,
		Timestamp:  aws.Time(s.now()),
		Unit:       unit,
		Value:      aws.Float64(value),
	}
}

func (s *CloudWatchSink) add(datums ...types.MetricDatum) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := maxBuffered - len(s.pending)
	if room < len(datums) {
		s.dropped += int64(len(datums) - max(room, 0))
		datums = datums[:max(room, 0)]
	}
	s.pending = append(s.pending, datums...)
}

func (s *CloudWatchSink) requeue(datums []types.MetricDatum) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]types.MetricDatum, 0, len(datums)+len(s.pending))
	merged = append(merged, datums...)
	merged = append(merged, s.pending...)
	if len(merged) > maxBuffered {
		s.dropped += int64(len(merged) - maxBuffered)
		merged = merged[:maxBuffered]
	}
	s.pending = merged
}
