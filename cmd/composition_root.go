package cmd

import (
	"context"
	"fmt"
	"log/slog"

	httpadapter "orderadmin/internal/adapters/in/http"
	"orderadmin/internal/adapters/out/metrics"
	"orderadmin/internal/adapters/out/sqlstore"
	"orderadmin/internal/adapters/out/sqlstore/orderrepo"
	"orderadmin/internal/core/application/usecases/commands"
	"orderadmin/internal/core/application/usecases/queries"
	"orderadmin/internal/core/ports"
	"orderadmin/internal/jobs"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type CompositionRoot struct {
	cfg    Config
	gormDB *gorm.DB
	logger *slog.Logger

	sink ports.MetricsSink
	// memorySink backs GET /metrics; nil when METRICS_SINK=none.
	memorySink *metrics.MemorySink
	// flushSink is set when a sink buffers data for export.
	flushSink ports.FlushableMetricsSink

	orderRepository ports.OrderRepository
}

// NewCompositionRoot wires the metrics sinks and the repository. A CloudWatch sink
// needs AWS configuration, hence the context and the error.
func NewCompositionRoot(ctx context.Context, cfg Config, gormDB *gorm.DB, logger *slog.Logger) (CompositionRoot, error) {
	c := CompositionRoot{
		cfg:    cfg,
		gormDB: gormDB,
		logger: logger,
		sink:   metrics.Discard,
	}

	switch cfg.MetricsSink {
	case "memory":
		c.memorySink = metrics.NewMemorySink()
		c.sink = c.memorySink
	case "cloudwatch":
		client, err := metrics.NewCloudWatchClient(ctx, cfg.AWSRegion)
		if err != nil {
			return CompositionRoot{}, fmt.Errorf("cloudwatch metrics: %w", err)
		}
		c.memorySink = metrics.NewMemorySink()
		multi := metrics.Multi{c.memorySink, metrics.NewCloudWatchSink(client, cfg.MetricsNamespace, logger)}
		c.sink = multi
		c.flushSink = multi
	}

	c.orderRepository = orderrepo.NewGormOrderRepository(gormDB, c.sink)
	return c, nil
}

func (c *CompositionRoot) MetricsSink() ports.MetricsSink {
	return c.sink
}

func (c *CompositionRoot) CreatePatchOrderCommandHandler() commands.PatchOrderCommandHandler {
	return commands.NewPatchOrderCommandHandler(c.orderRepository)
}

func (c *CompositionRoot) CreateListOrdersQueryHandler() queries.ListOrdersQueryHandler {
	return queries.NewListOrdersQueryHandler(c.orderRepository)
}

func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.orderRepository)
}

func (c *CompositionRoot) CreateServer(contract *openapi3.T) *httpadapter.Server {
	cfg := httpadapter.ServerConfig{
		PageLimits: c.cfg.PageLimits(),
		StoreHealth: func(ctx context.Context) error {
			return sqlstore.Ping(ctx, c.gormDB)
		},
		Contract: contract,
		Logger:   c.logger,
	}
	// A nil *MemorySink must not end up in the interface.
	if c.memorySink != nil {
		cfg.Metrics = c.memorySink
	}

	return httpadapter.NewServer(
		c.CreatePatchOrderCommandHandler(),
		c.CreateListOrdersQueryHandler(),
		c.CreateGetOrderQueryHandler(),
		cfg,
	)
}

func (c *CompositionRoot) CreateRouter(contract *openapi3.T) *echo.Echo {
	return httpadapter.NewRouter(httpadapter.RouterConfig{
		AllowedOrigins:       c.cfg.AllowedOrigins,
		RateLimitMaxRequests: c.cfg.RateLimitMaxRequests,
		RateLimitWindow:      c.cfg.RateLimitWindow,
	}, c.CreateServer(contract), c.sink, c.logger)
}

// CreateJobManager registers the background jobs the configuration asks for.
func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	jm := jobs.NewJobManager(c.logger)
	if c.flushSink != nil {
		jm.Register("metrics flush", jobs.NewMetricsFlushJob(c.flushSink, c.cfg.MetricsFlushSchedule, c.logger))
	}
	return jm
}
