package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"orderadmin/internal/adapters/out/metrics"
	"orderadmin/internal/core/application/usecases/commands"
	"orderadmin/internal/core/application/usecases/queries"
	"orderadmin/internal/pkg/errs"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck checks a dependency, typically the store.
type HealthCheck func(ctx context.Context) error

// MetricsReporter exposes the in-process metrics snapshot.
type MetricsReporter interface {
	Snapshot() metrics.Snapshot
}

// ServerConfig holds everything the Server needs besides the use case handlers.
type ServerConfig struct {
	PageLimits  queries.PageLimits
	StoreHealth HealthCheck
	// Metrics is nil when the in-process sink is disabled.
	Metrics  MetricsReporter
	Contract *openapi3.T
	Logger   *slog.Logger
}

// Server handles HTTP requests and delegates to the application use cases.
type Server struct {
	// Command handlers
	patchOrderHandler commands.PatchOrderCommandHandler

	// Query handlers
	listOrdersHandler queries.ListOrdersQueryHandler
	getOrderHandler   queries.GetOrderQueryHandler

	pageLimits  queries.PageLimits
	storeHealth HealthCheck
	metrics     MetricsReporter
	contract    *openapi3.T
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with the required command and query handlers.
func NewServer(
	patchOrderHandler commands.PatchOrderCommandHandler,
	listOrdersHandler queries.ListOrdersQueryHandler,
	getOrderHandler queries.GetOrderQueryHandler,
	cfg ServerConfig,
) *Server {
	s := &Server{
		patchOrderHandler: patchOrderHandler,
		listOrdersHandler: listOrdersHandler,
		getOrderHandler:   getOrderHandler,
		pageLimits:        cfg.PageLimits,
		storeHealth:       cfg.StoreHealth,
		metrics:           cfg.Metrics,
		contract:          cfg.Contract,
		logger:            cfg.Logger.With("component", "http_server"),
	}

	if err := registerSwagger(cfg.Contract); err != nil {
		s.logger.Warn("Swagger document unavailable", "error", err)
	}
	return s
}

// ListOrders handles GET /orders.
func (s *Server) ListOrders(ctx echo.Context) error {
	query, err := queries.NewListOrdersQuery(ctx.QueryParams(), s.pageLimits)
	if err != nil {
		return err
	}

	result, err := s.listOrdersHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, toOrderPageResponse(result))
}

// GetOrder handles GET /orders/:id.
func (s *Server) GetOrder(ctx echo.Context) error {
	id, err := bindOrderID(ctx)
	if err != nil {
		return err
	}

	query, err := queries.NewGetOrderQuery(id)
	if err != nil {
		return err
	}

	o, err := s.getOrderHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, toOrderResponse(o))
}

// PatchOrder handles PATCH /orders/:id.
func (s *Server) PatchOrder(ctx echo.Context) error {
	id, err := bindOrderID(ctx)
	if err != nil {
		return err
	}

	var req PatchOrderRequest
	if bindErr := (&echo.DefaultBinder{}).BindBody(ctx, &req); bindErr != nil {
		return errs.NewValidationError("body").Add("body", "invalid request body")
	}

	cmd, err := commands.NewPatchOrderCommand(id, req.IsApproved, req.IsCancelled)
	if err != nil {
		return err
	}

	if err = s.patchOrderHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return err
	}

	s.logger.InfoContext(ctx.Request().Context(), "Order updated",
		"order_id", cmd.OrderID(),
		"action", cmd.Action().String(),
		"correlation_id", correlationID(ctx),
	)
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true})
}

type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]healthCheck `json:"checks"`
}

type healthCheck struct {
	Status    string  `json:"status"`
	LatencyMs float64 `json:"latencyMs"`
	Message   string  `json:"message,omitempty"`
}

// Health handles GET /health. It answers 503 when the store does not respond.
func (s *Server) Health(ctx echo.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), healthCheckTimeout)
	defer cancel()

	start := time.Now()
	check := healthCheck{Status: "ok"}
	status := http.StatusOK

	if err := s.storeHealth(reqCtx); err != nil {
		s.logger.WarnContext(reqCtx, "Store health check failed", "error", err)
		check.Status = "unhealthy"
		check.Message = "store is not reachable"
		status = http.StatusServiceUnavailable
	}
	check.LatencyMs = float64(time.Since(start)) / float64(time.Millisecond)

	return ctx.JSON(status, healthResponse{
		Status:    check.Status,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Checks:    map[string]healthCheck{"store": check},
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(ctx echo.Context) error {
	if s.metrics == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Metrics disabled")
	}
	return ctx.JSON(http.StatusOK, s.metrics.Snapshot())
}

// OpenAPI handles GET /openapi.json.
func (s *Server) OpenAPI(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.contract)
}

func bindOrderID(ctx echo.Context) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithLocation("simple", false, "id", runtime.ParamLocationPath, ctx.Param("id"), &id)
	if err != nil {
		return "", errs.NewValidationError("params").Add("id", "order id must be a valid UUID")
	}
	return id, nil
}
