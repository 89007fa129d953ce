package http

import "github.com/labstack/echo/v4"

// EchoRouter is the subset of *echo.Echo and *echo.Group used to register routes.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds every route of the API to router.
func RegisterHandlers(router EchoRouter, s *Server) {
	router.GET("/orders", s.ListOrders)
	router.GET("/orders/:id", s.GetOrder)
	router.PATCH("/orders/:id", s.PatchOrder)
	router.GET("/health", s.Health)
	router.GET("/metrics", s.Metrics)
	router.GET("/openapi.json", s.OpenAPI)
	router.GET(swaggerPrefix+"*", swaggerUI(), swaggerSecurity())
}
