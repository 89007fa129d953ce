package http

import (
	"fmt"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/swaggo/swag"
)

const swaggerPrefix = "/swagger/"

// swaggerCSP lets the bundled Swagger UI load its own scripts, styles and icons.
const swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; " +
	"style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'"

var swaggerMu sync.Mutex

// swaggerDoc adapts the OpenAPI contract to swag's document registry.
type swaggerDoc string

func (d swaggerDoc) ReadDoc() string {
	return string(d)
}

// registerSwagger publishes contract as the default swag document read by
// /swagger/doc.json. The first registration wins; later calls are no-ops.
func registerSwagger(contract *openapi3.T) error {
	if contract == nil {
		return nil
	}

	raw, err := contract.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode OpenAPI document: %w", err)
	}

	swaggerMu.Lock()
	defer swaggerMu.Unlock()

	if swag.GetSwagger(swag.Name) == nil {
		swag.Register(swag.Name, swaggerDoc(raw))
	}
	return nil
}

// swaggerUI serves the Swagger UI for the OpenAPI contract.
func swaggerUI() echo.HandlerFunc {
	return echoSwagger.EchoWrapHandler(echoSwagger.URL("/openapi.json"))
}

func swaggerSecurity() echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: swaggerCSP,
		ReferrerPolicy:        "no-referrer",
	})
}

func isSwaggerRoute(c echo.Context) bool {
	return strings.HasPrefix(c.Path(), swaggerPrefix)
}
