package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"orderadmin/internal/core/domain/model/order"
	"orderadmin/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Error codes carried in error bodies.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeOrderNotFound          = "ORDER_NOT_FOUND"
	CodeInvalidOrderStatus     = "INVALID_ORDER_STATUS"
	CodeOrderAlreadyProcessed  = "ORDER_ALREADY_PROCESSED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeNotFound               = "NOT_FOUND"
	CodeMethodNotAllowed       = "METHOD_NOT_ALLOWED"
	CodePayloadTooLarge        = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMediaType   = "UNSUPPORTED_MEDIA_TYPE"
	CodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	CodeBadRequest             = "BAD_REQUEST"
	CodeInternal               = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId"`
	Details       any    `json:"details,omitempty"`
}

type transitionDetails struct {
	OrderID         string         `json:"orderId,omitempty"`
	CurrentStatus   string         `json:"currentStatus"`
	AttemptedAction string         `json:"attemptedAction"`
	AllowedActions  []order.Action `json:"allowedActions"`
}

// mapError translates an error from the application layer into a status and body.
// The second result is false for failures that must not be shown to clients.
func mapError(err error, orderID string) (int, ErrorBody, bool) {
	var validationErr *errs.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, ErrorBody{
			Code:    CodeValidation,
			Message: "Validation failed for " + validationErr.Target,
			Details: validationErr.Fields,
		}, true
	}

	var notFoundErr *errs.ObjectNotFoundError
	if errors.As(err, &notFoundErr) {
		return http.StatusNotFound, ErrorBody{
			Code:    CodeOrderNotFound,
			Message: fmt.Sprintf("Order with ID %v not found", notFoundErr.ID),
		}, true
	}

	var transitionErr *order.TransitionError
	if errors.As(err, &transitionErr) {
		code := CodeInvalidOrderStatus
		if errors.Is(transitionErr, order.ErrAlreadyProcessed) {
			code = CodeOrderAlreadyProcessed
		}
		return http.StatusConflict, ErrorBody{
			Code:    code,
			Message: transitionErr.Error(),
			Details: transitionDetails{
				OrderID:         orderID,
				CurrentStatus:   transitionErr.Status.String(),
				AttemptedAction: transitionErr.Action.String(),
				AllowedActions:  allowedActions(transitionErr),
			},
		}, true
	}

	if errors.Is(err, order.ErrStatusChanged) {
		return http.StatusConflict, ErrorBody{
			Code:    CodeConcurrentModification,
			Message: "Order was modified by another request, reload it and try again",
		}, true
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code < http.StatusInternalServerError {
		return httpErr.Code, ErrorBody{
			Code:    codeForStatus(httpErr.Code),
			Message: httpErrorMessage(httpErr),
		}, true
	}

	return http.StatusInternalServerError, ErrorBody{
		Code:    CodeInternal,
		Message: "Internal server error",
	}, false
}

func allowedActions(err *order.TransitionError) []order.Action {
	if err.Allowed == nil {
		return []order.Action{}
	}
	return err.Allowed
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusMethodNotAllowed:
		return CodeMethodNotAllowed
	case http.StatusRequestEntityTooLarge:
		return CodePayloadTooLarge
	case http.StatusUnsupportedMediaType:
		return CodeUnsupportedMediaType
	case http.StatusTooManyRequests:
		return CodeRateLimitExceeded
	default:
		return CodeBadRequest
	}
}

func httpErrorMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	return http.StatusText(he.Code)
}

// NewErrorHandler returns an echo.HTTPErrorHandler writing ErrorResponse bodies.
// Internal failures are logged with their full chain and answered with an opaque 500.
func NewErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "http_error_handler")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body, public := mapError(err, c.Param("id"))
		body.CorrelationID = correlationID(c)

		if !public {
			logger.ErrorContext(c.Request().Context(), "Request failed",
				"error", err,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"correlation_id", body.CorrelationID,
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, ErrorResponse{Error: body})
		}
		if writeErr != nil {
			logger.ErrorContext(c.Request().Context(), "Failed to write error response", "error", writeErr)
		}
	}
}

func correlationID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
