// Package errs provides standardized error types for the order admin service.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used throughout the application.
//
// The package includes several error types for common error scenarios:
//   - ValueIsRequiredError: For when a required value is missing
//   - ValueIsInvalidError: For when a value is invalid
//   - ValueIsOutOfRangeError: For when a value falls outside its bounds
//   - ObjectNotFoundError: For when an object cannot be found
//   - ValidationError: For input that violates one or more field rules
//   - StoreError: For failures of the underlying relational store
//
// Each error type follows a consistent pattern:
//   - A sentinel error variable (e.g., ErrValueIsRequired)
//   - A struct type with fields for error details
//   - Constructor functions, with a cause variant where callers wrap another error
//   - Error() method for formatting the error message
//   - Unwrap() method for error wrapping/unwrapping support
//
// Callers classify errors with errors.Is against the sentinels and reach the
// details with errors.As, which is how the HTTP layer picks a status code.
package errs
