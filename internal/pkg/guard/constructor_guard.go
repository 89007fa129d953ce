// Package guard holds the constructor guard embedded by commands and queries.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate on a zero-value guard when the
// caller passes no error of its own.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard marks a value as built by its constructor. Embedding it lets a
// zero-value command or query be told apart from a validated one:
//
//	type ListOrdersQuery struct {
//	    page  int
//	    guard guard.ConstructorGuard
//	}
//
//	func (q ListOrdersQuery) Validate() error {
//	    return q.guard.Validate(ErrListOrdersQueryIsNotConstructed)
//	}
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard returns a guard that passes validation.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns validationError (or ErrDefaultConstructorGuard when it is nil)
// if the guard is a zero value.
func (g ConstructorGuard) Validate(validationError error) error {
	if validationError == nil {
		validationError = ErrDefaultConstructorGuard
	}
	if !g.isConstructed {
		return validationError
	}
	return nil
}
