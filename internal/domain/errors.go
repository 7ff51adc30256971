// Package domain defines the logical user model shared by all stores and
// the sentinel errors of the aggregation contract. Callers match these
// values with errors.Is.
package domain

import "errors"

var (
	// ErrInvalidArgument rejects a request before any store is touched.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound means no store returned data for the requested id.
	ErrNotFound = errors.New("not found")

	// ErrEndpointNotFound means a relationship operation referenced a
	// userId with no graph node.
	ErrEndpointNotFound = errors.New("graph endpoint not found")

	// ErrUnauthorized rejects a login with unknown email or bad password.
	ErrUnauthorized = errors.New("unauthorized")
)
