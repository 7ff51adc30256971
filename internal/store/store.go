// Package store names the four backing stores and tags adapter errors with
// their origin so the coordinator can attribute partial failures precisely.
package store

import "fmt"

// Name identifies one backing store.
type Name string

const (
	Credential Name = "credential"
	Profile    Name = "profile"
	Graph      Name = "graph"
	Counter    Name = "counter"
)

// WriteOrder is the fixed order in which the coordinator touches stores
// within a single logical write, keeping partial-failure reports
// deterministic across retries.
var WriteOrder = []Name{Credential, Profile, Graph, Counter}

// ParseName maps a request-level source filter to a store name.
func ParseName(s string) (Name, bool) {
	switch Name(s) {
	case Credential, Profile, Graph, Counter:
		return Name(s), true
	}
	return "", false
}

// Error wraps a failure from one adapter with the store it came from and
// the operation that failed.
type Error struct {
	Store Name
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Store, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError tags err with its originating store, or returns nil if err is nil.
func NewError(store Name, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Store: store, Op: op, Err: err}
}
