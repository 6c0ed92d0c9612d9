package vhost

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrDuplicateExchangeName           = errors.New("duplicate exchange name")
	ErrExchangeVirtualHostNotReflexive = errors.New("exchange virtual host is not reflexive")
)

// Error is returned by every failed VirtualHost operation.
// Reason is one of the package sentinels.
type Error struct {
	Reason      error
	VirtualHost string
	Exchange    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("virtual host '%s': declare exchange '%s': %v", e.VirtualHost, e.Exchange, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Reason
}
