// Package output provides the target side of a migration: modules that
// write records to a destination system.
package output

import "context"

// Response describes a completed write.
type Response struct {
	StatusCode int
	Body       string
}

// Module represents an output module that sends data to a destination.
type Module interface {
	// Send transmits one record body to the destination system.
	// Any status outside the configured success codes is an error.
	Send(ctx context.Context, body interface{}) (*Response, error)

	// Close releases any resources held by the module.
	Close() error
}
