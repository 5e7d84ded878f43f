// Package iometer wraps io.Reader streams to count bytes transferred
// and, optionally, throttle them to a target rate.
package iometer

import "io"

// ReadCloser is the interface TransferReader wraps when the underlying
// stream also needs closing. It exists purely so tests can mock it.
type ReadCloser interface {
	io.ReadCloser
}
