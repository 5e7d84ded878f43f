package iometer

import (
	"context"
	"golang.org/x/time/rate"
	"io"
	"sync/atomic"
	"time"
)

// HighWatermark is the burst allowance used by SetRateLimit, matching
// spec.md §5's default high watermark for pipe/socket upload sources
// (10 MiB): a rate-limited TransferReader may run up to one watermark's
// worth of bytes ahead of the configured rate before WaitN starts
// blocking the caller, the same way the source's own watermarked buffer
// would stall a producer that outruns the uploader.
const HighWatermark = 10 * 1024 * 1024

// TransferReader wraps an io.Reader, counting bytes read from it and,
// once SetRateLimit has been called, blocking reads that would run the
// transfer ahead of a configured bytes/sec ceiling. chunk.Pipeline uses
// this as the backpressure mechanism for pipe/socket upload sources
// described in spec.md §5: a slow uploader must block the producer
// feeding it rather than buffer unboundedly in memory.
type TransferReader struct {
	reader  io.Reader
	limiter *rate.Limiter

	// transferredSize is a pointer to an int64 that stores the number of
	// bytes transferred.
	transferredSize *int64

	// ctx bounds how long a rate-limited Read may block waiting for
	// tokens; set via WithContext so a transfer's cancellation actually
	// unblocks a Read stalled on the limiter instead of waiting forever
	// on context.Background().
	ctx context.Context

	// closed is a flag that indicates if the readerProxy is closed
	closed bool
}

// NewTransferReader constructs a new TransferReader.
func NewTransferReader(reader io.Reader, transferredSize *int64) (mr *TransferReader) {
	mr = &TransferReader{
		reader:          reader,
		transferredSize: transferredSize,
		ctx:             context.Background(),
	}
	return
}

// WithContext binds ctx as the deadline a rate-limited Read waits
// against, so cancelling a transfer's context unblocks a Read that is
// currently stalled waiting for rate-limiter tokens. Returns tr for
// chaining at the call site.
func (tr *TransferReader) WithContext(ctx context.Context) *TransferReader {
	tr.ctx = ctx
	return tr
}

// Read reads from the underlying reader and increments the counter.
func (tr *TransferReader) Read(p []byte) (n int, err error) {
	if tr.limiter == nil {
		if n, err = tr.reader.Read(p); err != nil {
			return
		}
	} else {
		if n, err = tr.reader.Read(p); err != nil {
			return
		}
		if err = tr.limiter.WaitN(tr.ctx, n); err != nil {
			return
		}
	}
	if n > 0 && tr.transferredSize != nil {
		atomic.AddInt64(tr.transferredSize, int64(n))
	}
	return
}

// Close closes the underlying io.Reader if it implements the
// io.Closer interface.
func (tr *TransferReader) Close() (err error) {
	if tr.closed {
		return
	}
	if closer, ok := tr.reader.(io.Closer); ok {
		err = closer.Close()
	}
	tr.closed = true
	return
}

// TransferredSize returns the number of bytes transferred.
func (tr *TransferReader) TransferredSize() int64 {
	return atomic.LoadInt64(tr.transferredSize)
}

// SetRateLimit sets rate limit (bytes/sec) to the reader, with a burst
// allowance of HighWatermark.
func (tr *TransferReader) SetRateLimit(bytesPerSec float64) {
	tr.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), HighWatermark)
	tr.limiter.AllowN(time.Now(), HighWatermark) // spend initial burst
}
