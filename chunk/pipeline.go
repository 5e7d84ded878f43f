// Package chunk implements per-transfer streaming: reading from a source
// (file, pipe, or object) or writing to a sink, optionally passing bytes
// through an encryption scheme, computing a rolling MD5 of the plaintext,
// and slicing uploads into fixed-size parts with stall-aware retry and
// resume on download.
package chunk

import (
	"bufio"
	"context"
	"crypto/md5"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/marcboeker/s3xfer/internal/iometer"
	"github.com/marcboeker/s3xfer/internal/xferfile"
	"github.com/marcboeker/s3xfer/meta"
	"github.com/marcboeker/s3xfer/store"
)

// Defaults for Pipeline options, overridable per SPEC_FULL's CLI/config
// surface.
const (
	DefaultPartSize    = 100 * 1024 * 1024
	DefaultConcurrency = 4
	DefaultRetryBudget = 3
	DefaultRetryDelay  = 500 * time.Millisecond
)

// State names one point in a single transfer's lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StatePreparing    State = "preparing"
	StateTransferring State = "transferring"
	StateVerifying    State = "verifying"
	StateDone         State = "done"
	StateRetrying     State = "retrying"
	StateFailed       State = "failed"
)

// ProgressEvent reports a change for one transfer, identified by its
// opaque TransferID. A ProgressAggregator owns the slot table and posts
// no information back; the pipeline only ever writes to Progress.
type ProgressEvent struct {
	TransferID uuid.UUID
	State      State
	BytesDelta int64
}

func postProgress(ch chan<- ProgressEvent, id uuid.UUID, state State, delta int64) {
	if ch == nil {
		return
	}
	select {
	case ch <- ProgressEvent{TransferID: id, State: state, BytesDelta: delta}:
	default:
	}
}

// Error tags a pipeline failure with the phase it occurred in, matching
// spec.md's (`put_parts`|`put_meta`|`get_file`|`compare`) tags.
type Error struct {
	Phase string
	Path  string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("chunk: %s %s: %v", e.Phase, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func retriable(err error) bool {
	if err == nil {
		return false
	}
	return store.Retriable(err)
}

// Pipeline drives one object's worth of upload/download/compare traffic
// against a store.Client and its meta.Layer sidecars.
type Pipeline struct {
	store  *store.Client
	meta   *meta.Layer
	logger logr.Logger

	partSize       int64
	concurrency    int
	tmpDir         string
	retryBudget    uint
	retryDelay     time.Duration
	bandwidthLimit float64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithPartSize(n int64) Option           { return func(p *Pipeline) { p.partSize = n } }
func WithConcurrency(n int) Option          { return func(p *Pipeline) { p.concurrency = n } }
func WithTmpDir(dir string) Option          { return func(p *Pipeline) { p.tmpDir = dir } }
func WithRetryBudget(n uint) Option         { return func(p *Pipeline) { p.retryBudget = n } }
func WithRetryDelay(d time.Duration) Option { return func(p *Pipeline) { p.retryDelay = d } }

// WithBandwidthLimit caps upload throughput to bytesPerSec, implementing
// spec.md §5's backpressure requirement for pipe/socket sources: the
// limiter blocks reads from in.Source once the uploader has gotten ahead
// of the configured rate, rather than buffering unbounded input in
// memory. Zero (the default) disables the limit.
func WithBandwidthLimit(bytesPerSec float64) Option {
	return func(p *Pipeline) { p.bandwidthLimit = bytesPerSec }
}

// NewPipeline builds a Pipeline. store and meta must share the same
// bucket root.
func NewPipeline(s *store.Client, m *meta.Layer, logger logr.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:       s,
		meta:        m,
		logger:      logger.WithName("chunk"),
		partSize:    DefaultPartSize,
		concurrency: DefaultConcurrency,
		tmpDir:      os.TempDir(),
		retryBudget: DefaultRetryBudget,
		retryDelay:  DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PutInput describes one upload.
type PutInput struct {
	Path       string
	Source     io.Reader
	Mtime      time.Time
	Encrypt    Directive
	TransferID uuid.UUID
	Progress   chan<- ProgressEvent
}

// PutResult is the outcome of a successful PutFromSource.
type PutResult struct {
	ETag   string
	MD5Sum string
	Bytes  int64
}

// PutFromSource streams in.Source to data/P, writing its md5sum (and, if
// encrypted, cryptokey) sidecar on success. See spec.md §4.C.
func (p *Pipeline) PutFromSource(ctx context.Context, in PutInput) (PutResult, error) {
	postProgress(in.Progress, in.TransferID, StatePreparing, 0)

	source := in.Source
	if p.bandwidthLimit > 0 {
		limited := iometer.NewTransferReader(source, new(int64)).WithContext(ctx)
		limited.SetRateLimit(p.bandwidthLimit)
		source = limited
	}

	// Peek so a zero-byte source can be special-cased into exactly one
	// empty part, without consuming bytes a non-empty source would need.
	buffered := bufio.NewReaderSize(source, 1)
	_, peekErr := buffered.Peek(1)
	isEmpty := peekErr == io.EOF

	hasher := md5.New()
	var plain io.Reader = io.TeeReader(buffered, hasher)

	// A zero-byte plaintext is never encrypted: there is nothing to
	// protect, and an encrypted-empty object would leave the download
	// side trying to decrypt an empty ciphertext stream, which is not a
	// valid GPG or CFB payload.
	var cryptokey string
	if in.Encrypt.Scheme != SchemeNone && !isEmpty {
		encryptor, err := NewEncryptor(in.Encrypt)
		if err != nil {
			return PutResult{}, &Error{Phase: "put_parts", Path: in.Path, Err: err}
		}
		cipherReader, key, err := encryptor.Encrypt(ctx, plain)
		if err != nil {
			return PutResult{}, &Error{Phase: "put_parts", Path: in.Path, Err: err}
		}
		plain = cipherReader
		cryptokey = key
	}

	userMeta := map[string]string{xferfile.HeaderMtime: xferfile.FormatMtime(in.Mtime)}
	if cryptokey != "" {
		if in.Encrypt.Scheme == SchemeGPG {
			userMeta[xferfile.HeaderKeyid] = in.Encrypt.Keyid
		} else {
			userMeta[xferfile.HeaderKeyid] = string(in.Encrypt.Scheme)
		}
	}

	dataKey := p.meta.DataKey(in.Path)
	var (
		etag       string
		totalBytes int64
		err        error
	)
	postProgress(in.Progress, in.TransferID, StateTransferring, 0)
	if isEmpty {
		etag, err = p.store.Put(ctx, dataKey, store.SinglePart(nil), userMeta, 1)
	} else {
		producer, partsCh := newPartProducer(plain, int64(p.concurrency)+1, p.tmpDir)
		go producer.produce(ctx, p.partSize)
		storeParts := toStorePartChan(ctx, countingParts(ctx, partsCh, in.Progress, in.TransferID, &totalBytes))
		etag, err = p.store.Put(ctx, dataKey, storeParts, userMeta, p.concurrency)
		if producer.err != nil && err == nil {
			err = producer.err
		}
	}
	if err != nil {
		return PutResult{}, &Error{Phase: "put_parts", Path: in.Path, Err: err}
	}

	md5hex := fmt.Sprintf("%x", hasher.Sum(nil))

	postProgress(in.Progress, in.TransferID, StateVerifying, 0)
	if err := p.meta.PutMeta(ctx, in.Path, xferfile.MetaMD5Sum, md5hex+"\n"); err != nil {
		return PutResult{}, &Error{Phase: "put_meta", Path: in.Path, Err: err}
	}
	if cryptokey != "" {
		if err := p.meta.PutMeta(ctx, in.Path, xferfile.MetaCryptoKey, cryptokey); err != nil {
			return PutResult{}, &Error{Phase: "put_meta", Path: in.Path, Err: err}
		}
	} else if err := p.meta.DeleteMeta(ctx, in.Path, xferfile.MetaCryptoKey); err != nil {
		return PutResult{}, &Error{Phase: "put_meta", Path: in.Path, Err: err}
	}

	postProgress(in.Progress, in.TransferID, StateDone, 0)
	return PutResult{ETag: etag, MD5Sum: md5hex, Bytes: totalBytes}, nil
}

// countingParts relays chunks from in, emitting a progress delta for
// each one read off the channel. If ctx is cancelled before a relayed
// chunk is picked up downstream, it is closed immediately rather than
// leaking its backing temp file.
func countingParts(ctx context.Context, in <-chan partChunk, progress chan<- ProgressEvent, id uuid.UUID, total *int64) <-chan partChunk {
	out := make(chan partChunk)
	go func() {
		defer close(out)
		for c := range in {
			*total += c.size
			postProgress(progress, id, StateTransferring, c.size)
			select {
			case out <- c:
			case <-ctx.Done():
				_ = c.close()
				return
			}
		}
	}()
	return out
}

// GetInput describes one download.
type GetInput struct {
	Path       string
	Sink       Sink
	Passphrase string
	TransferID uuid.UUID
	Progress   chan<- ProgressEvent
}

// GetResult is the outcome of a successful GetToSink.
type GetResult struct {
	MD5Sum string
	Bytes  int64
	Mtime  time.Time
}

// Sink receives decrypted bytes during a download or compare. Reset
// discards anything written so far, called before the pipeline restarts
// a download from byte zero after a non-resumable failure.
type Sink interface {
	io.Writer
	Reset() error
}

// FileSink adapts an *os.File to Sink.
type FileSink struct{ File *os.File }

func (s FileSink) Write(p []byte) (int, error) { return s.File.Write(p) }

func (s FileSink) Reset() error {
	if err := s.File.Truncate(0); err != nil {
		return err
	}
	_, err := s.File.Seek(0, io.SeekStart)
	return err
}

// GetToSink downloads data/P, verifying the plaintext md5sum sidecar at
// EOF. See spec.md §4.C.
func (p *Pipeline) GetToSink(ctx context.Context, in GetInput) (GetResult, error) {
	expectedMD5, err := p.meta.GetMeta(ctx, in.Path, xferfile.MetaMD5Sum)
	if err != nil {
		return GetResult{}, &Error{Phase: "get_file", Path: in.Path, Err: err}
	}
	expectedMD5 = strings.TrimSpace(expectedMD5)

	var cryptokey string
	if key, kerr := p.meta.GetMeta(ctx, in.Path, xferfile.MetaCryptoKey); kerr == nil {
		cryptokey = key
	} else if !store.IsNotFound(kerr) {
		return GetResult{}, &Error{Phase: "get_file", Path: in.Path, Err: kerr}
	}

	dataKey := p.meta.DataKey(in.Path)
	st := &downloadState{hasher: md5.New()}

	var out GetResult
	runErr := retry.Do(
		func() error {
			return p.downloadAttempt(ctx, dataKey, in, cryptokey, expectedMD5, st, &out)
		},
		retry.Context(ctx),
		retry.Attempts(p.retryBudget),
		retry.Delay(p.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retriable),
		retry.OnRetry(func(n uint, err error) {
			postProgress(in.Progress, in.TransferID, StateRetrying, 0)
			p.logger.Info("retrying download", "path", in.Path, "attempt", n+1, "error", err.Error())
		}),
	)
	if runErr != nil {
		return GetResult{}, &Error{Phase: "get_file", Path: in.Path, Err: runErr}
	}

	postProgress(in.Progress, in.TransferID, StateVerifying, 0)
	gotMD5 := fmt.Sprintf("%x", st.hasher.Sum(nil))

	if fileSink, ok := in.Sink.(FileSink); ok && !out.Mtime.IsZero() {
		_ = os.Chtimes(fileSink.File.Name(), out.Mtime, out.Mtime)
	}

	postProgress(in.Progress, in.TransferID, StateDone, 0)
	return GetResult{MD5Sum: gotMD5, Bytes: st.offset, Mtime: out.Mtime}, nil
}

// downloadState carries cross-attempt byte-range resume state: how far
// the sink has been written, the ETag identifying the object version
// being read, and the running MD5 over every plaintext byte emitted so
// far (including earlier attempts, when resuming without a restart).
type downloadState struct {
	offset int64
	etag   string
	hasher hash.Hash
}

func (st *downloadState) reset() {
	st.offset = 0
	st.etag = ""
	st.hasher = md5.New()
}

// downloadAttempt issues one GET (resuming via Range/If-Match when
// st.offset > 0) and streams the response into in.Sink, updating
// st.hasher over plaintext bytes as they are written. At EOF it compares
// the running MD5 to expectedMD5; a mismatch resets state to force a
// full restart on the next attempt, since continuing to hash from a
// wrong starting point could never recover.
//
// Encrypted objects always restart from byte zero on any failure: CFB
// and GPG streams cannot be resumed mid-cipher without re-deriving
// state at an arbitrary byte offset, so resume is only offered for
// plaintext objects.
func (p *Pipeline) downloadAttempt(ctx context.Context, dataKey string, in GetInput, cryptokey, expectedMD5 string, st *downloadState, out *GetResult) error {
	resuming := st.offset > 0 && cryptokey == ""
	if !resuming {
		if err := in.Sink.Reset(); err != nil {
			return err
		}
		st.reset()
	}

	rangeHeader, ifMatch := "", ""
	if resuming {
		rangeHeader = fmt.Sprintf("bytes=%d-", st.offset)
		ifMatch = st.etag
	}

	postProgress(in.Progress, in.TransferID, StateTransferring, 0)
	res, err := p.store.Get(ctx, dataKey, rangeHeader, ifMatch)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	st.etag = res.ETag

	if mtimeHeader := headerValue(res.UserMeta, xferfile.HeaderMtime); mtimeHeader != "" {
		if mt, perr := xferfile.ParseMtime(mtimeHeader); perr == nil {
			out.Mtime = mt
		}
	}

	var plain io.Reader = res.Body
	if cryptokey != "" {
		decryptor, derr := NewDecryptor(cryptokey, in.Passphrase)
		if derr != nil {
			return &Error{Phase: "get_file", Path: in.Path, Err: derr}
		}
		plain, derr = decryptor.Decrypt(ctx, res.Body, cryptokey)
		if derr != nil {
			return &Error{Phase: "get_file", Path: in.Path, Err: derr}
		}
	}

	teed := io.TeeReader(plain, st.hasher)
	buf := make([]byte, 1<<20)
	for {
		n, rerr := teed.Read(buf)
		if n > 0 {
			if _, werr := in.Sink.Write(buf[:n]); werr != nil {
				return &Error{Phase: "get_file", Path: in.Path, Err: werr}
			}
			st.offset += int64(n)
			postProgress(in.Progress, in.TransferID, StateTransferring, int64(n))
		}
		if rerr == io.EOF {
			gotMD5 := fmt.Sprintf("%x", st.hasher.Sum(nil))
			if gotMD5 != expectedMD5 {
				st.reset()
				return &store.Error{Kind: store.KindMD5Mismatch, Op: "get_file", Key: dataKey,
					Err: fmt.Errorf("md5sum mismatch: expected %s, got %s", expectedMD5, gotMD5)}
			}
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

func headerValue(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// CompareInput describes one compare.
type CompareInput struct {
	Path        string
	Local       io.ReadSeeker
	LocalSize   int64
	LocalMtime  time.Time
	Passphrase  string
}

// CompareResult names the first divergence found, "" if the objects are
// identical.
type CompareResult struct {
	Kind string // "", "size", "mtime", or "bytes"
}

// CompareToLocal streams data/P alongside in.Local, reporting the first
// divergence. See spec.md §4.C.
func (p *Pipeline) CompareToLocal(ctx context.Context, in CompareInput) (CompareResult, error) {
	var cryptokey string
	if key, kerr := p.meta.GetMeta(ctx, in.Path, xferfile.MetaCryptoKey); kerr == nil {
		cryptokey = key
	} else if !store.IsNotFound(kerr) {
		return CompareResult{}, &Error{Phase: "compare", Path: in.Path, Err: kerr}
	}

	dataKey := p.meta.DataKey(in.Path)
	sink := &compareSink{local: in.Local}
	st := &downloadState{hasher: md5.New()}

	runErr := retry.Do(
		func() error {
			if _, err := in.Local.Seek(0, io.SeekStart); err != nil {
				return err
			}
			sink.diverged = ""
			res, err := p.store.Get(ctx, dataKey, "", "")
			if err != nil {
				return err
			}
			defer res.Body.Close()

			if res.ContentLength != in.LocalSize {
				sink.diverged = "size"
				io.Copy(io.Discard, res.Body)
				return nil
			}
			if mtimeHeader := headerValue(res.UserMeta, xferfile.HeaderMtime); mtimeHeader != "" {
				if mtimeHeader != xferfile.FormatMtime(in.LocalMtime) {
					sink.diverged = "mtime"
					io.Copy(io.Discard, res.Body)
					return nil
				}
			}

			var plain io.Reader = res.Body
			if cryptokey != "" {
				decryptor, derr := NewDecryptor(cryptokey, in.Passphrase)
				if derr != nil {
					return &Error{Phase: "compare", Path: in.Path, Err: derr}
				}
				plain, derr = decryptor.Decrypt(ctx, res.Body, cryptokey)
				if derr != nil {
					return &Error{Phase: "compare", Path: in.Path, Err: derr}
				}
			}
			st.reset()
			teed := io.TeeReader(plain, st.hasher)
			_, cerr := io.Copy(sink, teed)
			return cerr
		},
		retry.Context(ctx),
		retry.Attempts(p.retryBudget),
		retry.Delay(p.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retriable),
	)
	if runErr != nil {
		return CompareResult{}, &Error{Phase: "compare", Path: in.Path, Err: runErr}
	}
	return CompareResult{Kind: sink.diverged}, nil
}

// compareSink compares bytes written against in.Local read in lockstep,
// recording the first mismatch.
type compareSink struct {
	local    io.Reader
	diverged string
}

func (s *compareSink) Write(p []byte) (int, error) {
	if s.diverged != "" {
		return len(p), nil
	}
	want := make([]byte, len(p))
	n, err := io.ReadFull(s.local, want)
	if n < len(p) || !bytesEqual(p, want[:n]) {
		s.diverged = "bytes"
		return len(p), nil
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, err
	}
	return len(p), nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
