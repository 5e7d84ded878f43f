package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultStallTimeout is used by Get when the caller does not specify one.
const DefaultStallTimeout = 30 * time.Second

// Entry describes one key returned by List.
type Entry struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Part is one unit of a multipart upload. Body must support re-reading from
// the start: concurrent PutPart requests may need to retry a part without
// disturbing the others.
type Part struct {
	Number int32
	Size   int64
	Body   io.ReadSeeker
	// Close, if set, is invoked once after the part's upload attempt
	// completes (success or failure), to release its backing resource
	// (e.g. remove a temp file).
	Close func() error
}

// GetResult is the response to Get: a body stream plus the headers needed
// to drive resume and integrity checks.
type GetResult struct {
	Body          io.ReadCloser
	ContentLength int64
	ETag          string
	UserMeta      map[string]string
}

// Client issues requests against one bucket.
type Client struct {
	api          API
	bucket       string
	logger       logr.Logger
	stallTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithStallTimeout overrides DefaultStallTimeout.
func WithStallTimeout(d time.Duration) Option {
	return func(c *Client) { c.stallTimeout = d }
}

// NewClient builds a Client backed by api, scoped to bucket.
func NewClient(api API, bucket string, logger logr.Logger, opts ...Option) *Client {
	c := &Client{
		api:          api,
		bucket:       bucket,
		logger:       logger.WithName("store"),
		stallTimeout: DefaultStallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns every key under prefix. delimiter, when non-empty, causes S3
// to fold everything past it into commonPrefixes instead of keys (used for
// directory-style `ls`). Pagination is handled internally.
func (c *Client) List(ctx context.Context, prefix, delimiter string) (keys []Entry, commonPrefixes []string, err error) {
	var token *string
	for {
		var out *awss3.ListObjectsV2Output
		out, err = c.api.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
			Bucket:            aws.String(c.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         lo.EmptyableToPtr(delimiter),
			ContinuationToken: token,
			MaxKeys:           aws.Int32(1000),
		})
		if err != nil {
			err = newError("list", prefix, err)
			return
		}
		for _, obj := range out.Contents {
			keys = append(keys, Entry{
				Key:          lo.FromPtr(obj.Key),
				Size:         lo.FromPtr(obj.Size),
				LastModified: lo.FromPtr(obj.LastModified),
			})
		}
		for _, p := range out.CommonPrefixes {
			commonPrefixes = append(commonPrefixes, lo.FromPtr(p.Prefix))
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			return
		}
		token = out.NextContinuationToken
	}
}

// Head returns the content length and user metadata of key, or a
// KindNotFound *Error if it does not exist.
func (c *Client) Head(ctx context.Context, key string) (size int64, userMeta map[string]string, err error) {
	out, headErr := c.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if headErr != nil {
		err = newError("head", key, headErr)
		return
	}
	size = lo.FromPtr(out.ContentLength)
	userMeta = out.Metadata
	return
}

// Get issues a GET for key. rangeHeader and ifMatch, when non-empty, are
// passed through verbatim to support byte-range resume
// (`Range: bytes=N-`, `If-Match: <etag>`). The returned Body is wrapped
// with a stall-timeout reader: a Read that blocks longer than the
// configured stall timeout returns a KindStallTimeout *Error.
func (c *Client) Get(ctx context.Context, key, rangeHeader, ifMatch string) (res *GetResult, err error) {
	input := &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}
	if rangeHeader != "" {
		input.Range = aws.String(rangeHeader)
	}
	if ifMatch != "" {
		input.IfMatch = aws.String(ifMatch)
	}
	out, getErr := c.api.GetObject(ctx, input)
	if getErr != nil {
		err = newError("get", key, getErr)
		return
	}
	res = &GetResult{
		Body:          newStallReader(out.Body, c.stallTimeout, key),
		ContentLength: lo.FromPtr(out.ContentLength),
		ETag:          lo.FromPtr(out.ETag),
		UserMeta:      out.Metadata,
	}
	return
}

// Put uploads the full content of key as a multipart upload. parts is
// drained by a single producer in part-number order; uploads of
// individual parts run with up to concurrency requests in flight. The
// channel must yield at least one part, even an empty one, since S3
// rejects a multipart upload with zero parts.
func (c *Client) Put(ctx context.Context, key string, parts <-chan Part, userMeta map[string]string, concurrency int) (etag string, err error) {
	if concurrency < 1 {
		concurrency = 1
	}

	created, err := c.api.CreateMultipartUpload(ctx, &awss3.CreateMultipartUploadInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		Metadata: userMeta,
	})
	if err != nil {
		err = newError("create_multipart_upload", key, err)
		return
	}
	uploadID := lo.FromPtr(created.UploadId)

	type uploaded struct {
		number int32
		etag   string
	}
	var (
		sem      = semaphore.NewWeighted(int64(concurrency))
		eg, ctx2 = errgroup.WithContext(ctx)
		mu       sync.Mutex
		results  []uploaded
		sawPart  bool
	)

	for part := range parts {
		sawPart = true
		part := part
		if err = sem.Acquire(ctx2, 1); err != nil {
			break
		}
		eg.Go(func() error {
			defer sem.Release(1)
			out, upErr := c.api.UploadPart(ctx, &awss3.UploadPartInput{
				Bucket:     aws.String(c.bucket),
				Key:        aws.String(key),
				UploadId:   aws.String(uploadID),
				PartNumber: aws.Int32(part.Number),
				Body:       part.Body,
			})
			if part.Close != nil {
				if closeErr := part.Close(); closeErr != nil && upErr == nil {
					return closeErr
				}
			}
			if upErr != nil {
				return newError("upload_part", key, upErr)
			}
			mu.Lock()
			results = append(results, uploaded{number: part.Number, etag: lo.FromPtr(out.ETag)})
			mu.Unlock()
			return nil
		})
	}

	if waitErr := eg.Wait(); waitErr != nil {
		_, _ = c.api.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
			Bucket: aws.String(c.bucket), Key: aws.String(key), UploadId: aws.String(uploadID),
		})
		err = waitErr
		return
	}
	if err != nil {
		_, _ = c.api.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
			Bucket: aws.String(c.bucket), Key: aws.String(key), UploadId: aws.String(uploadID),
		})
		return
	}
	if !sawPart {
		_, _ = c.api.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
			Bucket: aws.String(c.bucket), Key: aws.String(key), UploadId: aws.String(uploadID),
		})
		err = fmt.Errorf("store: put %s: no parts produced", key)
		return
	}

	sort.Slice(results, func(i, j int) bool { return results[i].number < results[j].number })
	completed := make([]types.CompletedPart, len(results))
	for i, r := range results {
		completed[i] = types.CompletedPart{ETag: aws.String(r.etag), PartNumber: aws.Int32(r.number)}
	}

	complete, err := c.api.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:          aws.String(c.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		err = newError("complete_multipart_upload", key, err)
		return
	}
	etag = lo.FromPtr(complete.ETag)
	return
}

// Delete removes key. A 404 is treated as success: the end state the
// caller wants (key absent) already holds.
func (c *Client) Delete(ctx context.Context, key string) (err error) {
	_, delErr := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if delErr != nil {
		wrapped := newError("delete", key, delErr)
		if wrapped.Kind == KindNotFound {
			return nil
		}
		return wrapped
	}
	return nil
}

// SinglePart is a convenience constructor used by callers that already
// have the whole payload in memory (e.g. sidecar writes, zero-byte
// objects).
func SinglePart(b []byte) <-chan Part {
	ch := make(chan Part, 1)
	ch <- Part{Number: 1, Size: int64(len(b)), Body: bytes.NewReader(b)}
	close(ch)
	return ch
}
