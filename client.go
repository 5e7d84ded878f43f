// Package s3xfer is the embeddable core of the transfer engine: wiring an
// S3-compatible endpoint into the store/meta/chunk layers that do the
// actual work. The cmd/s3xfer CLI is a thin shell over this package.
package s3xfer

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/metrics/smithyotelmetrics"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"

	"github.com/marcboeker/s3xfer/chunk"
	"github.com/marcboeker/s3xfer/meta"
	"github.com/marcboeker/s3xfer/store"
)

// Endpoint describes one S3-compatible connection: where it lives and how
// to authenticate against it. Bucket is of the form "<bucket>[/<prefix>]"
// per spec.md §6; SplitBucket below separates the two.
type Endpoint struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Region    string `json:"region" yaml:"region"`
	Bucket    string `json:"bucket" yaml:"bucket" validate:"required"`
	AccessKey string `json:"accessKey" yaml:"access_key" validate:"required"`
	SecretKey string `json:"secretKey" yaml:"secret_key" validate:"required"`
	// SSL selects https (true, default) vs http (false) when Endpoint
	// does not already carry a scheme.
	SSL *bool `json:"ssl" yaml:"ssl"`
}

// SplitBucket separates Endpoint.Bucket into the bucket name and the
// optional key prefix beneath it.
func (e Endpoint) SplitBucket() (bucket, prefix string) {
	for i := 0; i < len(e.Bucket); i++ {
		if e.Bucket[i] == '/' {
			return e.Bucket[:i], e.Bucket[i+1:]
		}
	}
	return e.Bucket, ""
}

// api builds the raw AWS SDK S3 client used to satisfy store.API, wiring
// the OpenTelemetry meter provider the way the teacher's protoc/s3 client
// does for every outbound call.
func (e Endpoint) api() store.API {
	opts := awss3.Options{
		Region: e.Region,
		Credentials: aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: e.AccessKey, SecretAccessKey: e.SecretKey}, nil
		}),
		MeterProvider: smithyotelmetrics.Adapt(otel.GetMeterProvider()),
		UsePathStyle:  true,
	}
	if e.Endpoint != "" {
		endpoint := e.Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = e.scheme() + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return awss3.New(opts)
}

func (e Endpoint) scheme() string {
	if e.SSL != nil && !*e.SSL {
		return "http://"
	}
	return "https://"
}

// Client bundles the three engine layers (store, meta, chunk) behind one
// Endpoint, ready for bulk.Orchestrator or direct single-object calls.
type Client struct {
	Store    *store.Client
	Meta     *meta.Layer
	Pipeline *chunk.Pipeline
}

// NewClient connects to endpoint and assembles the engine layers. opts
// configure the chunk.Pipeline (part size, concurrency, retry budget).
func NewClient(endpoint Endpoint, logger logr.Logger, opts ...chunk.Option) *Client {
	bucket, prefix := endpoint.SplitBucket()
	storeClient := store.NewClient(endpoint.api(), bucket, logger)
	metaLayer := meta.NewLayer(storeClient, prefix)
	pipeline := chunk.NewPipeline(storeClient, metaLayer, logger, opts...)
	return &Client{Store: storeClient, Meta: metaLayer, Pipeline: pipeline}
}
