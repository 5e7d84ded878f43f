package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marcboeker/s3xfer/bulk"
	"github.com/marcboeker/s3xfer/chunk"
)

func newMd5checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "md5check S3",
		Short: "stream every object under S3 and verify its md5sum sidecar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMd5check(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runMd5check(ctx context.Context, s3Root string) error {
	client, err := newEngineClient()
	if err != nil {
		return err
	}

	items, err := bulk.ListRemote(ctx, client.Meta, client.Store, s3Root, bulk.Filter{})
	if err != nil {
		return fmt.Errorf("s3xfer: md5check: %w", err)
	}

	var bad int
	for _, item := range items {
		id := uuid.New()
		_, err := client.Pipeline.GetToSink(ctx, chunk.GetInput{
			Path:       s3Path(s3Root, item.Path),
			Sink:       discardSink{},
			TransferID: id,
		})
		if err != nil {
			bad++
			fmt.Printf("%s: FAILED (%v)\n", item.Path, err)
			continue
		}
		if !flagQuiet {
			fmt.Printf("%s: OK\n", item.Path)
		}
	}
	if bad > 0 {
		return fmt.Errorf("s3xfer: md5check: %d object(s) failed verification", bad)
	}
	return nil
}

// discardSink verifies md5 without retaining the plaintext, since
// md5check only needs ChunkPipeline's own EOF-time MD5 comparison.
type discardSink struct{}

func (discardSink) Write(p []byte) (int, error) { return io.Discard.Write(p) }
func (discardSink) Reset() error                { return nil }
