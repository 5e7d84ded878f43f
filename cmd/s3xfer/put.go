package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marcboeker/s3xfer/chunk"
	"github.com/marcboeker/s3xfer/store"
)

func newPutCmd() *cobra.Command {
	var force bool
	var concurrency int

	cmd := &cobra.Command{
		Use:   "put LOCAL|- [S3PATH]",
		Short: "upload one local file or stdin to an object",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			local := args[0]
			s3path := local
			if len(args) == 2 {
				s3path = args[1]
			}
			return runPut(cmd, local, s3path, force, concurrency)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing remote object")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "multipart upload concurrency")
	return cmd
}

func runPut(cmd *cobra.Command, local, s3path string, force bool, concurrency int) error {
	client, err := newEngineClient()
	if err != nil {
		return err
	}

	if !force {
		if _, _, err := client.Store.Head(cmd.Context(), client.Meta.DataKey(s3path)); err == nil {
			return fmt.Errorf("s3xfer: put: %s already exists (use --force to overwrite)", s3path)
		} else if !store.IsNotFound(err) {
			return fmt.Errorf("s3xfer: put: %w", err)
		}
	}

	var source io.Reader
	mtime := time.Now()
	if local == "-" {
		source = os.Stdin
	} else {
		f, err := os.Open(local)
		if err != nil {
			return fmt.Errorf("s3xfer: put: %w", err)
		}
		defer f.Close()
		if info, err := f.Stat(); err == nil {
			mtime = info.ModTime()
		}
		source = f
	}

	opts := []chunk.Option{}
	if concurrency > 0 {
		opts = append(opts, chunk.WithConcurrency(concurrency))
	}
	pipeline := client.Pipeline
	if len(opts) > 0 {
		pipeline = chunk.NewPipeline(client.Store, client.Meta, newAppLogger(), opts...)
	}

	ps := setupProgress()
	defer ps.stop()
	id := uuid.New()
	ps.register(id, s3path, 0)
	defer ps.remove(id)

	_, err = pipeline.PutFromSource(cmd.Context(), chunk.PutInput{
		Path:       s3path,
		Source:     source,
		Mtime:      mtime,
		TransferID: id,
		Progress:   ps.channel,
	})
	if err != nil {
		return fmt.Errorf("s3xfer: put: %w", err)
	}
	return nil
}
