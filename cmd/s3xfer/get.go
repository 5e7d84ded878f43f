package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marcboeker/s3xfer/chunk"
	"github.com/marcboeker/s3xfer/store"
)

func newGetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "get S3PATH [LOCAL|-]",
		Short: "download one object to a local file or stdout",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s3path := args[0]
			local := s3path
			if len(args) == 2 {
				local = args[1]
			}
			return runGet(cmd, s3path, local, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing local file")
	return cmd
}

func runGet(cmd *cobra.Command, s3path, local string, force bool) error {
	client, err := newEngineClient()
	if err != nil {
		return err
	}

	var sink chunk.Sink
	var closeSink func() error
	if local == "-" {
		sink = stdoutSink{}
		closeSink = func() error { return nil }
	} else {
		if !force {
			if _, err := os.Stat(local); err == nil {
				return fmt.Errorf("s3xfer: get: %s already exists (use --force to overwrite)", local)
			}
		}
		f, err := os.Create(local)
		if err != nil {
			return fmt.Errorf("s3xfer: get: %w", err)
		}
		sink = chunk.FileSink{File: f}
		closeSink = f.Close
	}
	defer closeSink()

	ps := setupProgress()
	defer ps.stop()
	id := uuid.New()
	ps.register(id, s3path, 0)
	defer ps.remove(id)

	res, err := client.Pipeline.GetToSink(cmd.Context(), chunk.GetInput{
		Path:       s3path,
		Sink:       sink,
		TransferID: id,
		Progress:   ps.channel,
	})
	if err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("s3xfer: get: %s: not found", s3path)
		}
		return fmt.Errorf("s3xfer: get: %w", err)
	}

	if local != "-" && !res.Mtime.IsZero() {
		_ = os.Chtimes(local, res.Mtime, res.Mtime)
	}
	return nil
}

// stdoutSink writes a downloaded object straight to stdout; Reset is a
// no-op since a restarted download can't un-write bytes already flushed.
type stdoutSink struct{}

func (stdoutSink) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdoutSink) Reset() error                { return nil }
