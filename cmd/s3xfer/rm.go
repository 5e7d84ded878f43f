package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcboeker/s3xfer/bulk"
)

func newRmCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "rm S3PATTERN",
		Short: "delete content objects (and their sidecars) matching a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(cmd.Context(), args[0], recursive)
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "delete an entire subtree instead of one object")
	return cmd
}

func runRm(ctx context.Context, pattern string, recursive bool) error {
	client, err := newEngineClient()
	if err != nil {
		return err
	}

	only := []string{pattern}
	if recursive {
		only = append(only, strings.TrimSuffix(pattern, "/")+"/**")
	}
	filter := bulk.Filter{Only: only}

	prefix := client.Meta.DataKey("")
	if prefix != "" {
		prefix += "/"
	}
	entries, _, err := client.Store.List(ctx, prefix, "")
	if err != nil {
		return fmt.Errorf("s3xfer: rm: %w", err)
	}

	var deleted int
	for _, e := range entries {
		rel := strings.TrimPrefix(e.Key, prefix)
		if rel == "" || !filter.Keep(bulk.Candidate{Path: rel, Size: e.Size}) {
			continue
		}
		if err := client.Store.Delete(ctx, e.Key); err != nil {
			return fmt.Errorf("s3xfer: rm: delete %s: %w", e.Key, err)
		}
		if err := client.Meta.DeleteAllMeta(ctx, rel); err != nil {
			return fmt.Errorf("s3xfer: rm: delete sidecars for %s: %w", rel, err)
		}
		deleted++
	}
	if deleted == 0 {
		return fmt.Errorf("s3xfer: rm: no objects matched %q", pattern)
	}
	return nil
}
