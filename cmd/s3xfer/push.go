package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcboeker/s3xfer/bulk"
	"github.com/marcboeker/s3xfer/skip"
)

func newPushCmd() *cobra.Command {
	var concurrency int
	var all, md5sum bool
	var only, exclude []string

	cmd := &cobra.Command{
		Use:   "push LOCAL S3",
		Short: "upload every matching file under LOCAL to data/S3/...",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := skipPolicyFrom(all, md5sum)
			if err != nil {
				return err
			}
			return runBulk(cmd.Context(), bulkRunParams{
				localRoot:   args[0],
				s3Root:      args[1],
				push:        true,
				concurrency: concurrency,
				policy:      policy,
				only:        only,
				exclude:     exclude,
			})
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "number of files transferred concurrently")
	cmd.Flags().BoolVar(&all, "all", false, "transfer every file, skipping nothing")
	cmd.Flags().BoolVar(&md5sum, "md5sum", false, "skip files whose content MD5 already matches the remote sidecar")
	cmd.Flags().StringArrayVar(&only, "only", nil, "only transfer paths matching this glob (repeatable)")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "exclude paths matching this glob (repeatable)")
	return cmd
}

func skipPolicyFrom(all, md5sum bool) (skip.Policy, error) {
	switch {
	case all && md5sum:
		return "", fmt.Errorf("s3xfer: --all and --md5sum are mutually exclusive")
	case all:
		return skip.PolicyAll, nil
	case md5sum:
		return skip.PolicyMD5Sum, nil
	default:
		return skip.PolicyStat, nil
	}
}

type bulkRunParams struct {
	localRoot   string
	s3Root      string
	push        bool
	concurrency int
	policy      skip.Policy
	only        []string
	exclude     []string
}

func runBulk(ctx context.Context, p bulkRunParams) error {
	client, err := newEngineClient()
	if err != nil {
		return err
	}
	orch := bulk.NewOrchestrator(client.Store, client.Meta, client.Pipeline, newAppLogger())

	ps := setupProgress()
	defer ps.stop()

	opts := bulk.Options{
		LocalRoot:   p.localRoot,
		S3Root:      p.s3Root,
		Concurrency: p.concurrency,
		SkipPolicy:  p.policy,
		Filter:      bulk.Filter{Only: p.only, Exclude: p.exclude},
		Progress:    ps.channel,
		Register:    ps.register,
		Remove:      ps.remove,
	}

	var summary bulk.Summary
	if p.push {
		summary, err = orch.Push(ctx, opts)
	} else {
		summary, err = orch.Pull(ctx, opts)
	}

	if !flagQuiet {
		fmt.Printf("completed_files=%d completed_bytes=%d skipped_files=%d skipped_bytes=%d aborted_files=%d aborted_bytes=%d\n",
			summary.CompletedFiles, summary.CompletedBytes, summary.SkippedFiles, summary.SkippedBytes, summary.AbortedFiles, summary.AbortedBytes)
	}
	if err != nil {
		return fmt.Errorf("s3xfer: bulk run: %w", err)
	}
	return nil
}
