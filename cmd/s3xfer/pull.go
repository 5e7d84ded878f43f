package main

import (
	"github.com/spf13/cobra"

	"github.com/marcboeker/s3xfer/skip"
)

func newPullCmd() *cobra.Command {
	var concurrency int
	var all, md5sum bool
	var only, exclude []string

	cmd := &cobra.Command{
		Use:   "pull S3 LOCAL",
		Short: "download every matching object under data/S3/... to LOCAL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := skipPolicyFrom(all, md5sum)
			if err != nil {
				return err
			}
			return runBulk(cmd.Context(), bulkRunParams{
				s3Root:      args[0],
				localRoot:   args[1],
				push:        false,
				concurrency: concurrency,
				policy:      policy,
				only:        only,
				exclude:     exclude,
			})
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "number of files transferred concurrently")
	cmd.Flags().BoolVar(&all, "all", false, "transfer every object, skipping nothing")
	cmd.Flags().BoolVar(&md5sum, "md5sum", false, "skip objects whose remote sidecar MD5 already matches the local file")
	cmd.Flags().StringArrayVar(&only, "only", nil, "only transfer paths matching this glob (repeatable)")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "exclude paths matching this glob (repeatable)")
	return cmd
}
