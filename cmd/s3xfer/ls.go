package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcboeker/s3xfer/internal/xferfile"
)

func newLsCmd() *cobra.Command {
	var long, recursive bool

	cmd := &cobra.Command{
		Use:   "ls [PATH]",
		Short: "list content objects under a logical path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runLs(cmd.Context(), path, long, recursive)
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show size and mtime")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "list recursively instead of one level")
	return cmd
}

func runLs(ctx context.Context, path string, long, recursive bool) error {
	client, err := newEngineClient()
	if err != nil {
		return err
	}

	prefix := client.Meta.DataKey(path)
	if prefix != "" {
		prefix += "/"
	}
	delim := "/"
	if recursive {
		delim = ""
	}

	entries, commonPrefixes, err := client.Store.List(ctx, prefix, delim)
	if err != nil {
		return fmt.Errorf("s3xfer: ls: %w", err)
	}

	names := make([]string, 0, len(entries)+len(commonPrefixes))
	rows := make(map[string]string, len(entries))
	for _, cp := range commonPrefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(cp, prefix), "/") + "/"
		names = append(names, name)
	}
	for _, e := range entries {
		name := strings.TrimPrefix(e.Key, prefix)
		names = append(names, name)
		if long {
			rows[name] = fmt.Sprintf("%10d  %s  %s", e.Size, xferfile.FormatMtime(e.LastModified), name)
		}
	}
	sort.Strings(names)
	for _, n := range names {
		if long {
			if row, ok := rows[n]; ok {
				fmt.Println(row)
				continue
			}
		}
		fmt.Println(n)
	}
	return nil
}
