// Command s3xfer is the CLI shell over the s3xfer library: connection
// setup, progress rendering, and exit-code mapping live here; every
// subcommand otherwise just calls into the package root, store, meta,
// chunk, skip and bulk packages.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	s3xfer "github.com/marcboeker/s3xfer"
)

// exit codes, per spec.md §6.
const (
	exitOK          = 0
	exitError       = 1
	exitTreesDiffer = 2
)

var (
	flagConfigPath string
	flagQuiet      bool
	flagProgress   bool
	flagNoProgress bool
	flagDebugLevel int
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "s3xfer",
		Short:         "bulk, resumable, integrity-checked transfer between a filesystem and S3",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flagConfigPath, "config", "C", defaultConfigPath(), "path to config file")
	root.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress progress and informational output")
	root.PersistentFlags().BoolVar(&flagProgress, "progress", true, "render a live progress display")
	root.PersistentFlags().BoolVar(&flagNoProgress, "no-progress", false, "disable the live progress display")
	root.PersistentFlags().CountVarP(&flagDebugLevel, "debug", "d", "increase log verbosity (repeatable)")

	root.AddCommand(
		newLsCmd(),
		newGetCmd(),
		newPutCmd(),
		newRmCmd(),
		newPushCmd(),
		newPullCmd(),
		newCmpCmd(),
		newMd5checkCmd(),
		newVersionCmd(),
	)
	return root
}

func showProgress() bool {
	return flagProgress && !flagNoProgress && !flagQuiet
}

// newAppLogger builds the shared logr.Logger, verbosity driven by -d.
func newAppLogger() logr.Logger {
	level := slog.LevelWarn
	switch {
	case flagDebugLevel >= 2:
		level = slog.LevelDebug
	case flagDebugLevel == 1:
		level = slog.LevelInfo
	}
	if flagQuiet {
		level = slog.LevelError
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return logr.FromSlogHandler(h)
}

// newEngineClient loads the config, validates it, and wires an
// s3xfer.Client ready for the subcommands to drive.
func newEngineClient() (*s3xfer.Client, error) {
	cfg, err := loadConfig(flagConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	endpoint := s3xfer.Endpoint{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		Bucket:    cfg.Bucket,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		SSL:       cfg.SSL,
	}
	return s3xfer.NewClient(endpoint, newAppLogger()), nil
}

// treesDifferError marks a cmp run that should exit 2 rather than 1.
type treesDifferError struct{ msg string }

func (e treesDifferError) Error() string { return e.msg }

func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	if _, ok := err.(treesDifferError); ok {
		return exitTreesDiffer
	}
	fmt.Fprintln(os.Stderr, "s3xfer:", err)
	return exitError
}
