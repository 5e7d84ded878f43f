package main

import (
	"context"
	"os"

	"github.com/google/uuid"

	"github.com/marcboeker/s3xfer/chunk"
	"github.com/marcboeker/s3xfer/progress"
)

// progressSetup wires a progress.Aggregator for the duration of one
// command, returning the channel to pass as chunk.*Input.Progress, a
// register func for pre-announcing each transfer's size, and a stop func
// that must be called (via defer) once the command's transfers are done.
type progressSetup struct {
	channel  chan<- chunk.ProgressEvent
	register func(id uuid.UUID, label string, totalBytes int64)
	remove   func(id uuid.UUID)
	stop     func()
}

func setupProgress() progressSetup {
	if !showProgress() {
		return progressSetup{
			register: func(uuid.UUID, string, int64) {},
			remove:   func(uuid.UUID) {},
			stop:     func() {},
		}
	}

	render := progress.NewRenderer(os.Stdout, int(os.Stdout.Fd()))
	agg := progress.NewAggregator(render)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		agg.Run(ctx)
	}()

	return progressSetup{
		channel:  agg.Channel(),
		register: agg.Register,
		remove:   agg.Remove,
		stop: func() {
			cancel()
			<-done
		},
	}
}
