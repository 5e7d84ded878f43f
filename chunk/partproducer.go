package chunk

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"

	"github.com/marcboeker/s3xfer/store"
)

// TempDirMemory tells partProducer to buffer parts in memory instead of on
// disk, used for small transfers or test environments without scratch
// space.
const TempDirMemory = "_memory"

// partProducer slices a single producer stream into fixed-size, reentrant
// parts. Regular files and pipes are handled identically here: both are
// read sequentially, which for a regular file is equivalent to slicing by
// byte range. The generator itself runs on a single goroutine; consumers
// read completed parts off partsCh concurrently.
type partProducer struct {
	tmpDir  string
	partsCh chan partChunk
	err     error
	r       io.Reader
}

// partChunk is one produced part: a reentrant body plus the cleanup hook
// that removes its backing temp file (a no-op for in-memory parts).
type partChunk struct {
	body  io.ReadSeeker
	close func() error
	size  int64
}

// newPartProducer constructs a producer reading from src. backlog bounds
// how many completed parts may sit in partsCh before the producer blocks,
// giving the upload side the high/low watermark backpressure a pipe or
// socket source needs.
func newPartProducer(src io.Reader, backlog int64, tmpDir string) (partProducer, <-chan partChunk) {
	ch := make(chan partChunk, backlog)
	p := partProducer{tmpDir: tmpDir, partsCh: ch, r: src}
	return p, ch
}

// closeUnreadParts drains and closes any parts left in the channel after
// the consumer stops early, so temp files are never leaked.
func (p *partProducer) closeUnreadParts() {
	for chunk := range p.partsCh {
		_ = chunk.close()
	}
}

// produce runs the single-producer loop: it is invoked sequentially, and
// its per-part body (one LimitReader copy) is the only synchronous work
// required of it.
func (p *partProducer) produce(ctx context.Context, partSize int64) {
outer:
	for {
		chunk, ok, err := p.nextPart(partSize)
		if err != nil {
			p.err = err
			break
		}
		if !ok {
			break
		}
		select {
		case p.partsCh <- chunk:
		case <-ctx.Done():
			break outer
		}
	}
	close(p.partsCh)
}

func (p *partProducer) nextPart(size int64) (partChunk, bool, error) {
	if p.tmpDir == TempDirMemory {
		buf := new(bytes.Buffer)
		n, err := io.Copy(buf, io.LimitReader(p.r, size))
		if err != nil {
			return partChunk{}, false, err
		}
		if n == 0 {
			return partChunk{}, false, nil
		}
		return partChunk{
			body:  bytes.NewReader(buf.Bytes()),
			close: func() error { return nil },
			size:  n,
		}, true, nil
	}

	file, err := os.CreateTemp(p.tmpDir, "s3xfer-part-")
	if err != nil {
		return partChunk{}, false, err
	}
	n, err := io.Copy(file, io.LimitReader(p.r, size))
	if err != nil {
		cleanupTempFile(file)
		return partChunk{}, false, err
	}
	if n == 0 {
		cleanupTempFile(file)
		return partChunk{}, false, nil
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		cleanupTempFile(file)
		return partChunk{}, false, err
	}
	return partChunk{
		body: file,
		close: func() error {
			if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				return err
			}
			return os.Remove(file.Name())
		},
		size: n,
	}, true, nil
}

func cleanupTempFile(f *os.File) {
	_ = f.Close()
	_ = os.Remove(f.Name())
}

// toStorePartChan relabels produced parts with sequential part numbers and
// adapts them to store.Part. Each part's Close is wired to the producer's
// cleanup hook, which store.Client.Put invokes once the part's upload
// attempt (success or failure) finishes.
func toStorePartChan(ctx context.Context, parts <-chan partChunk) <-chan store.Part {
	out := make(chan store.Part)
	go func() {
		defer close(out)
		number := int32(1)
		for chunk := range parts {
			select {
			case out <- store.Part{Number: number, Size: chunk.size, Body: chunk.body, Close: chunk.close}:
			case <-ctx.Done():
				_ = chunk.close()
				return
			}
			number++
		}
	}()
	return out
}
