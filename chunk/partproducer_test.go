package chunk

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainParts(t *testing.T, p *partProducer, partsCh <-chan partChunk, partSize int64) []partChunk {
	t.Helper()
	go p.produce(context.Background(), partSize)
	var got []partChunk
	for pc := range partsCh {
		got = append(got, pc)
	}
	return got
}

func TestPartProducerMemorySlicesFixedSize(t *testing.T) {
	src := bytes.NewReader([]byte("abcdefghij")) // 10 bytes
	p, ch := newPartProducer(src, 4, TempDirMemory)

	parts := drainParts(t, &p, ch, 4)
	require.NoError(t, p.err)
	require.Len(t, parts, 3)
	assert.EqualValues(t, 4, parts[0].size)
	assert.EqualValues(t, 4, parts[1].size)
	assert.EqualValues(t, 2, parts[2].size)

	body, err := io.ReadAll(parts[2].body)
	require.NoError(t, err)
	assert.Equal(t, "ij", string(body))

	for _, pc := range parts {
		assert.NoError(t, pc.close())
	}
}

func TestPartProducerMemoryEmptySourceYieldsNoParts(t *testing.T) {
	p, ch := newPartProducer(bytes.NewReader(nil), 4, TempDirMemory)
	parts := drainParts(t, &p, ch, 4)
	require.NoError(t, p.err)
	assert.Empty(t, parts)
}

func TestPartProducerDiskBacksEachPartWithATempFile(t *testing.T) {
	dir := t.TempDir()
	src := bytes.NewReader([]byte("hello world")) // 11 bytes
	p, ch := newPartProducer(src, 4, dir)

	parts := drainParts(t, &p, ch, 5)
	require.NoError(t, p.err)
	require.Len(t, parts, 3)

	f, ok := parts[0].body.(*os.File)
	require.True(t, ok)
	assert.FileExists(t, f.Name())

	for _, pc := range parts {
		require.NoError(t, pc.close())
	}
	assert.NoFileExists(t, f.Name())
}

func TestToStorePartChanAssignsSequentialNumbers(t *testing.T) {
	src := bytes.NewReader([]byte("abcdefgh"))
	p, ch := newPartProducer(src, 4, TempDirMemory)
	go p.produce(context.Background(), 4)

	storeParts := toStorePartChan(context.Background(), ch)
	var numbers []int32
	for sp := range storeParts {
		numbers = append(numbers, sp.Number)
	}
	assert.Equal(t, []int32{1, 2}, numbers)
}
