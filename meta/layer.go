// Package meta implements the thin, pure-function layer that maps a
// logical path onto the data/meta object-key namespace and reads/writes
// the small sidecar objects that carry per-object metadata.
package meta

import (
	"context"
	"io"
	"strings"

	"github.com/marcboeker/s3xfer/internal/xferfile"
	"github.com/marcboeker/s3xfer/store"
)

// Layer reads and writes sidecars for one bucket root.
type Layer struct {
	client *store.Client
	root   string
}

// NewLayer builds a Layer rooted at root (the optional `<bucket>/<prefix>`
// segment beyond the bucket name itself).
func NewLayer(client *store.Client, root string) *Layer {
	return &Layer{client: client, root: root}
}

// DataKey returns the content object key for path.
func (l *Layer) DataKey(path string) string {
	return xferfile.DataKey(l.root, path)
}

// PutMeta writes the sidecar named name under path with value as its
// entire body.
func (l *Layer) PutMeta(ctx context.Context, path, name, value string) error {
	key := xferfile.MetaKey(l.root, path, name)
	_, err := l.client.Put(ctx, key, store.SinglePart([]byte(value)), nil, 1)
	return err
}

// GetMeta reads the sidecar named name under path.
func (l *Layer) GetMeta(ctx context.Context, path, name string) (string, error) {
	key := xferfile.MetaKey(l.root, path, name)
	res, err := l.client.Get(ctx, key, "", "")
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// DeleteMeta removes the sidecar named name under path. It HEADs first so
// that deleting an absent sidecar never requires delete permission on a
// key that was never written.
func (l *Layer) DeleteMeta(ctx context.Context, path, name string) error {
	key := xferfile.MetaKey(l.root, path, name)
	if _, _, err := l.client.Head(ctx, key); err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	return l.client.Delete(ctx, key)
}

// DeleteAllMeta lists and deletes every sidecar under path, leaving no
// orphans behind once the content object itself is removed.
func (l *Layer) DeleteAllMeta(ctx context.Context, path string) error {
	prefix := xferfile.MetaPrefix(l.root, path)
	entries, _, err := l.client.List(ctx, prefix, "")
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := l.client.Delete(ctx, e.Key); err != nil && !store.IsNotFound(err) {
			return err
		}
	}
	return nil
}

// ListSidecarNames returns the sidecar names (not full keys) present under
// path, e.g. ["md5sum", "cryptokey"].
func (l *Layer) ListSidecarNames(ctx context.Context, path string) ([]string, error) {
	prefix := xferfile.MetaPrefix(l.root, path)
	entries, _, err := l.client.List(ctx, prefix, "")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimPrefix(e.Key, prefix))
	}
	return names, nil
}
