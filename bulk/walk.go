package bulk

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marcboeker/s3xfer/meta"
	"github.com/marcboeker/s3xfer/store"
)

// Item is one enumerated transfer candidate, already filtered.
type Item struct {
	// Path is slash-separated, relative to the transfer root on whichever
	// side is authoritative for this direction (local for push, remote
	// for pull).
	Path string
	Size int64
}

// WalkLocal depth-first walks localRoot, applying filter, and returns
// matching regular files sorted lexicographically by directory at each
// level (io/fs.WalkDir already guarantees this). Symlinks are followed
// only if they resolve to a regular file; anything else (directory,
// device, broken link) is skipped.
func WalkLocal(localRoot string, filter Filter) ([]Item, error) {
	var items []Item
	err := filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := resolveRegular(p, d)
		if err != nil {
			return err
		}
		if info == nil {
			return nil
		}
		rel, err := filepath.Rel(localRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		cand := Candidate{Path: rel, Size: info.Size(), ModTime: info.ModTime()}
		if filter.Keep(cand) {
			items = append(items, Item{Path: rel, Size: info.Size()})
		}
		return nil
	})
	return items, err
}

// resolveRegular returns the file info for d if it names (or, for a
// symlink, resolves to) a regular file; nil if it should be skipped.
func resolveRegular(p string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(p)
		if err != nil {
			return nil, nil
		}
		info, err := filepath.Lstat(target)
		if err != nil || !info.Mode().IsRegular() {
			return nil, nil
		}
		return info, nil
	}
	if !d.Type().IsRegular() {
		return nil, nil
	}
	return d.Info()
}

// ListRemote lists every object under data/<s3Root> (flat, no
// delimiter), strips the data/<root>/ prefix, sorts the result, and
// applies filter. Each Candidate carries Path and Size only, with a zero
// ModTime, so during pull enumeration a FileRule ModifiedAfter bound
// rejects every object and a ModifiedBefore bound rejects none.
func ListRemote(ctx context.Context, m *meta.Layer, s *store.Client, s3Root string, filter Filter) ([]Item, error) {
	prefix := m.DataKey(s3Root)
	if prefix != "" {
		prefix += "/"
	}
	entries, _, err := s.List(ctx, prefix, "")
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		rel := strings.TrimPrefix(e.Key, prefix)
		if rel == "" {
			continue
		}
		if filter.Keep(Candidate{Path: rel, Size: e.Size}) {
			items = append(items, Item{Path: rel, Size: e.Size})
		}
	}
	return items, nil
}
