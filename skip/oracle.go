// Package skip decides whether a bulk transfer job can be skipped because
// the remote and local copies already agree, per one of three policies of
// increasing strictness.
package skip

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/marcboeker/s3xfer/internal/xferfile"
	"github.com/marcboeker/s3xfer/meta"
	"github.com/marcboeker/s3xfer/store"
)

// Policy names one of the three skip strategies.
type Policy string

const (
	// PolicyAll never skips: every job runs its transfer.
	PolicyAll Policy = "all"
	// PolicyStat skips on size+mtime agreement without reading content.
	PolicyStat Policy = "stat"
	// PolicyMD5Sum extends PolicyStat with a local MD5 comparison against
	// the remote sidecar.
	PolicyMD5Sum Policy = "md5sum"
)

// Decision is the outcome of Oracle.ShouldSkip.
type Decision struct {
	Skip bool
	// RemoteMD5 carries the sidecar value when it was already fetched, so
	// a caller chaining straight into a compare does not re-fetch it.
	RemoteMD5 string
}

// Oracle evaluates one Policy against a store.Client/meta.Layer pair.
type Oracle struct {
	store  *store.Client
	meta   *meta.Layer
	policy Policy
}

// NewOracle builds an Oracle. An unrecognized policy behaves as
// PolicyAll.
func NewOracle(s *store.Client, m *meta.Layer, policy Policy) *Oracle {
	return &Oracle{store: s, meta: m, policy: policy}
}

// LocalFile names what ShouldSkip compares the remote object to.
type LocalFile struct {
	Path  string // local path, opened for md5sum policy
	Size  int64
	Mtime time.Time
}

// ShouldSkip evaluates the configured policy for one path, local against
// remote. A 404 on any required remote object always means "do not
// skip", per spec.md §4.D.
func (o *Oracle) ShouldSkip(ctx context.Context, logicalPath string, local LocalFile) (Decision, error) {
	if o.policy != PolicyStat && o.policy != PolicyMD5Sum {
		return Decision{}, nil
	}

	dataKey := o.meta.DataKey(logicalPath)
	size, userMeta, err := o.store.Head(ctx, dataKey)
	if err != nil {
		if store.IsNotFound(err) {
			return Decision{}, nil
		}
		return Decision{}, err
	}
	if size != local.Size {
		return Decision{}, nil
	}

	mtimeHeader := headerValue(userMeta, xferfile.HeaderMtime)
	if mtimeHeader == "" || mtimeHeader != xferfile.FormatMtime(local.Mtime) {
		return Decision{}, nil
	}

	remoteMD5, err := o.meta.GetMeta(ctx, logicalPath, xferfile.MetaMD5Sum)
	if err != nil {
		if store.IsNotFound(err) {
			return Decision{}, nil
		}
		return Decision{}, err
	}
	remoteMD5 = strings.TrimSpace(remoteMD5)

	if o.policy == PolicyStat {
		return Decision{Skip: true, RemoteMD5: remoteMD5}, nil
	}

	localMD5, err := hashFile(local.Path)
	if err != nil {
		return Decision{}, err
	}
	if localMD5 != remoteMD5 {
		return Decision{RemoteMD5: remoteMD5}, nil
	}
	return Decision{Skip: true, RemoteMD5: remoteMD5}, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func headerValue(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
