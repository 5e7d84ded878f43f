// Package xferfile defines the logical-path-to-object-key mapping and the
// per-object metadata the transfer engine attaches to content objects.
package xferfile

import (
	"errors"
	"strings"
	"time"
)

// ErrNotExists describes a required content or sidecar object that is
// absent. store.Client does not return it: it reports a missing object
// as a *store.Error of KindNotFound (see store.IsNotFound).
var ErrNotExists = errors.New("xferfile: object does not exist")

const (
	dataPrefix = "data"
	metaPrefix = "meta"

	// MetaMD5Sum is the sidecar name holding the hex-lowercase MD5 of the
	// plaintext, terminated by a newline.
	MetaMD5Sum = "md5sum"
	// MetaCryptoKey is the sidecar name holding "<scheme>:<value>\n" (the
	// hex IV for aes-256-cfb, the recipient keyid for gpg), present iff
	// the content object is encrypted.
	MetaCryptoKey = "cryptokey"

	// HeaderMtime carries the source file's modification time, ISO-8601 UTC,
	// truncated to seconds.
	HeaderMtime = "Mtime"
	// HeaderKeyid marks an encrypted object: it carries the GPG recipient
	// keyid, or the scheme name when the upload named no keyid.
	HeaderKeyid = "Keyid"

	// MtimeLayout is the wire format for HeaderMtime.
	MtimeLayout = "2006-01-02T15:04:05Z"
)

// NormalizePath trims redundant slashes from a logical path so that
// "a//b" and "a/b" map to the same object key. An empty path denotes the
// bucket root inside the data/meta namespace.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	kept := segments[:0]
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "/")
}

// DataKey returns the content object key for a logical path: "data/P".
func DataKey(root, path string) string {
	return joinKey(dataPrefix, root, path)
}

// MetaKey returns the sidecar object key "meta/P/N" for sidecar name N.
func MetaKey(root, path, name string) string {
	return joinKey(metaPrefix, root, path) + "/" + name
}

// MetaPrefix returns the "meta/P/" prefix under which every sidecar for a
// logical path lives, used to list-then-delete all of a path's sidecars.
func MetaPrefix(root, path string) string {
	return joinKey(metaPrefix, root, path) + "/"
}

func joinKey(namespace, root, path string) string {
	root = NormalizePath(root)
	path = NormalizePath(path)
	parts := []string{namespace}
	if root != "" {
		parts = append(parts, root)
	}
	if path != "" {
		parts = append(parts, path)
	}
	return strings.Join(parts, "/")
}

// Meta describes a content object's remote attributes, the subset of
// information carried in the custom S3 headers plus the well-known
// sidecars.
type Meta struct {
	// Path is the logical path the object was stored under.
	Path string
	// Size is the content length of the (possibly encrypted) object.
	Size int64
	// ModTime is the source file's modification time, decoded from the
	// Mtime header, truncated to seconds.
	ModTime time.Time
	// Keyid is the GPG recipient keyid of an encrypted object (or the
	// scheme name when the upload named no keyid), empty when the content
	// is not encrypted.
	Keyid string
	// MD5Sum is the hex-lowercase MD5 of the plaintext, read from the
	// md5sum sidecar. Empty if not yet fetched.
	MD5Sum string
}

// FormatMtime renders t as the wire Mtime header value, UTC, truncated to
// seconds.
func FormatMtime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(MtimeLayout)
}

// ParseMtime parses an Mtime header value.
func ParseMtime(s string) (time.Time, error) {
	return time.Parse(MtimeLayout, s)
}
