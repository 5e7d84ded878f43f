// Package fileutils extracts the directory, base name, and extension parts
// out of a slash-separated logical path.
package fileutils

import (
	"errors"
	"path"
	"strings"
)

// ExtractFileParts splits filePath (always slash-separated, since logical
// paths are bucket-namespace paths and never touch the local filesystem
// directly) into its directory prefix, base name (without extension), and
// extension (without the leading dot, empty if the base name carries
// none).
func ExtractFileParts(filePath string) (prefix, fileName, fileExt string, err error) {
	if filePath == "" {
		err = errors.New("asset file parts are required")
		return
	}
	dir := path.Dir(filePath)
	base := path.Base(filePath)
	fileExt = strings.TrimPrefix(path.Ext(base), ".")
	fileName = strings.TrimSuffix(base, path.Ext(base))
	if dir == "." {
		prefix = ""
	} else {
		prefix = dir
	}
	return
}
