// Package fileutil provides file system helpers shared by the static site and the application.
package fileutil

import (
	"errors"
	"io/fs"
	"path"
	"strings"
)

// CleanPath converts a URL path into a name usable with fs.FS.
// The result never escapes the root: "..", "." and repeated slashes are
// resolved against "/" before the leading slash is removed.
//
// Examples:
//
//	CleanPath("/")                 // "."
//	CleanPath("/about")            // "about"
//	CleanPath("/../../etc/passwd") // "etc/passwd"
//	CleanPath(`\docs\a.txt`)       // "docs/a.txt"
func CleanPath(requested string) string {
	p := strings.ReplaceAll(requested, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "."
	}
	return p
}

// IsRegularFile reports whether name exists in fsys and is a regular file.
// Directories, invalid names and lookup errors all report false.
func IsRegularFile(fsys fs.FS, name string) bool {
	if !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Exists reports whether name exists in fsys. A permission error counts as existing.
func Exists(fsys fs.FS, name string) bool {
	if !fs.ValidPath(name) {
		return false
	}
	_, err := fs.Stat(fsys, name)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
