package domain

import (
	"path/filepath"
	"strings"
)

// PathParts is a path split into the pieces the build actions need.
type PathParts struct {
	Dir  string
	Base string
	Name string
	Ext  string
}

// ParsePath splits p into its directory, basename, name and extension.
// Input is not validated; a bare file name yields "." as its directory.
func ParsePath(p string) PathParts {
	base := filepath.Base(p)
	ext := filepath.Ext(base)
	return PathParts{
		Dir:  filepath.Dir(p),
		Base: base,
		Name: strings.TrimSuffix(base, ext),
		Ext:  ext,
	}
}
