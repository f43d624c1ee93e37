package domain

import (
	"path/filepath"
	"time"
)

const (
	// ToolDirName is the name of the internal workspace directory.
	ToolDirName = ".extbuild"

	// StoreDirName is the name of the build info store directory.
	StoreDirName = "store"

	// ConfigFileName is the name of the optional project configuration file.
	ConfigFileName = "extbuild.yaml"

	// PackagingFileName is the name of the packaging configuration file.
	PackagingFileName = "buildext.json"

	// ManifestFileName is the name of the extension manifest inside the source tree.
	ManifestFileName = "manifest.json"

	// PackageJSONFileName is the name of the npm package descriptor read for aliases.
	PackageJSONFileName = "package.json"

	// UnpackedDirName is the directory holding a vendor's staged tree.
	UnpackedDirName = "unpacked"

	// DefaultLiveReloadPort is the port LiveReload clients connect to.
	DefaultLiveReloadPort = 35729

	// DefaultDebounce is the quiet window applied to file change bursts.
	DefaultDebounce = 500 * time.Millisecond

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultToolPath returns the default root directory for extbuild metadata.
func DefaultToolPath() string {
	return ToolDirName
}

// DefaultStorePath returns the default path for the build info store.
// It joins .extbuild and store.
func DefaultStorePath() string {
	return filepath.Join(ToolDirName, StoreDirName)
}
