package packager

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"

	"go.trai.ch/extbuild/internal/core/domain"
)

// archiveEpoch is the modification time stamped on every archive entry.
var archiveEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

const archiveFileMode = 0o644

// writeArchive zips every regular file below dir into dest. Entries are sorted
// and carry fixed timestamps and modes, prefixed with prefix.
func writeArchive(ctx context.Context, dir, dest, prefix string) error {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return err
	}
	slices.Sort(files)

	if err := os.MkdirAll(filepath.Dir(dest), domain.DirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".archive-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	zw := zip.NewWriter(tmp)
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			_ = tmp.Close()
			return err
		}
		if err := addFile(zw, filepath.Join(dir, filepath.FromSlash(rel)), path.Join(prefix, rel)); err != nil {
			_ = tmp.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

func addFile(zw *zip.Writer, src, name string) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: archiveEpoch,
	}
	header.SetMode(archiveFileMode)

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	f, err := os.Open(src) //nolint:gosec // staged file
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // read-only

	_, err = io.Copy(w, f)
	return err
}
