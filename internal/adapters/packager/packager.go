// Package packager stages and archives the built extension for each browser vendor.
package packager

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"dario.cat/mergo"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/otiai10/copy"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Packager = (*Packager)(nil)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Packager implements ports.Packager.
type Packager struct{}

// NewPackager creates a new Packager.
func NewPackager() *Packager {
	return &Packager{}
}

// Make merges the vendor's manifest overrides, stages the tree under
// <output>/<vendor>/unpacked and writes the vendor archive next to it.
func (p *Packager) Make(ctx context.Context, vendor domain.Vendor, conf domain.PackageConfig) (string, error) {
	if _, err := domain.ParseVendor(string(vendor)); err != nil {
		return "", err
	}

	fail := func(err error) (string, error) {
		return "", zerr.With(zerr.Wrap(err, domain.ErrPackageFailed.Error()), "vendor", vendor.String())
	}

	settings, err := loadPackaging(conf.Config)
	if err != nil {
		return fail(err)
	}

	manifest, err := vendorManifest(conf.Source, settings, vendor)
	if err != nil {
		return fail(err)
	}

	vendorDir := filepath.Join(conf.Output, vendor.String())
	unpacked := filepath.Join(vendorDir, domain.UnpackedDirName)
	if err := stage(conf.Source, unpacked, settings.Exclude, manifest); err != nil {
		return fail(err)
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	name := archiveName(settings, manifest)
	prefix := ""
	if vendor == domain.VendorSafari {
		prefix = name + ".safariextension"
	}

	archive := filepath.Join(vendorDir, archiveFileName(name, settings, manifest)+vendor.ArchiveExt())
	if err := writeArchive(ctx, unpacked, archive, prefix); err != nil {
		return fail(zerr.With(err, "archive", archive))
	}

	return archive, nil
}

// vendorManifest returns the source manifest with the vendor's overrides merged in.
func vendorManifest(source string, settings *packaging, vendor domain.Vendor) (map[string]any, error) {
	manifest, err := loadManifest(filepath.Join(source, domain.ManifestFileName))
	if err != nil {
		return nil, err
	}

	if settings.Version != "" {
		manifest["version"] = settings.Version
	}

	overrides := settings.Vendors[vendor.String()].Manifest
	if len(overrides) > 0 {
		if err := mergo.Merge(&manifest, overrides, mergo.WithOverride); err != nil {
			return nil, zerr.With(err, "vendor", vendor.String())
		}
	}
	return manifest, nil
}

// stage replaces dest with a copy of source minus the excluded paths and writes
// the vendor manifest into it.
func stage(source, dest string, exclude []string, manifest map[string]any) error {
	if err := os.RemoveAll(dest); err != nil {
		return err
	}

	err := copy.Copy(source, dest, copy.Options{
		Skip: func(_ os.FileInfo, src, _ string) (bool, error) {
			rel, err := filepath.Rel(source, src)
			if err != nil || rel == "." {
				return false, err
			}
			rel = filepath.ToSlash(rel)
			if rel == domain.ManifestFileName {
				return true, nil
			}
			for _, pattern := range exclude {
				if ok, err := doublestar.Match(pattern, rel); err != nil || ok {
					return ok, err
				}
			}
			return false, nil
		},
		PermissionControl: copy.AddPermission(0o200),
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(filepath.Join(dest, domain.ManifestFileName), data, domain.FilePerm)
}

func archiveName(settings *packaging, manifest map[string]any) string {
	name := settings.Name
	if name == "" {
		name, _ = manifest["name"].(string)
	}
	name = strings.Trim(unsafeName.ReplaceAllString(name, "-"), "-")
	if name == "" || strings.HasPrefix(name, "__MSG_") {
		return "extension"
	}
	return name
}

func archiveFileName(name string, settings *packaging, manifest map[string]any) string {
	version := settings.Version
	if version == "" {
		version, _ = manifest["version"].(string)
	}
	if version == "" {
		return name
	}
	return name + "-" + version
}
