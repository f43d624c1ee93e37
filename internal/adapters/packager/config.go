package packager

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/zerr"
)

// packaging is the schema of buildext.json.
type packaging struct {
	Name    string                   `json:"name"`
	Version string                   `json:"version"`
	Exclude []string                 `json:"exclude"`
	Vendors map[string]vendorSection `json:"vendors"`
}

type vendorSection struct {
	Manifest map[string]any `json:"manifest"`
}

// loadPackaging reads the packaging configuration. A missing file yields an
// empty configuration.
func loadPackaging(path string) (*packaging, error) {
	data, err := os.ReadFile(path) //nolint:gosec // project file
	if errors.Is(err, fs.ErrNotExist) {
		return &packaging{}, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	var conf packaging
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}
	return &conf, nil
}

func loadManifest(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // project file
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}

	var manifest map[string]any
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}
	if manifest == nil {
		manifest = map[string]any{}
	}
	return manifest, nil
}
