// Package config provides the configuration loader for extbuild.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"dario.cat/mergo"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// knownTargets are the ECMAScript versions the bundler can down-level to.
var knownTargets = []string{
	"es5", "es2015", "es2016", "es2017", "es2018", "es2019",
	"es2020", "es2021", "es2022", "es2023", "es2024", "esnext",
}

// Loader implements ports.ConfigLoader using an optional YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load resolves the project configuration for cwd.
// Without a config file the stock layout rooted at cwd is returned.
func (l *Loader) Load(cwd string) (*domain.Project, error) {
	configPath, found := findConfiguration(cwd)
	if !found {
		return toProject(defaultProjectfile(), cwd)
	}

	var file Projectfile
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	// Omitted and empty fields take the defaults.
	if err := mergo.Merge(&file, defaultProjectfile()); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrInvalidConfig.Error()), "path", configPath)
	}

	file.Scripts = l.dedupeScripts(file.Scripts)

	project, err := toProject(file, resolveRoot(configPath, file.Root))
	if err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	return project, nil
}

func (l *Loader) dedupeScripts(scripts []string) []string {
	out := make([]string, 0, len(scripts))
	for _, name := range scripts {
		if slices.Contains(out, name) {
			l.Logger.Warn(fmt.Sprintf("duplicate script %q in %s ignored", name, domain.ConfigFileName))
			continue
		}
		out = append(out, name)
	}
	return out
}

// findConfiguration walks up from cwd looking for extbuild.yaml.
func findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", false
		}
		currentDir = parentDir
	}
}

func defaultProjectfile() Projectfile {
	d := domain.DefaultProject("")
	vendors := make([]string, len(d.Vendors))
	for i, v := range d.Vendors {
		vendors[i] = v.String()
	}
	return Projectfile{
		Source:    d.Source,
		Output:    d.Output,
		Packages:  d.Packages,
		Packaging: d.Packaging,
		Target:    d.Target,
		Scripts:   d.Scripts,
		Styles: StylesDTO{
			Entry:        d.Styles.Entry,
			Output:       d.Styles.Output,
			IncludePaths: d.Styles.IncludePaths,
			Binary:       d.Styles.Binary,
		},
		Watch: WatchDTO{
			Debounce: d.Watch.Debounce.String(),
			Reload:   d.Watch.Reload,
			Rebuild:  d.Watch.Rebuild,
		},
		LiveReload: LiveReloadDTO{Port: d.LiveReloadPort},
		Vendors:    vendors,
	}
}

func toProject(file Projectfile, root string) (*domain.Project, error) {
	if !slices.Contains(knownTargets, strings.ToLower(file.Target)) {
		return nil, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", "target"), "value", file.Target)
	}

	debounce, err := time.ParseDuration(file.Watch.Debounce)
	if err != nil || debounce < 0 {
		return nil, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", "watch.debounce"), "value", file.Watch.Debounce)
	}

	if file.LiveReload.Port <= 0 || file.LiveReload.Port > 65535 {
		return nil, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", "livereload.port"), "value", file.LiveReload.Port)
	}

	vendors := make([]domain.Vendor, 0, len(file.Vendors))
	for _, tag := range file.Vendors {
		v, err := domain.ParseVendor(tag)
		if err != nil {
			return nil, zerr.With(err, "field", "vendors")
		}
		vendors = append(vendors, v)
	}

	aliases := file.Aliases
	if aliases == nil {
		aliases = map[string]string{}
	}

	return &domain.Project{
		Root:      root,
		Source:    file.Source,
		Output:    file.Output,
		Packages:  file.Packages,
		Packaging: file.Packaging,
		Target:    strings.ToLower(file.Target),
		Aliases:   aliases,
		Scripts:   file.Scripts,
		Styles: domain.StylesConfig{
			Entry:        file.Styles.Entry,
			Output:       file.Styles.Output,
			IncludePaths: file.Styles.IncludePaths,
			Binary:       file.Styles.Binary,
			FailOnError:  file.Styles.FailOnError,
		},
		Watch: domain.WatchConfig{
			Debounce: debounce,
			Reload:   file.Watch.Reload,
			Rebuild:  file.Watch.Rebuild,
		},
		LiveReloadPort: file.LiveReload.Port,
		Vendors:        vendors,
	}, nil
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

// readAndUnmarshalYAML reads a YAML file and strictly unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is found by walking up from the working directory
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	dec := yaml.NewDecoder(bytes.NewReader(configFile))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return zerr.Wrap(err, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
