package domain

import (
	"path/filepath"
	"time"
)

// StylesConfig configures the stylesheet compiler.
type StylesConfig struct {
	Entry        string
	Output       string
	IncludePaths []string
	Binary       string
	FailOnError  bool
}

// WatchConfig configures the watch service.
type WatchConfig struct {
	Debounce time.Duration
	Reload   []string
	Rebuild  []string
}

// PackageConfig is the configuration shared by every vendor packaging routine.
type PackageConfig struct {
	Source string
	Output string
	Config string
}

// Project is the resolved project configuration.
// All paths except Root are relative to Root.
type Project struct {
	Root           string
	Source         string
	Output         string
	Packages       string
	Packaging      string
	Target         string
	Aliases        map[string]string
	Scripts        []string
	Styles         StylesConfig
	Watch          WatchConfig
	LiveReloadPort int
	Vendors        []Vendor
}

// DefaultProject returns the configuration reproducing the stock extension layout.
func DefaultProject(root string) *Project {
	return &Project{
		Root:      root,
		Source:    "src",
		Output:    "app",
		Packages:  "build",
		Packaging: PackagingFileName,
		Target:    "es2015",
		Aliases:   map[string]string{},
		Scripts:   []string{"background", "content", "popup", "options"},
		Styles: StylesConfig{
			Entry:        "src/styles/main.scss",
			Output:       "app/styles/main.css",
			IncludePaths: []string{"src/styles"},
			Binary:       "sass",
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Reload: []string{
				"app/scripts/**/*.js",
				"app/images/**/*",
				"app/styles/**/*",
				"app/_locales/**/*.json",
			},
			Rebuild: []string{
				"src/scripts/**/*.js",
				"src/styles/**/*.scss",
			},
		},
		LiveReloadPort: DefaultLiveReloadPort,
		Vendors:        Vendors(),
	}
}

// ScriptEntry returns the source path of a script bundle.
func (p *Project) ScriptEntry(name string) string {
	return filepath.Join(p.Source, "scripts", name+".js")
}

// ScriptOutput returns the destination path of a script bundle.
func (p *Project) ScriptOutput(name string) string {
	return filepath.Join(p.Output, "scripts", name+"_bundle.js")
}

// PackageConfig returns the packaging configuration shared by all vendors.
func (p *Project) PackageConfig() PackageConfig {
	return PackageConfig{
		Source: p.Output,
		Output: p.Packages,
		Config: p.Packaging,
	}
}

// Abs resolves a project-relative path against Root.
func (p *Project) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, rel)
}
