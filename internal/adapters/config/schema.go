package config

// Projectfile represents the structure of the extbuild.yaml configuration file.
// Omitted fields fall back to the stock extension layout.
type Projectfile struct {
	Root       string            `yaml:"root"`
	Source     string            `yaml:"source"`
	Output     string            `yaml:"output"`
	Packages   string            `yaml:"packages"`
	Packaging  string            `yaml:"packaging"`
	Target     string            `yaml:"target"`
	Aliases    map[string]string `yaml:"aliases"`
	Scripts    []string          `yaml:"scripts"`
	Styles     StylesDTO         `yaml:"styles"`
	Watch      WatchDTO          `yaml:"watch"`
	LiveReload LiveReloadDTO     `yaml:"livereload"`
	Vendors    []string          `yaml:"vendors"`
}

// StylesDTO configures the stylesheet compiler.
type StylesDTO struct {
	Entry        string   `yaml:"entry"`
	Output       string   `yaml:"output"`
	IncludePaths []string `yaml:"includePaths"`
	Binary       string   `yaml:"binary"`
	FailOnError  bool     `yaml:"failOnError"`
}

// WatchDTO configures the watch service.
type WatchDTO struct {
	Debounce string   `yaml:"debounce"`
	Reload   []string `yaml:"reload"`
	Rebuild  []string `yaml:"rebuild"`
}

// LiveReloadDTO configures the live-reload server.
type LiveReloadDTO struct {
	Port int `yaml:"port"`
}
