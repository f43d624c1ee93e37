package esbuild

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
)

const styleInjector = `const css = %s;
if (typeof document !== "undefined") {
  const style = document.createElement("style");
  style.textContent = css;
  document.head.appendChild(style);
}
export default css;
`

var assetLoaders = map[string]api.Loader{
	".png":   api.LoaderDataURL,
	".jpg":   api.LoaderDataURL,
	".gif":   api.LoaderDataURL,
	".svg":   api.LoaderDataURL,
	".woff":  api.LoaderDataURL,
	".woff2": api.LoaderDataURL,
}

// inlineCSSPlugin turns `import "./x.css"` into a module that injects the bundled
// stylesheet into document.head. Every stylesheet read is reported to collect.
func inlineCSSPlugin(root string, collect func(paths ...string)) api.Plugin {
	return api.Plugin{
		Name: "inline-css",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `\.css$`, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					result := api.Build(api.BuildOptions{
						EntryPoints:   []string{args.Path},
						Outfile:       "inline.css",
						AbsWorkingDir: root,
						Bundle:        true,
						Write:         false,
						Metafile:      true,
						Loader:        assetLoaders,
						LogLevel:      api.LogLevelSilent,
					})
					if len(result.Errors) > 0 {
						return api.OnLoadResult{Errors: result.Errors}, nil
					}

					inputs := metafileInputs(root, result.Metafile)
					collect(inputs...)

					watch := make([]string, len(inputs))
					for i, in := range inputs {
						watch[i] = filepath.Join(root, in)
					}

					var css string
					if len(result.OutputFiles) > 0 {
						css = string(result.OutputFiles[0].Contents)
					}
					literal, err := json.Marshal(css)
					if err != nil {
						return api.OnLoadResult{}, err
					}

					contents := fmt.Sprintf(styleInjector, literal)
					return api.OnLoadResult{
						Contents:   &contents,
						Loader:     api.LoaderJS,
						ResolveDir: filepath.Dir(args.Path),
						WatchFiles: watch,
					}, nil
				})
		},
	}
}
