package esbuild

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/zerr"
)

// resolveAliases merges the aliasify table of package.json with the configured
// aliases, the latter taking precedence. It also returns package.json as an
// input when it was read.
func resolveAliases(root string, configured map[string]string, log io.Writer) (map[string]string, []string, error) {
	aliases := make(map[string]string)
	var inputs []string

	data, err := os.ReadFile(filepath.Join(root, domain.PackageJSONFileName)) //nolint:gosec // project file
	switch {
	case err == nil:
		if !gjson.ValidBytes(data) {
			return nil, nil, zerr.With(zerr.New("invalid JSON"), "path", domain.PackageJSONFileName)
		}
		inputs = append(inputs, domain.PackageJSONFileName)
		gjson.GetBytes(data, "aliasify.aliases").ForEach(func(key, value gjson.Result) bool {
			replacement := value.String()
			if value.IsObject() {
				replacement = value.Get("relative").String()
			}
			if replacement != "" {
				aliases[key.String()] = replacement
			}
			return true
		})
	case !errors.Is(err, fs.ErrNotExist):
		return nil, nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", domain.PackageJSONFileName)
	}

	maps.Copy(aliases, configured)

	for name := range aliases {
		if !isPackagePath(name) {
			if log != nil {
				_, _ = fmt.Fprintf(log, "ignoring alias %q: only package paths can be aliased\n", name)
			}
			delete(aliases, name)
		}
	}

	return aliases, inputs, nil
}

func isPackagePath(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".") && !strings.HasPrefix(name, "/")
}
