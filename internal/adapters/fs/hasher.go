// Package fs computes content hashes for the build cache.
package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher provides hashing functionality for tasks and files.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	return hasher.Sum64(), nil
}

// ComputeInputHash computes a single hash representing the task definition and
// the content of its input files. Input order does not matter.
func (h *Hasher) ComputeInputHash(task *domain.Task, inputs []string, root string) (string, error) {
	hasher := xxhash.New()

	hashTaskDefinition(task, hasher)

	for _, input := range sortedCopy(inputs) {
		if err := h.hashFile(root, input, hasher); err != nil {
			return "", zerr.Wrap(err, domain.ErrInputHashComputationFailed.Error())
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// ComputeOutputHash computes the hash of the output files.
func (h *Hasher) ComputeOutputHash(outputs []string, root string) (string, error) {
	hasher := xxhash.New()

	for _, output := range sortedCopy(outputs) {
		if err := h.hashFile(root, output, hasher); err != nil {
			return "", zerr.Wrap(err, domain.ErrOutputHashComputationFailed.Error())
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// hashTaskDefinition hashes everything about the task that shapes its output.
func hashTaskDefinition(task *domain.Task, hasher *xxhash.Digest) {
	write := func(s string) {
		_, _ = hasher.WriteString(s)
		_, _ = hasher.Write([]byte{0})
	}

	write(task.Name.String())
	write(string(task.Kind))
	if task.Target == nil {
		return
	}

	write(task.Target.Entry)
	write(task.Target.Output)
	for _, inc := range task.Target.IncludePaths {
		write(inc)
	}
	_, _ = hasher.Write([]byte{0}) // Section separator

	write(task.Target.Compiler)

	write(task.Target.Transform.Target)
	for _, k := range slices.Sorted(maps.Keys(task.Target.Transform.Aliases)) {
		write(k + "=" + task.Target.Transform.Aliases[k])
	}
}

// hashFile writes the root-relative path and the content hash of file.
func (h *Hasher) hashFile(root, file string, mainHasher io.Writer) error {
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, file)
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	_, _ = mainHasher.Write([]byte(filepath.ToSlash(rel)))
	_, _ = mainHasher.Write([]byte{0})

	hash, err := h.ComputeFileHash(path)
	if err != nil {
		return err
	}

	return binary.Write(mainHasher, binary.LittleEndian, hash)
}

func sortedCopy(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
