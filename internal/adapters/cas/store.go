// Package cas keeps the build cache records extbuild uses to skip bundle,
// stylesheet and package tasks whose inputs and outputs are unchanged.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/zerr"
)

// Store implements ports.BuildInfoStore with one JSON record per task under
// <root>/.extbuild/store.
//
// Record names keep the task name readable ("build-popup-<hash>.json") while
// the hash suffix keeps "build:popup" and "build-popup" apart. Colons never
// reach the file system, so the store works on Windows too.
type Store struct{}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the record of taskName, or nil when the task never completed
// under root.
func (s *Store) Get(root, taskName string) (*domain.BuildInfo, error) {
	filename := recordPath(root, taskName)
	//nolint:gosec // Path is built from the project root and a sanitized task name
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "task", taskName)
	}

	var info domain.BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "task", taskName)
	}
	// A record left by another task under a colliding name is a miss.
	if info.TaskName != taskName {
		return nil, nil
	}

	return &info, nil
}

// Put records a completed task. The record is renamed into place so a build
// interrupted mid-write leaves the previous record intact.
func (s *Store) Put(root string, info domain.BuildInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}

	filename := recordPath(root, info.TaskName)
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	tmp, err := os.CreateTemp(dir, ".record-*")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	_, err = tmp.Write(data)
	err = errors.Join(err, tmp.Close())
	if err == nil {
		err = os.Chmod(tmp.Name(), domain.FilePerm)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filename)
	}
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "task", info.TaskName)
	}
	return nil
}

// Clear removes every record, which is what `extbuild clean --cache` does.
func (s *Store) Clear(root string) error {
	if err := os.RemoveAll(filepath.Join(root, domain.DefaultStorePath())); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "root", root)
	}
	return nil
}

// recordPath maps a task name such as "make:chrome" to its record file.
func recordPath(root, taskName string) string {
	readable := strings.Map(func(r rune) rune {
		switch r {
		case ':', '/', '\\':
			return '-'
		}
		return r
	}, taskName)
	sum := strconv.FormatUint(xxhash.Sum64String(taskName), 16)
	return filepath.Join(root, domain.DefaultStorePath(), readable+"-"+sum+".json")
}
