package cas_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/extbuild/internal/adapters/cas"
	"go.trai.ch/extbuild/internal/core/domain"
)

func TestStore_PutGet(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()

	info := domain.BuildInfo{
		TaskName:   "build:background",
		InputHash:  "abc",
		OutputHash: "def",
		Inputs:     []string{"src/scripts/background.js"},
		Timestamp:  time.Now().Truncate(time.Second).UTC(),
	}

	require.NoError(t, store.Put(root, info))

	got, err := store.Get(root, "build:background")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, info, *got)

	missing, err := store.Get(root, "build:popup")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_RecordNames(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()
	require.NoError(t, store.Put(root, domain.BuildInfo{TaskName: "make:chrome", InputHash: "a"}))
	require.NoError(t, store.Put(root, domain.BuildInfo{TaskName: "make-chrome", InputHash: "b"}))

	entries, err := os.ReadDir(filepath.Join(root, domain.DefaultStorePath()))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.Name(), "make-chrome-"), e.Name())
		assert.NotContains(t, e.Name(), ":")
	}

	colon, err := store.Get(root, "make:chrome")
	require.NoError(t, err)
	require.NotNil(t, colon)
	assert.Equal(t, "a", colon.InputHash)

	dash, err := store.Get(root, "make-chrome")
	require.NoError(t, err)
	require.NotNil(t, dash)
	assert.Equal(t, "b", dash.InputHash)
}

func TestStore_PutReplacesRecord(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()
	require.NoError(t, store.Put(root, domain.BuildInfo{TaskName: "build:popup", InputHash: "old"}))
	require.NoError(t, store.Put(root, domain.BuildInfo{TaskName: "build:popup", InputHash: "new"}))

	entries, err := os.ReadDir(filepath.Join(root, domain.DefaultStorePath()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary records are left behind")

	got, err := store.Get(root, "build:popup")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.InputHash)
}

func TestStore_GetCorrupt(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()
	require.NoError(t, store.Put(root, domain.BuildInfo{TaskName: "build:css"}))

	dir := filepath.Join(root, domain.DefaultStorePath())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte("{not json"), domain.FilePerm))

	_, err = store.Get(root, "build:css")
	require.ErrorContains(t, err, "failed to unmarshal build info")
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()
	require.NoError(t, store.Put(root, domain.BuildInfo{TaskName: "build:css"}))

	require.NoError(t, store.Clear(root))
	assert.NoDirExists(t, filepath.Join(root, domain.DefaultStorePath()))

	got, err := store.Get(root, "build:css")
	require.NoError(t, err)
	assert.Nil(t, got)
}
