package watcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/extbuild/internal/adapters/watcher"
)

func TestFilter_Match(t *testing.T) {
	t.Parallel()

	reload := watcher.NewFilter("/project", []string{
		"app/scripts/**/*.js",
		"app/images/**/*",
		"app/styles/**/*",
		"app/_locales/**/*.json",
	})
	rebuild := watcher.NewFilter("/project", []string{
		"src/scripts/**/*.js",
		"src/styles/**/*.scss",
	})

	tests := []struct {
		path        string
		wantReload  bool
		wantRebuild bool
	}{
		{path: "/project/app/scripts/background_bundle.js", wantReload: true},
		{path: "/project/app/images/icons/16.png", wantReload: true},
		{path: "/project/app/styles/main.css", wantReload: true},
		{path: "/project/app/_locales/en/messages.json", wantReload: true},
		{path: "/project/app/_locales/en/notes.txt"},
		{path: "/project/app/manifest.json"},
		{path: "/project/src/scripts/popup.js", wantRebuild: true},
		{path: "/project/src/scripts/lib/util.js", wantRebuild: true},
		{path: "/project/src/styles/main.scss", wantRebuild: true},
		{path: "/project/src/styles/main.css"},
		{path: "src/scripts/options.js", wantRebuild: true},
		{path: "/elsewhere/src/scripts/popup.js"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantReload, reload.Match(tt.path), "reload")
			assert.Equal(t, tt.wantRebuild, rebuild.Match(tt.path), "rebuild")
		})
	}
}

func TestFilter_Validate(t *testing.T) {
	t.Parallel()

	_, ok := watcher.NewFilter("/p", []string{"src/**/*.js"}).Validate()
	assert.True(t, ok)

	bad, ok := watcher.NewFilter("/p", []string{"src/**/*.js", "src/[.js"}).Validate()
	assert.False(t, ok)
	assert.Equal(t, "src/[.js", bad)
}
