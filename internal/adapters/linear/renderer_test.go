package linear_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/extbuild/internal/adapters/linear"
	"go.trai.ch/extbuild/internal/adapters/telemetry"
)

func newRenderer(t *testing.T) (*linear.Renderer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	var stdout, stderr bytes.Buffer
	return linear.NewRenderer(&stdout, &stderr), &stdout, &stderr
}

func TestRenderer_TaskLifecycle(t *testing.T) {
	r, stdout, stderr := newRenderer(t)
	require.NoError(t, r.Start(context.Background()))

	r.OnPlanEmit([]string{"build:popup", "build"}, map[string][]string{
		"build": {"build:popup"},
	}, []string{"build"})
	assert.Contains(t, stderr.String(), "Planning 2 task(s) for build")

	start := time.Now()
	r.OnTaskStart("span1", "", "build:popup", start)
	assert.Contains(t, stderr.String(), "[build:popup] Starting...")

	r.OnTaskLog("span1", []byte("first line\n"))
	r.OnTaskLog("span1", []byte("second line\n"))
	assert.Equal(t, "[build:popup] first line\n[build:popup] second line\n", stdout.String())

	r.OnTaskComplete("span1", start.Add(120*time.Millisecond), nil, false)
	assert.Contains(t, stderr.String(), "[build:popup] ✓ Completed in 120ms")

	require.NoError(t, r.Stop())
	require.NoError(t, r.Wait())
}

func TestRenderer_PartialLines(t *testing.T) {
	r, stdout, _ := newRenderer(t)

	r.OnTaskStart("span1", "", "build:css", time.Now())

	r.OnTaskLog("span1", []byte("Error: Expected"))
	assert.Empty(t, stdout.String())

	r.OnTaskLog("span1", []byte(" expression.\nline 2"))
	assert.Equal(t, "[build:css] Error: Expected expression.\n", stdout.String())

	r.OnTaskComplete("span1", time.Now(), nil, false)
	assert.Equal(t, "[build:css] Error: Expected expression.\n[build:css] line 2\n", stdout.String())
}

func TestRenderer_Outcomes(t *testing.T) {
	r, _, stderr := newRenderer(t)
	start := time.Now()

	r.OnTaskStart("a", "", "build:background", start)
	r.OnTaskComplete("a", start.Add(time.Second), errors.New("failed to bundle script"), false)
	assert.Contains(t, stderr.String(), "[build:background] ✗ Failed after 1s: failed to bundle script")

	r.OnTaskStart("b", "", "build:content", start)
	r.OnTaskComplete("b", start, nil, true)
	assert.Contains(t, stderr.String(), "[build:content] ~ Cached")

	r.OnTaskStart("c", "", "build:css", start)
	r.OnTaskComplete("c", start.Add(time.Second), &telemetry.ToleratedError{Reason: "failed to compile stylesheet"}, false)
	assert.Contains(t, stderr.String(), "[build:css] ! Continued after failure: failed to compile stylesheet")
	assert.NotContains(t, stderr.String(), "[build:css] ✗")
}

func TestRenderer_StopFlushesRunningTasks(t *testing.T) {
	r, stdout, _ := newRenderer(t)

	r.OnTaskStart("span1", "", "make:firefox", time.Now())
	r.OnTaskLog("span1", []byte("zipping manifest.json"))
	assert.Empty(t, stdout.String())

	require.NoError(t, r.Stop())
	assert.Equal(t, "[make:firefox] zipping manifest.json\n", stdout.String())
}

func TestRenderer_UnknownSpan(t *testing.T) {
	r, stdout, stderr := newRenderer(t)

	r.OnTaskLog("missing", []byte("ignored\n"))
	r.OnTaskComplete("missing", time.Now(), nil, false)

	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}
