// Package shell runs external programs for build actions.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/creack/pty"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/zerr"
)

// Executor implements ports.Executor using os/exec.
//
// Standard output is passed through untouched so callers can capture generated
// content. Standard error is attached to a pseudo-terminal when one is available
// so tools keep their colored diagnostics.
type Executor struct{}

// NewExecutor creates a new Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

type process struct {
	cmd    *exec.Cmd
	ioDone <-chan struct{}
}

func (p *process) Wait() error {
	err := p.cmd.Wait()
	<-p.ioDone
	return err
}

// Execute runs cmd and waits for it to complete.
func (e *Executor) Execute(ctx context.Context, cmd *domain.Command, stdout, stderr io.Writer) error {
	if len(cmd.Args) == 0 {
		return nil
	}

	name := cmd.Args[0]
	env := resolveEnvironment(os.Environ(), cmd.Path, cmd.Env)

	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	c := exec.CommandContext(ctx, executable, cmd.Args[1:]...) //nolint:gosec // configured tool
	c.Args[0] = name
	c.Dir = cmd.Dir
	c.Env = env
	c.Stdout = stdout

	proc, err := start(c, stderr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to start command"), "command", name)
	}

	if err := proc.Wait(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode)
	}

	return nil
}

func start(c *exec.Cmd, stderr io.Writer) (*process, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		// No pseudo-terminal available, fall back to a plain pipe.
		c.Stderr = stderr
		if err := c.Start(); err != nil {
			return nil, err
		}
		done := make(chan struct{})
		close(done)
		return &process{cmd: c, ioDone: done}, nil
	}

	c.Stderr = tty
	if err := c.Start(); err != nil {
		_ = ptmx.Close()
		_ = tty.Close()
		return nil, err
	}
	// The child holds its own descriptor; closing ours lets the copy loop end on exit.
	_ = tty.Close()

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		defer func() { _ = ptmx.Close() }()
		w := &crlfWriter{w: stderr}
		_, _ = io.Copy(w, ptmx)
		_ = w.Flush()
	}()

	return &process{cmd: c, ioDone: ioDone}, nil
}

// crlfWriter undoes the terminal's newline translation.
type crlfWriter struct {
	w       io.Writer
	pending bool
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	n := len(p)
	if c.pending {
		if len(p) == 0 || p[0] != '\n' {
			if _, err := c.w.Write([]byte{'\r'}); err != nil {
				return 0, err
			}
		}
		c.pending = false
	}
	if len(p) > 0 && p[len(p)-1] == '\r' {
		c.pending = true
		p = p[:len(p)-1]
	}
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\r\n"), []byte("\n"))); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *crlfWriter) Flush() error {
	if !c.pending {
		return nil
	}
	c.pending = false
	_, err := c.w.Write([]byte{'\r'})
	return err
}

// allowListedEnvVars are the system environment variables inherited by tools.
var allowListedEnvVars = map[string]struct{}{
	"HOME": {},
	"TERM": {},
	"USER": {},
	"PATH": {},
	"LANG": {},
}

// resolveEnvironment builds the child environment from the allow-listed system
// variables, the extra search path and the command's overrides, in that order.
func resolveEnvironment(sysEnv, searchPath []string, cmdEnv map[string]string) []string {
	envMap := filterSystemEnv(sysEnv)

	if len(searchPath) > 0 {
		path := strings.Join(searchPath, string(os.PathListSeparator))
		if sysPath := envMap["PATH"]; sysPath != "" {
			path += string(os.PathListSeparator) + sysPath
		}
		envMap["PATH"] = path
	}

	for k, v := range cmdEnv {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

func filterSystemEnv(sysEnv []string) map[string]string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, allowed := allowListedEnvVars[k]; allowed {
			envMap[k] = v
		}
	}
	return envMap
}

// lookPath searches for an executable in the PATH of env rather than the process's own.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if v, ok := strings.CutPrefix(e, "PATH="); ok {
			path = v
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
