package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrToolNotFound   = errors.New("tool not found")
	ErrNoInstructions = errors.New("no instructions to analyze")
)

// Install locations searched when a tool is not on PATH.
var fallbackPaths = map[string][]string{
	"llvm-mca": {
		"/opt/homebrew/opt/llvm/bin/llvm-mca",
		"/usr/local/opt/llvm/bin/llvm-mca",
	},
	"llvm-cxxfilt": {
		"/opt/homebrew/opt/llvm/bin/llvm-cxxfilt",
		"/usr/local/opt/llvm/bin/llvm-cxxfilt",
	},
	"rustc": {
		"~/.cargo/bin/rustc",
	},
	"rustfilt": {
		"~/.cargo/bin/rustfilt",
	},
}

// Toolset maps a tool name to the path used to invoke it. Names missing from
// the map are looked up on PATH.
type Toolset map[string]string

// Lookup resolves name to an executable path.
func (t Toolset) Lookup(name string) (string, error) {
	if p := t[name]; p != "" {
		p = expandHome(p)
		if resolved, err := exec.LookPath(p); err == nil {
			return resolved, nil
		}
		return "", errors.Wrapf(ErrToolNotFound, "%s (configured as %s)", name, p)
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	for _, p := range fallbackPaths[name] {
		p = expandHome(p)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", errors.Wrap(ErrToolNotFound, name)
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return home + p[1:]
}

// Runner executes an external tool. A tool that ran but exited non-zero is
// reported as an *ExitError together with whatever it wrote.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin string) (stdout, stderr string, err error)
}

// ExitError is returned by a Runner when the process exited with a non-zero
// status.
type ExitError struct {
	Name string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
}

// IsExit reports whether err is (or wraps) an *ExitError.
func IsExit(err error) bool {
	var exit *ExitError
	return errors.As(err, &exit)
}

// ExecRunner runs tools as subprocesses.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string, stdin string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), stderr.String(), &ExitError{Name: name, Code: exitErr.ExitCode()}
	}
	if err != nil {
		return stdout.String(), stderr.String(), errors.Wrapf(err, "running %s", name)
	}
	return stdout.String(), stderr.String(), nil
}
