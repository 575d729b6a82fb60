package toolchain

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Directories, relative to the source file, searched for a compilation
// database.
var compileDBDirs = []string{".", "build", "out", "debug"}

// Flag prefixes carried over from a compilation database entry.
var keptFlagPrefixes = []string{"-I", "-D", "-std", "-f", "-m"}

type compileCommand struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command"`
	Arguments []string `json:"arguments"`
}

// FindCompileCommands returns the first compile_commands.json found under
// dir, or "" when there is none.
func FindCompileCommands(dir string) string {
	for _, sub := range compileDBDirs {
		p := filepath.Join(dir, sub, "compile_commands.json")
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

// FlagsFromDB returns the include, define, standard and code generation
// flags recorded for source in the database at dbPath.
func FlagsFromDB(source, dbPath string) ([]string, error) {
	data, err := os.ReadFile(dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading compilation database")
	}
	var entries []compileCommand
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", dbPath)
	}

	want, err := filepath.Abs(source)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", source)
	}
	for _, e := range entries {
		file := e.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(e.Directory, file)
		}
		if filepath.Clean(file) != want {
			continue
		}
		args := e.Arguments
		if len(args) == 0 {
			args, err = shlex.Split(e.Command)
			if err != nil {
				return nil, errors.Wrapf(err, "splitting command for %s", e.File)
			}
		}
		if len(args) == 0 {
			return nil, nil
		}
		return lo.Filter(args[1:], func(arg string, _ int) bool {
			return lo.SomeBy(keptFlagPrefixes, func(prefix string) bool {
				return strings.HasPrefix(arg, prefix)
			})
		}), nil
	}
	return nil, nil
}
