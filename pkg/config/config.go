// Package config loads .asmscope.yaml.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"asmscope/pkg/toolchain"
)

const FileName = ".asmscope.yaml"

var (
	ErrBadDemangler       = errors.New("demangler must be \"tool\" or \"builtin\"")
	ErrBadStripUnderscore = errors.New("strip_underscore must be \"auto\", \"true\" or \"false\"")
)

type Config struct {
	// Compiler overrides g++ / rustc.
	Compiler string   `yaml:"compiler"`
	Flags    []string `yaml:"flags"`
	OptLevel string   `yaml:"opt_level"`

	// Tools maps tool names (c++filt, rustfilt, llvm-cxxfilt, llvm-mca,
	// g++, rustc) to the path used to run them.
	Tools           map[string]string `yaml:"tools"`
	Demangler       string            `yaml:"demangler"`
	StripUnderscore string            `yaml:"strip_underscore"`
	AnalyzerArgs    []string          `yaml:"analyzer_args"`
	RefreshInterval Duration          `yaml:"refresh_interval"`
	LogFile         string            `yaml:"log_file"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

// Duration accepts "500ms"-style strings.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "line %d", node.Line)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Demangler:       "tool",
		StripUnderscore: "auto",
		RefreshInterval: Duration{300 * time.Millisecond},
		Tools:           map[string]string{},
	}
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", path)
	}
	if cfg.Tools == nil {
		cfg.Tools = map[string]string{}
	}
	cfg.Path = path
	return cfg, cfg.Validate()
}

// Find looks for the config next to source, then in the home directory.
// No file found is not an error.
func Find(source string) (Config, error) {
	dirs := []string{filepath.Dir(source)}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	for _, dir := range dirs {
		p := filepath.Join(dir, FileName)
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return Default(), nil
}

func (c Config) Validate() error {
	switch c.Demangler {
	case "tool", "builtin":
	default:
		return errors.Wrapf(ErrBadDemangler, "got %q", c.Demangler)
	}
	switch strings.ToLower(c.StripUnderscore) {
	case "auto", "true", "false":
	default:
		return errors.Wrapf(ErrBadStripUnderscore, "got %q", c.StripUnderscore)
	}
	return nil
}

// StripsUnderscore resolves strip_underscore for goos ("" means the running
// system). Only Mach-O targets prefix symbols with an underscore.
func (c Config) StripsUnderscore(goos string) bool {
	switch strings.ToLower(c.StripUnderscore) {
	case "true":
		return true
	case "false":
		return false
	}
	if goos == "" {
		goos = runtime.GOOS
	}
	return goos == "darwin" || goos == "ios"
}

func (c Config) BuiltinDemangler() bool {
	return c.Demangler == "builtin"
}

func (c Config) Toolset() toolchain.Toolset {
	return toolchain.Toolset(c.Tools)
}

// DriverOptions maps the config onto compiler driver options.
func (c Config) DriverOptions(r toolchain.Runner) toolchain.Options {
	return toolchain.Options{
		Compiler:     c.Compiler,
		OptLevel:     c.OptLevel,
		Tools:        c.Toolset(),
		Runner:       r,
		AnalyzerArgs: c.AnalyzerArgs,
	}
}

// Save writes c to path.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "writing config")
}
