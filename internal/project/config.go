package project

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

// ConfigFile is the name of the analysis configuration file.
const ConfigFile = "tyinc.toml"

// Config is the decoded tyinc.toml. Absent keys keep their defaults.
type Config struct {
	Analysis AnalysisConfig `toml:"analysis"`
	Recovery RecoveryConfig `toml:"recovery"`
	Trace    TraceConfig    `toml:"trace"`
}

// AnalysisConfig bounds the work of one run. Jobs of 0 means one worker
// per CPU; MaxTypeDepth of 0 keeps the solver's default.
type AnalysisConfig struct {
	Jobs         int `toml:"jobs"`
	MaxTypeDepth int `toml:"max_type_depth"`
}

// RecoveryConfig selects how trait-solving cycles are answered: "none"
// yields no solution, "ambiguous" an ambiguous one.
type RecoveryConfig struct {
	SolverCycle string `toml:"solver_cycle"`
}

// TraceConfig mirrors the --trace flags.
type TraceConfig struct {
	Level    string `toml:"level"`
	Mode     string `toml:"mode"`
	Output   string `toml:"output"`
	RingSize int    `toml:"ring_size"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() Config {
	return Config{
		Recovery: RecoveryConfig{SolverCycle: "none"},
		Trace:    TraceConfig{Level: "off", Mode: "ring", RingSize: 4096},
	}
}

// LoadConfig decodes path over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "%s: failed to parse TOML", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Newf("%s: unknown key %s", path, undecoded[0].String())
	}
	if meta.IsDefined("analysis", "jobs") && cfg.Analysis.Jobs < 0 {
		return Config{}, errors.Newf("%s: [analysis].jobs must not be negative", path)
	}
	if cfg.Analysis.MaxTypeDepth < 0 {
		return Config{}, errors.Newf("%s: [analysis].max_type_depth must not be negative", path)
	}
	switch strings.TrimSpace(cfg.Recovery.SolverCycle) {
	case "none", "ambiguous":
	default:
		return Config{}, errors.Newf("%s: [recovery].solver_cycle must be \"none\" or \"ambiguous\", got %q", path, cfg.Recovery.SolverCycle)
	}
	return cfg, nil
}

// FindConfig walks up from startDir to locate tyinc.toml.
func FindConfig(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, errors.Wrap(err, "failed to resolve start directory")
	}
	for {
		candidate := filepath.Join(dir, ConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, errors.Wrapf(err, "failed to stat %q", candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}
