package main

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"tyinc/internal/driver"
	"tyinc/internal/project"
	"tyinc/internal/trace"
)

// cliEnv is the state shared by every subcommand of one invocation.
type cliEnv struct {
	cfg      project.Config
	logger   *zap.Logger
	color    bool
	failed   bool
	cleanups []func()
}

var env = &cliEnv{cfg: project.DefaultConfig(), logger: zap.NewNop()}

// setupEnv loads the configuration, then builds the logger, the color mode
// and the tracer from it and the persistent flags.
func setupEnv(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	if err := setupColor(flags); err != nil {
		return err
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	env.cfg = cfg

	levelStr, err := flags.GetString("log-level")
	if err != nil {
		return errors.Wrap(err, "failed to get log-level flag")
	}
	logger, err := newLogger(levelStr)
	if err != nil {
		return err
	}
	env.logger = logger
	env.cleanups = append(env.cleanups, func() { _ = logger.Sync() })

	cleanup, err := setupTracing(cmd, cfg.Trace)
	if err != nil {
		return err
	}
	env.cleanups = append(env.cleanups, cleanup)
	return nil
}

func setupColor(flags *pflag.FlagSet) error {
	colorFlag, err := flags.GetString("color")
	if err != nil {
		return errors.Wrap(err, "failed to get color flag")
	}
	switch colorFlag {
	case "on":
		env.color = true
	case "off":
		env.color = false
	case "auto":
		env.color = isTerminal(os.Stdout)
	default:
		return errors.Newf("invalid --color %q (expected auto|on|off)", colorFlag)
	}
	color.NoColor = !env.color
	return nil
}

// loadConfig reads --config, or the nearest tyinc.toml above the working
// directory, then applies explicitly set trace flags on top.
func loadConfig(flags *pflag.FlagSet) (project.Config, error) {
	path, err := flags.GetString("config")
	if err != nil {
		return project.Config{}, errors.Wrap(err, "failed to get config flag")
	}
	cfg := project.DefaultConfig()
	if path == "" {
		found, ok, err := project.FindConfig(".")
		if err != nil {
			return project.Config{}, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		if cfg, err = project.LoadConfig(path); err != nil {
			return project.Config{}, err
		}
	}

	if flags.Changed("trace") {
		cfg.Trace.Output, _ = flags.GetString("trace")
	}
	if flags.Changed("trace-level") {
		cfg.Trace.Level, _ = flags.GetString("trace-level")
	}
	if flags.Changed("trace-mode") {
		cfg.Trace.Mode, _ = flags.GetString("trace-mode")
	}
	if flags.Changed("trace-ring-size") {
		cfg.Trace.RingSize, _ = flags.GetInt("trace-ring-size")
	}
	return cfg, nil
}

// newLogger builds a console logger on stderr. "off" disables logging.
func newLogger(level string) (*zap.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" || level == "off" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid --log-level %q", level)
	}
	encoder := zap.NewDevelopmentEncoderConfig()
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	if env.color {
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoder), zapcore.Lock(os.Stderr), lvl)
	return zap.New(core), nil
}

// openSession loads the workspace at path with the configured database
// options.
func openSession(cmd *cobra.Command, path string) (*driver.Session, error) {
	opts, err := driver.Options(env.cfg, env.logger, trace.FromContext(cmd.Context()))
	if err != nil {
		return nil, err
	}
	return driver.Open(path, opts...)
}

func jobs() int { return env.cfg.Analysis.Jobs }

func closeEnv() {
	for i := len(env.cleanups) - 1; i >= 0; i-- {
		env.cleanups[i]()
	}
	env.cleanups = nil
}

func errorText(err error) string {
	return color.New(color.FgRed, color.Bold).Sprint("error:") + " " + err.Error()
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
