package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"tyinc/internal/project"
	"tyinc/internal/trace"
)

// setupTracing initializes the tracer from the merged trace configuration
// and attaches it to the command context. It returns a cleanup function
// that stops the heartbeat, dumps a ring-only trace of a failed command and
// closes the tracer.
func setupTracing(cmd *cobra.Command, cfg project.TraceConfig) (func(), error) {
	heartbeatInterval, err := cmd.Root().PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, errors.Wrap(err, "failed to get trace-heartbeat flag")
	}

	level, err := trace.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "invalid trace level")
	}

	// Tracing stays off unless a level or an output is requested.
	if level == trace.LevelOff && cfg.Output == "" {
		ctx := trace.WithTracer(cmd.Context(), trace.Nop)
		cmd.SetContext(ctx)
		return func() {}, nil
	}
	if level == trace.LevelOff {
		level = trace.LevelPhase
	}

	mode, err := trace.ParseMode(cfg.Mode)
	if err != nil {
		return nil, errors.Wrap(err, "invalid trace mode")
	}
	// A ring alone never reaches the requested output.
	if mode == trace.ModeRing && cfg.Output != "" {
		mode = trace.ModeBoth
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: cfg.Output,
		RingSize:   cfg.RingSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create tracer")
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	heartbeat := trace.StartHeartbeat(tracer, heartbeatInterval)

	return func() {
		heartbeat.Stop()
		// A ring-only tracer is dumped when the command failed.
		if ring, ok := trace.Ring(tracer); ok && mode == trace.ModeRing && env.failed {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: last %d events (%d dropped)\n", len(ring.Snapshot()), ring.Dropped())
			if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}
