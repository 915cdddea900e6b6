package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rectify/internal/config"
	"rectify/internal/trace"
)

// cleanupTrace flushes and closes the tracer installed by setupTracing.
var cleanupTrace func()

// setupTracing initializes the tracer from the trace flags, falling back to
// the [trace] section of the configuration for values not given on the
// command line.
func setupTracing(cmd *cobra.Command, tc config.Trace) (func(), error) {
	flags := cmd.Root().PersistentFlags()

	traceOutput, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	if traceOutput == "" {
		traceOutput = tc.File
	}

	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	if levelStr == "" {
		levelStr = tc.Level
		// файл без уровня означает фазы
		if traceOutput != "" && (levelStr == "" || levelStr == "off") {
			levelStr = "phase"
		}
	}

	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}

	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	if formatStr == "" {
		formatStr = tc.Format
	}

	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	focus, err := flags.GetStringSlice("trace-file")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-file flag: %w", err)
	}

	heartbeatInterval, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, &usageError{err: err}
	}

	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, &usageError{err: err}
	}
	format := trace.FormatAuto
	if formatStr != "" {
		if format, err = trace.ParseFormat(formatStr); err != nil {
			return nil, &usageError{err: err}
		}
	}
	if traceOutput == "" {
		traceOutput = "-"
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: traceOutput,
		RingSize:   ringSize,
		Focus:      trace.Focus(focus),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval)
	}

	cleanup := func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}
