package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultThumbWidth = 300
	envPrefix         = "EPUBPARSE"
)

func defaultJobs() int {
	return runtime.NumCPU()
}

// cliOptions holds the resolved command line.
type cliOptions struct {
	Inputs        []string
	Jobs          int
	Strict        bool
	CheckMimetype bool
	Progress      bool
	CoverDir      string
	ThumbWidth    int
	Logger        *slog.Logger
}

// readCLIOptions resolves flags, EPUBPARSE_* environment variables and the
// optional config file, in that order of precedence.
func readCLIOptions(cmd *cobra.Command, args []string) (cliOptions, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return cliOptions{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cliOptions{}, fmt.Errorf("--config: failed to read %s: %w", path, err)
		}
	}

	opts := cliOptions{
		Inputs:        args,
		Jobs:          v.GetInt("jobs"),
		Strict:        v.GetBool("strict"),
		CheckMimetype: v.GetBool("check-mimetype"),
		Progress:      v.GetBool("progress"),
		CoverDir:      v.GetString("cover-dir"),
		ThumbWidth:    v.GetInt("thumb-width"),
	}

	if opts.Jobs < 1 {
		return cliOptions{}, fmt.Errorf("--jobs must be at least 1, got %d", opts.Jobs)
	}
	if opts.ThumbWidth < 1 {
		return cliOptions{}, fmt.Errorf("--thumb-width must be at least 1, got %d", opts.ThumbWidth)
	}

	level := strings.ToLower(v.GetString("log-level"))
	if _, err := parseLogLevel(level); err != nil {
		return cliOptions{}, fmt.Errorf("--log-level: %w", err)
	}
	format := strings.ToLower(v.GetString("log-format"))
	if format != "text" && format != "json" {
		return cliOptions{}, fmt.Errorf("--log-format must be text or json, got %q", format)
	}
	if v.GetBool("verbose") {
		level = "debug"
	}

	opts.Logger = buildLogger(os.Stderr, level, format)
	return opts, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level %q (want debug, info, warn or error)", s)
	}
}

// buildLogger returns a logger writing to w. Unknown levels fall back to
// info; any format other than json is text.
func buildLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, err := parseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}
	return slog.New(log.NewWithOptions(w, log.Options{
		Level:           log.Level(lvl),
		ReportTimestamp: true,
		Prefix:          "epubparse",
	}))
}
