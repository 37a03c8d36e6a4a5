package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readCLIOptionsForTest(t *testing.T, flagArgs ...string) error {
	t.Helper()
	cmd := newRootCmd()
	if err := cmd.ParseFlags(flagArgs); err != nil {
		return err
	}
	_, err := readCLIOptions(cmd, []string{"./input/book.epub"})
	return err
}

func TestReadCLIOptions_Defaults(t *testing.T) {
	cmd := newRootCmd()
	opts, err := readCLIOptions(cmd, []string{"./input/book.epub"})
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}

	if len(opts.Inputs) != 1 || opts.Inputs[0] != "./input/book.epub" {
		t.Fatalf("Inputs = %v", opts.Inputs)
	}
	if opts.Jobs != defaultJobs() {
		t.Fatalf("Jobs = %d, want %d", opts.Jobs, defaultJobs())
	}
	if opts.ThumbWidth != defaultThumbWidth {
		t.Fatalf("ThumbWidth = %d, want %d", opts.ThumbWidth, defaultThumbWidth)
	}
	if opts.Strict || opts.CheckMimetype || opts.Progress || opts.CoverDir != "" {
		t.Fatalf("unexpected non-default options: %+v", opts)
	}
	if opts.Logger == nil {
		t.Fatal("Logger is nil, want non-nil")
	}
	if !opts.Logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("Logger should be enabled at INFO level by default")
	}
	if opts.Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("Logger should not be enabled at DEBUG level by default")
	}
}

func TestReadCLIOptions_CustomFlags(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{
		"--jobs", "3",
		"--strict",
		"--check-mimetype",
		"--progress",
		"--cover-dir", "./covers",
		"--thumb-width", "120",
		"--log-level", "warn",
		"--verbose",
	}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	opts, err := readCLIOptions(cmd, []string{"./input/book.epub"})
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}

	if opts.Jobs != 3 {
		t.Fatalf("Jobs = %d", opts.Jobs)
	}
	if !opts.Strict {
		t.Fatal("Strict = false, want true")
	}
	if !opts.CheckMimetype {
		t.Fatal("CheckMimetype = false, want true")
	}
	if !opts.Progress {
		t.Fatal("Progress = false, want true")
	}
	if opts.CoverDir != "./covers" {
		t.Fatalf("CoverDir = %q", opts.CoverDir)
	}
	if opts.ThumbWidth != 120 {
		t.Fatalf("ThumbWidth = %d", opts.ThumbWidth)
	}
	// --verbose overrides log-level to debug
	if !opts.Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("Logger should be enabled at DEBUG level when --verbose is set")
	}
}

func TestReadCLIOptions_Environment(t *testing.T) {
	t.Setenv("EPUBPARSE_JOBS", "2")
	t.Setenv("EPUBPARSE_CHECK_MIMETYPE", "true")

	cmd := newRootCmd()
	opts, err := readCLIOptions(cmd, []string{"./input/book.epub"})
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}
	if opts.Jobs != 2 {
		t.Fatalf("Jobs = %d, want 2", opts.Jobs)
	}
	if !opts.CheckMimetype {
		t.Fatal("CheckMimetype = false, want true")
	}

	// Flags win over the environment.
	cmd = newRootCmd()
	if err := cmd.ParseFlags([]string{"--jobs", "5"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	opts, err = readCLIOptions(cmd, []string{"./input/book.epub"})
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}
	if opts.Jobs != 5 {
		t.Fatalf("Jobs = %d, want 5", opts.Jobs)
	}
}

func TestReadCLIOptions_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epubparse.toml")
	content := "strict = true\nthumb-width = 64\nlog-format = \"json\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	opts, err := readCLIOptions(cmd, []string{"./input/book.epub"})
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}
	if !opts.Strict {
		t.Fatal("Strict = false, want true from config")
	}
	if opts.ThumbWidth != 64 {
		t.Fatalf("ThumbWidth = %d, want 64", opts.ThumbWidth)
	}
}

func TestReadCLIOptions_MissingConfigFile(t *testing.T) {
	err := readCLIOptionsForTest(t, "--config", filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "--config") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestReadCLIOptions_InvalidJobs(t *testing.T) {
	err := readCLIOptionsForTest(t, "--jobs", "0")
	if err == nil || !strings.Contains(err.Error(), "--jobs") {
		t.Fatalf("expected jobs validation error, got %v", err)
	}
}

func TestReadCLIOptions_InvalidThumbWidth(t *testing.T) {
	err := readCLIOptionsForTest(t, "--thumb-width", "-1")
	if err == nil || !strings.Contains(err.Error(), "--thumb-width") {
		t.Fatalf("expected thumb-width validation error, got %v", err)
	}
}

func TestReadCLIOptions_InvalidLogLevel(t *testing.T) {
	err := readCLIOptionsForTest(t, "--log-level", "trace")
	if err == nil || !strings.Contains(err.Error(), "--log-level") {
		t.Fatalf("expected log-level validation error, got %v", err)
	}
}

func TestReadCLIOptions_InvalidLogFormat(t *testing.T) {
	err := readCLIOptionsForTest(t, "--log-format", "yaml")
	if err == nil || !strings.Contains(err.Error(), "--log-format") {
		t.Fatalf("expected log-format validation error, got %v", err)
	}
}

func TestBuildLogger_FormatNormalization(t *testing.T) {
	var buf bytes.Buffer
	logger := buildLogger(&buf, "info", "JSON")
	logger.Info("test message")
	// JSON format should produce JSON output (starts with '{')
	output := buf.String()
	if len(output) == 0 || output[0] != '{' {
		t.Fatalf("expected JSON output for format 'JSON', got: %s", output)
	}
}

func TestBuildLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := buildLogger(&buf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown", "file", "book.epub")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Fatalf("info record written at warn level: %s", output)
	}
	if !strings.Contains(output, "shown") || !strings.Contains(output, "book.epub") {
		t.Fatalf("warn record missing: %s", output)
	}
}
