// Command epubparse parses EPUB files and reports container and package
// document problems.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// Version is set via -ldflags.
var Version = "dev"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epubparse [flags] <file-or-directory>...",
		Short: "Parse EPUB container and package documents",
		Long: `epubparse opens EPUB files, parses META-INF/container.xml and every
package (OPF) document it declares, and reports problems with their
source location.

Directories are searched recursively for files ending in .epub.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			return runParse(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.IntP("jobs", "j", defaultJobs(), "Number of files parsed concurrently")
	f.Bool("strict", false, "Exit with a non-zero status if any error is reported")
	f.Bool("check-mimetype", false, "Warn about a missing, compressed or wrong mimetype file")
	f.Bool("progress", false, "Show a progress bar for every file")
	f.String("cover-dir", "", "Write a thumbnail of each cover image into this directory")
	f.Int("thumb-width", defaultThumbWidth, "Maximum thumbnail width in pixels")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.String("log-format", "text", "Log format: text, json")
	f.BoolP("verbose", "v", false, "Enable debug logging (overrides --log-level)")
	f.String("config", "", "Config file (TOML, YAML or JSON)")

	return cmd
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
