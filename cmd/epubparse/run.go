package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/yuanying/epubparse/internal/diag"
	"github.com/yuanying/epubparse/internal/epub"
)

// exitError carries a process exit status out of RunE.
type exitError struct {
	Code int
	Err  error
}

func (e *exitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *exitError) Unwrap() error {
	return e.Err
}

// fileResult is the outcome of parsing one file.
type fileResult struct {
	Path        string
	Diagnostics []diag.Error
	// Progress is the rendered progress bar, if requested.
	Progress string

	Parsed           bool
	UniqueIdentifier string
	UUID             string
	Cover            string
	Thumbnail        string

	// Err is set when the file could not be read at all.
	Err error
}

func (r fileResult) hasErrors() bool {
	if r.Err != nil || !r.Parsed {
		return true
	}
	return slices.ContainsFunc(r.Diagnostics, func(e diag.Error) bool {
		return e.Severity == diag.SeverityError
	})
}

// collectInputs expands directories into the .epub files below them. Files
// named explicitly are kept whatever their extension.
func collectInputs(inputs []string) ([]string, error) {
	var files []string
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", input, err)
		}
		if !info.IsDir() {
			files = append(files, input)
			continue
		}

		var found []string
		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".epub") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", input, err)
		}
		slices.Sort(found)
		files = append(files, found...)
	}
	return files, nil
}

// runParse parses every input with at most opts.Jobs parsers running at
// once. Reports are written in input order once all files are done.
func runParse(ctx context.Context, opts cliOptions, stdout, stderr io.Writer) error {
	files, err := collectInputs(opts.Inputs)
	if err != nil {
		return err
	}

	var thumbs *thumbnailer
	var thumbNames []string
	if opts.CoverDir != "" {
		if err := os.MkdirAll(opts.CoverDir, 0o755); err != nil {
			return fmt.Errorf("failed to create cover directory: %w", err)
		}
		thumbs = newThumbnailer(opts.ThumbWidth)
		thumbNames = thumbnailNames(files)
	}

	results := make([]fileResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var out string
			if thumbs != nil {
				out = filepath.Join(opts.CoverDir, thumbNames[i])
			}
			results[i] = parseFile(opts, thumbs, path, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r := newReporter(stdout, stderr)
	failed := 0
	for _, res := range results {
		r.report(res)
		if res.hasErrors() {
			failed++
		}
	}
	r.summary(len(results), failed)

	if opts.Strict && failed > 0 {
		return &exitError{Code: 1, Err: fmt.Errorf("%d of %d files reported errors", failed, len(results))}
	}
	return nil
}

// parseFile parses one file. When thumbs is set, the cover thumbnail is
// written to thumbPath.
func parseFile(opts cliOptions, thumbs *thumbnailer, path, thumbPath string) fileResult {
	res := fileResult{Path: path}
	logger := opts.Logger.With("file", path)

	f, err := os.Open(path)
	if err != nil {
		res.Err = fmt.Errorf("failed to open %s: %w", path, err)
		return res
	}
	defer f.Close()

	var bar *progressBar
	var events func(epub.Event)
	if opts.Progress {
		bar = &progressBar{}
		events = bar.update
	}

	req, err := epub.NewFileRequest(f, events)
	if err != nil {
		res.Err = err
		return res
	}

	p := epub.NewParser(req,
		epub.WithLogger(logger),
		epub.WithMimetypeCheck(opts.CheckMimetype),
	)
	book, err := p.Execute()
	res.Diagnostics = p.Errors()
	if bar != nil {
		res.Progress = bar.String()
	}
	if errors.Is(err, epub.ErrInvalidEPUB) {
		logger.Info("rejected", "diagnostics", len(res.Diagnostics))
		return res
	}
	if err != nil {
		res.Err = err
		return res
	}
	defer book.Close()

	res.Parsed = true
	res.UniqueIdentifier = book.UniqueIdentifier()
	res.UUID = book.UUID().String()

	if cover, ok := book.CoverImage(); ok {
		res.Cover = cover.RealPath
		if thumbs != nil {
			if err := thumbs.write(book, cover, thumbPath); err != nil {
				logger.Warn("thumbnail failed", "cover", cover.RealPath, "err", err)
			} else {
				res.Thumbnail = thumbPath
			}
		}
	}

	logger.Debug("parsed", "packages", len(book.Packages()), "diagnostics", len(res.Diagnostics))
	return res
}

// progressBar draws up to progressWidth '#' characters as progress events
// arrive, and ends the line at completion.
type progressBar struct {
	buf   bytes.Buffer
	drawn int
}

const progressWidth = 80

func (b *progressBar) update(ev epub.Event) {
	for ev.Progress*progressWidth > float64(b.drawn) && b.drawn < progressWidth {
		b.buf.WriteByte('#')
		b.drawn++
	}
	if ev.Progress >= 1.0 {
		b.buf.WriteByte('\n')
		b.drawn = 0
	}
}

func (b *progressBar) String() string {
	return b.buf.String()
}
