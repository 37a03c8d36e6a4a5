package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

const expectedMimetype = "application/epub+zip"

var (
	ErrFileNotFound       = errors.New("epub: file not found in archive")
	ErrClosed             = errors.New("epub: archive is closed")
	ErrInvalidMimetype    = errors.New("invalid mimetype: must be 'application/epub+zip'")
	ErrMimetypeCompressed = errors.New("mimetype must not be compressed")
	ErrMimetypeNotFound   = errors.New("mimetype file not found")
)

// Archive provides access to the entries of an EPUB ZIP archive. Closing it
// closes every stream previously returned by Lookup.
//
// Archive does not own the underlying io.ReaderAt.
type Archive struct {
	zipReader *zip.Reader
	files     map[string]*zip.File

	mu      sync.Mutex
	streams map[*entryStream]struct{}
	closed  bool
}

// OpenArchive reads the ZIP central directory from r.
func OpenArchive(r io.ReaderAt, size int64) (*Archive, error) {
	if r == nil {
		return nil, errors.New("failed to open archive: no input")
	}
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	a := &Archive{
		zipReader: zr,
		files:     make(map[string]*zip.File, len(zr.File)),
		streams:   make(map[*entryStream]struct{}),
	}

	// Build file map with normalized paths
	for _, f := range zr.File {
		name := normalizePath(f.Name)
		if _, dup := a.files[name]; !dup {
			a.files[name] = f
		}
	}

	return a, nil
}

// Has reports whether the archive contains the named file.
func (a *Archive) Has(name string) bool {
	_, ok := a.files[normalizePath(name)]
	return ok
}

// Names returns the sorted names of all entries.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.files))
	for name := range a.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup opens the named file. The returned stream is closed when the
// archive is closed, if the caller has not closed it already.
func (a *Archive) Lookup(name string) (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}

	name = normalizePath(name)
	f, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	s := &entryStream{ReadCloser: rc, archive: a}
	a.streams[s] = struct{}{}
	return s, nil
}

// ReadFile reads the contents of a file from the archive
func (a *Archive) ReadFile(name string) ([]byte, error) {
	rc, err := a.Lookup(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Close closes every open stream. It is safe to call more than once.
func (a *Archive) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	streams := a.streams
	a.streams = nil
	a.mu.Unlock()

	var errs []error
	for s := range streams {
		if err := s.closeStream(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// validateMimetype checks that the mimetype file exists and is valid
func (a *Archive) validateMimetype() error {
	f, ok := a.files["mimetype"]
	if !ok {
		return ErrMimetypeNotFound
	}

	// Check that mimetype is not compressed
	if f.Method != zip.Store {
		return ErrMimetypeCompressed
	}

	content, err := a.ReadFile("mimetype")
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}

	if string(content) != expectedMimetype {
		return fmt.Errorf("%w (found %q)", ErrInvalidMimetype, content)
	}

	return nil
}

func (a *Archive) release(s *entryStream) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.streams, s)
}

type entryStream struct {
	io.ReadCloser
	archive *Archive
	once    sync.Once
	err     error
}

func (s *entryStream) Close() error {
	err := s.closeStream()
	s.archive.release(s)
	return err
}

func (s *entryStream) closeStream() error {
	s.once.Do(func() {
		s.err = s.ReadCloser.Close()
	})
	return s.err
}

// normalizePath normalizes file paths (removes ./ prefix)
func normalizePath(path string) string {
	path = strings.TrimPrefix(path, "./")
	return path
}
