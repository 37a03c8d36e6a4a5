package epub

import (
	"crypto/md5"
	"io"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// EPUB is a parsed publication. It owns the archive it was parsed from until
// Close is called; the parsed records stay valid after Close.
type EPUB struct {
	archive  *Archive
	packages []Package

	closeOnce sync.Once
	closeErr  error
}

func newEPUB(archive *Archive, packages []Package) *EPUB {
	return &EPUB{archive: archive, packages: packages}
}

// Packages returns the packages of the publication. There is at least one.
func (e *EPUB) Packages() []Package {
	return slices.Clone(e.packages)
}

// OpenFile opens a file in the archive by archive path. It fails with an
// error wrapping ErrFileNotFound if there is no such file, and with
// ErrClosed after Close.
func (e *EPUB) OpenFile(name string) (io.ReadCloser, error) {
	return e.archive.Lookup(name)
}

// Entries returns the sorted names of all files in the archive.
func (e *EPUB) Entries() []string {
	return e.archive.Names()
}

// UniqueIdentifier returns the unique identifier of the first package.
func (e *EPUB) UniqueIdentifier() string {
	return e.packages[0].UniqueIdentifier()
}

// UUID returns a name-based (MD5, version 3) UUID computed from the UTF-8
// bytes of the unique identifier, without a namespace.
func (e *EPUB) UUID() uuid.UUID {
	return nameUUID(e.UniqueIdentifier())
}

// CoverImage returns the cover image of the first package that defines one.
func (e *EPUB) CoverImage() (ManifestItem, bool) {
	for i := range e.packages {
		if item, ok := e.packages[i].CoverImage(); ok {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// Close releases the archive and any stream returned by OpenFile.
func (e *EPUB) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.archive.Close()
	})
	return e.closeErr
}

// nameUUID hashes name directly rather than through uuid.NewMD5, which would
// prefix a namespace.
func nameUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte(name))
	sum[6] = sum[6]&0x0f | 0x30 // version 3
	sum[8] = sum[8]&0x3f | 0x80 // RFC 4122 variant
	return uuid.UUID(sum)
}
