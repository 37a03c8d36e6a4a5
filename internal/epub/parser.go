package epub

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/yuanying/epubparse/internal/diag"
	"github.com/yuanying/epubparse/internal/xmlpos"
)

// ErrInvalidEPUB is returned by Execute when no publication could be
// produced. The reasons are available from Errors.
var ErrInvalidEPUB = errors.New("epub: no publication could be parsed")

// Event reports progress. Progress is in [0, 1].
type Event struct {
	Progress float64
	Message  string
}

// Request describes a file to parse.
type Request struct {
	// URI identifies the file in diagnostics and events.
	URI string
	// Channel is the archive. It is read, never closed.
	Channel io.ReaderAt
	Size    int64
	// Events, if set, is called synchronously on the calling goroutine.
	Events func(Event)
}

// NewFileRequest builds a Request reading from f. The URI is a file URL of
// f's absolute path.
func NewFileRequest(f *os.File, events func(Event)) (Request, error) {
	st, err := f.Stat()
	if err != nil {
		return Request{}, fmt.Errorf("failed to stat %s: %w", f.Name(), err)
	}
	abs, err := filepath.Abs(f.Name())
	if err != nil {
		abs = f.Name()
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return Request{
		URI:     u.String(),
		Channel: f,
		Size:    st.Size(),
		Events:  events,
	}, nil
}

// Stage is the point an Execute call reached.
type Stage int

const (
	StageNotStarted Stage = iota
	StageArchiveOpened
	StageContainerLocated
	StageManifestVerified
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageNotStarted:
		return "not-started"
	case StageArchiveOpened:
		return "archive-opened"
	case StageContainerLocated:
		return "container-located"
	case StageManifestVerified:
		return "manifest-verified"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger that receives debug output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		p.log = l
	}
}

// WithCatalog sets the catalog used to render messages.
func WithCatalog(c diag.Catalog) Option {
	return func(p *Parser) {
		p.catalog = c
	}
}

// WithMimetypeCheck enables warnings for a missing, compressed or wrong
// mimetype file.
func WithMimetypeCheck(enabled bool) Option {
	return func(p *Parser) {
		p.checkMimetype = enabled
	}
}

// Parser parses one EPUB file. A Parser is not safe for concurrent use;
// create one per file.
type Parser struct {
	request       Request
	catalog       diag.Catalog
	log           *slog.Logger
	checkMimetype bool

	stage     Stage
	collector diag.Collector
}

// NewParser returns a parser for req.
func NewParser(req Request, opts ...Option) *Parser {
	p := &Parser{
		request: req,
		catalog: diag.DefaultCatalog(),
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Errors returns the diagnostics of the most recent Execute call.
func (p *Parser) Errors() []diag.Error {
	return p.collector.Errors()
}

// Stage returns how far the most recent Execute call got. StageDone means a
// publication was produced.
func (p *Parser) Stage() Stage {
	return p.stage
}

// Execute parses the request. It returns ErrInvalidEPUB when no publication
// could be produced; a returned EPUB may still come with error diagnostics
// (for example, manifest items missing from the archive), so callers should
// always inspect Errors. Each call starts over.
func (p *Parser) Execute() (*EPUB, error) {
	p.collector.Reset()
	p.stage = StageNotStarted
	log := diag.NewLogger(p.catalog, p.collector.Add, p.log)
	uri := p.request.URI

	p.emit(0.0, log.Format(diag.MsgParseStarting, uri))
	defer p.emit(1.0, log.Format(diag.MsgParseFinishing, uri))

	archive, err := OpenArchive(p.request.Channel, p.request.Size)
	if err != nil {
		log.Exception(xmlpos.At(uri), err)
		return nil, ErrInvalidEPUB
	}
	p.stage = StageArchiveOpened

	if p.checkMimetype {
		p.reportMimetype(log, archive)
	}

	packages := p.findContainer(log, archive)
	if len(packages) == 0 {
		archive.Close()
		return nil, ErrInvalidEPUB
	}
	p.stage = StageContainerLocated

	p.verifyManifests(log, archive, packages)
	p.stage = StageManifestVerified

	p.stage = StageDone
	p.log.Debug("parsed epub", "uri", uri, "packages", len(packages), "diagnostics", len(p.collector.Errors()))
	return newEPUB(archive, packages), nil
}

func (p *Parser) findContainer(log *diag.Logger, archive *Archive) []Package {
	rc, err := archive.Lookup(containerPath)
	if errors.Is(err, ErrFileNotFound) {
		log.Error(p.atFile(containerPath), diag.MsgRequiredFileMissing, containerPath)
		return nil
	}
	if err != nil {
		log.Exception(p.atFile(containerPath), err)
		return nil
	}
	defer rc.Close()

	packages, err := parseContainer(log, archive, p.request.URI, rc)
	if err != nil {
		// Already reported by the container parser.
		p.log.Debug("container rejected", "uri", p.request.URI, "reason", err)
		return nil
	}
	return packages
}

// verifyManifests reports every manifest item whose file is missing from the
// archive. Missing files do not reject the publication.
func (p *Parser) verifyManifests(log *diag.Logger, archive *Archive, packages []Package) {
	total := 0
	for i := range packages {
		total += len(packages[i].Manifest.Items)
	}

	index := 0
	for i := range packages {
		for _, item := range packages[i].Manifest.Items {
			p.emit(float64(index)/float64(total), log.Format(diag.MsgParseCheckingItem, item.RealPath))
			if !archive.Has(item.RealPath) {
				log.Error(p.atFile(item.RealPath), diag.MsgRequiredFileMissing, item.RealPath)
			}
			index++
		}
	}
}

func (p *Parser) reportMimetype(log *diag.Logger, archive *Archive) {
	err := archive.validateMimetype()
	switch {
	case err == nil:
	case errors.Is(err, ErrMimetypeNotFound):
		log.Warning(p.atFile("mimetype"), diag.MsgMimetypeMissing)
	case errors.Is(err, ErrMimetypeCompressed):
		log.Warning(p.atFile("mimetype"), diag.MsgMimetypeCompressed)
	case errors.Is(err, ErrInvalidMimetype):
		content, _ := archive.ReadFile("mimetype")
		log.Warning(p.atFile("mimetype"), diag.MsgMimetypeInvalid, expectedMimetype, string(content))
	default:
		log.Exception(p.atFile("mimetype"), err)
	}
}

func (p *Parser) atFile(name string) xmlpos.Position {
	return xmlpos.At(embeddedURI(p.request.URI, name))
}

func (p *Parser) emit(progress float64, message string) {
	if p.request.Events != nil {
		p.request.Events(Event{Progress: progress, Message: message})
	}
}
