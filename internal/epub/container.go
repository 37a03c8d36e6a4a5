package epub

import (
	"errors"
	"io"

	"github.com/yuanying/epubparse/internal/diag"
	"github.com/yuanying/epubparse/internal/xmlpos"
)

// containerPath is the well-known location of container.xml in an EPUB archive.
const containerPath = "META-INF/container.xml"

// FileRetriever opens files inside an archive by archive path. Lookup fails
// with an error wrapping ErrFileNotFound when there is no such file.
type FileRetriever interface {
	Lookup(name string) (io.ReadCloser, error)
}

// parseContainer reads container.xml from r and parses every package
// document it declares. base is the URI of the archive; diagnostics for
// files inside it are attributed to base + "/" + name.
//
// A non-nil error means the container itself was unusable. Rootfiles that
// fail individually are reported and skipped.
func parseContainer(log *diag.Logger, files FileRetriever, base string, r io.Reader) ([]Package, error) {
	source := embeddedURI(base, containerPath)

	doc, err := xmlpos.Read(source, r)
	if err != nil {
		log.Exception(xmlpos.At(source), err)
		return nil, errNotWellFormed
	}

	root := doc.Root
	if root.LocalName() != "container" {
		log.ElementError(root, diag.MsgRootNotContainer, root.Tag())
		return nil, errMissingElement
	}

	rootFiles, err := requireChildStrict(log, root, "rootfiles")
	if err != nil {
		return nil, err
	}
	rootFileList, err := requireChildren(log, rootFiles, "rootfile")
	if err != nil {
		return nil, err
	}

	packages := make([]Package, 0, len(rootFileList))
	for _, rootFile := range rootFileList {
		fullPath, ok := requireAttr(log, rootFile, "full-path")
		if !ok {
			continue
		}
		name := normalizePath(fullPath)

		pkg, ok := parseRootFile(log, files, base, rootFile, name)
		if ok {
			packages = append(packages, pkg)
		}
	}

	log.Debug("container: parsed", "source", source, "rootfiles", len(rootFileList), "packages", len(packages))
	return packages, nil
}

func parseRootFile(log *diag.Logger, files FileRetriever, base string, rootFile *xmlpos.Element, name string) (Package, bool) {
	rc, err := files.Lookup(name)
	if errors.Is(err, ErrFileNotFound) {
		log.ElementError(rootFile, diag.MsgRootFileNonexistent, name)
		return Package{}, false
	}
	if err != nil {
		log.Exception(rootFile.Pos, err)
		return Package{}, false
	}
	defer rc.Close()

	pkg, err := parsePackage(log, embeddedURI(base, name), name, rc)
	if err != nil {
		log.Debug("container: rootfile rejected", "path", name, "reason", err)
		return Package{}, false
	}
	return *pkg, true
}

func embeddedURI(base, name string) string {
	return base + "/" + name
}
