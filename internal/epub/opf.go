package epub

import (
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/yuanying/epubparse/internal/diag"
	"github.com/yuanying/epubparse/internal/xmlpos"
)

// parsePackage parses the package document in r. source names the document
// in diagnostics; packagePath is its archive path, against which manifest
// hrefs are resolved.
//
// Missing metadata, manifest or spine, or a unique-identifier that names no
// metadata property, reject the package. All three sections are still parsed
// first so that their diagnostics surface in a single pass.
func parsePackage(log *diag.Logger, source, packagePath string, r io.Reader) (*Package, error) {
	doc, err := xmlpos.Read(source, r)
	if err != nil {
		log.Exception(xmlpos.At(source), err)
		return nil, errNotWellFormed
	}

	root := doc.Root
	if root.LocalName() != "package" {
		log.ElementError(root, diag.MsgRootNotPackage, root.Tag())
		return nil, errMissingElement
	}

	uniqueIDRef, hasUniqueIDRef := requireAttr(log, root, "unique-identifier")

	metadataEl, metadataOK := requireChild(log, root, "metadata")
	manifestEl, manifestOK := requireChild(log, root, "manifest")
	spineEl, spineOK := requireChild(log, root, "spine")

	pkg := &Package{
		Path:                      packagePath,
		Version:                   optionalAttr(root, "version"),
		UniqueIdentifierReference: uniqueIDRef,
	}

	if metadataOK {
		pkg.Metadata = parseMetadata(log, metadataEl)
		metadataOK = hasUniqueIDRef && resolveUniqueIdentifier(log, root, uniqueIDRef, pkg.Metadata)
	}
	if manifestOK {
		pkg.Manifest = parseManifest(log, packagePath, manifestEl)
	}
	if spineOK {
		pkg.Spine = parseSpine(log, spineEl)
	}

	if !metadataOK || !manifestOK || !spineOK {
		return nil, errInvalidPackage
	}
	return pkg, nil
}

func parseMetadata(log *diag.Logger, metadataEl *xmlpos.Element) Metadata {
	var md Metadata

	for _, el := range metadataEl.Children {
		switch el.LocalName() {
		case "meta":
			// EPUB 2.0: <meta name="..." content="..."/>
			name, hasName := el.Attr("name")
			content, hasContent := el.Attr("content")
			if hasName && hasContent {
				md.LegacyProperties = append(md.LegacyProperties, MetadataLegacyProperty{
					Name:    strings.TrimSpace(name),
					Content: strings.TrimSpace(content),
				})
				continue
			}

			// EPUB 3.0: <meta property="...">value</meta>
			property, ok := requireAttr(log, el, "property")
			if !ok {
				continue
			}
			prop := MetadataProperty{
				Name:    property,
				Value:   el.Text(),
				ID:      optionalAttr(el, "id"),
				Refines: optionalAttr(el, "refines"),
				Scheme:  optionalAttr(el, "scheme"),
			}
			log.Debug("metadata: property", "name", prop.Name, "value", prop.Value)
			md.Properties = append(md.Properties, prop)

		case "link":
			// Links carry no property value.

		default:
			// Anything else is treated as a Dublin Core element.
			prop := MetadataProperty{
				Name:  el.Tag(),
				Value: el.Text(),
				ID:    optionalAttr(el, "id"),
			}
			log.Debug("metadata: property", "name", prop.Name, "value", prop.Value)
			md.Properties = append(md.Properties, prop)
		}
	}

	return md
}

// resolveUniqueIdentifier checks that ref names a metadata property.
func resolveUniqueIdentifier(log *diag.Logger, packageEl *xmlpos.Element, ref string, md Metadata) bool {
	for _, p := range md.Properties {
		if p.ID.Is(ref) {
			return true
		}
	}
	log.ElementError(packageEl, diag.MsgUniqueIDMissing, ref)
	return false
}

func parseManifest(log *diag.Logger, packagePath string, manifestEl *xmlpos.Element) Manifest {
	manifest := Manifest{Items: make([]ManifestItem, 0, len(manifestEl.Children))}

	for _, el := range manifestEl.Children {
		if el.LocalName() != "item" {
			log.ElementError(el, diag.MsgUnexpectedElement, "manifest", el.Tag())
			continue
		}

		href, ok := requireAttr(log, el, "href")
		if !ok {
			continue
		}
		id, ok := requireAttr(log, el, "id")
		if !ok {
			continue
		}
		mediaType, ok := requireAttr(log, el, "media-type")
		if !ok {
			continue
		}
		properties, _ := el.Attr("properties")

		item := ManifestItem{
			ID:         id,
			Href:       href,
			RealPath:   resolveHref(packagePath, href),
			MediaType:  mediaType,
			Properties: splitProperties(properties),
		}
		log.Debug("manifest: item", "id", item.ID, "path", item.RealPath, "media_type", item.MediaType)
		manifest.Items = append(manifest.Items, item)
	}

	return manifest
}

func parseSpine(log *diag.Logger, spineEl *xmlpos.Element) Spine {
	spine := Spine{Items: make([]SpineItem, 0, len(spineEl.Children))}

	for _, el := range spineEl.Children {
		if el.LocalName() != "itemref" {
			log.ElementError(el, diag.MsgUnexpectedElement, "spine", el.Tag())
			continue
		}

		idref, ok := requireAttr(log, el, "idref")
		if !ok {
			continue
		}
		linear, _ := el.Attr("linear")

		item := SpineItem{
			Reference: idref,
			Linear:    strings.TrimSpace(linear) != "no",
		}
		log.Debug("spine: item", "idref", item.Reference)
		spine.Items = append(spine.Items, item)
	}

	return spine
}

// resolveHref resolves a manifest href against the archive path of the
// package document. Hrefs with a scheme or host are returned unchanged.
func resolveHref(packagePath, href string) string {
	ref := href
	if u, err := url.Parse(href); err == nil {
		if u.Scheme != "" || u.Host != "" {
			return href
		}
		ref = u.Path
	}

	if strings.HasPrefix(ref, "/") {
		return strings.TrimPrefix(path.Clean(ref), "/")
	}
	return path.Join(path.Dir(packagePath), ref)
}

// splitProperties splits a space-separated properties attribute, dropping
// duplicates.
func splitProperties(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	out := fields[:0]
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
