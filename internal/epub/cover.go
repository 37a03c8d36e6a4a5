package epub

// Cover detection methods reported in CoverInfo.DetectionMethod.
const (
	CoverByProperty = "properties"
	CoverByMeta     = "meta"
)

// CoverInfo holds information about the detected cover image.
type CoverInfo struct {
	Item            ManifestItem
	DetectionMethod string
}

// DetectCover finds the cover image of the package. Methods are tried in
// priority order:
//  1. properties="cover-image" on a manifest item (EPUB 3.0)
//  2. meta name="cover" whose content is a manifest item id (EPUB 2.0)
//
// Returns nil if no cover image is found.
func (p *Package) DetectCover() *CoverInfo {
	// Method 1: EPUB 3.0 - check for cover-image property
	for _, item := range p.Manifest.Items {
		if item.HasProperty("cover-image") {
			return &CoverInfo{Item: item, DetectionMethod: CoverByProperty}
		}
	}

	// Method 2: EPUB 2.0 - only the first meta name="cover" counts
	for _, m := range p.Metadata.LegacyProperties {
		if m.Name != "cover" {
			continue
		}
		if item, ok := p.ManifestItem(m.Content); ok {
			return &CoverInfo{Item: item, DetectionMethod: CoverByMeta}
		}
		break
	}

	return nil
}

// CoverImage returns the manifest item of the cover image, if any.
// This is a convenience wrapper around DetectCover.
func (p *Package) CoverImage() (ManifestItem, bool) {
	if c := p.DetectCover(); c != nil {
		return c.Item, true
	}
	return ManifestItem{}, false
}
