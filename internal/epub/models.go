package epub

import "golang.org/x/exp/slices"

// Optional is a string that may be absent. An attribute written as name=""
// is present (Valid) with an empty Value.
type Optional struct {
	Value string
	Valid bool
}

// Some returns a present Optional holding v.
func Some(v string) Optional {
	return Optional{Value: v, Valid: true}
}

// Get returns the value and whether it is present.
func (o Optional) Get() (string, bool) {
	return o.Value, o.Valid
}

// Is reports whether o is present and equal to v.
func (o Optional) Is(v string) bool {
	return o.Valid && o.Value == v
}

// Package is one parsed package (OPF) document.
type Package struct {
	// Path is the archive path of the package document.
	Path                      string
	Version                   Optional
	UniqueIdentifierReference string
	Metadata                  Metadata
	Manifest                  Manifest
	Spine                     Spine
}

// Metadata represents the metadata section of a package document.
type Metadata struct {
	Properties       []MetadataProperty
	LegacyProperties []MetadataLegacyProperty
}

// MetadataProperty is a Dublin Core element or an EPUB 3 meta property.
type MetadataProperty struct {
	Name    string
	Value   string
	ID      Optional
	Refines Optional
	Scheme  Optional
}

// MetadataLegacyProperty is an EPUB 2 <meta name="..." content="..."/> pair.
type MetadataLegacyProperty struct {
	Name    string
	Content string
}

// Manifest represents the manifest section in document order.
type Manifest struct {
	Items []ManifestItem
}

// ManifestItem represents an item in the manifest
type ManifestItem struct {
	ID   string
	Href string
	// RealPath is Href resolved against the package document's location,
	// i.e. the archive entry name of the resource.
	RealPath   string
	MediaType  string
	Properties []string
}

// HasProperty reports whether the item declares the given property.
func (m ManifestItem) HasProperty(p string) bool {
	return slices.Contains(m.Properties, p)
}

// Spine represents the reading order.
type Spine struct {
	Items []SpineItem
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	Reference string
	Linear    bool
}

// UniqueIdentifier returns the value of the metadata property named by
// UniqueIdentifierReference. Parsed packages always have one.
func (p *Package) UniqueIdentifier() string {
	i := slices.IndexFunc(p.Metadata.Properties, func(m MetadataProperty) bool {
		return m.ID.Is(p.UniqueIdentifierReference)
	})
	if i < 0 {
		return ""
	}
	return p.Metadata.Properties[i].Value
}

// ManifestItem returns the first manifest item with the given id.
func (p *Package) ManifestItem(id string) (ManifestItem, bool) {
	i := slices.IndexFunc(p.Manifest.Items, func(m ManifestItem) bool {
		return m.ID == id
	})
	if i < 0 {
		return ManifestItem{}, false
	}
	return p.Manifest.Items[i], true
}

// ReadingOrder resolves the spine against the manifest. Spine references
// that name no manifest item are skipped.
func (p *Package) ReadingOrder() []ManifestItem {
	items := make([]ManifestItem, 0, len(p.Spine.Items))
	for _, ref := range p.Spine.Items {
		if item, ok := p.ManifestItem(ref.Reference); ok {
			items = append(items, item)
		}
	}
	return items
}

// PropertiesNamed returns the metadata properties with the given name, e.g.
// "dc:title", in document order.
func (m Metadata) PropertiesNamed(name string) []MetadataProperty {
	var out []MetadataProperty
	for _, p := range m.Properties {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}
