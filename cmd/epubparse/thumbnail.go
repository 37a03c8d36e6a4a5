package main

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/yuanying/epubparse/internal/epub"
)

const (
	defaultThumbQuality = 85
	defaultMaxPixels    = 100 * 1000 * 1000 // 100 megapixels
)

// thumbnailer writes downscaled JPEG copies of cover images.
type thumbnailer struct {
	MaxWidth    int
	JPEGQuality int
	MaxPixels   int // Total pixel count limit for decode (width * height)
}

func newThumbnailer(maxWidth int) *thumbnailer {
	return &thumbnailer{
		MaxWidth:    maxWidth,
		JPEGQuality: defaultThumbQuality,
		MaxPixels:   defaultMaxPixels,
	}
}

// write decodes the cover from book and saves a thumbnail at out.
func (t *thumbnailer) write(book *epub.EPUB, cover epub.ManifestItem, out string) error {
	rc, err := book.OpenFile(cover.RealPath)
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cover.RealPath, err)
	}

	img, err := t.thumbnail(data)
	if err != nil {
		return fmt.Errorf("%s: %w", cover.RealPath, err)
	}
	if err := imaging.Save(img, out, imaging.JPEGQuality(t.JPEGQuality)); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return nil
}

func (t *thumbnailer) thumbnail(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}
	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if t.MaxPixels > 0 && pixels > uint64(t.MaxPixels) {
		return nil, fmt.Errorf("image too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels)
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}
	if t.MaxWidth > 0 && src.Bounds().Dx() > t.MaxWidth {
		return imaging.Resize(src, t.MaxWidth, 0, imaging.Lanczos), nil
	}
	return src, nil
}

// thumbnailName derives the thumbnail file name from the EPUB file name.
func thumbnailName(epubPath string) string {
	base := filepath.Base(epubPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "-cover.jpg"
}

// thumbnailNames assigns every input its own thumbnail file name, in input
// order. Inputs sharing a base name get a numeric suffix ("book-cover-2.jpg").
// Names are compared case-insensitively.
func thumbnailNames(epubPaths []string) []string {
	names := make([]string, len(epubPaths))
	used := make(map[string]bool, len(epubPaths))
	for i, p := range epubPaths {
		name := thumbnailName(p)
		stem := strings.TrimSuffix(name, ".jpg")
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s-%d.jpg", stem, n)
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}
