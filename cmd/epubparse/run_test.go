package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/yuanying/epubparse/internal/epub"
)

const testOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="bookid">urn:uuid:12345</dc:identifier>
    <dc:title>Test Book</dc:title>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="cover" href="cover.png" media-type="image/png" properties="cover-image"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
  </spine>
</package>`

const testContainer = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() failed: %v", err)
	}
	return buf.Bytes()
}

// writeEPUB creates an EPUB at dir/name. files maps entry names to content;
// the mimetype entry is added first, stored.
func writeEPUB(t *testing.T, dir, name string, files map[string][]byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("failed to create mimetype: %v", err)
	}
	if _, err := mw.Write([]byte("application/epub+zip")); err != nil {
		t.Fatalf("failed to write mimetype: %v", err)
	}
	for entry, body := range files {
		fw, err := w.Create(entry)
		if err != nil {
			t.Fatalf("failed to create %s: %v", entry, err)
		}
		if _, err := fw.Write(body); err != nil {
			t.Fatalf("failed to write %s: %v", entry, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return path
}

func validBookFiles(t *testing.T) map[string][]byte {
	t.Helper()
	return map[string][]byte{
		"META-INF/container.xml": []byte(testContainer),
		"OEBPS/content.opf":      []byte(testOPF),
		"OEBPS/ch1.xhtml":        []byte(`<html xmlns="http://www.w3.org/1999/xhtml"><body/></html>`),
		"OEBPS/cover.png":        testPNG(t, 64, 32),
	}
}

func testOptions(inputs ...string) cliOptions {
	return cliOptions{
		Inputs:     inputs,
		Jobs:       2,
		ThumbWidth: defaultThumbWidth,
		Logger:     slog.New(slog.DiscardHandler),
	}
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{
		filepath.Join(dir, "b.epub"),
		filepath.Join(dir, "a.EPUB"),
		filepath.Join(dir, "notes.txt"),
		filepath.Join(sub, "c.epub"),
	} {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	single := filepath.Join(dir, "notes.txt")

	got, err := collectInputs([]string{dir, single})
	if err != nil {
		t.Fatalf("collectInputs() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.EPUB"),
		filepath.Join(dir, "b.epub"),
		filepath.Join(sub, "c.epub"),
		single,
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("collectInputs() = %v, want %v", got, want)
	}

	if _, err := collectInputs([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Fatal("collectInputs() should fail for a missing input")
	}
}

func TestRunParse_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeEPUB(t, dir, "book.epub", validBookFiles(t))

	var stdout, stderr bytes.Buffer
	opts := testOptions(path)
	opts.Progress = true
	opts.Strict = true
	if err := runParse(context.Background(), opts, &stdout, &stderr); err != nil {
		t.Fatalf("runParse() error = %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{
		path,
		"Epub: urn:uuid:12345",
		"UUID: 7bacc2ec-10b4-352a-9c40-c455597dee18",
		"Cover: OEBPS/cover.png",
		strings.Repeat("#", progressWidth) + "\n",
		"Processed 1 epub files.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want empty", stderr.String())
	}
}

func TestRunParse_StrictFailsOnErrors(t *testing.T) {
	dir := t.TempDir()
	files := validBookFiles(t)
	delete(files, "OEBPS/ch1.xhtml")
	writeEPUB(t, dir, "broken.epub", files)
	writeEPUB(t, dir, "good.epub", validBookFiles(t))

	var stdout, stderr bytes.Buffer
	if err := runParse(context.Background(), testOptions(dir), &stdout, &stderr); err != nil {
		t.Fatalf("runParse() without --strict error = %v", err)
	}
	if !strings.Contains(stderr.String(), "/OEBPS/ch1.xhtml:0:0: The required file OEBPS/ch1.xhtml does not exist in the archive.") {
		t.Errorf("stderr missing diagnostic:\n%s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "Processed 2 epub files.") {
		t.Errorf("stdout missing summary:\n%s", stdout.String())
	}

	opts := testOptions(dir)
	opts.Strict = true
	err := runParse(context.Background(), opts, &stdout, &stderr)
	var exitErr *exitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("runParse() with --strict error = %v, want exit status 1", err)
	}
}

func TestRunParse_NotAnEPUB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.epub")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := runParse(context.Background(), testOptions(path), &stdout, &stderr); err != nil {
		t.Fatalf("runParse() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "Not a usable EPUB.") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if !strings.HasPrefix(stderr.String(), "error: file://") {
		t.Errorf("stderr = %q, want a diagnostic for the file", stderr.String())
	}
}

func TestRunParse_CoverThumbnail(t *testing.T) {
	dir := t.TempDir()
	files := validBookFiles(t)
	files["OEBPS/cover.png"] = testPNG(t, 200, 100)
	path := writeEPUB(t, dir, "book.epub", files)
	coverDir := filepath.Join(dir, "covers")

	var stdout, stderr bytes.Buffer
	opts := testOptions(path)
	opts.CoverDir = coverDir
	opts.ThumbWidth = 50
	if err := runParse(context.Background(), opts, &stdout, &stderr); err != nil {
		t.Fatalf("runParse() error = %v", err)
	}

	thumb := filepath.Join(coverDir, "book-cover.jpg")
	img, err := imaging.Open(thumb)
	if err != nil {
		t.Fatalf("failed to open thumbnail: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
		t.Errorf("thumbnail size = %dx%d, want 50x25", b.Dx(), b.Dy())
	}
	if !strings.Contains(stdout.String(), "Thumbnail: "+thumb) {
		t.Errorf("stdout missing thumbnail line:\n%s", stdout.String())
	}
}

func TestRunParse_CoverThumbnailsSameName(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, sub := range []string{"a", "b"} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
		files := validBookFiles(t)
		files["OEBPS/cover.png"] = testPNG(t, 40+i*20, 20)
		paths = append(paths, writeEPUB(t, filepath.Join(dir, sub), "book.epub", files))
	}
	coverDir := filepath.Join(dir, "covers")

	var stdout, stderr bytes.Buffer
	opts := testOptions(dir)
	opts.CoverDir = coverDir
	opts.ThumbWidth = 1000
	if err := runParse(context.Background(), opts, &stdout, &stderr); err != nil {
		t.Fatalf("runParse() error = %v", err)
	}

	entries, err := os.ReadDir(coverDir)
	if err != nil {
		t.Fatalf("failed to read cover directory: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("thumbnails written = %d, want 2", len(entries))
	}

	// Inputs are walked in sorted order, so a/ keeps the plain name.
	for i, want := range []struct {
		name  string
		width int
	}{
		{"book-cover.jpg", 40},
		{"book-cover-2.jpg", 60},
	} {
		thumb := filepath.Join(coverDir, want.name)
		img, err := imaging.Open(thumb)
		if err != nil {
			t.Fatalf("failed to open thumbnail for %s: %v", paths[i], err)
		}
		if got := img.Bounds().Dx(); got != want.width {
			t.Errorf("%s width = %d, want %d", want.name, got, want.width)
		}
		if !strings.Contains(stdout.String(), "Thumbnail: "+thumb+"\n") {
			t.Errorf("stdout missing thumbnail line for %s:\n%s", thumb, stdout.String())
		}
	}
}

func TestThumbnailNames(t *testing.T) {
	got := thumbnailNames([]string{
		"/a/book.epub",
		"/b/book.epub",
		"/c/Book.EPUB",
		"/d/book-cover-2.epub",
		"/e/other.epub",
	})
	want := []string{
		"book-cover.jpg",
		"book-cover-2.jpg",
		"Book-cover-3.jpg",
		"book-cover-2-cover.jpg",
		"other-cover.jpg",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("thumbnailNames() = %v, want %v", got, want)
	}
}

func TestThumbnailer_RejectsHugeImages(t *testing.T) {
	th := newThumbnailer(10)
	th.MaxPixels = 100
	if _, err := th.thumbnail(testPNG(t, 20, 20)); err == nil {
		t.Fatal("thumbnail() should reject images over the pixel limit")
	}
	if _, err := th.thumbnail([]byte("not an image")); err == nil {
		t.Fatal("thumbnail() should fail for undecodable data")
	}
}

func TestProgressBar(t *testing.T) {
	var b progressBar
	for _, p := range []float64{0, 0.25, 0.5, 1} {
		b.update(epub.Event{Progress: p})
	}
	if got, want := b.String(), strings.Repeat("#", progressWidth)+"\n"; got != want {
		t.Errorf("progress bar = %q, want %q", got, want)
	}
}

func TestThumbnailName(t *testing.T) {
	if got := thumbnailName("/books/My Book.epub"); got != "My Book-cover.jpg" {
		t.Errorf("thumbnailName() = %q", got)
	}
}
