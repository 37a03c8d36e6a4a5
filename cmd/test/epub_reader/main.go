// Test program for EPUB archive access
//
// Usage:
//
//	go run ./cmd/test/epub_reader/main.go <epub-file-path> (<archive-path> ...)
//
// This program tests the following functionality:
// - Opening EPUB files (ZIP archive)
// - Locating package documents through container.xml
// - Listing all files in the EPUB
// - Reading file contents through the parsed EPUB
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/yuanying/epubparse/internal/epub"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/test/epub_reader/main.go <epub-file> (<archive-path> ...)")
		os.Exit(1)
	}

	epubPath := os.Args[1]
	filePaths := os.Args[2:]

	fmt.Printf("Opening EPUB file: %s\n", epubPath)
	f, err := os.Open(epubPath)
	if err != nil {
		log.Fatalf("Failed to open EPUB: %v", err)
	}
	defer f.Close()

	req, err := epub.NewFileRequest(f, nil)
	if err != nil {
		log.Fatalf("Failed to open EPUB: %v", err)
	}
	parser := epub.NewParser(req, epub.WithMimetypeCheck(true))
	book, err := parser.Execute()
	for _, e := range parser.Errors() {
		fmt.Fprintln(os.Stderr, e.Show())
	}
	if err != nil {
		log.Fatalf("Failed to parse EPUB: %v", err)
	}
	defer book.Close()

	fmt.Printf("✓ EPUB opened successfully\n")
	for _, pkg := range book.Packages() {
		fmt.Printf("Package: %s\n", pkg.Path)
	}

	entries := book.Entries()
	fmt.Printf("\nTotal files: %d\n", len(entries))
	fmt.Println("\nFile list:")
	for _, name := range entries {
		fmt.Printf("  - %s\n", name)
	}

	for _, filePath := range filePaths {
		fmt.Printf("\nReading file: %s\n", filePath)
		rc, err := book.OpenFile(filePath)
		if err != nil {
			log.Fatalf("Failed to open %s: %v", filePath, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			log.Fatalf("Failed to read %s: %v", filePath, err)
		}
		fmt.Printf("✓ %s read successfully (%d bytes)\n", filePath, len(content))
		fmt.Printf("Content:\n%s\n", string(content))
	}

	fmt.Println("\n✓ All tests passed!")
}
