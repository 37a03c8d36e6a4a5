// Test program for package document parsing
//
// Usage:
//
//	go run ./cmd/test/package_parser/main.go <epub-file-path>
//
// This program will:
// - Parse the container and every package document
// - Print diagnostics with their source positions
// - Display metadata properties and legacy meta entries
// - List manifest items and the reading order
// - Show the unique identifier, UUID and cover image
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/yuanying/epubparse/internal/epub"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <epub-file-path>\n", os.Args[0])
		os.Exit(1)
	}

	epubPath := os.Args[1]

	fmt.Println("=== EPUB Package Parser Test ===")
	fmt.Printf("File: %s\n\n", epubPath)

	f, err := os.Open(epubPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening EPUB: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	req, err := epub.NewFileRequest(f, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening EPUB: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	parser := epub.NewParser(req, epub.WithLogger(logger))
	book, err := parser.Execute()

	fmt.Printf("--- Diagnostics (%d) ---\n", len(parser.Errors()))
	for _, e := range parser.Errors() {
		fmt.Println(e.Show())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError parsing EPUB: %v\n", err)
		os.Exit(1)
	}
	defer book.Close()

	fmt.Printf("\nUnique identifier: %s\n", book.UniqueIdentifier())
	fmt.Printf("UUID:              %s\n", book.UUID())

	for _, pkg := range book.Packages() {
		printPackage(pkg)
	}

	fmt.Println("\n=== Test Completed Successfully ===")
}

func printPackage(pkg epub.Package) {
	fmt.Printf("\n=== Package %s ===\n", pkg.Path)
	if v, ok := pkg.Version.Get(); ok {
		fmt.Printf("Version: %s\n", v)
	}

	fmt.Println("\n--- Metadata ---")
	for _, p := range pkg.Metadata.Properties {
		fmt.Printf("  %s = %q", p.Name, p.Value)
		if id, ok := p.ID.Get(); ok {
			fmt.Printf(" (id: %s)", id)
		}
		if refines, ok := p.Refines.Get(); ok {
			fmt.Printf(" (refines: %s)", refines)
		}
		fmt.Println()
	}
	for _, m := range pkg.Metadata.LegacyProperties {
		fmt.Printf("  <meta> %s = %q\n", m.Name, m.Content)
	}

	fmt.Printf("\n--- Manifest ---\n")
	fmt.Printf("Total items: %d\n\n", len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		fmt.Printf("  %s: %s (%s)", item.ID, item.RealPath, item.MediaType)
		if len(item.Properties) > 0 {
			fmt.Printf(" properties: %v", item.Properties)
		}
		fmt.Println()
	}

	if cover := pkg.DetectCover(); cover != nil {
		fmt.Printf("\nCover Image: %s (via %s)\n", cover.Item.RealPath, cover.DetectionMethod)
	} else {
		fmt.Println("\nCover Image: (not found)")
	}

	fmt.Printf("\n--- Spine ---\n")
	fmt.Println("Reading order:")
	for i, ref := range pkg.Spine.Items {
		linear := "yes"
		if !ref.Linear {
			linear = "no"
		}
		if item, ok := pkg.ManifestItem(ref.Reference); ok {
			fmt.Printf("  %d. %s (linear: %s)\n", i+1, item.RealPath, linear)
		} else {
			fmt.Printf("  %d. [ID: %s - not found in manifest] (linear: %s)\n", i+1, ref.Reference, linear)
		}
	}
}
