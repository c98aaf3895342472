// Package ingest turns files on disk into parsed, chunked, embedded and
// indexed documents. Every document succeeds or fails on its own; one
// corrupt file never aborts the run.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sitedocs-ai/internal/docparse"
)

// ScannedFile represents a supported document found during a scan.
type ScannedFile struct {
	RelPath string // Relative path from the documents root
	AbsPath string // Absolute file path
	Kind    docparse.FileKind
}

// ScanDocuments walks the documents root and returns every file whose
// extension maps to a supported kind. Hidden directories are skipped.
func ScanDocuments(ctx context.Context, root string) ([]ScannedFile, error) {
	var scanned []ScannedFile

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		kind := docparse.KindForPath(path)
		if kind == docparse.KindUnknown {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		scanned = append(scanned, ScannedFile{
			RelPath: relPath,
			AbsPath: path,
			Kind:    kind,
		})
		return nil
	})

	if err != nil {
		return scanned, fmt.Errorf("failed to scan documents root %s: %w", root, err)
	}

	return scanned, nil
}
