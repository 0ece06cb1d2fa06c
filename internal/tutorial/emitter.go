package tutorial

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Emit writes the finalized document set into dir. Each file is written to
// a temp file and renamed into place, so a reader never observes a
// partially-written tutorial. A failed write is retried once, then fails
// with an EmitError. Re-running emission for the same document set
// overwrites deterministically.
func Emit(docs []Document, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &EmitError{Path: dir, Err: err}
	}

	for _, doc := range docs {
		path := filepath.Join(dir, doc.Path)
		if err := writeAtomic(path, []byte(doc.Content)); err != nil {
			log.Printf("WARNING: write %s failed, retrying once: %v", path, err)
			if err := writeAtomic(path, []byte(doc.Content)); err != nil {
				return &EmitError{Path: path, Err: err}
			}
		}
	}
	return nil
}

// writeAtomic writes content to a temp file in the target directory and
// renames it over path. Rename within one directory is atomic on POSIX
// filesystems.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
