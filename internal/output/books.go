// Package output persists the enriched record set as a JSON artifact.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shelfmark/shelfmark/internal/books"
)

// WriteBooks writes the record list as pretty-printed JSON. The file is
// staged next to the target and renamed into place so readers never observe
// a half-written artifact.
func WriteBooks(path string, batch []*books.Book) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("encode books: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("stage output file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("publish output file: %w", err)
	}
	return nil
}

// ReadBooks loads a previously written artifact.
func ReadBooks(path string) ([]*books.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read books file: %w", err)
	}
	var out []*books.Book
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode books file: %w", err)
	}
	return out, nil
}
