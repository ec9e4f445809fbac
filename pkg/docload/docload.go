// Package docload reads documents from disk or streams as plain text. Text
// formats are read as-is and PDFs through their text layer.
package docload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupported is returned for files that are neither text nor PDF.
var ErrUnsupported = errors.New("docload: unsupported file type")

// ErrNoText is returned for PDFs without an extractable text layer.
var ErrNoText = errors.New("docload: no text layer found")

var textExt = []string{".txt", ".md", ".markdown", ".text", ".rst", ".csv", ".json", ".yaml", ".yml", ".log"}

// Document is a loaded file.
type Document struct {
	Name   string
	Source string
	Text   string
}

// Load reads the file at path. "-" reads standard input.
func Load(path string) (Document, error) {
	if path == "-" {
		return Read(os.Stdin, "stdin")
	}

	data, err := os.ReadFile(path) //nolint:gosec // caller chooses the file
	if err != nil {
		return Document{}, fmt.Errorf("docload: %w", err)
	}

	text, err := decode(data, filepath.Ext(path))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s", err, path)
	}

	return Document{Name: filepath.Base(path), Source: path, Text: text}, nil
}

// Read loads a document from r. PDFs are recognized by their header.
func Read(r io.Reader, name string) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("docload: read %s: %w", name, err)
	}

	text, err := decode(data, filepath.Ext(name))
	if err != nil {
		return Document{}, err
	}

	return Document{Name: name, Source: name, Text: text}, nil
}

func decode(data []byte, ext string) (string, error) {
	ext = strings.ToLower(ext)

	switch {
	case ext == ".pdf" || bytes.HasPrefix(data, []byte("%PDF-")):
		return PDFText(data)
	case slices.Contains(textExt, ext), utf8.Valid(data):
		return string(data), nil
	default:
		return "", ErrUnsupported
	}
}

// PDFText extracts the plain text layer of a PDF.
func PDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docload: open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("docload: pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("docload: pdf text: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", ErrNoText
	}

	return text, nil
}

// Supported reports whether path has a loadable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pdf" || slices.Contains(textExt, ext)
}

// LoadAll loads each path. A directory is walked for supported files.
func LoadAll(paths ...string) ([]Document, error) {
	var docs []Document

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("docload: %w", err)
		}

		if !info.IsDir() {
			d, err := Load(p)
			if err != nil {
				return nil, err
			}
			docs = append(docs, d)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !Supported(path) {
				return nil
			}

			doc, err := Load(path)
			if err != nil {
				return err
			}
			docs = append(docs, doc)

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return docs, nil
}
