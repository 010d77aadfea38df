// Package archive backs up and restores book directories as compressed tar
// archives (tar.xz or tar.gz).
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/JuniperChunks/internal/validation"
)

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// NewReader opens a .tar.xz or .tar.gz archive. The compression is checked
// against the file's magic bytes before anything is decompressed.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	ft, err := validation.ValidateFileType(f, path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("rewind archive: %w", err)
	}

	var reader io.Reader
	var decompressor io.Closer
	switch ft {
	case validation.FileTypeTarXZ:
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
	case validation.FileTypeTarGZ:
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		reader, decompressor = gzr, gzr
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported archive format: %s", path)
	}

	return &Reader{
		Reader:       tar.NewReader(reader),
		file:         f,
		decompressor: decompressor,
	}, nil
}

// Close closes the archive reader and any underlying decompressors.
func (r *Reader) Close() error {
	var errs []error
	if r.decompressor != nil {
		if err := r.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Visitor is a callback function for iterating archive entries.
// Return true to stop iteration, false to continue.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks through all entries in the archive, calling the visitor for each.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		stop, err := visitor(header, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// Iterate opens an archive and iterates through its entries.
func Iterate(path string, visitor Visitor) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Iterate(visitor)
}

// List returns the entry names of an archive in stored order.
func List(path string) ([]string, error) {
	var names []string
	err := Iterate(path, func(header *tar.Header, _ io.Reader) (bool, error) {
		names = append(names, header.Name)
		return false, nil
	})
	return names, err
}

// Extract unpacks an archive into dstDir and returns the top-level
// directory names it restored. Entries that would escape dstDir, links and
// files larger than validation.MaxFileSize are rejected.
func Extract(path, dstDir string) ([]string, error) {
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	seen := map[string]bool{}
	var roots []string
	err := Iterate(path, func(header *tar.Header, r io.Reader) (bool, error) {
		rel, err := validation.SanitizePath(dstDir, header.Name)
		if err != nil {
			return true, fmt.Errorf("entry %q: %w", header.Name, err)
		}
		target := filepath.Join(dstDir, rel)

		if root := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]; !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			return false, os.MkdirAll(target, 0755)
		case tar.TypeReg:
			if header.Size > validation.MaxFileSize {
				return true, fmt.Errorf("entry %q: %w", header.Name, validation.ErrFileTooLarge)
			}
			return false, extractFile(target, r, header.Size)
		default:
			return true, fmt.Errorf("entry %q: unsupported type %q", header.Name, string(header.Typeflag))
		}
	})
	if err != nil {
		return nil, err
	}
	return roots, nil
}

func extractFile(target string, r io.Reader, size int64) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(f, r, size); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
