package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Archive suffixes understood by Create and NewReader.
const (
	SuffixTarXz = ".tar.xz"
	SuffixTarGz = ".tar.gz"
)

// Create writes a compressed tar of srcDir to dstPath, compressing with xz or
// gzip according to the dstPath suffix. Entries are stored under baseDir.
// Hidden files (including in-flight ".tmp-*" writes) are skipped.
func Create(srcDir, dstPath, baseDir string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	outFile, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer outFile.Close()

	var compressor io.WriteCloser
	switch {
	case strings.HasSuffix(dstPath, SuffixTarXz):
		compressor, err = xz.NewWriter(outFile)
		if err != nil {
			return fmt.Errorf("xz writer: %w", err)
		}
	case strings.HasSuffix(dstPath, SuffixTarGz):
		compressor = gzip.NewWriter(outFile)
	default:
		return fmt.Errorf("unsupported archive format: %s", dstPath)
	}

	tw := tar.NewWriter(compressor)
	if err := writeTree(tw, srcDir, baseDir); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("failed to finish compression: %w", err)
	}
	return outFile.Close()
}

// CreateTarXz archives a book directory as <dstPath>, stored under the
// directory's own name.
func CreateTarXz(srcDir, dstPath string) error {
	if !strings.HasSuffix(dstPath, SuffixTarXz) {
		return fmt.Errorf("archive path must end in %s: %s", SuffixTarXz, dstPath)
	}
	return Create(srcDir, dstPath, filepath.Base(srcDir))
}

// CreateTarGz archives a book directory as a gzip-compressed tar.
func CreateTarGz(srcDir, dstPath string) error {
	if !strings.HasSuffix(dstPath, SuffixTarGz) {
		return fmt.Errorf("archive path must end in %s: %s", SuffixTarGz, dstPath)
	}
	return Create(srcDir, dstPath, filepath.Base(srcDir))
}

func writeTree(tw *tar.Writer, srcDir, baseDir string) error {
	now := time.Now()

	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		// Skip root directory
		if relPath == "." {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}

		header.Name = baseDir + "/" + filepath.ToSlash(relPath)
		if info.IsDir() {
			header.Name += "/"
		}
		header.ModTime = now

		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(tw, file)
		return err
	})
}

// BackupName strips the archive suffix from a file name.
func BackupName(filename string) string {
	base := filepath.Base(filename)
	for _, ext := range []string{SuffixTarXz, SuffixTarGz, ".tar"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}
