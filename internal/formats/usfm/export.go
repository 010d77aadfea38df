package usfm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/FocuswithJustin/JuniperChunks/core/chunkid"
	"github.com/FocuswithJustin/JuniperChunks/core/errors"
	"github.com/FocuswithJustin/JuniperChunks/core/translation"
	"github.com/FocuswithJustin/JuniperChunks/core/usfm"
	"github.com/FocuswithJustin/JuniperChunks/internal/fileutil"
	"github.com/FocuswithJustin/JuniperChunks/internal/logging"
)

// writeFile is a variable to allow testing of write failures.
var writeFile = fileutil.WriteAtomic

// BookReader is the part of the chunk store the exporter reads.
type BookReader interface {
	ChapterIDs() ([]string, error)
	ChunkIDs(chapterID string) ([]string, error)
	ReadChunk(chapterID, chunkID string) (string, error)
	Chapter(chapterID string) (*translation.ChapterTranslation, error)
}

// Metadata is the book and language information written to the header.
type Metadata struct {
	Code         string
	Title        string
	Name         string
	Abbreviation string
	LanguageID   string
	LanguageName string
}

// MetadataFromManifest builds header metadata from a book manifest.
func MetadataFromManifest(m *translation.Manifest) Metadata {
	return Metadata{
		Code:         strings.ToUpper(m.BookCode),
		Title:        m.Title(),
		Name:         m.Name(),
		Abbreviation: m.Abbreviation,
		LanguageID:   m.LanguageID,
		LanguageName: m.LanguageName,
	}
}

// ExportStats counts what an export emitted.
type ExportStats struct {
	Chapters int
	Chunks   int
}

// Export writes the book read from store as one USFM document.
func Export(w io.Writer, store BookReader, meta Metadata) (ExportStats, error) {
	var buf bytes.Buffer
	stats, err := render(&buf, store, meta)
	if err != nil {
		return stats, err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return stats, errors.NewIO("write", "", err)
	}
	return stats, nil
}

// ExportFile renders the book and commits it to path in one atomic write.
// On any failure path is left as it was.
func ExportFile(ctx context.Context, store BookReader, path string, meta Metadata) (ExportStats, error) {
	start := time.Now()
	var buf bytes.Buffer
	stats, err := render(&buf, store, meta)
	if err != nil {
		return stats, err
	}
	if err := writeFile(path, buf.Bytes(), 0644); err != nil {
		return stats, errors.NewIO("write", path, err)
	}
	logging.BookExported(ctx, meta.Code, path, stats.Chapters, stats.Chunks, time.Since(start))
	return stats, nil
}

// ExportBook exports the book directory bookDir to path. Language values in
// lang fill in what the manifest does not record.
func ExportBook(ctx context.Context, bookDir, path string, lang Metadata) (ExportStats, error) {
	store, err := translation.Open(bookDir)
	if err != nil {
		return ExportStats{}, err
	}
	meta := Metadata{Code: strings.ToUpper(filepath.Base(bookDir))}
	m, err := store.Manifest()
	switch {
	case err == nil:
		meta = MetadataFromManifest(m)
	case errors.Is(err, errors.ErrNotFound):
		logging.WarnContext(ctx, "manifest_missing", "book_dir", bookDir)
		known, _ := usfm.BookName(meta.Code)
		meta.Title, meta.Name = known, known
	default:
		return ExportStats{}, err
	}
	if meta.LanguageID == "" {
		meta.LanguageID = lang.LanguageID
	}
	if meta.LanguageName == "" {
		meta.LanguageName = lang.LanguageName
	}
	return ExportFile(ctx, store, path, meta)
}

func render(buf *bytes.Buffer, store BookReader, meta Metadata) (ExportStats, error) {
	var stats ExportStats
	writeHeader(buf, meta)

	chapters, err := store.ChapterIDs()
	if err != nil {
		return stats, err
	}
	chunkid.SortChapters(chapters)

	for _, chID := range chapters {
		if !chunkid.IsNumeric(chID) {
			continue
		}
		number := chunkid.ChapterOrder(chID)
		ch, err := store.Chapter(chID)
		if err != nil {
			return stats, err
		}
		if number > 0 {
			fmt.Fprintf(buf, "\\s5\n\\c %d\n", number)
			if ch.Title != "" {
				fmt.Fprintf(buf, "\\cl %s\n", strings.TrimSpace(ch.Title))
			}
			if ch.Reference != "" {
				fmt.Fprintf(buf, "\\cd %s\n", strings.TrimSpace(ch.Reference))
			}
		}
		buf.WriteString("\\p\n")

		ids, err := store.ChunkIDs(chID)
		if err != nil {
			return stats, err
		}
		chunkid.Sort(ids)
		if len(ids) > 0 && chunkid.Order(ids[0]) == chunkid.Unknown {
			ids = ids[1:]
		}
		for i, id := range ids {
			body, err := store.ReadChunk(chID, id)
			if err != nil {
				return stats, errors.InChunk(chID, id, err)
			}
			if i > 0 {
				buf.WriteString("\\s5\n")
			}
			buf.WriteString(body)
			if !strings.HasSuffix(body, "\n") {
				buf.WriteByte('\n')
			}
			stats.Chunks++
		}
		stats.Chapters++
	}
	return stats, nil
}

func writeHeader(buf *bytes.Buffer, meta Metadata) {
	code := strings.ToUpper(meta.Code)
	abbr := meta.Abbreviation
	if abbr == "" {
		abbr = strings.ToLower(code)
	}

	var desc []string
	for _, v := range []string{meta.Title, meta.Name, meta.LanguageID, meta.LanguageName} {
		if v = strings.TrimSpace(v); v != "" {
			desc = append(desc, v)
		}
	}
	writeMarker(buf, "id", strings.TrimSpace(code+" "+strings.Join(desc, ", ")))
	writeMarker(buf, "ide", "usfm")
	writeMarker(buf, "h", meta.Name)
	writeMarker(buf, "toc1", meta.Title)
	writeMarker(buf, "toc2", meta.Name)
	writeMarker(buf, "toc3", abbr)
	writeMarker(buf, "mt", meta.Title)
}

// writeMarker writes one header line; an empty value leaves the bare marker.
func writeMarker(buf *bytes.Buffer, marker, value string) {
	buf.WriteByte('\\')
	buf.WriteString(marker)
	if value = strings.TrimSpace(value); value != "" {
		buf.WriteByte(' ')
		buf.WriteString(value)
	}
	buf.WriteByte('\n')
}
