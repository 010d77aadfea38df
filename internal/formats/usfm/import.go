// Package usfm imports USFM documents into chunked book directories and
// exports chunked books back to a single USFM document.
package usfm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/JuniperChunks/core/chunkid"
	"github.com/FocuswithJustin/JuniperChunks/core/errors"
	"github.com/FocuswithJustin/JuniperChunks/core/translation"
	"github.com/FocuswithJustin/JuniperChunks/core/usfm"
	"github.com/FocuswithJustin/JuniperChunks/internal/logging"
	"github.com/FocuswithJustin/JuniperChunks/internal/validation"
	"github.com/FocuswithJustin/JuniperChunks/internal/workerpool"
)

// Chunking selects which verse markers start a new chunk.
type Chunking int

const (
	// ChunkByVerse starts a chunk at every verse.
	ChunkByVerse Chunking = iota
	// ChunkBySection starts a chunk at the first verse after each \s5.
	ChunkBySection
)

// ParseChunking maps "verse" and "section" to a Chunking.
func ParseChunking(s string) (Chunking, error) {
	switch strings.ToLower(s) {
	case "", "verse":
		return ChunkByVerse, nil
	case "section":
		return ChunkBySection, nil
	}
	return ChunkByVerse, errors.NewValidation("chunking", fmt.Sprintf("unknown chunking mode %q", s))
}

// ChunkMap lists, per chapter number, the verses that start a chunk.
type ChunkMap map[int][]int

// LoadChunkMap reads a YAML chunk map of the form "1: [1, 4, 9]".
func LoadChunkMap(path string) (ChunkMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	var m ChunkMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.NewParse("chunk map", path, err.Error())
	}
	return m, nil
}

func (m ChunkMap) starts(chapter int) (map[int]bool, bool) {
	verses, ok := m[chapter]
	if !ok {
		return nil, false
	}
	set := make(map[int]bool, len(verses))
	for _, v := range verses {
		set[v] = true
	}
	return set, true
}

// Options configure an import.
type Options struct {
	// Title replaces the book title found in the document.
	Title string
	// BookCode names books whose \id marker is missing or unusable.
	BookCode string
	// LanguageID and LanguageName are recorded in the book manifest.
	LanguageID   string
	LanguageName string

	Chunking Chunking
	ChunkMap ChunkMap
	Policy   Policy
}

// Importer writes imported books below a projects directory, one directory
// per book named by its lowercase book code.
type Importer struct {
	outDir string
	opts   Options
}

// NewImporter returns an importer writing to outDir.
func NewImporter(outDir string, opts Options) *Importer {
	return &Importer{outDir: outDir, opts: opts}
}

// Parse splits a document into books, chapters and chunks without touching
// the filesystem. Book directories are never set.
func Parse(text, sourceFile string, opts Options) *ImportResult {
	res := &ImportResult{SourceFile: sourceFile, Success: true}
	for _, span := range usfm.Books(text) {
		b := parseBook(span.Text(text), sourceFile, opts)
		if b.Code == "" {
			res.MissingNames = append(res.MissingNames, MissingNameItem{
				Description: fmt.Sprintf("no book id in %s", sourceFile),
				SourceFile:  sourceFile,
			})
		}
		b.Success = !b.HasFatal() && b.Code != ""
		if !b.Success {
			res.Success = false
		}
		res.Books = append(res.Books, b)
	}
	return res
}

// Import parses text and writes every book that has no fatal problem.
// Books with fatal problems leave their directory untouched.
func (im *Importer) Import(ctx context.Context, text, sourceFile string) *ImportResult {
	res := Parse(text, sourceFile, im.opts)
	for _, b := range res.Books {
		logging.DebugContext(ctx, "book_parsed", "book", b.Code, "source_file", sourceFile,
			"chapters", len(b.Chapters), "verses", b.Verses)
		if !b.Success {
			logging.ImportFailed(ctx, b.Code, sourceFile, len(b.Problems))
			continue
		}
		if err := im.writeBook(b); err != nil {
			b.Problems = append(b.Problems, Problem{Kind: KindWriteFailed, Detail: err.Error(), Fatal: true})
			b.Success = false
			res.Success = false
			logging.ErrorContext(ctx, "book_write_failed", "book", b.Code, "error", err.Error())
			continue
		}
		logging.BookImported(ctx, b.Code, sourceFile, b.Chunks(), len(b.Problems), "dir", b.Dir)
	}
	return res
}

// ImportFile reads and imports one USFM file.
func (im *Importer) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	text, err := readSource(path)
	if err != nil {
		return nil, err
	}
	return im.Import(ctx, text, filepath.Base(path)), nil
}

// FileResult pairs a source path with its import outcome.
type FileResult struct {
	Path   string
	Result *ImportResult
	Err    error
}

// ImportFiles imports several files on up to workers goroutines. Results are
// returned in the order of paths. Two files holding the same book must not
// be imported in one call.
func (im *Importer) ImportFiles(ctx context.Context, paths []string, workers int) ([]FileResult, error) {
	return workerpool.Map(ctx, workers, paths, func(ctx context.Context, path string) FileResult {
		res, err := im.ImportFile(ctx, path)
		return FileResult{Path: path, Result: res, Err: err}
	})
}

func readSource(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFound("file", path)
		}
		return "", errors.NewIO("open", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.NewIO("stat", path, err)
	}
	if info.Size() > validation.MaxFileSize {
		return "", &errors.ValidationError{Field: "file", Value: path, Message: validation.ErrFileTooLarge.Error()}
	}
	ft, err := validation.ValidateFileType(f, path)
	if err != nil {
		return "", &errors.ValidationError{Field: "file", Value: path, Message: err.Error()}
	}
	if ft != validation.FileTypeText {
		return "", errors.NewUnsupported("import", fmt.Sprintf("%s is not a text file", path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewIO("read", path, err)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func (im *Importer) writeBook(b *BookResult) error {
	dir := filepath.Join(im.outDir, strings.ToLower(b.Code))
	store, err := translation.Create(dir)
	if err != nil {
		return err
	}
	if err := store.RemoveChapters(); err != nil {
		return err
	}
	for _, ch := range b.Chapters {
		for _, c := range ch.Chunks {
			if err := store.WriteChunk(ch.ID, c.ID, c.Body); err != nil {
				return err
			}
		}
		if ch.Title != "" || ch.Reference != "" {
			err := store.WriteChapter(&translation.ChapterTranslation{
				ID:        ch.ID,
				Title:     ch.Title,
				Reference: ch.Reference,
				Format:    translation.FormatUSFM,
			})
			if err != nil {
				return err
			}
		}
	}

	m := translation.NewManifest(b.Code)
	m.BookName = b.Name
	m.BookTitle = b.Title
	m.Abbreviation = b.Abbreviation
	m.LanguageID = im.opts.LanguageID
	m.LanguageName = im.opts.LanguageName
	m.SourceFile = b.SourceFile
	if err := store.WriteManifest(m); err != nil {
		return err
	}
	b.Dir = dir
	return nil
}

func parseBook(text, sourceFile string, opts Options) *BookResult {
	b := &BookResult{SourceFile: sourceFile}

	code, _, ok := usfm.BookID(text)
	switch {
	case !ok || validation.ValidateIdentifier(code) != nil:
		b.Problems = append(b.Problems, Problem{Kind: KindMissingBookID, Detail: sourceFile})
		code = strings.ToUpper(opts.BookCode)
	case !usfm.IsBookCode(code):
		b.Problems = append(b.Problems, Problem{Kind: KindUnknownBookCode, Detail: code})
	}
	b.Code = code

	known, _ := usfm.BookName(code)
	b.Name = firstNonEmpty(usfm.TOC(text, 2), usfm.Header(text), known, code)
	b.Title = firstNonEmpty(opts.Title, usfm.TOC(text, 1), usfm.MainTitle(text), b.Name)
	b.Abbreviation = usfm.TOC(text, 3)

	chapters := usfm.Chapters(text)
	if len(chapters) == 0 {
		b.Problems = append(b.Problems, Problem{Kind: KindNoChapters})
		finish(b, opts.Policy)
		return b
	}
	for i := 1; i < len(chapters); i++ {
		if chapters[i].Number <= chapters[i-1].Number {
			b.Problems = append(b.Problems, Problem{
				Kind:   KindChaptersOutOfOrder,
				Detail: fmt.Sprintf("chapter %d follows chapter %d", chapters[i].Number, chapters[i-1].Number),
			})
			finish(b, opts.Policy)
			return b
		}
	}

	front := frontMatter(text[:chapters[0].Start])
	if front != "" && chapters[0].Number != 0 {
		b.Chapters = append(b.Chapters, &Chapter{
			ID:     chunkid.FromInt(0),
			Chunks: []Chunk{{ID: chunkid.Front, Body: front}},
		})
	}

	for i, mark := range chapters {
		body := mark.Body.Text(text)
		if i == 0 && mark.Number == 0 {
			// An explicit \c 0 owns the front matter.
			body = front + body
		}
		ch := parseChapter(mark, body, opts, b)
		b.Verses += ch.Verses
		b.Chapters = append(b.Chapters, ch)
	}
	if b.Verses == 0 {
		b.Problems = append(b.Problems, Problem{Kind: KindNoVersesInBook})
	}

	finish(b, opts.Policy)
	return b
}

func finish(b *BookResult, policy Policy) {
	for i := range b.Problems {
		b.Problems[i].Fatal = policy.IsFatal(b.Problems[i].Kind)
	}
}

// frontMatter returns the content before the first chapter once the
// identification lines, section markers and the paragraph marker the
// exporter writes are removed. Empty when nothing is left.
func frontMatter(text string) string {
	text = usfm.StripSections(usfm.StripHeader(text))
	text = usfm.StripParagraph(text)
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return text
}

// splitSegments cuts a chapter body at its \s5 markers, dropping the
// markers themselves.
func splitSegments(body string) []string {
	var segs []string
	pos := 0
	for _, s := range usfm.Sections(body) {
		segs = append(segs, body[pos:s.Start])
		pos = s.End
	}
	return append(segs, body[pos:])
}

func parseChapter(mark usfm.ChapterMark, body string, opts Options, b *BookResult) *Chapter {
	ch := &Chapter{ID: chunkid.FromInt(mark.Number), Number: mark.Number}
	report := func(kind Kind, chunk, detail string) {
		b.Problems = append(b.Problems, Problem{Kind: kind, Chapter: ch.ID, Chunk: chunk, Detail: detail})
	}

	head := len(body)
	if vs := usfm.Verses(body); len(vs) > 0 {
		head = vs[0].Start
	}
	var label string
	ch.Title, ch.Reference, label = usfm.ChapterLabel(body[:head])
	body = usfm.StripParagraph(label + body[head:])
	mapped, useMap := opts.ChunkMap.starts(mark.Number)

	var front, pending strings.Builder
	lastVerse := 0

	for i, seg := range splitSegments(body) {
		verses := usfm.Verses(seg)

		var starts []usfm.VerseMark
		for _, v := range verses {
			ch.Verses++
			if v.Number <= lastVerse {
				at := ""
				switch {
				case len(starts) > 0:
					at = chunkid.FromInt(starts[len(starts)-1].Number)
				case len(ch.Chunks) > 0:
					at = ch.Chunks[len(ch.Chunks)-1].ID
				}
				report(KindVerseOutOfOrder, at, fmt.Sprintf("verse %d after verse %d", v.Number, lastVerse))
				continue
			}
			if v.Number > lastVerse+1 {
				report(KindMissingVerse, "", missingRange(lastVerse+1, v.Number-1))
			}
			lastVerse = v.EndNumber

			switch {
			case len(ch.Chunks) == 0 && len(starts) == 0:
				starts = append(starts, v)
			case useMap:
				if mapped[v.Number] {
					starts = append(starts, v)
				}
			case opts.Chunking == ChunkBySection:
				if len(starts) == 0 {
					starts = append(starts, v)
				}
			default:
				starts = append(starts, v)
			}
		}

		cut := len(seg)
		if len(starts) > 0 {
			cut = starts[0].Start
		}
		lead := seg[:cut]
		switch {
		case strings.TrimSpace(lead) == "":
		case len(verses) > 0 && verses[0].Start < cut && len(ch.Chunks) > 0:
			// Verses that did not start a chunk continue the previous one.
			ch.Chunks[len(ch.Chunks)-1].Body += lead
		case len(starts) > 0 && i > 0:
			pending.WriteString(lead)
		case len(ch.Chunks) == 0:
			front.WriteString(lead)
		default:
			pending.WriteString(lead)
		}

		for j, v := range starts {
			end := len(seg)
			if j+1 < len(starts) {
				end = starts[j+1].Start
			}
			ch.Chunks = append(ch.Chunks, Chunk{
				ID:   chunkid.FromInt(v.Number),
				Body: pending.String() + seg[v.Start:end],
			})
			pending.Reset()
		}
	}
	front.WriteString(pending.String())

	if ch.Verses == 0 {
		report(KindChapterNoVerses, "", "")
	}
	for _, c := range ch.Chunks {
		if !usfm.HasText(c.Body) {
			report(KindEmptyChunk, c.ID, "")
		}
	}
	if strings.TrimSpace(front.String()) != "" {
		ch.Chunks = append(ch.Chunks, Chunk{ID: chunkid.Front, Body: front.String()})
	}
	return ch
}

func missingRange(from, to int) string {
	if from == to {
		return fmt.Sprintf("verse %d", from)
	}
	return fmt.Sprintf("verses %d-%d", from, to)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
