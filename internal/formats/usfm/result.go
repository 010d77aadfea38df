package usfm

import (
	"fmt"
	"io"
	"strings"
)

// Kind classifies an import problem.
type Kind int

const (
	// Structural problems: the book is not written.
	KindNoChapters Kind = iota
	KindChaptersOutOfOrder
	KindNoVersesInBook
	KindWriteFailed

	// Soft problems: reported, and fatal only under Policy.
	KindMissingBookID
	KindUnknownBookCode
	KindChapterNoVerses
	KindMissingVerse
	KindVerseOutOfOrder
	KindEmptyChunk
)

var kindNames = map[Kind]string{
	KindNoChapters:         "no chapter markers found",
	KindChaptersOutOfOrder: "chapters out of order",
	KindNoVersesInBook:     "no verses found",
	KindWriteFailed:        "could not write book",
	KindMissingBookID:      "book id missing",
	KindUnknownBookCode:    "unknown book code",
	KindChapterNoVerses:    "chapter has no verses",
	KindMissingVerse:       "missing verse",
	KindVerseOutOfOrder:    "verse out of order",
	KindEmptyChunk:         "empty chunk detected",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Fatal reports whether the kind always stops a book from being written.
func (k Kind) Fatal() bool {
	return k <= KindWriteFailed
}

// Problem is one structural issue found while importing a book. Chapter and
// Chunk are empty for book-level problems.
type Problem struct {
	Kind    Kind
	Chapter string
	Chunk   string
	Detail  string
	Fatal   bool
}

func (p Problem) String() string {
	var sb strings.Builder
	switch {
	case p.Chapter != "" && p.Chunk != "":
		fmt.Fprintf(&sb, "chapter %s chunk %s: ", p.Chapter, p.Chunk)
	case p.Chapter != "":
		fmt.Fprintf(&sb, "chapter %s: ", p.Chapter)
	}
	sb.WriteString(p.Kind.String())
	if p.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(p.Detail)
		sb.WriteString(")")
	}
	return sb.String()
}

// Policy decides which soft problems fail a book.
type Policy struct {
	// AllowNoVerses accepts a book without a single verse marker.
	AllowNoVerses bool
	// RejectEmptyChunks fails a book containing an empty chunk.
	RejectEmptyChunks bool
}

// IsFatal reports whether a problem of kind k fails the book under p.
func (p Policy) IsFatal(k Kind) bool {
	switch {
	case k == KindNoVersesInBook:
		return !p.AllowNoVerses
	case k.Fatal():
		return true
	case k == KindEmptyChunk:
		return p.RejectEmptyChunks
	}
	return false
}

// MissingNameItem is a book whose \id marker gave no usable book code.
type MissingNameItem struct {
	Description string
	SourceFile  string
}

// Chunk is one parsed chunk body.
type Chunk struct {
	ID   string
	Body string
}

// Chapter is one parsed chapter.
type Chapter struct {
	ID        string
	Number    int
	Title     string
	Reference string
	Chunks    []Chunk
	Verses    int
}

// BookResult is the outcome of importing one book of a document.
type BookResult struct {
	Code         string
	Name         string
	Title        string
	Abbreviation string
	SourceFile   string
	// Dir is the book directory written, empty when the book was not written.
	Dir      string
	Chapters []*Chapter
	Verses   int
	Problems []Problem
	Success  bool
}

// Chunks returns the number of chunks parsed for the book.
func (b *BookResult) Chunks() int {
	n := 0
	for _, ch := range b.Chapters {
		n += len(ch.Chunks)
	}
	return n
}

// HasFatal reports whether any recorded problem fails the book.
func (b *BookResult) HasFatal() bool {
	for _, p := range b.Problems {
		if p.Fatal {
			return true
		}
	}
	return false
}

func (b *BookResult) displayName() string {
	if b.Name != "" {
		return b.Name
	}
	if b.Code != "" {
		return b.Code
	}
	return "unknown"
}

// ImportResult is the outcome of importing one document.
type ImportResult struct {
	SourceFile   string
	Books        []*BookResult
	MissingNames []MissingNameItem
	Success      bool
}

// Dirs returns the book directories written.
func (r *ImportResult) Dirs() []string {
	var dirs []string
	for _, b := range r.Books {
		if b.Dir != "" {
			dirs = append(dirs, b.Dir)
		}
	}
	return dirs
}

// NoErrors is the log line of a book imported without problems.
const NoErrors = "No errors Found"

// Style decorates result log lines, e.g. with terminal colours.
type Style struct {
	OK      func(string) string
	Error   func(string) string
	Warning func(string) string
}

func plain(s string) string { return s }

// WriteLog writes the result log: per book a "Found book: <name> = <file>"
// line followed by "No errors Found" or one line per problem.
func (r *ImportResult) WriteLog(w io.Writer, style Style) error {
	if style.OK == nil {
		style.OK = plain
	}
	if style.Error == nil {
		style.Error = plain
	}
	if style.Warning == nil {
		style.Warning = plain
	}

	for _, b := range r.Books {
		if _, err := fmt.Fprintf(w, "Found book: %s = %s\n", b.displayName(), b.SourceFile); err != nil {
			return err
		}
		if len(b.Problems) == 0 {
			if _, err := fmt.Fprintln(w, style.OK(NoErrors)); err != nil {
				return err
			}
			continue
		}
		for _, p := range b.Problems {
			line := "WARNING: " + p.String()
			if p.Fatal {
				line = style.Error("ERROR: " + p.String())
			} else {
				line = style.Warning(line)
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// Log returns the uncoloured result log.
func (r *ImportResult) Log() string {
	var sb strings.Builder
	_ = r.WriteLog(&sb, Style{})
	return sb.String()
}
