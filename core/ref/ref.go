// Package ref parses USFM-style verse references ("MRK 1:4", "1JN 3:16-18")
// and maps them onto the chunk files of a book.
package ref

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/JuniperChunks/core/chunkid"
	"github.com/FocuswithJustin/JuniperChunks/core/errors"
	"github.com/FocuswithJustin/JuniperChunks/core/usfm"
)

// Ref is a book, chapter or verse reference. Book is the lowercase book code
// as used for book directories.
type Ref struct {
	Book     string
	Chapter  int
	Verse    int
	VerseEnd int
}

//nolint:govet // participle grammar tags are not standard struct tags
type refGrammar struct {
	BookPrefix string       `@Int?`
	BookName   string       `@Ident`
	ChapterRef *chapterPart `@@?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type chapterPart struct {
	Chapter  int        `@Int`
	VerseRef *versePart `( (":" | ".") @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type versePart struct {
	Verse int  `@Int`
	Range *int `( "-" @Int )?`
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z][A-Za-z]*`},
	{Name: "Punct", Pattern: `[:.\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a reference such as "MRK", "MRK 1", "mrk 1:4" or "MRK 1:4-6".
// The book code must be a known USFM code.
func Parse(s string) (*Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.NewValidation("reference", "empty reference string")
	}

	parsed, err := refParser.ParseString("", s)
	if err != nil {
		return nil, &errors.ValidationError{Field: "reference", Value: s, Message: err.Error()}
	}

	code := parsed.BookPrefix + parsed.BookName
	if !usfm.IsBookCode(code) {
		return nil, &errors.ValidationError{Field: "reference", Value: s, Message: fmt.Sprintf("unknown book code %q", code)}
	}

	r := &Ref{Book: strings.ToLower(code)}
	if parsed.ChapterRef != nil {
		r.Chapter = parsed.ChapterRef.Chapter
		if v := parsed.ChapterRef.VerseRef; v != nil {
			r.Verse = v.Verse
			if v.Range != nil {
				r.VerseEnd = *v.Range
			}
		}
	}
	if r.VerseEnd != 0 && r.VerseEnd < r.Verse {
		return nil, &errors.ValidationError{Field: "reference", Value: s, Message: "verse range ends before it starts"}
	}
	return r, nil
}

// String formats the reference with an uppercase book code.
func (r *Ref) String() string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(r.Book))
	if r.Chapter > 0 {
		sb.WriteString(" ")
		sb.WriteString(strconv.Itoa(r.Chapter))
		if r.Verse > 0 {
			sb.WriteString(":")
			sb.WriteString(strconv.Itoa(r.Verse))
			if r.IsRange() {
				sb.WriteString("-")
				sb.WriteString(strconv.Itoa(r.VerseEnd))
			}
		}
	}
	return sb.String()
}

// IsRange returns true if this reference spans multiple verses.
func (r *Ref) IsRange() bool {
	return r.VerseEnd > r.Verse
}

// ChapterID returns the chapter directory name of the reference.
func (r *Ref) ChapterID() string {
	return chunkid.FromInt(r.Chapter)
}

// ChunkLister is the part of the chunk store Locate needs.
type ChunkLister interface {
	ChunkIDs(chapterID string) ([]string, error)
}

// Locate returns the id of the chunk holding the referenced verse: the
// largest verse-numbered chunk id not greater than the verse. Front and back
// matter chunks never match.
func Locate(store ChunkLister, r *Ref) (string, error) {
	if r.Chapter <= 0 || r.Verse <= 0 {
		return "", &errors.ValidationError{Field: "reference", Value: r.String(), Message: "a chapter and verse are required"}
	}
	ids, err := store.ChunkIDs(r.ChapterID())
	if err != nil {
		return "", err
	}

	best, bestOrder := "", 0
	for _, id := range ids {
		o := chunkid.Order(id)
		if o <= 0 || o >= chunkid.FrontOrder {
			continue
		}
		if o <= r.Verse && o > bestOrder {
			best, bestOrder = id, o
		}
	}
	if best == "" {
		return "", errors.NewNotFound("verse", r.String())
	}
	return best, nil
}
