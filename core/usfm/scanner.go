// Package usfm locates the structural markers of a USFM document.
//
// The scanner is stateless: every function takes the raw text and returns byte
// offsets into it, so the importer can slice the original bytes without
// reformatting a translator's wording.
package usfm

import (
	"regexp"
	"strconv"
	"strings"
)

// Marker patterns, compiled once.
var (
	idRegex      = regexp.MustCompile(`\\id[ \t]+([^\r\n]*)`)
	tocRegex     = regexp.MustCompile(`\\toc([123])[ \t]+([^\r\n]*)`)
	headerRegex  = regexp.MustCompile(`\\h[ \t]+([^\r\n]*)`)
	mainTitle    = regexp.MustCompile(`\\mt[0-9]?[ \t]+([^\r\n]*)`)
	chapterRegex = regexp.MustCompile(`\\c[ \t]+(\d+)[^\S\r\n]*(?:\r?\n)?`)
	verseRegex   = regexp.MustCompile(`\\v[ \t]+(\d+)(?:-(\d+))?[a-z]?(?:\s|$)`)
	sectionRegex = regexp.MustCompile(`\\s5(?:[ \t]*\r?\n|\s|$)`)
	clRegex      = regexp.MustCompile(`(?m)^[ \t]*\\cl[ \t]+([^\r\n]*)(?:\r?\n)?`)
	cdRegex      = regexp.MustCompile(`(?m)^[ \t]*\\cd[ \t]+([^\r\n]*)(?:\r?\n)?`)
	headerLine   = regexp.MustCompile(`(?m)^[ \t]*\\(?:id|ide|h|toc[123]|mt[0-9]?|rem|usfm|sts)(?:[ \t][^\r\n]*)?(?:\r?\n|$)`)
	paragraphRe  = regexp.MustCompile(`^\s*\\p[ \t]*(?:\r?\n|$)`)
	anyMarker    = regexp.MustCompile(`\\[A-Za-z]+[0-9]*\*?`)
)

// Span is a half-open byte range [Start, End) in a document.
type Span struct {
	Start int
	End   int
}

// Text returns the spanned slice of text.
func (s Span) Text(text string) string {
	return text[s.Start:s.End]
}

// ChapterMark is one \c marker. Start..End covers the marker and its line
// ending; Body is filled by Chapters with the span up to the next chapter.
type ChapterMark struct {
	Number int
	Start  int
	End    int
	Body   Span
}

// VerseMark is one \v marker. EndNumber equals Number unless the marker is a
// range such as "\v 12-14".
type VerseMark struct {
	Number    int
	EndNumber int
	Start     int
	End       int
}

// IsRange reports whether the marker covers several verses.
func (v VerseMark) IsRange() bool {
	return v.EndNumber > v.Number
}

// Books splits a document at each \id marker. Text before the first \id is
// kept with the first book. A document without any \id is one book.
func Books(text string) []Span {
	locs := idRegex.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []Span{{Start: 0, End: len(text)}}
	}
	spans := make([]Span, 0, len(locs))
	for i := range locs {
		start := locs[i][0]
		if i == 0 {
			start = 0
		}
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}

// BookID returns the book code of the first \id marker and the rest of its
// line. ok is false when there is no \id marker or it carries no code.
func BookID(text string) (code, rest string, ok bool) {
	m := idRegex.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	fields := strings.Fields(m[1])
	if len(fields) == 0 {
		return "", "", false
	}
	code = strings.ToUpper(fields[0])
	rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(m[1]), fields[0]))
	return code, rest, true
}

// TOC returns the value of \toc1, \toc2 or \toc3.
func TOC(text string, level int) string {
	for _, m := range tocRegex.FindAllStringSubmatch(text, -1) {
		if m[1] == strconv.Itoa(level) {
			return strings.TrimSpace(m[2])
		}
	}
	return ""
}

// Header returns the value of the \h marker.
func Header(text string) string {
	if m := headerRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// MainTitle returns the value of the first \mt marker.
func MainTitle(text string) string {
	if m := mainTitle.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Chapters returns every \c marker in document order, each with the body
// span running to the next marker or the end of text. Order is not checked.
func Chapters(text string) []ChapterMark {
	locs := chapterRegex.FindAllStringSubmatchIndex(text, -1)
	marks := make([]ChapterMark, 0, len(locs))
	for _, loc := range locs {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		marks = append(marks, ChapterMark{Number: n, Start: loc[0], End: loc[1]})
	}
	for i := range marks {
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1].Start
		}
		marks[i].Body = Span{Start: marks[i].End, End: end}
	}
	return marks
}

// Verses returns every \v marker in text. The marker span excludes the
// whitespace that terminates the verse number.
func Verses(text string) []VerseMark {
	locs := verseRegex.FindAllStringSubmatchIndex(text, -1)
	marks := make([]VerseMark, 0, len(locs))
	for _, loc := range locs {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		v := VerseMark{Number: n, EndNumber: n, Start: loc[0], End: loc[3]}
		if loc[4] >= 0 {
			if e, err := strconv.Atoi(text[loc[4]:loc[5]]); err == nil && e >= n {
				v.EndNumber = e
				v.End = loc[5]
			}
		}
		marks = append(marks, v)
	}
	return marks
}

// Sections returns the spans of \s5 section markers, each including the
// line ending that follows it.
func Sections(text string) []Span {
	locs := sectionRegex.FindAllStringIndex(text, -1)
	spans := make([]Span, 0, len(locs))
	for _, loc := range locs {
		spans = append(spans, Span{Start: loc[0], End: loc[1]})
	}
	return spans
}

// StripSections removes every \s5 marker line from text.
func StripSections(text string) string {
	return sectionRegex.ReplaceAllString(text, "")
}

// ChapterLabel extracts \cl and \cd lines from text, returning their values
// and the text with those lines removed.
func ChapterLabel(text string) (title, reference, rest string) {
	if m := clRegex.FindStringSubmatch(text); m != nil {
		title = strings.TrimSpace(m[1])
	}
	if m := cdRegex.FindStringSubmatch(text); m != nil {
		reference = strings.TrimSpace(m[1])
	}
	rest = clRegex.ReplaceAllString(text, "")
	rest = cdRegex.ReplaceAllString(rest, "")
	return title, reference, rest
}

// StripHeader removes the book identification and title lines
// (\id, \ide, \h, \toc1-3, \mt) from text.
func StripHeader(text string) string {
	return headerLine.ReplaceAllString(text, "")
}

// StripParagraph removes one bare leading \p line.
func StripParagraph(text string) string {
	if loc := paragraphRe.FindStringIndex(text); loc != nil {
		return text[loc[1]:]
	}
	return text
}

// HasText reports whether text holds anything besides markers, verse
// numbers and whitespace.
func HasText(text string) bool {
	text = verseRegex.ReplaceAllString(text, " ")
	text = anyMarker.ReplaceAllString(text, " ")
	return strings.TrimSpace(text) != ""
}
