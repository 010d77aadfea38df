// Package translation holds the book translation model and the on-disk chunk
// store that backs it.
//
// A book lives in one directory:
//
//	<book>/manifest.yaml
//	<book>/<chapter>/title.txt
//	<book>/<chapter>/reference.txt
//	<book>/<chapter>/<chunk>.txt
//
// Chapter and chunk directory/file names are produced by chunkid.FileName.
package translation

// Format is the markup dialect of a title, reference or chunk body.
type Format string

const (
	FormatUSFM    Format = "usfm"
	FormatDefault Format = "default"
)

// ChapterTranslation is one chapter of a book translation. Chapters are
// addressed by ID; their order is always computed with chunkid.ChapterOrder.
type ChapterTranslation struct {
	ID                string `json:"id"`
	Title             string `json:"title,omitempty"`
	Reference         string `json:"reference,omitempty"`
	TitleFinished     bool   `json:"title_finished"`
	ReferenceFinished bool   `json:"reference_finished"`
	Format            Format `json:"format"`
}

// FrameTranslation is one chunk: the atomic translatable unit and the unit of
// conflict resolution. One chunk is one file.
type FrameTranslation struct {
	ID        string `json:"id"`
	ChapterID string `json:"chapter_id"`
	Body      string `json:"body"`
	Format    Format `json:"format"`
	Finished  bool   `json:"finished"`
}

// Key returns "<chapter>-<chunk>", the identifier used in logs and indexes.
func (f *FrameTranslation) Key() string {
	return f.ChapterID + "-" + f.ID
}

// IsEmpty reports whether the chunk body has no text.
func (f *FrameTranslation) IsEmpty() bool {
	for _, r := range f.Body {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
