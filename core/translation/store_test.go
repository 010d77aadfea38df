package translation

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	juerrors "github.com/FocuswithJustin/JuniperChunks/core/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Create(filepath.Join(t.TempDir(), "mrk"))
	require.NoError(t, err)
	return s
}

func TestStore_WriteReadChunk(t *testing.T) {
	s := newTestStore(t)

	body := "\\v 1 The beginning of the gospel.  \n\n"
	require.NoError(t, s.WriteChunk("1", "1", body))

	path := filepath.Join(s.Root(), "01", "01.txt")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, string(raw), "chunk bodies are stored verbatim")

	got, err := s.ReadChunk("01", "01")
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestStore_Layout(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.WriteChunk("119", "176", "x"))
	require.NoError(t, s.WriteChunk("front", "back", "y"))
	require.NoError(t, s.WriteChunk("2", "00", "z"))

	for _, rel := range []string{"119/176.txt", "front/back.txt", "02/00.txt"} {
		_, err := os.Stat(filepath.Join(s.Root(), rel))
		assert.NoError(t, err, rel)
	}
}

func TestStore_Enumerate(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteChunk("01", "01", "a"))
	require.NoError(t, s.WriteChunk("01", "04", "b"))
	require.NoError(t, s.WriteChunk("02", "01", "c"))
	require.NoError(t, s.WriteChapter(&ChapterTranslation{ID: "01", Title: "Chapter 1", Reference: "Mark 1"}))
	require.NoError(t, s.WriteManifest(NewManifest("mrk")))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "01", ".tmp-123"), []byte("junk"), 0644))

	chapters, err := s.ChapterIDs()
	require.NoError(t, err)
	sort.Strings(chapters)
	assert.Equal(t, []string{"01", "02"}, chapters)

	chunks, err := s.ChunkIDs("1")
	require.NoError(t, err)
	sort.Strings(chunks)
	assert.Equal(t, []string{"01", "04"}, chunks)
}

func TestStore_Frames(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"10", "00", "02", "back"} {
		require.NoError(t, s.WriteChunk("03", id, "chunk "+id))
	}

	frames, err := s.Frames("03")
	require.NoError(t, err)
	var ids []string
	for _, f := range frames {
		ids = append(ids, f.ID)
		assert.Equal(t, "03", f.ChapterID)
		assert.Equal(t, "chunk "+f.ID, f.Body)
	}
	assert.Equal(t, []string{"02", "10", "00", "back"}, ids)
	assert.Equal(t, "03-02", frames[0].Key())
}

func TestStore_Chapter(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteChunk("01", "01", "a"))

	ch, err := s.Chapter("01")
	require.NoError(t, err)
	assert.Empty(t, ch.Title)
	assert.Empty(t, ch.Reference)

	require.NoError(t, s.WriteChapter(&ChapterTranslation{ID: "1", Title: "Chapter One", Reference: "Mark 1:1-45"}))
	ch, err = s.Chapter("1")
	require.NoError(t, err)
	assert.Equal(t, "01", ch.ID)
	assert.Equal(t, "Chapter One", ch.Title)
	assert.Equal(t, "Mark 1:1-45", ch.Reference)

	require.NoError(t, s.WriteChapter(&ChapterTranslation{ID: "1", Title: "Chapter One"}))
	_, err = os.Stat(filepath.Join(s.Root(), "01", ReferenceFile))
	assert.True(t, os.IsNotExist(err))

	_, err = s.Chapter("07")
	assert.ErrorIs(t, err, juerrors.ErrNotFound)
}

func TestStore_ReadMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReadChunk("01", "01")
	require.Error(t, err)
	var nf *juerrors.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "chunk", nf.Resource)

	_, err = s.ChunkIDs("05")
	assert.ErrorIs(t, err, juerrors.ErrNotFound)
}

func TestStore_RejectsUnsafeIDs(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"../x", "a/b", ".hidden", ""} {
		assert.ErrorIs(t, s.WriteChunk("01", id, "x"), juerrors.ErrInvalidInput, id)
		assert.ErrorIs(t, s.WriteChunk(id, "01", "x"), juerrors.ErrInvalidInput, id)
	}
	assert.ErrorIs(t, s.WriteChunk("01", "title", "x"), juerrors.ErrInvalidInput)
	assert.ErrorIs(t, s.WriteChunk("01", "reference", "x"), juerrors.ErrInvalidInput)
}

func TestStore_WriteError(t *testing.T) {
	orig := writeFile
	defer func() { writeFile = orig }()
	writeFile = func(string, []byte, os.FileMode) error { return errors.New("disk full") }

	s := newTestStore(t)
	err := s.WriteChunk("01", "01", "x")
	var ioErr *juerrors.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "write", ioErr.Operation)
}

func TestStore_Manifest(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Manifest()
	assert.ErrorIs(t, err, juerrors.ErrNotFound)

	m := NewManifest("MRK")
	m.BookTitle = "The Gospel of Mark"
	m.BookName = "Mark"
	m.LanguageID = "en"
	require.NoError(t, s.WriteManifest(m))

	got, err := s.Manifest()
	require.NoError(t, err)
	assert.Equal(t, "mrk", got.BookCode)
	assert.Equal(t, "The Gospel of Mark", got.Title())
	assert.Equal(t, "Mark", got.Name())
	assert.Equal(t, FormatUSFM, got.Format)

	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), ManifestFile), []byte("book_code: [oops"), 0644))
	_, err = s.Manifest()
	var pe *juerrors.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestStore_RemoveChapters(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteChunk("01", "01", "a"))
	require.NoError(t, s.WriteChunk("02", "01", "b"))
	require.NoError(t, s.WriteManifest(NewManifest("mrk")))

	require.NoError(t, s.RemoveChapters())

	ids, err := s.ChapterIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
	_, err = s.Manifest()
	assert.NoError(t, err)
}

func TestOpen(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, juerrors.ErrNotFound)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = Open(file)
	assert.ErrorIs(t, err, juerrors.ErrInvalidInput)
}

func TestManifestTitleFallbacks(t *testing.T) {
	m := NewManifest("jud")
	assert.Equal(t, "JUD", m.Title())
	m.BookName = "Jude"
	assert.Equal(t, "Jude", m.Title())
	assert.Equal(t, "Jude", m.Name())
}

func TestFrameIsEmpty(t *testing.T) {
	assert.True(t, (&FrameTranslation{Body: " \n\t"}).IsEmpty())
	assert.False(t, (&FrameTranslation{Body: "\\v 1"}).IsEmpty())
}
