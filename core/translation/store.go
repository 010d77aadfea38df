package translation

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/JuniperChunks/core/chunkid"
	"github.com/FocuswithJustin/JuniperChunks/core/errors"
	"github.com/FocuswithJustin/JuniperChunks/internal/fileutil"
	"github.com/FocuswithJustin/JuniperChunks/internal/validation"
)

// Reserved file names inside a chapter directory.
const (
	TitleFile     = "title.txt"
	ReferenceFile = "reference.txt"
	chunkExt      = ".txt"
)

// Injectable functions for testing
var (
	osReadFile = os.ReadFile
	osReadDir  = os.ReadDir
	writeFile  = fileutil.WriteAtomic
)

// Store reads and writes the chunk files of one book. Enumeration carries no
// ordering guarantee; callers sort with chunkid.
type Store struct {
	root string
}

// Open opens an existing book directory.
func Open(root string) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "book", ID: root}
		}
		return nil, errors.NewIO("stat", root, err)
	}
	if !info.IsDir() {
		return nil, errors.NewValidation("book", root+" is not a directory")
	}
	return &Store{root: root}, nil
}

// Create creates (if needed) and opens a book directory.
func Create(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.NewIO("create directory", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the book directory.
func (s *Store) Root() string {
	return s.root
}

// ChapterIDs lists the chapter directories of the book.
func (s *Store) ChapterIDs() ([]string, error) {
	entries, err := osReadDir(s.root)
	if err != nil {
		return nil, errors.NewIO("read directory", s.root, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// ChunkIDs lists the chunk ids of a chapter, excluding the title and
// reference files.
func (s *Store) ChunkIDs(chapterID string) ([]string, error) {
	dir, err := s.chapterDir(chapterID)
	if err != nil {
		return nil, err
	}
	entries, err := osReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "chapter", ID: chapterID}
		}
		return nil, errors.NewIO("read directory", dir, err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, chunkExt) {
			continue
		}
		if name == TitleFile || name == ReferenceFile {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, chunkExt))
	}
	return ids, nil
}

// ReadChunk returns the raw body of a chunk.
func (s *Store) ReadChunk(chapterID, chunkID string) (string, error) {
	path, err := s.ChunkPath(chapterID, chunkID)
	if err != nil {
		return "", err
	}
	data, err := osReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &errors.NotFoundError{Resource: "chunk", ID: chapterID + "/" + chunkID}
		}
		return "", errors.NewIO("read", path, err)
	}
	return string(data), nil
}

// WriteChunk stores body verbatim as the chunk's file.
func (s *Store) WriteChunk(chapterID, chunkID, body string) error {
	path, err := s.ChunkPath(chapterID, chunkID)
	if err != nil {
		return err
	}
	if err := writeFile(path, []byte(body), 0644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// Frame reads one chunk as a FrameTranslation.
func (s *Store) Frame(chapterID, chunkID string) (*FrameTranslation, error) {
	body, err := s.ReadChunk(chapterID, chunkID)
	if err != nil {
		return nil, err
	}
	return &FrameTranslation{
		ID:        chunkid.FileName(chunkID),
		ChapterID: chunkid.FileName(chapterID),
		Body:      body,
		Format:    FormatUSFM,
	}, nil
}

// Frames reads every chunk of a chapter, sorted by chunk order.
func (s *Store) Frames(chapterID string) ([]*FrameTranslation, error) {
	ids, err := s.ChunkIDs(chapterID)
	if err != nil {
		return nil, err
	}
	chunkid.Sort(ids)
	frames := make([]*FrameTranslation, 0, len(ids))
	for _, id := range ids {
		f, err := s.Frame(chapterID, id)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// Chapter reads a chapter's title and reference. Missing files mean empty
// values.
func (s *Store) Chapter(chapterID string) (*ChapterTranslation, error) {
	dir, err := s.chapterDir(chapterID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "chapter", ID: chapterID}
		}
		return nil, errors.NewIO("stat", dir, err)
	}
	title, err := s.readOptional(filepath.Join(dir, TitleFile))
	if err != nil {
		return nil, err
	}
	reference, err := s.readOptional(filepath.Join(dir, ReferenceFile))
	if err != nil {
		return nil, err
	}
	return &ChapterTranslation{
		ID:        chunkid.FileName(chapterID),
		Title:     title,
		Reference: reference,
		Format:    FormatUSFM,
	}, nil
}

// WriteChapter writes the title and reference files of a chapter. Empty
// values remove the corresponding file.
func (s *Store) WriteChapter(ch *ChapterTranslation) error {
	dir, err := s.chapterDir(ch.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewIO("create directory", dir, err)
	}
	files := []struct{ name, value string }{
		{TitleFile, ch.Title},
		{ReferenceFile, ch.Reference},
	}
	for _, f := range files {
		path, value := filepath.Join(dir, f.name), f.value
		if value == "" {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return errors.NewIO("remove", path, err)
			}
			continue
		}
		if err := writeFile(path, []byte(value), 0644); err != nil {
			return errors.NewIO("write", path, err)
		}
	}
	return nil
}

// Manifest reads the book manifest.
func (s *Store) Manifest() (*Manifest, error) {
	path := filepath.Join(s.root, ManifestFile)
	data, err := osReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "manifest", ID: path}
		}
		return nil, errors.NewIO("read", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, &errors.ParseError{Format: "manifest", Path: path, Message: err.Error()}
	}
	return m, nil
}

// WriteManifest writes the book manifest.
func (s *Store) WriteManifest(m *Manifest) error {
	data, err := m.ToYAML()
	if err != nil {
		return errors.Wrap(err, "failed to serialize manifest")
	}
	path := filepath.Join(s.root, ManifestFile)
	if err := writeFile(path, data, 0644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// RemoveChapters deletes every chapter directory, leaving the manifest and
// any other book-level files in place. Used before a re-import.
func (s *Store) RemoveChapters() error {
	ids, err := s.ChapterIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		dir := filepath.Join(s.root, id)
		if err := os.RemoveAll(dir); err != nil {
			return errors.NewIO("remove", dir, err)
		}
	}
	return nil
}

// ChunkPath returns the file path of a chunk.
func (s *Store) ChunkPath(chapterID, chunkID string) (string, error) {
	dir, err := s.chapterDir(chapterID)
	if err != nil {
		return "", err
	}
	name := chunkid.FileName(chunkID)
	if err := validation.ValidateIdentifier(name); err != nil {
		return "", &errors.ValidationError{Field: "chunk", Value: chunkID, Message: err.Error()}
	}
	if name+chunkExt == TitleFile || name+chunkExt == ReferenceFile {
		return "", errors.NewValidation("chunk", name+" is a reserved name")
	}
	return filepath.Join(dir, name+chunkExt), nil
}

func (s *Store) chapterDir(chapterID string) (string, error) {
	name := chunkid.FileName(chapterID)
	if err := validation.ValidateIdentifier(name); err != nil {
		return "", &errors.ValidationError{Field: "chapter", Value: chapterID, Message: err.Error()}
	}
	return filepath.Join(s.root, name), nil
}

func (s *Store) readOptional(path string) (string, error) {
	data, err := osReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.NewIO("read", path, err)
	}
	return string(data), nil
}
