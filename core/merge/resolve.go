package merge

import (
	"fmt"

	"github.com/FocuswithJustin/JuniperChunks/core/chunkid"
	"github.com/FocuswithJustin/JuniperChunks/core/errors"
)

// ChunkStore is the part of the chunk store the conflict workflow needs.
type ChunkStore interface {
	ChapterIDs() ([]string, error)
	ChunkIDs(chapterID string) ([]string, error)
	ReadChunk(chapterID, chunkID string) (string, error)
	WriteChunk(chapterID, chunkID, body string) error
}

// ConflictedChunk is a chunk whose body contains conflict markers.
type ConflictedChunk struct {
	ChapterID  string
	ChunkID    string
	Candidates []string
}

// Scan returns every conflicted chunk of a book in chapter then chunk order.
func Scan(store ChunkStore) ([]ConflictedChunk, error) {
	chapters, err := store.ChapterIDs()
	if err != nil {
		return nil, err
	}
	chunkid.SortChapters(chapters)

	var found []ConflictedChunk
	for _, ch := range chapters {
		chunks, err := store.ChunkIDs(ch)
		if err != nil {
			return nil, err
		}
		chunkid.Sort(chunks)
		for _, c := range chunks {
			body, err := store.ReadChunk(ch, c)
			if err != nil {
				return nil, errors.InChunk(ch, c, err)
			}
			if !IsConflicted(body) {
				continue
			}
			found = append(found, ConflictedChunk{ChapterID: ch, ChunkID: c, Candidates: Parse(body)})
		}
	}
	return found, nil
}

// Resolve replaces a conflicted chunk's body with candidate index of its
// parsed candidates and returns the chosen text.
func Resolve(store ChunkStore, chapterID, chunkID string, index int) (string, error) {
	body, err := store.ReadChunk(chapterID, chunkID)
	if err != nil {
		return "", err
	}
	if !IsConflicted(body) {
		return "", errors.NewValidation("chunk", fmt.Sprintf("%s/%s has no conflict markers", chapterID, chunkID))
	}
	candidates := Parse(body)
	if index < 0 || index >= len(candidates) {
		return "", errors.NewValidation("candidate", fmt.Sprintf("index %d out of range [0,%d)", index, len(candidates)))
	}
	if err := store.WriteChunk(chapterID, chunkID, candidates[index]); err != nil {
		return "", err
	}
	return candidates[index], nil
}
