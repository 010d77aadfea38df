// Package progress keeps a per-book SQLite index of imported chunks: a
// BLAKE3 hash of each chunk body as imported, and the finished flags
// translators set as they work through a book.
package progress

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/JuniperChunks/core/chunkid"
	"github.com/FocuswithJustin/JuniperChunks/core/errors"
	"github.com/FocuswithJustin/JuniperChunks/core/sqlite"
)

// FileName is the index file name inside a book directory.
const FileName = "progress.db"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS chunks (
		chapter    TEXT NOT NULL,
		chunk      TEXT NOT NULL,
		hash       TEXT NOT NULL,
		finished   INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (chapter, chunk)
	)`,
	`CREATE TABLE IF NOT EXISTS chapters (
		chapter            TEXT PRIMARY KEY,
		title_finished     INTEGER NOT NULL DEFAULT 0,
		reference_finished INTEGER NOT NULL DEFAULT 0,
		updated_at         TEXT NOT NULL
	)`,
}

// now is injectable for testing.
var now = func() time.Time { return time.Now().UTC() }

// ChunkReader is the part of the chunk store Status needs.
type ChunkReader interface {
	ChapterIDs() ([]string, error)
	ChunkIDs(chapterID string) ([]string, error)
	ReadChunk(chapterID, chunkID string) (string, error)
}

// Index is an open progress database.
type Index struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the progress index of a book directory.
func Open(bookDir string) (*Index, error) {
	path := filepath.Join(bookDir, FileName)
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.NewIO("create schema", path, err)
		}
	}
	return &Index{db: db, path: path}, nil
}

// Close closes the database connection.
func (x *Index) Close() error {
	if x.db != nil {
		err := x.db.Close()
		x.db = nil
		return err
	}
	return nil
}

// Path returns the database file path.
func (x *Index) Path() string {
	return x.path
}

// Hash returns the hex BLAKE3 digest of a chunk body.
func Hash(body string) string {
	sum := blake3.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// Reset forgets every recorded chunk and chapter.
func (x *Index) Reset(ctx context.Context) error {
	for _, table := range []string{"chunks", "chapters"} {
		if _, err := x.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.NewIO("reset", x.path, err)
		}
	}
	return nil
}

// Record stores the hash of a freshly imported chunk body and clears its
// finished flag.
func (x *Index) Record(ctx context.Context, chapterID, chunkID, body string) error {
	_, err := x.db.ExecContext(ctx, `
		INSERT INTO chunks (chapter, chunk, hash, finished, updated_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT (chapter, chunk) DO UPDATE SET
			hash = excluded.hash, finished = 0, updated_at = excluded.updated_at`,
		chunkid.FileName(chapterID), chunkid.FileName(chunkID), Hash(body), timestamp())
	if err != nil {
		return errors.NewIO("record", x.path, err)
	}
	return nil
}

// SetFinished marks a recorded chunk finished or unfinished.
func (x *Index) SetFinished(ctx context.Context, chapterID, chunkID string, finished bool) error {
	ch, c := chunkid.FileName(chapterID), chunkid.FileName(chunkID)
	res, err := x.db.ExecContext(ctx,
		`UPDATE chunks SET finished = ?, updated_at = ? WHERE chapter = ? AND chunk = ?`,
		boolInt(finished), timestamp(), ch, c)
	if err != nil {
		return errors.NewIO("update", x.path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewIO("update", x.path, err)
	}
	if n == 0 {
		return errors.NewNotFound("chunk", ch+"-"+c)
	}
	return nil
}

// SetChapterFinished sets the title and reference finished flags of a chapter.
func (x *Index) SetChapterFinished(ctx context.Context, chapterID string, title, reference bool) error {
	_, err := x.db.ExecContext(ctx, `
		INSERT INTO chapters (chapter, title_finished, reference_finished, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (chapter) DO UPDATE SET
			title_finished = excluded.title_finished,
			reference_finished = excluded.reference_finished,
			updated_at = excluded.updated_at`,
		chunkid.FileName(chapterID), boolInt(title), boolInt(reference), timestamp())
	if err != nil {
		return errors.NewIO("update", x.path, err)
	}
	return nil
}

// ChapterStatus is the finished state of a chapter's title and reference.
type ChapterStatus struct {
	TitleFinished     bool
	ReferenceFinished bool
}

// Status summarizes a book's progress.
type Status struct {
	Chunks   int
	Finished int
	// Chunk keys ("<chapter>-<chunk>") whose body no longer matches the
	// imported hash.
	Modified []string
	// Recorded chunks that are no longer on disk.
	Missing []string
	// Chunks on disk that were never recorded.
	Untracked []string
	Chapters  map[string]ChapterStatus
}

type recorded struct {
	chapter, chunk string
	hash           string
	finished       bool
}

// Status compares the index against the chunk files in store. Keys are
// reported in chapter then chunk order.
func (x *Index) Status(ctx context.Context, store ChunkReader) (*Status, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT chapter, chunk, hash, finished FROM chunks`)
	if err != nil {
		return nil, errors.NewIO("query", x.path, err)
	}
	index := map[string]recorded{}
	for rows.Next() {
		var ch, c, hash string
		var finished int
		if err := rows.Scan(&ch, &c, &hash, &finished); err != nil {
			rows.Close()
			return nil, errors.NewIO("scan", x.path, err)
		}
		index[key(ch, c)] = recorded{chapter: ch, chunk: c, hash: hash, finished: finished != 0}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("query", x.path, err)
	}

	st := &Status{Chapters: map[string]ChapterStatus{}}
	seen := map[string]bool{}

	chapters, err := store.ChapterIDs()
	if err != nil {
		return nil, err
	}
	chunkid.SortChapters(chapters)
	for _, ch := range chapters {
		ids, err := store.ChunkIDs(ch)
		if err != nil {
			return nil, err
		}
		chunkid.Sort(ids)
		for _, c := range ids {
			k := key(chunkid.FileName(ch), chunkid.FileName(c))
			seen[k] = true
			st.Chunks++

			rec, ok := index[k]
			if !ok {
				st.Untracked = append(st.Untracked, k)
				continue
			}
			if rec.finished {
				st.Finished++
			}
			body, err := store.ReadChunk(ch, c)
			if err != nil {
				return nil, err
			}
			if Hash(body) != rec.hash {
				st.Modified = append(st.Modified, k)
			}
		}
	}

	var missing []recorded
	for k, rec := range index {
		if !seen[k] {
			missing = append(missing, rec)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		a, b := missing[i], missing[j]
		if a.chapter != b.chapter {
			return chapterLess(a.chapter, b.chapter)
		}
		return chunkid.Less(a.chunk, b.chunk)
	})
	for _, rec := range missing {
		st.Missing = append(st.Missing, key(rec.chapter, rec.chunk))
	}

	if err := x.loadChapters(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (x *Index) loadChapters(ctx context.Context, st *Status) error {
	rows, err := x.db.QueryContext(ctx, `SELECT chapter, title_finished, reference_finished FROM chapters`)
	if err != nil {
		return errors.NewIO("query", x.path, err)
	}
	defer rows.Close()
	for rows.Next() {
		var ch string
		var title, reference int
		if err := rows.Scan(&ch, &title, &reference); err != nil {
			return errors.NewIO("scan", x.path, err)
		}
		st.Chapters[ch] = ChapterStatus{TitleFinished: title != 0, ReferenceFinished: reference != 0}
	}
	return rows.Err()
}

// Percent returns the finished share of chunks, 0 for an empty book.
func (s *Status) Percent() float64 {
	if s.Chunks == 0 {
		return 0
	}
	return 100 * float64(s.Finished) / float64(s.Chunks)
}

func key(chapterID, chunkID string) string {
	return fmt.Sprintf("%s-%s", chapterID, chunkID)
}

func chapterLess(a, b string) bool {
	oa, ob := chunkid.ChapterOrder(a), chunkid.ChapterOrder(b)
	if oa != ob {
		return oa < ob
	}
	return a < b
}

func timestamp() string {
	return now().Format(time.RFC3339)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
