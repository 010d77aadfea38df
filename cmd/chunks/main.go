// Command chunks imports USFM scripture into chunked book directories,
// exports them back to USFM and resolves merge conflicts in chunk files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/FocuswithJustin/JuniperChunks/core/chunkid"
	"github.com/FocuswithJustin/JuniperChunks/core/errors"
	"github.com/FocuswithJustin/JuniperChunks/core/merge"
	"github.com/FocuswithJustin/JuniperChunks/core/ref"
	"github.com/FocuswithJustin/JuniperChunks/core/sqlite"
	"github.com/FocuswithJustin/JuniperChunks/core/translation"
	"github.com/FocuswithJustin/JuniperChunks/internal/archive"
	"github.com/FocuswithJustin/JuniperChunks/internal/config"
	usfmformat "github.com/FocuswithJustin/JuniperChunks/internal/formats/usfm"
	"github.com/FocuswithJustin/JuniperChunks/internal/logging"
	"github.com/FocuswithJustin/JuniperChunks/internal/progress"
	"github.com/FocuswithJustin/JuniperChunks/internal/validation"
)

const version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	Config    string `help:"Configuration file (default: ./chunks.yaml)" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn, error"`
	LogFormat string `name:"log-format" help:"Log format: text, json"`
	NoColor   bool   `name:"no-color" help:"Disable coloured result logs"`
}

// CLI defines the command-line interface for chunks.
var CLI struct {
	Globals

	Import    ImportCmd      `cmd:"" help:"Import USFM files into chunked book directories"`
	Export    ExportCmd      `cmd:"" help:"Export a book directory as one USFM file"`
	Order     OrderCmd       `cmd:"" help:"Print chunk or chapter ids in reading order"`
	Conflicts ConflictsGroup `cmd:"" help:"Find and resolve merge conflicts in chunk files"`
	Status    StatusCmd      `cmd:"" help:"Show translation progress of a book"`
	Finish    FinishCmd      `cmd:"" help:"Mark a chunk or chapter finished"`
	Backup    BackupCmd      `cmd:"" help:"Archive a book directory"`
	Restore   RestoreCmd     `cmd:"" help:"Restore book directories from an archive"`
	Version   VersionCmd     `cmd:"" help:"Print version information"`
}

// Env is the per-invocation state bound to every command's Run.
type Env struct {
	Ctx    context.Context
	Config *config.Config
	Out    io.Writer
	Style  usfmformat.Style
}

func newEnv(g Globals, out io.Writer) (*Env, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}

	level, format := cfg.Log.Level, cfg.Log.Format
	if g.LogLevel != "" {
		level = g.LogLevel
	}
	if g.LogFormat != "" {
		format = g.LogFormat
	}
	logging.InitLogger(logging.ParseLevel(level), logging.ParseFormat(format))

	if g.NoColor {
		color.NoColor = true
	}
	return &Env{
		Ctx:    logging.WithRunID(context.Background(), logging.NewRunID()),
		Config: cfg,
		Out:    out,
		Style: usfmformat.Style{
			OK:      colorize(color.FgGreen),
			Error:   colorize(color.FgRed),
			Warning: colorize(color.FgYellow),
		},
	}, nil
}

func colorize(attr color.Attribute) func(string) string {
	c := color.New(attr)
	return func(s string) string { return c.Sprint(s) }
}

// ImportCmd imports USFM files.
type ImportCmd struct {
	Files             []string `arg:"" help:"USFM files to import" type:"existingfile"`
	Out               string   `help:"Projects directory (default from config)" type:"path"`
	Book              string   `help:"Book code for files without a usable \\id marker"`
	Title             string   `help:"Book title to record instead of \\toc1"`
	Chunking          string   `help:"Chunking mode: verse, section or map (default from config)"`
	ChunkMap          string   `name:"chunk-map" help:"YAML file of chunk start verses per chapter" type:"existingfile"`
	RejectEmptyChunks bool     `name:"reject-empty-chunks" help:"Fail books that contain an empty chunk"`
	AllowNoVerses     bool     `name:"allow-no-verses" help:"Accept books without any verse marker"`
	Workers           int      `help:"Files imported in parallel (default from config)"`
}

func (c *ImportCmd) options(cfg *config.Config) (usfmformat.Options, error) {
	opts := usfmformat.Options{
		Title:        c.Title,
		BookCode:     c.Book,
		LanguageID:   cfg.Language.ID,
		LanguageName: cfg.Language.Name,
		Policy: usfmformat.Policy{
			AllowNoVerses:     c.AllowNoVerses || !cfg.Import.RequireVerses,
			RejectEmptyChunks: c.RejectEmptyChunks || cfg.Import.RejectEmptyChunks,
		},
	}

	mode := firstNonEmpty(c.Chunking, cfg.Import.Chunking)
	mapPath := firstNonEmpty(c.ChunkMap, cfg.Import.ChunkMap)
	if mode == config.ChunkingMap {
		if mapPath == "" {
			return opts, errors.NewValidation("chunk-map", "map chunking needs a chunk map file")
		}
		mode = config.ChunkingVerse
	}
	chunking, err := usfmformat.ParseChunking(mode)
	if err != nil {
		return opts, err
	}
	opts.Chunking = chunking

	if mapPath != "" {
		m, err := usfmformat.LoadChunkMap(mapPath)
		if err != nil {
			return opts, err
		}
		opts.ChunkMap = m
	}
	return opts, nil
}

func (c *ImportCmd) Run(env *Env) error {
	opts, err := c.options(env.Config)
	if err != nil {
		return err
	}
	out := firstNonEmpty(c.Out, env.Config.Projects.Directory)
	if err := validation.ValidatePath(out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	workers := c.Workers
	if workers <= 0 {
		workers = env.Config.Import.Workers
	}

	results, err := usfmformat.NewImporter(out, opts).ImportFiles(env.Ctx, c.Files, workers)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintln(env.Out, env.Style.Error(fmt.Sprintf("ERROR: %s: %v", r.Path, r.Err)))
			failed++
			continue
		}
		if err := r.Result.WriteLog(env.Out, env.Style); err != nil {
			return err
		}
		for _, m := range r.Result.MissingNames {
			fmt.Fprintln(env.Out, env.Style.Warning("Missing book name: "+m.Description))
		}
		for _, b := range r.Result.Books {
			if !b.Success {
				failed++
				continue
			}
			if err := recordProgress(env.Ctx, b); err != nil {
				return err
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d import(s) failed", failed)
	}
	return nil
}

// recordProgress fingerprints every imported chunk so later edits show up
// as modified.
func recordProgress(ctx context.Context, b *usfmformat.BookResult) error {
	idx, err := progress.Open(b.Dir)
	if err != nil {
		return err
	}
	defer idx.Close()

	if err := idx.Reset(ctx); err != nil {
		return err
	}
	for _, ch := range b.Chapters {
		for _, chunk := range ch.Chunks {
			if err := idx.Record(ctx, ch.ID, chunk.ID, chunk.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExportCmd exports a book directory to USFM.
type ExportCmd struct {
	Book string `arg:"" help:"Book directory" type:"existingdir"`
	Out  string `required:"" help:"Output USFM file" type:"path"`
}

func (c *ExportCmd) Run(env *Env) error {
	if err := validation.ValidatePath(c.Out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	stats, err := usfmformat.ExportBook(env.Ctx, c.Book, c.Out, usfmformat.Metadata{
		LanguageID:   env.Config.Language.ID,
		LanguageName: env.Config.Language.Name,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Exported %d chapters, %d chunks to %s\n", stats.Chapters, stats.Chunks, c.Out)
	return nil
}

// OrderCmd prints ids in reading order.
type OrderCmd struct {
	IDs      []string `arg:"" name:"id" help:"Chunk or chapter ids"`
	Chapters bool     `help:"Order as chapter ids (00 first)"`
}

func (c *OrderCmd) Run(env *Env) error {
	ids := append([]string(nil), c.IDs...)
	if c.Chapters {
		chunkid.SortChapters(ids)
	} else {
		chunkid.Sort(ids)
	}
	for _, id := range ids {
		fmt.Fprintln(env.Out, id)
	}
	return nil
}

// ConflictsGroup contains merge conflict operations.
type ConflictsGroup struct {
	Scan    ConflictsScanCmd    `cmd:"" help:"List conflicted chunks of a book"`
	Show    ConflictsShowCmd    `cmd:"" help:"Print every candidate text of a conflicted chunk"`
	Resolve ConflictsResolveCmd `cmd:"" help:"Replace a conflicted chunk with one candidate"`
}

// ConflictsScanCmd lists conflicted chunks.
type ConflictsScanCmd struct {
	Book string `arg:"" help:"Book directory" type:"existingdir"`
}

func (c *ConflictsScanCmd) Run(env *Env) error {
	store, err := translation.Open(c.Book)
	if err != nil {
		return err
	}
	found, err := merge.Scan(store)
	if err != nil {
		return err
	}
	logging.ConflictsFound(env.Ctx, c.Book, len(found))
	if len(found) == 0 {
		fmt.Fprintln(env.Out, "No conflicts found")
		return nil
	}
	for _, f := range found {
		fmt.Fprintf(env.Out, "%s-%s: %d candidates\n", f.ChapterID, f.ChunkID, len(f.Candidates))
	}
	return nil
}

// ConflictsShowCmd prints candidates.
type ConflictsShowCmd struct {
	Book string `arg:"" help:"Book directory" type:"existingdir"`
	Ref  string `arg:"" help:"Verse reference, e.g. \"MRK 1:4\""`
}

func (c *ConflictsShowCmd) Run(env *Env) error {
	store, chapterID, chunkID, err := locate(c.Book, c.Ref)
	if err != nil {
		return err
	}
	body, err := store.ReadChunk(chapterID, chunkID)
	if err != nil {
		return err
	}
	if !merge.IsConflicted(body) {
		fmt.Fprintf(env.Out, "%s-%s has no conflicts\n", chapterID, chunkID)
		return nil
	}
	for i, candidate := range merge.Parse(body) {
		fmt.Fprintf(env.Out, "--- candidate %d ---\n%s", i, candidate)
		if !strings.HasSuffix(candidate, "\n") {
			fmt.Fprintln(env.Out)
		}
	}
	return nil
}

// ConflictsResolveCmd picks a candidate.
type ConflictsResolveCmd struct {
	Book string `arg:"" help:"Book directory" type:"existingdir"`
	Ref  string `arg:"" help:"Verse reference, e.g. \"MRK 1:4\""`
	Pick int    `required:"" help:"Index of the candidate to keep (see conflicts show)"`
}

func (c *ConflictsResolveCmd) Run(env *Env) error {
	store, chapterID, chunkID, err := locate(c.Book, c.Ref)
	if err != nil {
		return err
	}
	if _, err := merge.Resolve(store, chapterID, chunkID, c.Pick); err != nil {
		return err
	}
	logging.InfoContext(env.Ctx, "conflict_resolved", "book_dir", c.Book, "chunk", chapterID+"-"+chunkID, "candidate", c.Pick)
	fmt.Fprintf(env.Out, "Resolved %s-%s with candidate %d\n", chapterID, chunkID, c.Pick)
	return nil
}

// locate opens a book and finds the chunk holding a verse reference.
func locate(bookDir, refText string) (*translation.Store, string, string, error) {
	r, err := ref.Parse(refText)
	if err != nil {
		return nil, "", "", err
	}
	store, err := translation.Open(bookDir)
	if err != nil {
		return nil, "", "", err
	}
	chunkID, err := ref.Locate(store, r)
	if err != nil {
		return nil, "", "", err
	}
	return store, r.ChapterID(), chunkID, nil
}

// StatusCmd reports progress.
type StatusCmd struct {
	Book string `arg:"" help:"Book directory" type:"existingdir"`
}

func (c *StatusCmd) Run(env *Env) error {
	store, err := translation.Open(c.Book)
	if err != nil {
		return err
	}
	idx, err := progress.Open(c.Book)
	if err != nil {
		return err
	}
	defer idx.Close()

	st, err := idx.Status(env.Ctx, store)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Chunks: %d\n", st.Chunks)
	fmt.Fprintf(env.Out, "Finished: %d (%.1f%%)\n", st.Finished, st.Percent())
	printKeys(env.Out, "Modified", st.Modified)
	printKeys(env.Out, "Missing", st.Missing)
	printKeys(env.Out, "Untracked", st.Untracked)
	return nil
}

func printKeys(w io.Writer, label string, keys []string) {
	fmt.Fprintf(w, "%s: %d\n", label, len(keys))
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\n", k)
	}
}

// FinishCmd marks a chunk, or a chapter's title and reference, finished.
type FinishCmd struct {
	Book string `arg:"" help:"Book directory" type:"existingdir"`
	Ref  string `arg:"" help:"Verse reference for a chunk, or chapter reference for its title"`
	Undo bool   `help:"Clear the finished flag instead"`
}

func (c *FinishCmd) Run(env *Env) error {
	r, err := ref.Parse(c.Ref)
	if err != nil {
		return err
	}
	if r.Chapter == 0 {
		return errors.NewValidation("reference", "a chapter is required")
	}
	idx, err := progress.Open(c.Book)
	if err != nil {
		return err
	}
	defer idx.Close()

	if r.Verse == 0 {
		if err := idx.SetChapterFinished(env.Ctx, r.ChapterID(), !c.Undo, !c.Undo); err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "Chapter %s finished: %t\n", r.ChapterID(), !c.Undo)
		return nil
	}

	store, err := translation.Open(c.Book)
	if err != nil {
		return err
	}
	chunkID, err := ref.Locate(store, r)
	if err != nil {
		return err
	}
	if err := idx.SetFinished(env.Ctx, r.ChapterID(), chunkID, !c.Undo); err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Chunk %s-%s finished: %t\n", r.ChapterID(), chunkID, !c.Undo)
	return nil
}

// BackupCmd archives a book directory.
type BackupCmd struct {
	Book string `arg:"" help:"Book directory" type:"existingdir"`
	Out  string `help:"Archive path ending in .tar.xz or .tar.gz (default: <backup dir>/<book>.tar.xz)" type:"path"`
}

func (c *BackupCmd) Run(env *Env) error {
	out := c.Out
	if out == "" {
		out = filepath.Join(env.Config.Projects.BackupDir, filepath.Base(c.Book)+archive.SuffixTarXz)
	}
	if err := validation.ValidatePath(out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	create := archive.CreateTarXz
	if strings.HasSuffix(out, archive.SuffixTarGz) {
		create = archive.CreateTarGz
	}
	if err := create(c.Book, out); err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Backed up %s to %s\n", c.Book, out)
	return nil
}

// RestoreCmd extracts a backup archive.
type RestoreCmd struct {
	Archive string `arg:"" help:"Backup archive" type:"existingfile"`
	Out     string `help:"Projects directory (default from config)" type:"path"`
	List    bool   `help:"List the archive entries without restoring"`
}

func (c *RestoreCmd) Run(env *Env) error {
	if c.List {
		names, err := archive.List(c.Archive)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(env.Out, name)
		}
		return nil
	}

	out := firstNonEmpty(c.Out, env.Config.Projects.Directory)
	roots, err := archive.Extract(c.Archive, out)
	if err != nil {
		return err
	}
	logging.InfoContext(env.Ctx, "backup_restored", "backup", archive.BackupName(c.Archive), "books", len(roots))
	for _, root := range roots {
		fmt.Fprintf(env.Out, "Restored %s\n", filepath.Join(out, root))
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(env *Env) error {
	fmt.Fprintf(env.Out, "chunks version %s\n", version)
	info := sqlite.GetInfo()
	fmt.Fprintf(env.Out, "sqlite driver: %s (%s)\n", info.DriverType, info.Package)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("chunks"),
		kong.Description("Chunked USFM import, export and merge conflict resolution"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	env, err := newEnv(CLI.Globals, os.Stdout)
	ctx.FatalIfErrorf(err)

	err = ctx.Run(env)
	if err != nil {
		logging.CommandError(env.Ctx, ctx.Command(), err)
	}
	ctx.FatalIfErrorf(err)
}
