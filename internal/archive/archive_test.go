package archive

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/JuniperChunks/internal/validation"
)

func makeBook(t *testing.T, root string) string {
	t.Helper()
	book := filepath.Join(root, "mrk")
	files := map[string]string{
		"manifest.yaml": "book_code: mrk\n",
		"01/01.txt":     "\\v 1 The beginning\n",
		"01/title.txt":  "Chapter 1",
		"02/00.txt":     "front",
		"01/.tmp-123":   "partial",
		".git/HEAD":     "ref: refs/heads/main\n",
	}
	for rel, body := range files {
		path := filepath.Join(book, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	}
	return book
}

func TestCreateAndExtract(t *testing.T) {
	for _, suffix := range []string{SuffixTarXz, SuffixTarGz} {
		t.Run(suffix, func(t *testing.T) {
			tmp := t.TempDir()
			book := makeBook(t, tmp)
			dst := filepath.Join(tmp, "backups", "mrk"+suffix)

			require.NoError(t, Create(book, dst, "mrk"))

			names, err := List(dst)
			require.NoError(t, err)
			sort.Strings(names)
			assert.Equal(t, []string{
				"mrk/01/",
				"mrk/01/01.txt",
				"mrk/01/title.txt",
				"mrk/02/",
				"mrk/02/00.txt",
				"mrk/manifest.yaml",
			}, names)

			out := filepath.Join(tmp, "restore")
			roots, err := Extract(dst, out)
			require.NoError(t, err)
			assert.Equal(t, []string{"mrk"}, roots)

			got, err := os.ReadFile(filepath.Join(out, "mrk", "01", "01.txt"))
			require.NoError(t, err)
			assert.Equal(t, "\\v 1 The beginning\n", string(got))
		})
	}
}

func TestCreateTarXz(t *testing.T) {
	tmp := t.TempDir()
	book := makeBook(t, tmp)

	require.NoError(t, CreateTarXz(book, filepath.Join(tmp, "b.tar.xz")))
	assert.Error(t, CreateTarXz(book, filepath.Join(tmp, "b.tar.gz")))
	require.NoError(t, CreateTarGz(book, filepath.Join(tmp, "b.tar.gz")))
	assert.Error(t, CreateTarGz(book, filepath.Join(tmp, "b.zip")))
}

func TestCreate_UnsupportedFormat(t *testing.T) {
	tmp := t.TempDir()
	book := makeBook(t, tmp)
	assert.Error(t, Create(book, filepath.Join(tmp, "b.zip"), "mrk"))
}

func TestNewReader_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK"), 0644))
	_, err := NewReader(path)
	assert.Error(t, err)
}

func TestNewReader_MismatchedCompression(t *testing.T) {
	tmp := t.TempDir()
	book := makeBook(t, tmp)
	gz := filepath.Join(tmp, "mrk.tar.gz")
	require.NoError(t, Create(book, gz, "mrk"))

	disguised := filepath.Join(tmp, "mrk.tar.xz")
	require.NoError(t, os.Rename(gz, disguised))
	_, err := NewReader(disguised)
	assert.ErrorContains(t, err, "file type mismatch")
}

func writeRawTarGz(t *testing.T, path string, headers []*tar.Header, bodies []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for i, h := range headers {
		require.NoError(t, tw.WriteHeader(h))
		if bodies[i] != "" {
			_, err := tw.Write([]byte(bodies[i]))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
}

func TestExtract_RejectsTraversal(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "evil.tar.gz")
	writeRawTarGz(t, path,
		[]*tar.Header{{Name: "../evil.txt", Mode: 0644, Size: 4, Typeflag: tar.TypeReg}},
		[]string{"evil"})

	_, err := Extract(path, filepath.Join(tmp, "out"))
	assert.ErrorIs(t, err, validation.ErrPathTraversal)
	_, statErr := os.Stat(filepath.Join(tmp, "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtract_RejectsLinks(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "link.tar.gz")
	writeRawTarGz(t, path,
		[]*tar.Header{{Name: "mrk/01.txt", Linkname: "/etc/passwd", Typeflag: tar.TypeSymlink}},
		[]string{""})

	_, err := Extract(path, filepath.Join(tmp, "out"))
	assert.Error(t, err)
}

func TestBackupName(t *testing.T) {
	tests := map[string]string{
		"mrk.tar.xz":              "mrk",
		"/tmp/backups/mrk.tar.gz": "mrk",
		"mrk.tar":                 "mrk",
		"mrk":                     "mrk",
	}
	for in, want := range tests {
		assert.Equal(t, want, BackupName(in), in)
	}
}
