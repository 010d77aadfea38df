package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func defaults() *Config {
	return &Config{
		Projects: ProjectsConfig{Directory: ".", BackupDir: "backups"},
		Import: ImportConfig{
			Chunking:      ChunkingVerse,
			RequireVerses: true,
			Workers:       4,
		},
		Language: LanguageConfig{ID: "en", Name: "English"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

func TestLoad(t *testing.T) {
	chunkMap := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(chunkMap, []byte("1: [1, 4]\n"), 0644))

	tests := []struct {
		name              string
		configContent     string
		want              *Config
		wantErrorContains []string
	}{
		{
			name: "custom values",
			configContent: `projects:
  directory: /srv/translations
import:
  chunking: section
  require_verses: false
  reject_empty_chunks: true
  workers: 8
language:
  id: es-419
  name: Español
log:
  level: debug
  format: json
`,
			want: &Config{
				Projects: ProjectsConfig{Directory: "/srv/translations", BackupDir: "backups"},
				Import: ImportConfig{
					Chunking:          ChunkingSection,
					RejectEmptyChunks: true,
					Workers:           8,
				},
				Language: LanguageConfig{ID: "es-419", Name: "Español"},
				Log:      LogConfig{Level: "debug", Format: "json"},
			},
		},
		{
			name:          "unknown keys use defaults",
			configContent: "wrong_key:\n  some_value: test\n",
			want:          defaults(),
		},
		{
			name: "chunk map",
			configContent: "import:\n  chunking: map\n  chunk_map: " + chunkMap + "\n",
			want: func() *Config {
				c := defaults()
				c.Import.Chunking = ChunkingMap
				c.Import.ChunkMap = chunkMap
				return c
			}(),
		},
		{
			name:          "invalid yaml",
			configContent: "import:\n  chunking: verse\n  invalid yaml format here [[[\n",
			wantErrorContains: []string{
				"configuration file found but could not be read",
			},
		},
		{
			name:          "invalid values",
			configContent: "import:\n  chunking: paragraph\n  workers: 0\nlog:\n  level: loud\nlanguage:\n  id: \"e n\"\n",
			wantErrorContains: []string{
				"invalid configuration",
				"chunking must be one of [verse section map]",
				"workers must be 1 or greater",
				"level must be one of [debug info warn error]",
				"language.id must be a language code",
			},
		},
		{
			name:          "map mode needs a chunk map",
			configContent: "import:\n  chunking: map\n",
			wantErrorContains: []string{
				"import.chunk_map is required",
			},
		},
		{
			name:          "chunk map must exist",
			configContent: "import:\n  chunking: map\n  chunk_map: /nonexistent/map.yaml\n",
			wantErrorContains: []string{
				"import.chunk_map must be an existing and readable file",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(writeConfig(t, tt.configContent))
			if len(tt.wantErrorContains) > 0 {
				require.Error(t, err)
				for _, s := range tt.wantErrorContains {
					assert.Contains(t, err.Error(), s)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	got, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, defaults(), got)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JUNIPER_CHUNKS_IMPORT_WORKERS", "2")
	t.Setenv("JUNIPER_CHUNKS_LANGUAGE_ID", "fr")
	t.Setenv("JUNIPER_CHUNKS_IMPORT_REQUIRE_VERSES", "false")

	got, err := Load(writeConfig(t, "language:\n  id: de\n  name: Deutsch\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, got.Import.Workers)
	assert.Equal(t, "fr", got.Language.ID)
	assert.Equal(t, "Deutsch", got.Language.Name)
	assert.False(t, got.Import.RequireVerses)
}
