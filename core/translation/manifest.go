package translation

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestVersion is the current manifest format version.
const ManifestVersion = "1"

// ManifestFile is the manifest file name inside a book directory.
const ManifestFile = "manifest.yaml"

// Manifest describes a book translation. It is the translation-metadata
// provider for the exporter's header block.
type Manifest struct {
	Version      string `yaml:"version"`
	BookCode     string `yaml:"book_code"`
	BookName     string `yaml:"book_name,omitempty"`
	BookTitle    string `yaml:"book_title,omitempty"`
	Abbreviation string `yaml:"abbreviation,omitempty"`
	LanguageID   string `yaml:"language_id,omitempty"`
	LanguageName string `yaml:"language_name,omitempty"`
	Format       Format `yaml:"format"`
	SourceFile   string `yaml:"source_file,omitempty"`
	ImportedAt   string `yaml:"imported_at,omitempty"`
}

// NewManifest creates a manifest for the given book code.
func NewManifest(bookCode string) *Manifest {
	return &Manifest{
		Version:  ManifestVersion,
		BookCode: strings.ToLower(bookCode),
		Format:   FormatUSFM,
	}
}

// Title returns the best available long title of the book.
func (m *Manifest) Title() string {
	switch {
	case m.BookTitle != "":
		return m.BookTitle
	case m.BookName != "":
		return m.BookName
	default:
		return strings.ToUpper(m.BookCode)
	}
}

// Name returns the best available short name of the book.
func (m *Manifest) Name() string {
	if m.BookName != "" {
		return m.BookName
	}
	return m.Title()
}

// ToYAML serializes the manifest.
func (m *Manifest) ToYAML() ([]byte, error) {
	return yaml.Marshal(m)
}

// ParseManifest parses a manifest from YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Format == "" {
		m.Format = FormatUSFM
	}
	return &m, nil
}
