// Package source holds the source-of-record side of the indexer: fixture
// loading and the record stores the pipeline reads from.
package source

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sha1n/cms-indexer/internal/domain"
)

// FileFixture is a stored binary. Exactly one of Content, Base64 or Path
// supplies the data; Path is relative to the fixture file.
type FileFixture struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name,omitempty"`
	MIMEType string `yaml:"mimeType,omitempty"`
	Content  string `yaml:"content,omitempty"`
	Base64   string `yaml:"base64,omitempty"`
	Path     string `yaml:"path,omitempty"`
}

// Fixtures is a snapshot of the source of record, used to seed a store.
type Fixtures struct {
	ContentTypes []domain.TypeDefinition `yaml:"contentTypes"`
	DamTypes     []domain.TypeDefinition `yaml:"damTypes"`
	Vocabularies []domain.Vocabulary     `yaml:"vocabularies"`
	Terms        []domain.TaxonomyTerm   `yaml:"terms"`
	Contents     []domain.SourceRecord   `yaml:"contents"`
	Assets       []domain.SourceRecord   `yaml:"assets"`
	Files        []FileFixture           `yaml:"files"`

	dir string
}

// LoadFixtures reads a YAML fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}

	fixtures, err := ParseFixtures(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	fixtures.dir = filepath.Dir(path)
	return fixtures, nil
}

// ParseFixtures decodes fixtures from YAML. Relative file paths resolve
// against the working directory.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fixtures Fixtures
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, err
	}
	return &fixtures, nil
}

// Types returns the type definitions of one object type.
func (f *Fixtures) Types(kind domain.ObjectType) []domain.TypeDefinition {
	if kind == domain.ObjectDam {
		return f.DamTypes
	}
	return f.ContentTypes
}

// Records returns the records of one object type.
func (f *Fixtures) Records(kind domain.ObjectType) []domain.SourceRecord {
	if kind == domain.ObjectDam {
		return f.Assets
	}
	return f.Contents
}

// LoadFiles resolves the data of every file fixture.
func (f *Fixtures) LoadFiles() ([]domain.File, error) {
	files := make([]domain.File, 0, len(f.Files))
	for _, ff := range f.Files {
		file := domain.File{ID: ff.ID, Name: ff.Name, MIMEType: ff.MIMEType}

		switch {
		case ff.Path != "":
			path := ff.Path
			if !filepath.IsAbs(path) && f.dir != "" {
				path = filepath.Join(f.dir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read file %s: %w", ff.ID, err)
			}
			file.Data = data
		case ff.Base64 != "":
			data, err := base64.StdEncoding.DecodeString(ff.Base64)
			if err != nil {
				return nil, fmt.Errorf("failed to decode file %s: %w", ff.ID, err)
			}
			file.Data = data
		default:
			file.Data = []byte(ff.Content)
		}

		files = append(files, file)
	}
	return files, nil
}
