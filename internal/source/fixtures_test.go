package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha1n/cms-indexer/internal/domain"
)

const sampleFixtures = `
contentTypes:
  - id: article
    type: Article
    fields:
      - name: title
        cType: textfield
        searchable: true
    vocabularies: [tags]
damTypes:
  - id: image
    type: Image
vocabularies:
  - id: tags
    name: Tags
terms:
  - id: t1
    vocabularyId: tags
    parentId: root
contents:
  - id: c1
    typeId: article
    text: Hello
    fields:
      title: Hello
    taxonomy:
      tags: [t1]
assets:
  - id: a1
    typeId: image
    text: Logo
    originalFileId: f1
    contentType: text/plain
files:
  - id: f1
    content: hello file
  - id: f2
    base64: aGk=
  - id: f3
    path: blob.txt
`

func TestLoadFixtures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFixtures), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.txt"), []byte("from disk"), 0644))

	fixtures, err := LoadFixtures(path)
	require.NoError(t, err)

	assert.Len(t, fixtures.Types(domain.ObjectContent), 1)
	assert.Equal(t, "Article", fixtures.ContentTypes[0].Name)
	assert.True(t, fixtures.ContentTypes[0].Fields[0].Searchable)
	assert.Equal(t, []string{"tags"}, fixtures.ContentTypes[0].Vocabularies)
	assert.Len(t, fixtures.Types(domain.ObjectDam), 1)
	assert.Equal(t, "c1", fixtures.Records(domain.ObjectContent)[0].ID)
	assert.Equal(t, []string{"t1"}, fixtures.Contents[0].Taxonomy["tags"])
	assert.Equal(t, "f1", fixtures.Records(domain.ObjectDam)[0].OriginalFileID)

	files, err := fixtures.LoadFiles()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "hello file", string(files[0].Data))
	assert.Equal(t, "hi", string(files[1].Data))
	assert.Equal(t, "from disk", string(files[2].Data))
}

func TestLoadFixtures_Errors(t *testing.T) {
	_, err := LoadFixtures(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseFixtures([]byte("contentTypes: {not: a list"))
	assert.Error(t, err)

	fixtures, err := ParseFixtures([]byte("files:\n  - id: bad\n    base64: '!!!'\n"))
	require.NoError(t, err)
	_, err = fixtures.LoadFiles()
	assert.Error(t, err)
}
