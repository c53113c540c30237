package engine

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/sha1n/cms-indexer/internal/domain"
)

// BuildIndexMapping translates a type mapping into a bleve index mapping.
// Dotted names such as taxonomy.tags become sub-document mappings.
// Fields missing from the type mapping are still indexed dynamically.
func BuildIndexMapping(tm domain.TypeMapping) mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	for _, name := range tm.Names() {
		entry := tm[name]
		parts := strings.Split(name, ".")

		target := docMapping
		for _, part := range parts[:len(parts)-1] {
			sub, ok := target.Properties[part]
			if !ok {
				sub = bleve.NewDocumentMapping()
				target.AddSubDocumentMapping(part, sub)
			}
			target = sub
		}
		target.AddFieldMappingsAt(parts[len(parts)-1], fieldMapping(entry))
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

func fieldMapping(entry domain.IndexMappingEntry) *mapping.FieldMapping {
	var fm *mapping.FieldMapping

	switch entry.Type {
	case domain.IndexTypeDate:
		fm = bleve.NewDateTimeFieldMapping()
	case domain.IndexTypeInteger:
		fm = bleve.NewNumericFieldMapping()
	case domain.IndexTypeGeoPoint:
		fm = bleve.NewGeoPointFieldMapping()
	case domain.IndexTypeAttachment:
		// Extracted text; the binary itself is never stored.
		fm = bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
	default:
		fm = bleve.NewTextFieldMapping()
		if entry.Analyzed {
			fm.Analyzer = standard.Name
		} else {
			fm.Analyzer = keyword.Name
		}
	}

	fm.Store = entry.Stored
	return fm
}
