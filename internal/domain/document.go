package domain

// Document field names.
const (
	FieldLastUpdateTime       = "lastUpdateTime"
	FieldText                 = "text"
	FieldTextNotAnalyzed      = "text_not_analyzed"
	FieldSummary              = "summary"
	FieldType                 = "type"
	FieldAuthor               = "author"
	FieldAuthorName           = "authorName"
	FieldTarget               = "target"
	FieldFileSize             = "fileSize"
	FieldObjectType           = "objectType"
	FieldContentType          = "contentType"
	FieldDamType              = "damType"
	FieldWriteWorkspace       = "writeWorkspace"
	FieldStartPublicationDate = "startPublicationDate"
	FieldEndPublicationDate   = "endPublicationDate"
	FieldStatus               = "status"
	FieldTaxonomy             = "taxonomy"
	FieldFile                 = "file"
	FieldAttachment           = "attachment"
	FieldPosition             = "position"
	FieldPositionAddress      = "position_address"
	FieldPositionLocation     = "position_location"
)

// GlobalTarget is the scope assigned to documents without an explicit target.
const GlobalTarget = "global"

// TaxonomyField returns the document field holding term ids for a vocabulary.
func TaxonomyField(vocabulary string) string {
	return FieldTaxonomy + "." + vocabulary
}

// Attachment is binary content attached to a document for text extraction.
type Attachment struct {
	Field    string `json:"field"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

// IndexDocument is the canonical, engine-agnostic projection of one record.
type IndexDocument struct {
	ID         string              `json:"id"`
	ObjectType ObjectType          `json:"objectType"`
	TypeID     string              `json:"typeId"`
	Fields     map[string]any      `json:"fields"`
	Taxonomy   map[string][]string `json:"taxonomy"`
	Target     []string            `json:"target"`
	Attachment *Attachment         `json:"attachment,omitempty"`
}

// Body returns the document as a single field map, with taxonomy and target
// merged in under their reserved names.
func (d IndexDocument) Body() map[string]any {
	body := make(map[string]any, len(d.Fields)+2)
	for k, v := range d.Fields {
		body[k] = v
	}
	taxonomy := make(map[string]any, len(d.Taxonomy))
	for vocabulary, ids := range d.Taxonomy {
		taxonomy[vocabulary] = ids
	}
	body[FieldTaxonomy] = taxonomy
	body[FieldTarget] = d.Target
	return body
}
