package domain

// RootTermID is the parent id carried by top-level taxonomy terms.
const RootTermID = "root"

// UserRef identifies the user who created a record.
type UserRef struct {
	ID       string `json:"id" yaml:"id"`
	FullName string `json:"fullName" yaml:"fullName"`
}

// SourceRecord is a content item or digital asset as read from the source of record.
// For assets, Text holds the title.
type SourceRecord struct {
	ID                   string              `json:"id" yaml:"id"`
	TypeID               string              `json:"typeId" yaml:"typeId"`
	Status               string              `json:"status,omitempty" yaml:"status,omitempty"`
	Text                 string              `json:"text" yaml:"text"`
	Fields               map[string]any      `json:"fields,omitempty" yaml:"fields,omitempty"`
	Taxonomy             map[string][]string `json:"taxonomy,omitempty" yaml:"taxonomy,omitempty"`
	Target               any                 `json:"target,omitempty" yaml:"target,omitempty"`
	WriteWorkspace       *string             `json:"writeWorkspace,omitempty" yaml:"writeWorkspace,omitempty"`
	StartPublicationDate *int64              `json:"startPublicationDate,omitempty" yaml:"startPublicationDate,omitempty"`
	EndPublicationDate   *int64              `json:"endPublicationDate,omitempty" yaml:"endPublicationDate,omitempty"`
	LastUpdateTime       any                 `json:"lastUpdateTime,omitempty" yaml:"lastUpdateTime,omitempty"`
	CreateUser           *UserRef            `json:"createUser,omitempty" yaml:"createUser,omitempty"`
	FileSize             *int64              `json:"fileSize,omitempty" yaml:"fileSize,omitempty"`
	OriginalFileID       string              `json:"originalFileId,omitempty" yaml:"originalFileId,omitempty"`
	ContentType          string              `json:"contentType,omitempty" yaml:"contentType,omitempty"`
}

// TaxonomyTerm is one node of a vocabulary's term forest.
type TaxonomyTerm struct {
	ID           string `json:"id" yaml:"id"`
	VocabularyID string `json:"vocabularyId" yaml:"vocabularyId"`
	ParentID     string `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	Text         string `json:"text,omitempty" yaml:"text,omitempty"`
}

// HasParent reports whether the term links to a parent other than the forest root.
func (t TaxonomyTerm) HasParent() bool {
	return t.ParentID != "" && t.ParentID != RootTermID
}

// Vocabulary is a named taxonomy.
type Vocabulary struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Key returns the name used for the vocabulary's document field.
func (v Vocabulary) Key() string {
	if v.Name != "" {
		return v.Name
	}
	return v.ID
}

// File is a binary stored alongside a record.
type File struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	MIMEType string `json:"mimeType,omitempty" yaml:"mimeType,omitempty"`
	Data     []byte `json:"-" yaml:"-"`
}
