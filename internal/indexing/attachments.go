package indexing

import (
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultAttachmentTypes contains the MIME types whose text the engine can extract.
var DefaultAttachmentTypes = []string{
	"application/pdf",
	"application/rtf",
	"text/html",
	"text/plain",
	"text/richtext",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.oasis.opendocument.text",
	"application/vnd.oasis.opendocument.spreadsheet",
	"application/vnd.oasis.opendocument.presentation",
}

// AttachmentFilter decides which stored files are attached to documents.
type AttachmentFilter struct {
	mimeTypes []string
	maxSize   int64
}

// NewAttachmentFilter creates a filter with the default MIME allow-list.
// A maxSize of zero or less disables the size cap.
func NewAttachmentFilter(maxSize int64) *AttachmentFilter {
	return &AttachmentFilter{
		mimeTypes: DefaultAttachmentTypes,
		maxSize:   maxSize,
	}
}

// NewAttachmentFilterWithTypes creates a filter with a custom allow-list.
func NewAttachmentFilterWithTypes(mimeTypes []string, maxSize int64) *AttachmentFilter {
	return &AttachmentFilter{
		mimeTypes: mimeTypes,
		maxSize:   maxSize,
	}
}

// Allows reports whether a Content-Type header names an extractable format.
// Parameters after ';' are ignored.
func (f *AttachmentFilter) Allows(contentType string) bool {
	mime := MediaType(contentType)
	if mime == "" {
		return false
	}
	return slices.Contains(f.mimeTypes, mime)
}

// WithinLimit reports whether a payload of size bytes may be attached.
func (f *AttachmentFilter) WithinLimit(size int) bool {
	return f.maxSize <= 0 || int64(size) <= f.maxSize
}

// MaxSize returns the attachment size cap.
func (f *AttachmentFilter) MaxSize() int64 {
	return f.maxSize
}

// MediaType strips parameters from a Content-Type header and lower-cases it.
func MediaType(contentType string) string {
	mime, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mime))
}

// DetectMIMEType sniffs the MIME type of a payload, without parameters.
func DetectMIMEType(data []byte) string {
	return MediaType(mimetype.Detect(data).String())
}
