package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/sha1n/cms-indexer/internal/domain"
)

const unknownValue = "unknown"

// Projector turns source records into index documents.
// Vocabulary names and term closures are cached for the projector's lifetime.
type Projector struct {
	resolver     *Resolver
	vocabularies VocabularyFinder
	terms        TermFinder
	files        BinaryStore
	filter       *AttachmentFilter
	logger       *slog.Logger

	vocabularyKeys map[string]string
}

// ProjectorConfig holds the collaborators of a Projector.
type ProjectorConfig struct {
	Resolver     *Resolver
	Vocabularies VocabularyFinder
	Terms        TermFinder
	Files        BinaryStore
	Filter       *AttachmentFilter
	Logger       *slog.Logger
}

// NewProjector creates a projector.
func NewProjector(cfg ProjectorConfig) *Projector {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	filter := cfg.Filter
	if filter == nil {
		filter = NewAttachmentFilter(0)
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewResolver(cfg.Terms, logger)
	}
	return &Projector{
		resolver:       resolver,
		vocabularies:   cfg.Vocabularies,
		terms:          cfg.Terms,
		files:          cfg.Files,
		filter:         filter,
		logger:         logger,
		vocabularyKeys: make(map[string]string),
	}
}

// Project builds the index document of rec. It returns false when fields is
// empty, meaning the record's type is not indexed.
func (p *Projector) Project(ctx context.Context, kind domain.ObjectType, rec domain.SourceRecord, fields domain.FieldSet) (*domain.IndexDocument, bool, error) {
	if fields.IsEmpty() {
		return nil, false, nil
	}

	doc := &domain.IndexDocument{
		ID:         rec.ID,
		ObjectType: kind,
		TypeID:     rec.TypeID,
		Fields:     projectFields(kind, rec.Fields, fields),
		Target:     normalizeTarget(rec.Target),
	}

	stampMetadata(doc.Fields, kind, rec)

	taxonomy, err := p.projectTaxonomy(ctx, rec.Taxonomy)
	if err != nil {
		return nil, false, fmt.Errorf("failed to project taxonomy of %q: %w", rec.ID, err)
	}
	doc.Taxonomy = taxonomy

	attachment, err := p.attachment(ctx, kind, rec, doc.Fields)
	if err != nil {
		return nil, false, fmt.Errorf("failed to attach file of %q: %w", rec.ID, err)
	}
	doc.Attachment = attachment

	return doc, true, nil
}

// Reset clears the vocabulary and closure caches.
func (p *Projector) Reset() {
	p.vocabularyKeys = make(map[string]string)
	p.resolver.Reset()
}

func projectFields(kind domain.ObjectType, values map[string]any, fields domain.FieldSet) map[string]any {
	out := make(map[string]any, len(values)+16)

	for _, name := range slices.Sorted(maps.Keys(values)) {
		if !fields.Contains(name) {
			continue
		}
		value := values[name]

		if name == domain.FieldPosition && kind == domain.ObjectContent {
			if position, ok := value.(map[string]any); ok {
				projectPosition(out, position)
				continue
			}
		}

		switch v := value.(type) {
		case nil:
			continue
		case map[string]any:
			if kind == domain.ObjectDam {
				list := make([]string, 0, len(v))
				for _, key := range slices.Sorted(maps.Keys(v)) {
					list = append(list, stringValue(v[key]))
				}
				out[name] = list
				continue
			}
			flat := make(map[string]string, len(v))
			for key, sub := range v {
				flat[key] = stringValue(sub)
			}
			out[name] = flat
		case []any:
			list := make([]string, 0, len(v))
			for _, sub := range v {
				list = append(list, stringValue(sub))
			}
			out[name] = list
		case []string:
			out[name] = slices.Clone(v)
		default:
			out[name] = stringValue(v)
		}
	}

	return out
}

// projectPosition splits a position value into an address and a [lon, lat] pair.
func projectPosition(out map[string]any, position map[string]any) {
	if address, ok := position["address"]; ok && address != nil {
		out[domain.FieldPositionAddress] = stringValue(address)
	}

	location, ok := position["location"]
	if !ok {
		return
	}

	var coordinates any = location
	if geo, ok := location.(map[string]any); ok {
		coordinates = geo["coordinates"]
	}

	pair, ok := coordinates.([]any)
	if !ok || len(pair) < 2 {
		return
	}
	lon, lonOK := numericValue(pair[0])
	lat, latOK := numericValue(pair[1])
	if lonOK && latOK {
		out[domain.FieldPositionLocation] = []float64{lon, lat}
	}
}

func stampMetadata(fields map[string]any, kind domain.ObjectType, rec domain.SourceRecord) {
	fields[domain.FieldObjectType] = string(kind)
	fields[kind.TypeField()] = rec.TypeID
	fields[domain.FieldText] = rec.Text
	fields[domain.FieldTextNotAnalyzed] = rec.Text

	if rec.WriteWorkspace != nil {
		fields[domain.FieldWriteWorkspace] = *rec.WriteWorkspace
	} else {
		fields[domain.FieldWriteWorkspace] = nil
	}
	fields[domain.FieldStartPublicationDate] = optionalInt(rec.StartPublicationDate)
	fields[domain.FieldEndPublicationDate] = optionalInt(rec.EndPublicationDate)

	fields[domain.FieldLastUpdateTime] = "0"
	if rec.LastUpdateTime != nil {
		fields[domain.FieldLastUpdateTime] = stringValue(rec.LastUpdateTime)
	}

	fields[domain.FieldStatus] = unknownValue
	if rec.Status != "" {
		fields[domain.FieldStatus] = rec.Status
	}

	fields[domain.FieldAuthor] = unknownValue
	fields[domain.FieldAuthorName] = unknownValue
	if rec.CreateUser != nil {
		fields[domain.FieldAuthor] = rec.CreateUser.ID
		fields[domain.FieldAuthorName] = rec.CreateUser.FullName
	}

	if kind == domain.ObjectDam {
		var size int64
		if rec.FileSize != nil {
			size = *rec.FileSize
		}
		fields[domain.FieldFileSize] = size
	}
}

// projectTaxonomy expands every selected term to its closure, keyed by
// vocabulary name. Ids are unique per vocabulary; unknown terms are skipped.
func (p *Projector) projectTaxonomy(ctx context.Context, selection map[string][]string) (map[string][]string, error) {
	taxonomy := make(map[string][]string)

	for _, vocabularyID := range slices.Sorted(maps.Keys(selection)) {
		key, err := p.vocabularyKey(ctx, vocabularyID)
		if err != nil {
			return nil, err
		}

		ids := taxonomy[key]
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			seen[id] = struct{}{}
		}

		for _, termID := range selection[vocabularyID] {
			term, err := p.terms.FindTerm(ctx, termID)
			if errors.Is(err, domain.ErrNotFound) {
				p.logger.DebugContext(ctx, "Skipping unknown taxonomy term", "term_id", termID, "vocabulary_id", vocabularyID)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to find taxonomy term %q: %w", termID, err)
			}

			closure, err := p.resolver.Closure(ctx, term)
			if err != nil {
				return nil, err
			}
			for _, member := range closure {
				if _, dup := seen[member.ID]; dup {
					continue
				}
				seen[member.ID] = struct{}{}
				ids = append(ids, member.ID)
			}
		}

		if len(ids) > 0 {
			taxonomy[key] = ids
		}
	}

	return taxonomy, nil
}

func (p *Projector) vocabularyKey(ctx context.Context, id string) (string, error) {
	if key, ok := p.vocabularyKeys[id]; ok {
		return key, nil
	}

	key := id
	vocabulary, err := p.vocabularies.FindVocabulary(ctx, id)
	switch {
	case err == nil:
		key = vocabulary.Key()
	case errors.Is(err, domain.ErrNotFound):
		p.logger.DebugContext(ctx, "Unknown vocabulary, keying taxonomy by id", "vocabulary_id", id)
	default:
		return "", fmt.Errorf("failed to find vocabulary %q: %w", id, err)
	}

	p.vocabularyKeys[id] = key
	return key, nil
}

// attachment loads the binary payload of a record, if it has an attachable one.
func (p *Projector) attachment(ctx context.Context, kind domain.ObjectType, rec domain.SourceRecord, fields map[string]any) (*domain.Attachment, error) {
	var fileID, declared string

	switch kind {
	case domain.ObjectContent:
		ref, ok := fields[domain.FieldAttachment].(string)
		if !ok || ref == "" {
			return nil, nil
		}
		fileID = ref
	case domain.ObjectDam:
		if rec.OriginalFileID == "" {
			return nil, nil
		}
		if !p.filter.Allows(rec.ContentType) {
			return nil, nil
		}
		fileID = rec.OriginalFileID
		declared = MediaType(rec.ContentType)
	default:
		return nil, nil
	}

	if p.files == nil {
		return nil, nil
	}

	file, err := p.files.FindFile(ctx, fileID)
	if errors.Is(err, domain.ErrNotFound) {
		p.logger.WarnContext(ctx, "Attached file not found", "record_id", rec.ID, "file_id", fileID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", fileID, err)
	}

	if !p.filter.WithinLimit(len(file.Data)) {
		p.logger.WarnContext(ctx, "Skipping oversized attachment",
			"record_id", rec.ID,
			"file_id", fileID,
			"size", len(file.Data),
			"max_size", p.filter.MaxSize())
		return nil, nil
	}

	mime := declared
	if mime == "" {
		mime = DetectMIMEType(file.Data)
	}

	return &domain.Attachment{
		Field:    domain.FieldFile,
		MIMEType: mime,
		Data:     file.Data,
	}, nil
}

// normalizeTarget turns a scalar or list target into a non-empty list of strings.
func normalizeTarget(target any) []string {
	var out []string

	switch v := target.(type) {
	case nil:
	case string:
		if v != "" {
			out = []string{v}
		}
	case []string:
		out = slices.Clone(v)
	case []any:
		out = make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringValue(item))
		}
	default:
		if list, err := cast.ToStringSliceE(v); err == nil {
			out = list
		} else {
			out = []string{stringValue(v)}
		}
	}

	if len(out) == 0 {
		return []string{domain.GlobalTarget}
	}
	return out
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return cast.ToString(t)
	}
}

func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, false
		}
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

func optionalInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
