package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/spf13/cast"

	"github.com/sha1n/cms-indexer/internal/domain"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	domain.DateFormat,
}

// prepareDocument converts an index document into the value bleve indexes.
// Null values are dropped and date fields become time.Time.
func prepareDocument(doc domain.IndexDocument, tm domain.TypeMapping) map[string]any {
	body := doc.Body()

	for key, value := range body {
		if value == nil {
			delete(body, key)
		}
	}

	for name, entry := range tm {
		if entry.Type != domain.IndexTypeDate {
			continue
		}
		value, ok := body[name]
		if !ok {
			continue
		}
		if t, ok := parseDate(value); ok {
			body[name] = t
		} else {
			delete(body, name)
		}
	}

	return body
}

// parseDate accepts unix seconds, RFC3339 and yyyy-MM-dd values.
func parseDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), true
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		secs, err := cast.ToInt64E(v)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(secs, 0).UTC(), true
	}
}

func toSearchResult(kind domain.ObjectType, results *bleve.SearchResult) *domain.SearchResult {
	out := &domain.SearchResult{
		Total: results.Total,
		Hits:  make([]domain.SearchHit, 0, len(results.Hits)),
	}
	for _, hit := range results.Hits {
		typeID, _ := hit.Fields[kind.TypeField()].(string)
		out.Hits = append(out.Hits, domain.SearchHit{
			ID:     hit.ID,
			TypeID: typeID,
			Score:  hit.Score,
			Fields: hit.Fields,
		})
	}
	return out
}
