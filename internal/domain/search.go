package domain

// SearchRequest is a plain match query over one namespace.
// Empty TypeID searches every type of the namespace.
type SearchRequest struct {
	Kind   ObjectType
	TypeID string
	Query  string
	Target string
	Limit  int
}

// SearchHit is one matching document with its stored fields.
type SearchHit struct {
	ID     string         `json:"id"`
	TypeID string         `json:"typeId"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields,omitempty"`
}

// SearchResult holds the hits of a SearchRequest.
type SearchResult struct {
	Total uint64      `json:"total"`
	Hits  []SearchHit `json:"hits"`
}
