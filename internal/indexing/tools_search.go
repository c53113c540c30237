package indexing

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/cms-indexer/internal/domain"
)

// DefaultSearchLimit is the number of hits returned when no limit is given.
const DefaultSearchLimit = 20

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query  string `json:"query" jsonschema_description:"Full-text query matched against document text"`
	Scope  string `json:"scope" jsonschema_description:"Namespace to search: content or dam"`
	TypeID string `json:"type_id,omitempty" jsonschema_description:"Restrict to one content or dam type id"`
	Target string `json:"target,omitempty" jsonschema_description:"Restrict to documents visible in this workspace scope (e.g., global)"`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"Maximum number of hits (default 20)"`
}

// SearchHandler handles the search_documents MCP tool.
type SearchHandler struct {
	searcher Searcher
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searcher Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Handle runs the query and returns formatted hits.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	scope, err := domain.ParseScope(args.Scope)
	if err != nil {
		return errorResult("Invalid scope: %s", err), nil, nil
	}
	kind, err := scope.ObjectType()
	if err != nil {
		return errorResult("Invalid scope: %s", err), nil, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	result, err := h.searcher.Search(ctx, domain.SearchRequest{
		Kind:   kind,
		TypeID: args.TypeID,
		Query:  args.Query,
		Target: args.Target,
		Limit:  limit,
	})
	if err != nil {
		return errorResult("Search failed: %s", err), nil, nil
	}

	return h.formatResults(result, args.Query), nil, nil
}

func (h *SearchHandler) formatResults(result *domain.SearchResult, queryStr string) *mcp.CallToolResult {
	if result.Total == 0 {
		return textResult(fmt.Sprintf("No documents found for query: %s", queryStr))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d documents for '%s':\n\n", result.Total, queryStr))

	for i, hit := range result.Hits {
		text, _ := hit.Fields[domain.FieldText].(string)
		sb.WriteString(fmt.Sprintf("### %d. %s/%s\n", i+1, hit.TypeID, hit.ID))
		sb.WriteString(fmt.Sprintf("**Score**: %.4f\n", hit.Score))
		if text != "" {
			sb.WriteString(fmt.Sprintf("**Text**: %s\n", text))
		}
		sb.WriteString("\n")
	}

	if result.Total > uint64(len(result.Hits)) {
		sb.WriteString(fmt.Sprintf("... and %d more documents\n", result.Total-uint64(len(result.Hits))))
	}

	return textResult(sb.String())
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_documents",
		Description: "Run a plain match query over indexed content or assets to verify what the index holds",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, searcher Searcher) {
	handler := NewSearchHandler(searcher)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
