package indexing

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers every indexing tool with an MCP server.
func RegisterTools(server *mcp.Server, service *Service, searcher Searcher) {
	RegisterReindexTools(server, service)
	RegisterStatusTool(server, service, searcher)
	RegisterSearchTool(server, searcher)
	RegisterDocumentTool(server, searcher)
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
