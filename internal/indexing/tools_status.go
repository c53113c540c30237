package indexing

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgument takes no parameters.
type StatusArgument struct{}

// StatusHandler handles the index_status MCP tool.
type StatusHandler struct {
	service  *Service
	searcher Searcher
}

// NewStatusHandler creates a new status handler. searcher may be nil.
func NewStatusHandler(service *Service, searcher Searcher) *StatusHandler {
	return &StatusHandler{service: service, searcher: searcher}
}

// Handle reports the journaled sweep state and live document counts.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgument) (*mcp.CallToolResult, any, error) {
	return textResult(FormatStatus(ctx, h.service, h.searcher)), nil, nil
}

// FormatStatus renders the service status as markdown.
func FormatStatus(ctx context.Context, service *Service, searcher Searcher) string {
	states, last := service.Status()

	var sb strings.Builder
	if last == nil {
		sb.WriteString("No sweep has run yet.\n")
	} else {
		sb.WriteString(fmt.Sprintf("Last sweep %s (scope %s) finished %s\n", last.RunID, last.Scope, last.FinishedAt.Format("2006-01-02 15:04:05")))
		if last.Error != "" {
			sb.WriteString(fmt.Sprintf("Error: %s\n", last.Error))
		}
	}

	if len(states) > 0 {
		sb.WriteString("\n| kind | type | name | swept | failed | indexed |\n|---|---|---|---|---|---|\n")
	}
	for _, state := range states {
		indexed := "-"
		if searcher != nil {
			if count, err := searcher.DocCount(ctx, state.Kind, state.TypeID); err == nil {
				indexed = fmt.Sprintf("%d", count)
			}
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %s |\n", state.Kind, state.TypeID, state.Name, state.Count, state.Failed, indexed))
	}

	return sb.String()
}

// RegisterStatusTool registers the status tool with an MCP server.
func RegisterStatusTool(server *mcp.Server, service *Service, searcher Searcher) {
	handler := NewStatusHandler(service, searcher)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Show the outcome of the last reindex sweeps and the document count per type",
	}, handler.Handle)
}
