package indexing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/cms-indexer/internal/domain"
)

// ReindexArgument defines full reindex parameters.
type ReindexArgument struct {
	Scope string `json:"scope" jsonschema_description:"Namespaces to rebuild: content, dam or all"`
}

// ReindexTypeArgument defines per-type reindex parameters.
type ReindexTypeArgument struct {
	Scope  string `json:"scope" jsonschema_description:"Namespace of the type: content or dam"`
	TypeID string `json:"type_id" jsonschema_description:"Content or dam type id to reindex"`
}

// ReindexHandler handles the reindex and reindex_type MCP tools.
type ReindexHandler struct {
	service *Service
}

// NewReindexHandler creates a new reindex handler.
func NewReindexHandler(service *Service) *ReindexHandler {
	return &ReindexHandler{service: service}
}

// HandleAll rebuilds every namespace of a scope.
func (h *ReindexHandler) HandleAll(ctx context.Context, req *mcp.CallToolRequest, args ReindexArgument) (*mcp.CallToolResult, any, error) {
	scope, err := domain.ParseScope(args.Scope)
	if err != nil {
		return errorResult("Invalid scope: %s", err), nil, nil
	}

	result, err := h.service.IndexAll(ctx, scope)
	if result == nil {
		return errorResult("Reindex failed: %s", err), nil, nil
	}

	out := FormatSweep(result, err)
	out.IsError = err != nil
	return out, nil, nil
}

// HandleType reindexes a single type.
func (h *ReindexHandler) HandleType(ctx context.Context, req *mcp.CallToolRequest, args ReindexTypeArgument) (*mcp.CallToolResult, any, error) {
	scope, err := domain.ParseScope(args.Scope)
	if err != nil {
		return errorResult("Invalid scope: %s", err), nil, nil
	}
	if strings.TrimSpace(args.TypeID) == "" {
		return errorResult("Type id cannot be empty"), nil, nil
	}

	result, err := h.service.IndexByType(ctx, scope, args.TypeID)
	if result == nil {
		return errorResult("Reindex failed: %s", err), nil, nil
	}

	out := FormatSweep(result, err)
	out.IsError = err != nil
	return out, nil, nil
}

// FormatSweep renders a sweep result as a tool result.
func FormatSweep(result *SweepResult, sweepErr error) *mcp.CallToolResult {
	return textResult(SweepReport(result, sweepErr))
}

// SweepReport renders a sweep result as markdown.
func SweepReport(result *SweepResult, sweepErr error) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Reindex %s of scope '%s'", result.RunID, result.Scope))
	if result.TypeID != "" {
		sb.WriteString(fmt.Sprintf(" (type %s)", result.TypeID))
	}
	sb.WriteString(fmt.Sprintf(" took %s\n\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond)))

	if len(result.Types) == 0 {
		sb.WriteString("No types indexed.\n")
	}
	for _, summary := range result.Types {
		sb.WriteString(fmt.Sprintf("- %s/%s (%s): %d records", summary.Kind, summary.TypeID, summary.Name, summary.Count))
		if n := len(summary.FailedIDs); n > 0 {
			sb.WriteString(fmt.Sprintf(", %d failed: %s", n, strings.Join(summary.FailedIDs, ", ")))
		}
		if summary.Error != "" {
			sb.WriteString(fmt.Sprintf(", error: %s", summary.Error))
		}
		sb.WriteString("\n")
	}

	if sweepErr != nil {
		sb.WriteString(fmt.Sprintf("\nErrors: %s\n", sweepErr))
	}

	return sb.String()
}

// RegisterReindexTools registers the reindex tools with an MCP server.
func RegisterReindexTools(server *mcp.Server, service *Service) {
	handler := NewReindexHandler(service)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reindex",
		Description: "Drop and rebuild the content, dam or all search namespaces from the source of record",
	}, handler.HandleAll)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reindex_type",
		Description: "Reindex every record of one content or dam type without dropping the namespace",
	}, handler.HandleType)
}
