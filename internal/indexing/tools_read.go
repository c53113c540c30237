package indexing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/cms-indexer/internal/domain"
)

// DocumentArgument identifies one indexed document.
type DocumentArgument struct {
	Scope  string `json:"scope" jsonschema_description:"Namespace of the document: content or dam"`
	TypeID string `json:"type_id" jsonschema_description:"Content or dam type id"`
	ID     string `json:"id" jsonschema_description:"Record id"`
}

// DocumentHandler handles the get_document MCP tool.
type DocumentHandler struct {
	searcher Searcher
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(searcher Searcher) *DocumentHandler {
	return &DocumentHandler{searcher: searcher}
}

// Handle returns the stored fields of a document as JSON.
func (h *DocumentHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args DocumentArgument) (*mcp.CallToolResult, any, error) {
	scope, err := domain.ParseScope(args.Scope)
	if err != nil {
		return errorResult("Invalid scope: %s", err), nil, nil
	}
	kind, err := scope.ObjectType()
	if err != nil {
		return errorResult("Invalid scope: %s", err), nil, nil
	}
	if strings.TrimSpace(args.TypeID) == "" {
		return errorResult("Type id cannot be empty"), nil, nil
	}
	if strings.TrimSpace(args.ID) == "" {
		return errorResult("Id cannot be empty"), nil, nil
	}

	fields, err := h.searcher.Document(ctx, kind, args.TypeID, args.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return errorResult("Document not found: %s/%s", args.TypeID, args.ID), nil, nil
	}
	if err != nil {
		return errorResult("Failed to read document: %s", err), nil, nil
	}

	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return errorResult("Failed to encode document: %s", err), nil, nil
	}

	return textResult(fmt.Sprintf("## %s/%s\n\n```json\n%s\n```\n", args.TypeID, args.ID, data)), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *DocumentHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_document",
		Description: "Show the stored fields of one indexed content or asset document",
	}
}

// RegisterDocumentTool registers the document tool with an MCP server.
func RegisterDocumentTool(server *mcp.Server, searcher Searcher) {
	handler := NewDocumentHandler(searcher)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
