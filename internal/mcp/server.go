package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/cms-indexer/internal/indexing"
)

const instructions = "Admin surface of the CMS search indexer. " +
	"Use reindex or reindex_type to rebuild the index from the source of record, " +
	"index_status to inspect the last sweeps, and search_documents or get_document to verify results."

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// Service and Searcher enable the indexing tools when both are set.
	Service  *indexing.Service
	Searcher indexing.Searcher
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &mcp.ServerOptions{Instructions: instructions})

	if cfg.Service != nil && cfg.Searcher != nil {
		indexing.RegisterTools(s, cfg.Service, cfg.Searcher)
	}

	return s
}
