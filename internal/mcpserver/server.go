package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all ScamSquatch tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("scamsquatch", "0.1.0")
	client := NewAPIClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolAnalyzeSwap, h.HandleAnalyzeSwap)
	s.AddTool(ToolGetBridgeQuote, h.HandleGetBridgeQuote)
	s.AddTool(ToolBridgeStatus, h.HandleBridgeStatus)
	s.AddTool(ToolSimulateSwap, h.HandleSimulateSwap)
	s.AddTool(ToolListTokens, h.HandleListTokens)
	s.AddTool(ToolRecentAssessments, h.HandleRecentAssessments)

	return s
}
