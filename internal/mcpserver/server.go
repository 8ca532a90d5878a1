package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all ScamShield tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("scamshield", "1.0.0")
	client := NewShieldClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolCheckNumber, h.HandleCheckNumber)
	s.AddTool(ToolLookupNumber, h.HandleLookupNumber)
	s.AddTool(ToolReportNumber, h.HandleReportNumber)
	s.AddTool(ToolAddToWhitelist, h.HandleAddToWhitelist)
	s.AddTool(ToolRemoveFromWhitelist, h.HandleRemoveFromWhitelist)
	s.AddTool(ToolGetShieldStats, h.HandleGetShieldStats)

	return s
}
