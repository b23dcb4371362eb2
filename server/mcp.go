package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	lunamcp "github.com/mbocsi/lunalink/mcp"
)

func (c *Coordinator) registerTools(s *lunamcp.MCPServer) {
	listSessions := mcp.NewTool("list_sessions", mcp.WithDescription("List the earth connections of this rover and their capture sessions"))
	s.AddTool(listSessions, c.toolListSessions)

	stopAll := mcp.NewTool("stop_all_streams", mcp.WithDescription("Stop every running video stream, as if each earth had sent STOP_VIDEO"))
	s.AddTool(stopAll, c.toolStopAllStreams)
}

func (c *Coordinator) toolListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return lunamcp.JSONResult(c.Registry.Snapshot())
}

func (c *Coordinator) toolStopAllStreams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stopped := c.Registry.StopAll()
	return lunamcp.JSONResult(map[string]int{"stopped": stopped})
}
