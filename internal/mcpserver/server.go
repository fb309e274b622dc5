// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes cart panel tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server with cart panel tools.
type Server struct {
	mcp *server.MCPServer
	api *Client
}

// New creates a new MCP server with all cart tools registered.
func New(api *Client) *Server {
	s := &Server{api: api}

	s.mcp = server.NewMCPServer(
		"Trolley",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("view_cart",
		mcp.WithDescription("Show the current cart panel state: open flag, item count, "+
			"subtotal in cents, and the rendered rows with their lifecycle state."),
	), s.viewCart)

	s.mcp.AddTool(mcp.NewTool("refresh_cart",
		mcp.WithDescription("Re-fetch the cart from the upstream backend and return the "+
			"fresh snapshot. The panel reconciles its rows against it."),
	), s.refreshCart)

	s.mcp.AddTool(mcp.NewTool("set_item_quantity",
		mcp.WithDescription("Change the quantity of one cart line item. Quantity 0 removes "+
			"the item. The change is asynchronous: the row enters a processing state and "+
			"settles once the backend confirms."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Line item key")),
		mcp.WithNumber("quantity", mcp.Required(), mcp.Description("New quantity, >= 0")),
	), s.setItemQuantity)

	s.mcp.AddTool(mcp.NewTool("remove_item",
		mcp.WithDescription("Remove one line item from the cart."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Line item key")),
	), s.removeItem)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) viewCart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.api.Panel(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) refreshCart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.api.Refresh(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) setItemQuantity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	qty, err := req.RequireInt("quantity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if qty < 0 {
		return mcp.NewToolResultError("quantity must be >= 0"), nil
	}
	out, err := s.api.SetQuantity(ctx, key, qty)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("accepted: %s", string(out))), nil
}

func (s *Server) removeItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.api.Remove(ctx, key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("accepted: %s", string(out))), nil
}
