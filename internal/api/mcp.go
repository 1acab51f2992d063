package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/ecoswap/internal/advisor"
	"github.com/kalambet/ecoswap/internal/items"
	"github.com/kalambet/ecoswap/internal/pipeline"
	"github.com/kalambet/ecoswap/internal/places"
	"github.com/kalambet/ecoswap/internal/relevance"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service *pipeline.Service
	Advisor *advisor.Advisor // optional; describe_item reports unavailable when nil
	Version string
}

// NewMCPServer creates an MCP server exposing the item exchange as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Advisor == nil {
		deps.Advisor = advisor.New(nil)
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := server.NewMCPServer(
		"ecoswap",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("ecoswap: a community exchange for lending, recycling and repairing items."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_items",
			mcp.WithDescription("Find up to 5 listed items whose name is closest to the query."),
			mcp.WithString("query", mcp.Description("Item name to look for"), mcp.Required()),
		),
		mcpSearchItems(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_item",
			mcp.WithDescription("List an item that others can borrow."),
			mcp.WithString("productname", mcp.Description("Item name"), mcp.Required()),
			mcp.WithString("description", mcp.Description("At least 10 characters"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Contact name"), mcp.Required()),
			mcp.WithString("email", mcp.Description("Contact email"), mcp.Required()),
			mcp.WithString("phonenum", mcp.Description("Contact phone number"), mcp.Required()),
		),
		mcpSubmitItem(deps),
	)

	s.AddTool(
		mcp.NewTool("discover_items",
			mcp.WithDescription("Search items to borrow, keep only those an AI judges relevant, and add a category, best action and eco tip."),
			mcp.WithString("query", mcp.Description("Item name to look for"), mcp.Required()),
		),
		mcpDiscoverItems(deps),
	)

	s.AddTool(
		mcp.NewTool("nearby_places",
			mcp.WithDescription("List places near the user that recycle or repair an item."),
			mcp.WithString("kind", mcp.Description("recycle or repair"), mcp.Required()),
			mcp.WithString("item", mcp.Description("Item to recycle or repair")),
			mcp.WithString("category", mcp.Description("E-waste, Fashion or Tools; classified from item when omitted")),
			mcp.WithNumber("lat", mcp.Description("Latitude; detected from IP when omitted")),
			mcp.WithNumber("lon", mcp.Description("Longitude; detected from IP when omitted")),
			mcp.WithNumber("max_distance", mcp.Description("Maximum distance in meters (0 = no limit)")),
		),
		mcpNearbyPlaces(deps),
	)

	s.AddTool(
		mcp.NewTool("describe_item",
			mcp.WithDescription("Draft a short listing description for an item."),
			mcp.WithString("item", mcp.Description("Item name"), mcp.Required()),
		),
		mcpDescribeItem(deps),
	)

	return s
}

func mcpSearchItems(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		cands, err := deps.Service.Search(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcpJSON(items.Records(cands))
	}
}

func mcpSubmitItem(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rec := items.Record{
			ProductName:  req.GetString("productname", ""),
			Description:  req.GetString("description", ""),
			ContactName:  req.GetString("name", ""),
			ContactEmail: req.GetString("email", ""),
			ContactPhone: req.GetString("phonenum", ""),
		}
		if err := deps.Service.Submit(ctx, pipeline.SubmitRequest{Record: rec, Strict: true}); err != nil {
			var verr *items.ValidationError
			if errors.As(err, &verr) {
				return mcpError(verr.Error()), nil
			}
			return mcpError(fmt.Sprintf("failed to save: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Saved %q", items.SanitizeField(rec.ProductName))), nil
	}
}

func mcpDiscoverItems(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		d, err := deps.Service.Discover(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("discover failed: %v", err)), nil
		}
		return mcpJSON(d)
	}
}

func mcpNearbyPlaces(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kindArg, err := req.RequireString("kind")
		if err != nil {
			return mcpError("kind is required"), nil
		}
		kind, err := relevance.ParseKind(kindArg)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		nr := pipeline.NearbyRequest{
			Kind:        kind,
			Item:        req.GetString("item", ""),
			MaxDistance: req.GetFloat("max_distance", 0),
		}
		if s := req.GetString("category", ""); s != "" {
			c, ok := advisor.ParseCategory(s)
			if !ok {
				return mcpError(fmt.Sprintf("unknown category %q", s)), nil
			}
			nr.Category = c
		}

		args := req.GetArguments()
		_, hasLat := args["lat"]
		_, hasLon := args["lon"]
		if hasLat != hasLon {
			return mcpError("lat and lon must be given together"), nil
		}
		if hasLat {
			nr.Location = &places.Location{Coordinates: places.Coordinates{
				Lat: req.GetFloat("lat", 0),
				Lon: req.GetFloat("lon", 0),
			}}
		}

		res, err := deps.Service.Nearby(ctx, nr)
		if err != nil {
			return mcpError(fmt.Sprintf("nearby failed: %v", err)), nil
		}
		return mcpJSON(res)
	}
}

func mcpDescribeItem(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		item, err := req.RequireString("item")
		if err != nil || items.SanitizeField(item) == "" {
			return mcpError("item is required"), nil
		}
		desc, err := deps.Advisor.DescribeItem(ctx, items.SanitizeField(item))
		if err != nil {
			return mcpError(fmt.Sprintf("description failed: %v", err)), nil
		}
		return mcpText(desc), nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
