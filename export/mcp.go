package export

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/recolte/kit"
)

// RegisterMCP registers the capture and export tools on an MCP server.
func (e *Exporter) RegisterMCP(srv *mcp.Server) {
	e.registerCaptureTool(srv)
	e.registerExportTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

var requestProperties = map[string]any{
	"sections": map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string", "enum": []string{"report", "diffs", "logs"}},
		"description": "Section keys to capture; defaults to report and diffs",
	},
	"allTurns": map[string]any{
		"type":        "boolean",
		"description": "Sweep every turn instead of the one in view",
	},
	"allVersions": map[string]any{
		"type":        "boolean",
		"description": "Visit every version of each turn",
	},
}

func (e *Exporter) registerCaptureTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "recolte_capture",
		Description: "Capture report, diff and log sections from the open task page without writing files.",
		InputSchema: inputSchema(requestProperties, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return e.Capture(kit.WithTransport(ctx, "mcp"), *req.(*Request))
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeRequest)
}

func (e *Exporter) registerExportTool(srv *mcp.Server) {
	props := map[string]any{
		"format": map[string]any{
			"type":        "string",
			"enum":        []string{"json", "md"},
			"description": "Artifact format; defaults to the configured one",
		},
	}
	for k, v := range requestProperties {
		props[k] = v
	}
	tool := &mcp.Tool{
		Name:        "recolte_export",
		Description: "Capture the open task page and write the sections to the export folder.",
		InputSchema: inputSchema(props, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return e.Export(kit.WithTransport(ctx, "mcp"), *req.(*Request))
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeRequest)
}

func decodeRequest(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r Request
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}
