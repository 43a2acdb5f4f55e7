package personnel

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/kadry/docpipe"
	"github.com/hazyhaar/kadry/kit"
	"github.com/hazyhaar/kadry/ldimport"
)

// RegisterMCP registers the kadry_* tools on an MCP server. Tools read files
// from paths local to the server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerParseQualifications(srv)
	s.registerParseDossier(srv)
	s.registerImportQualifications(srv)
	s.registerImportDossiers(srv)
}

func (s *Service) tool(name string, endpoint kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.RequestID(newRequestID), kit.Logging(s.logger, name))(endpoint)
}

type pathReq struct {
	Path string `json:"path"`
}

func decodePath(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r pathReq
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	if r.Path == "" {
		return nil, errors.New("path is required")
	}
	return &kit.MCPDecodeResult{
		Request:   &r,
		EnrichCtx: func(ctx context.Context) context.Context { return kit.WithSource(ctx, r.Path) },
	}, nil
}

func (s *Service) registerParseQualifications(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "kadry_parse_qualifications",
		Description: "Extract position qualification requirements from a .docx file without saving them.",
		InputSchema: docpipe.InputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Path of the .docx file"},
		}, []string{"path"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.ParseQualificationsFile(ctx, req.(*pathReq).Path)
	}
	kit.RegisterMCPTool(srv, tool, s.tool(tool.Name, endpoint), decodePath)
}

func (s *Service) registerParseDossier(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "kadry_parse_dossier",
		Description: "Extract a personnel dossier (identity, service history, contacts) from a .docx file.",
		InputSchema: docpipe.InputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Path of the .docx file"},
		}, []string{"path"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.ParseDossierFile(ctx, req.(*pathReq).Path)
	}
	kit.RegisterMCPTool(srv, tool, s.tool(tool.Name, endpoint), decodePath)
}

type importQualificationsReq struct {
	Path   string `json:"path"`
	UnitID int64  `json:"unit_id"`
}

func (s *Service) registerImportQualifications(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "kadry_import_qualifications",
		Description: "Extract qualification requirements from a .docx file and save them under a unit.",
		InputSchema: docpipe.InputSchema(map[string]any{
			"path":    map[string]any{"type": "string", "description": "Path of the .docx file"},
			"unit_id": map[string]any{"type": "integer", "description": "Unit that owns the positions"},
		}, []string{"path", "unit_id"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*importQualificationsReq)
		return s.SaveQualificationsFile(ctx, r.UnitID, r.Path)
	}
	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r importQualificationsReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}
	kit.RegisterMCPTool(srv, tool, s.tool(tool.Name, endpoint), decode)
}

type importDossiersReq struct {
	Path        string `json:"path"`
	DryRun      *bool  `json:"dry_run"`
	CreateUsers bool   `json:"create_users"`
	SetRank     bool   `json:"set_rank"`
	UnitID      *int64 `json:"unit_id"`
}

func (s *Service) registerImportDossiers(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "kadry_import_dossiers",
		Description: "Import a zip archive of personnel .docx dossiers. Dry run (the default) only saves the parse artifact.",
		InputSchema: docpipe.InputSchema(map[string]any{
			"path":         map[string]any{"type": "string", "description": "Path of the .zip archive"},
			"dry_run":      map[string]any{"type": "boolean", "description": "Parse and save the artifact only (default true)"},
			"create_users": map[string]any{"type": "boolean", "description": "Create accounts for unknown emails"},
			"set_rank":     map[string]any{"type": "boolean", "description": "Apply the extracted rank"},
			"unit_id":      map[string]any{"type": "integer", "description": "Unit assigned to every imported profile"},
		}, []string{"path"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*importDossiersReq)
		opts := ldimport.Options{
			DryRun:      r.DryRun == nil || *r.DryRun,
			CreateUsers: r.CreateUsers,
			SetRank:     r.SetRank,
			UnitID:      r.UnitID,
		}
		return s.ImportDossiersFile(ctx, r.Path, opts)
	}
	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r importDossiersReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		if r.Path == "" {
			return nil, errors.New("path is required")
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}
	kit.RegisterMCPTool(srv, tool, s.tool(tool.Name, endpoint), decode)
}
