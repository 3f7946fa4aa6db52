// Package mcptools exposes the analysis engine as MCP tools over stdio.
package mcptools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"team-insights-go/internal/app"
	"team-insights-go/internal/processor"
	"team-insights-go/internal/profile"
	"team-insights-go/internal/team"
)

// Engine is the subset of app.App the tools call.
type Engine interface {
	Authorize(ctx context.Context, projectID, userID string) error
	CanAccess(ctx context.Context, projectID, userID string) (bool, error)
	AnalyzePerson(ctx context.Context, projectID, personID string, opts profile.Options) (*profile.Result, error)
	AnalyzeTeam(ctx context.Context, projectID string, opts team.Options) (*app.TeamReport, error)
	TranscriptIngested(ctx context.Context, projectID, documentID string, names []string) (*processor.IngestResult, error)
}

// Version is set at build time via ldflags.
var Version = "dev"

// NewServer returns an MCP server with every tool registered.
func NewServer(engine Engine) *server.MCPServer {
	s := server.NewMCPServer(
		"team-insights",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	Register(s, engine)
	return s
}

func Register(s *server.MCPServer, engine Engine) {
	t := &Tools{engine: engine}
	s.AddTool(t.AnalyzePersonDefinition(), t.AnalyzePerson)
	s.AddTool(t.AnalyzeTeamDefinition(), t.AnalyzeTeam)
	s.AddTool(t.TranscriptIngestedDefinition(), t.TranscriptIngested)
	s.AddTool(t.CheckAccessDefinition(), t.CheckAccess)
}

type Tools struct {
	engine Engine
}

func (t *Tools) AnalyzePersonDefinition() mcp.Tool {
	return mcp.NewTool("analyze_person",
		mcp.WithDescription(
			"Build or refresh the behavioral profile of one person from the project's transcripts. "+
				"Runs incrementally when only new transcripts are available and skips when nothing changed.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id.")),
		mcp.WithString("person_id", mcp.Required(), mcp.Description("Team member or contact id.")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Caller's user id, checked against the project's access policy.")),
		mcp.WithBoolean("force", mcp.Description("Re-analyze even when no new transcripts exist.")),
	)
}

func (t *Tools) AnalyzePerson(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	personID := req.GetString("person_id", "")
	if projectID == "" || personID == "" {
		return mcp.NewToolResultError("project_id and person_id are required"), nil
	}
	if err := t.engine.Authorize(ctx, projectID, req.GetString("user_id", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := t.engine.AnalyzePerson(ctx, projectID, personID, profile.Options{Force: boolArg(req, "force", false)})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (t *Tools) AnalyzeTeamDefinition() mcp.Tool {
	return mcp.NewTool("analyze_team",
		mcp.WithDescription(
			"Analyze team dynamics (cohesion, alliances, tensions, influence) across all behavioral profiles "+
				"of a project. Returns the cached analysis unless membership or a profile changed.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id.")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Caller's user id.")),
		mcp.WithBoolean("force", mcp.Description("Recompute even when the stored analysis is current.")),
	)
}

func (t *Tools) AnalyzeTeam(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("project_id is required"), nil
	}
	if err := t.engine.Authorize(ctx, projectID, req.GetString("user_id", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := t.engine.AnalyzeTeam(ctx, projectID, team.Options{Force: boolArg(req, "force", false)})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (t *Tools) TranscriptIngestedDefinition() mcp.Tool {
	return mcp.NewTool("transcript_ingested",
		mcp.WithDescription(
			"Refresh the profiles of everyone who took part in a newly ingested transcript, "+
				"then refresh team dynamics.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id.")),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Id of the ingested transcript document.")),
		mcp.WithString("participants", mcp.Required(), mcp.Description("Comma-separated participant names as they appear in the transcript.")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Caller's user id.")),
	)
}

func (t *Tools) TranscriptIngested(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	documentID := req.GetString("document_id", "")
	names := splitNames(req.GetString("participants", ""))
	if projectID == "" || documentID == "" || len(names) == 0 {
		return mcp.NewToolResultError("project_id, document_id and participants are required"), nil
	}
	if err := t.engine.Authorize(ctx, projectID, req.GetString("user_id", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := t.engine.TranscriptIngested(ctx, projectID, documentID, names)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (t *Tools) CheckAccessDefinition() mcp.Tool {
	return mcp.NewTool("check_access",
		mcp.WithDescription("Report whether a user may view behavioral analysis for a project."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id.")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User id to check.")),
	)
}

func (t *Tools) CheckAccess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("project_id is required"), nil
	}
	ok, err := t.engine.CanAccess(ctx, projectID, req.GetString("user_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]bool{"allowed": ok})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("encode result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func boolArg(req mcp.CallToolRequest, key string, def bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return def
	}
	return v
}

func splitNames(s string) []string {
	var out []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
