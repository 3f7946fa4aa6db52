// Package app wires configuration, storage and the analysis engine into the
// single object the HTTP server, the CLI and the MCP tools share.
package app

import (
	"context"
	"fmt"

	"team-insights-go/internal/access"
	"team-insights-go/internal/actionable"
	"team-insights-go/internal/config"
	"team-insights-go/internal/dataset"
	"team-insights-go/internal/interventions"
	"team-insights-go/internal/llm"
	"team-insights-go/internal/logger"
	"team-insights-go/internal/processor"
	"team-insights-go/internal/profile"
	"team-insights-go/internal/prompts"
	"team-insights-go/internal/relgraph"
	"team-insights-go/internal/store"
	"team-insights-go/internal/team"
	"team-insights-go/internal/transcripts"
	"team-insights-go/internal/types"
)

type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Store     *store.Store
	Analyzer  *profile.Analyzer
	Team      *team.Orchestrator
	Gate      *access.Gate
	Processor *processor.Processor
}

// New opens the store and builds every component. The generator is the HTTP
// gateway unless llm.use_mock is set. Close releases the store.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return Wire(cfg, log, st, nil), nil
}

// Wire assembles the engine over an open store. A nil generator selects one
// from cfg.
func Wire(cfg *config.Config, log *logger.Logger, st *store.Store, gen llm.Generator) *App {
	if gen == nil {
		if cfg.LLM.UseMock {
			log.Component("app").Warn("using mock text generation")
			gen = llm.Mock{}
		} else {
			gen = llm.NewGateway(cfg.LLM, log.Component("llm-gateway"))
		}
	}

	sources := []transcripts.ContentSource{}
	if cfg.Content.DriveURL != "" {
		sources = append(sources, transcripts.NewDriveSource(cfg.Content.DriveURL, cfg.Content.DriveToken, cfg.Content.Timeout))
	}
	if len(cfg.Content.LocalDirs) > 0 {
		sources = append(sources, transcripts.NewLocalSource(cfg.Content.LocalDirs...))
	}

	lib := prompts.NewLibrary(st, log.Component("prompts"))

	analyzer := profile.NewAnalyzer(profile.Deps{
		Store:     st,
		Selector:  transcripts.NewSelector(st, log.Component("transcripts"), sources...),
		Extractor: interventions.NewExtractor(log.Component("interventions")),
		Prompts:   lib,
		Generator: gen,
	}, profile.Settings{
		DefaultProvider:            cfg.LLM.Provider,
		DefaultModel:               cfg.LLM.Model,
		Temperature:                cfg.LLM.Temperature,
		MaxTokens:                  cfg.LLM.MaxTokens,
		MaxPromptTokens:            cfg.Analysis.MaxPromptTokens,
		IncrementalMaxPromptTokens: cfg.Analysis.IncrementalMaxPromptTokens,
	}, log.Component("profile-analyzer"))

	orchestrator := team.NewOrchestrator(team.Deps{
		Store:     st,
		Prompts:   lib,
		Generator: gen,
		Graph: relgraph.NewSynchronizer(st, cfg.Analysis.RelationshipEvidenceLimit,
			cfg.Analysis.DefaultInfluenceStrength, log.Component("relgraph")),
	}, team.Settings{
		DefaultProvider: cfg.LLM.Provider,
		DefaultModel:    cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		MaxTokens:       cfg.LLM.MaxTokens,
	}, log.Component("team-orchestrator"))

	return &App{
		Config:    cfg,
		Log:       log,
		Store:     st,
		Analyzer:  analyzer,
		Team:      orchestrator,
		Gate:      access.NewGate(st, log.Component("access")),
		Processor: processor.New(st, analyzer, orchestrator, log.Component("processor")),
	}
}

func (a *App) Close() error {
	return a.Store.Close()
}

// Authorize returns types.ErrForbidden when userID may not see behavioral
// analysis for the project.
func (a *App) Authorize(ctx context.Context, projectID, userID string) error {
	ok, err := a.CanAccess(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %q on project %s: %w", userID, projectID, types.ErrForbidden)
	}
	return nil
}

func (a *App) CanAccess(ctx context.Context, projectID, userID string) (bool, error) {
	return a.Gate.CanAccess(ctx, projectID, userID)
}

func (a *App) AnalyzePerson(ctx context.Context, projectID, personID string, opts profile.Options) (*profile.Result, error) {
	return a.Analyzer.AnalyzePerson(ctx, projectID, personID, opts)
}

func (a *App) TranscriptIngested(ctx context.Context, projectID, documentID string, names []string) (*processor.IngestResult, error) {
	return a.Processor.TranscriptIngested(ctx, projectID, documentID, names)
}

// TeamReport is the team analysis as served to callers, with its action card.
type TeamReport struct {
	*team.Result
	ActionCard actionable.ActionCard `json:"action_card"`
}

func (a *App) AnalyzeTeam(ctx context.Context, projectID string, opts team.Options) (*TeamReport, error) {
	res, err := a.Team.AnalyzeTeam(ctx, projectID, opts)
	if err != nil {
		return nil, err
	}
	return &TeamReport{Result: res, ActionCard: actionable.Generate(res.Analysis)}, nil
}

// ImportRoster loads people from a spreadsheet into the project and returns
// how many were saved.
func (a *App) ImportRoster(ctx context.Context, projectID, path string) (int, error) {
	people, err := dataset.LoadRoster(path, a.Log.Component("dataset"))
	if err != nil {
		return 0, err
	}
	for i, p := range people {
		p.ProjectID = projectID
		if _, err := a.Store.AddPerson(ctx, p); err != nil {
			return i, fmt.Errorf("import %s: %w", p.Name, err)
		}
	}
	return len(people), nil
}

// ExportReport writes the project's profiles and relationship graph to an
// xlsx workbook.
func (a *App) ExportReport(ctx context.Context, projectID, path string) error {
	profiles, err := a.Store.ListProfiles(ctx, projectID)
	if err != nil {
		return err
	}
	rels, err := a.Store.ListRelationships(ctx, projectID)
	if err != nil {
		return err
	}
	return dataset.WriteReport(path, profiles, rels)
}
