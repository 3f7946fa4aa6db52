// Package cli implements the teamctl command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"team-insights-go/internal/app"
	"team-insights-go/internal/config"
	"team-insights-go/internal/logger"
)

var (
	configPath string
	dbPath     string
	projectID  string
)

var rootCmd = &cobra.Command{
	Use:   "teamctl",
	Short: "Behavioral profiling and team dynamics from meeting transcripts",
	Long: `teamctl - team insights operator tool

Builds behavioral profiles of the people in a project's meeting transcripts,
analyzes how the team works together and exports the results.

Commands:
  - create-project / set-role: project and access setup
  - import-roster: load people from a spreadsheet
  - analyze-person / analyze-team / ingest: run analyses
  - check-access: evaluate the access policy for a user
  - export: write profiles and the relationship graph to xlsx
  - mcp: serve the analysis tools over MCP stdio`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite DB path (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&projectID, "project", "p", "", "project id")
}

// withApp loads configuration, opens the engine, runs fn and closes it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	a, err := app.New(cfg, logger.New())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func requireProject() error {
	if projectID == "" {
		return fmt.Errorf("--project is required")
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
