package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"team-insights-go/internal/app"
	"team-insights-go/internal/mcptools"
	"team-insights-go/internal/profile"
	"team-insights-go/internal/team"
	"team-insights-go/internal/types"
)

var createProjectCmd = &cobra.Command{
	Use:   "create-project",
	Short: "Create or update a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		owner, _ := cmd.Flags().GetString("owner")
		name, _ := cmd.Flags().GetString("name")
		enable, _ := cmd.Flags().GetBool("enable")
		policy, _ := cmd.Flags().GetString("policy")
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")
		if owner == "" {
			return fmt.Errorf("--owner is required")
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			p, err := a.Store.CreateProject(ctx, types.Project{
				ID:                projectID,
				Name:              name,
				OwnerID:           owner,
				BehavioralEnabled: enable,
				AccessPolicy:      types.AccessPolicy(policy),
				LLMProvider:       provider,
				LLMModel:          model,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		})
	},
}

var setRoleCmd = &cobra.Command{
	Use:   "set-role <user> <owner|admin|member>",
	Short: "Set a user's membership role in the project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Store.SetMemberRole(ctx, projectID, args[0], types.MemberRole(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s on %s\n", args[0], args[1], projectID)
			return nil
		})
	},
}

var importRosterCmd = &cobra.Command{
	Use:   "import-roster <file.xlsx>",
	Short: "Import team members and contacts from a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.ImportRoster(ctx, projectID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d people into %s\n", n, projectID)
			return nil
		})
	},
}

var analyzePersonCmd = &cobra.Command{
	Use:   "analyze-person <person-id>",
	Short: "Build or refresh one person's behavioral profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		user, _ := cmd.Flags().GetString("user")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := authorizeIfUser(ctx, a, user); err != nil {
				return err
			}
			res, err := a.AnalyzePerson(ctx, projectID, args[0], profile.Options{Force: force})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

var analyzeTeamCmd = &cobra.Command{
	Use:   "analyze-team",
	Short: "Analyze team dynamics across all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		user, _ := cmd.Flags().GetString("user")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := authorizeIfUser(ctx, a, user); err != nil {
				return err
			}
			res, err := a.AnalyzeTeam(ctx, projectID, team.Options{Force: force})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <document-id> <participant>...",
	Short: "Refresh profiles after a transcript was ingested",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.TranscriptIngested(ctx, projectID, args[0], args[1:])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

var checkAccessCmd = &cobra.Command{
	Use:   "check-access <user>",
	Short: "Report whether a user may view behavioral analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			ok, err := a.CanAccess(ctx, projectID, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"allowed": ok})
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <out.xlsx>",
	Short: "Export profiles and the relationship graph to a workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireProject(); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.ExportReport(ctx, projectID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		})
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis tools over MCP stdio",
	Long: `Runs a Model Context Protocol server on stdin/stdout exposing
analyze_person, analyze_team, transcript_ingested and check_access.
Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		os.Setenv("LOG_OUTPUT", "stderr")
		return withApp(cmd, func(_ context.Context, a *app.App) error {
			return server.ServeStdio(mcptools.NewServer(a))
		})
	},
}

func authorizeIfUser(ctx context.Context, a *app.App, user string) error {
	if user == "" {
		return nil
	}
	return a.Authorize(ctx, projectID, user)
}

func init() {
	createProjectCmd.Flags().String("owner", "", "owner user id")
	createProjectCmd.Flags().String("name", "", "display name")
	createProjectCmd.Flags().Bool("enable", true, "enable behavioral analysis")
	createProjectCmd.Flags().String("policy", string(types.AccessAdminOnly), "access policy: admin_only or all_members")
	createProjectCmd.Flags().String("provider", "", "text-generation provider for this project")
	createProjectCmd.Flags().String("model", "", "text-generation model for this project")

	for _, c := range []*cobra.Command{analyzePersonCmd, analyzeTeamCmd} {
		c.Flags().Bool("force", false, "re-analyze even when nothing changed")
		c.Flags().String("user", "", "check this user against the access policy first")
	}

	rootCmd.AddCommand(createProjectCmd, setRoleCmd, importRosterCmd, analyzePersonCmd, analyzeTeamCmd,
		ingestCmd, checkAccessCmd, exportCmd, mcpCmd)
}
