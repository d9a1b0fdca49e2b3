package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/export"
	"github.com/bcrosbie/noose/internal/service"
	"github.com/bcrosbie/noose/internal/tui"
	"github.com/spf13/cobra"
)

func (a *app) newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, backend Backend) error {
				health, err := backend.Health(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), health)
			})
		},
	}
}

func (a *app) newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List, recruit and inspect agents",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List agents by number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, backend Backend) error {
				agents, err := backend.ListAgents(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), agents)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Recruit an agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, backend Backend) error {
				agent, err := backend.CreateAgent(ctx, service.CreateAgentRequest{Name: strings.Join(args, " ")})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), agent)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show an agent with their accidents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, backend Backend) error {
				detail, err := backend.AgentDetail(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), detail)
			})
		},
	})
	return cmd
}

func (a *app) newAccidentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accidents",
		Short: "Browse and declare accidents",
	}

	var (
		agentID    string
		unassigned bool
		limit      int64
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List the journal, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, backend Backend) error {
				accidents, err := backend.ListAccidents(ctx, service.ListAccidentsRequest{
					AgentID:    agentID,
					Unassigned: unassigned,
					Limit:      limit,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), accidents)
			})
		},
	}
	list.Flags().StringVar(&agentID, "agent", "", "only accidents of this agent id")
	list.Flags().BoolVar(&unassigned, "unassigned", false, "only accidents attributed to no agent")
	list.Flags().Int64Var(&limit, "limit", 0, "maximum rows (0 for all)")
	list.MarkFlagsMutuallyExclusive("agent", "unassigned")

	var request service.CreateAccidentRequest
	var cost string
	add := &cobra.Command{
		Use:   "add <description>",
		Short: "Declare an accident",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request.Description = strings.Join(args, " ")
			request.Cost = domain.ParseAmount(cost)
			if strings.TrimSpace(request.AddedBy) == "" {
				request.AddedBy = a.cfg.Reporter
			}
			return a.withBackend(cmd, func(ctx context.Context, backend Backend) error {
				accident, err := backend.CreateAccident(ctx, request)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), accident)
			})
		},
	}
	add.Flags().StringVar(&request.Date, "date", "", "YYYY-MM-DD, defaults to today")
	add.Flags().StringVar(&cost, "cost", "", "cost in euros; unparseable values count as 0")
	add.Flags().StringVar(&request.AddedBy, "by", "", "reporter, defaults to the configured reporter")
	add.Flags().StringVar(&request.AgentID, "agent", "", "agent id to attribute the accident to")

	cmd.AddCommand(list, add)
	return cmd
}

func (a *app) newLeaderboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the palmares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, backend Backend) error {
				board, err := backend.Leaderboard(ctx, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), board)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "agents per board (0 for the server default)")
	return cmd
}

func (a *app) newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the colleague profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, backend Backend) error {
				view, err := backend.Profile(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
}

func (a *app) newQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote",
		Short: "Show a random active quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, backend Backend) error {
				quote, err := backend.DailyQuote(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"quote": quote})
			})
		},
	}
}

func (a *app) newPopupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "popup",
		Short: "Show the active popup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, backend Backend) error {
				popup, err := backend.ActivePopup(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"popup": popup})
			})
		},
	}
}

func (a *app) newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the landing page data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, backend Backend) error {
				dashboard, err := backend.Dashboard(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dashboard)
			})
		},
	}
}

func (a *app) newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the journal, agents and palmares to an .xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, backend Backend) error {
				snapshot, err := backend.ExportSnapshot(ctx)
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = "noose-" + snapshot.GeneratedAt.Format("20060102") + ".xlsx"
				}
				if dir := filepath.Dir(path); dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return fmt.Errorf("create export dir: %w", err)
					}
				}
				file, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create %s: %w", path, err)
				}
				if err := export.WriteWorkbook(file, snapshot); err != nil {
					_ = file.Close()
					return err
				}
				if err := file.Close(); err != nil {
					return fmt.Errorf("close %s: %w", path, err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d accidents, %d agents)\n", path, len(snapshot.Accidents), len(snapshot.Agents))
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default noose-YYYYMMDD.xlsx)")
	return cmd
}

func (a *app) newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.dial(a.cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			statePath, err := tui.UIStatePath()
			if err != nil {
				a.log.Warn().Err(err).Msg("ui state disabled")
				statePath = ""
			}
			return tui.Run(tui.Options{
				Backend:        backend,
				RequestTimeout: a.cfg.RequestTimeout,
				Reporter:       a.cfg.Reporter,
				StatePath:      statePath,
				Debug:          a.level == "debug",
			})
		},
	}
}
