// Package cli is the noose command line: one cobra command per server
// operation plus the terminal UI.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bcrosbie/noose/internal/client"
	"github.com/bcrosbie/noose/internal/config"
	"github.com/bcrosbie/noose/internal/domain"
	"github.com/bcrosbie/noose/internal/logging"
	"github.com/bcrosbie/noose/internal/service"
	"github.com/bcrosbie/noose/internal/tui"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// Backend is everything the commands call on the server.
type Backend interface {
	tui.Backend
	Health(ctx context.Context) (map[string]any, error)
	Profile(ctx context.Context) (service.ProfileView, error)
	DailyQuote(ctx context.Context) (*domain.DailyQuote, error)
	ActivePopup(ctx context.Context) (*domain.Popup, error)
	Close() error
}

// Dialer opens a Backend for the resolved client configuration.
type Dialer func(cfg config.ClientConfig) (Backend, error)

func dialGRPC(cfg config.ClientConfig) (Backend, error) {
	c, err := client.New(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type app struct {
	dial Dialer

	cfgFile  string
	addr     string
	logLevel string
	timeout  time.Duration

	cfg     config.ClientConfig
	cfgPath string
	level   string
	log     *logging.Logger
}

// NewRootCmd builds the command tree. A nil dial uses the gRPC client.
func NewRootCmd(dial Dialer) *cobra.Command {
	if dial == nil {
		dial = dialGRPC
	}
	a := &app{dial: dial}

	cmd := &cobra.Command{
		Use:   "noose-cli",
		Short: "NOOSE: record and rank workplace accidents",
		Long:  "noose-cli talks to a noose-server over gRPC. Every command prints JSON except tui and export.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "client config file (default ~/.config/noose/noose.yaml)")
	cmd.PersistentFlags().StringVar(&a.addr, "addr", "", "gRPC address, overrides config and NOOSE_ADDR")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error, silent)")
	cmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "per-request timeout")

	cmd.AddCommand(a.newHealthCmd())
	cmd.AddCommand(a.newAgentsCmd())
	cmd.AddCommand(a.newAccidentsCmd())
	cmd.AddCommand(a.newLeaderboardCmd())
	cmd.AddCommand(a.newProfileCmd())
	cmd.AddCommand(a.newQuoteCmd())
	cmd.AddCommand(a.newPopupCmd())
	cmd.AddCommand(a.newDashboardCmd())
	cmd.AddCommand(a.newExportCmd())
	cmd.AddCommand(a.newTUICmd())

	return cmd
}

// Execute runs the command tree with args and reports errors on stderr.
func Execute(args []string, stdout, stderr io.Writer) error {
	root := NewRootCmd(nil)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "error:", client.Message(err))
		return err
	}
	return nil
}

func (a *app) setup(stderr io.Writer) error {
	cfg, path, err := config.LoadClient(a.cfgFile)
	if err != nil {
		return err
	}
	if addr := strings.TrimSpace(a.addr); addr != "" {
		cfg.GRPCAddr = addr
	}
	if a.timeout > 0 {
		cfg.RequestTimeout = a.timeout
	}
	level := a.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	a.cfg = cfg
	a.cfgPath = path
	a.level = strings.ToLower(strings.TrimSpace(level))
	a.log = logging.New(stderr, level).Sub("cli")
	return nil
}

// withBackend dials, runs fn with a context bounded by the connect timeout
// plus the request timeout, then closes the connection.
func (a *app) withBackend(cmd *cobra.Command, fn func(ctx context.Context, backend Backend) error) error {
	backend, err := a.dial(a.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close connection")
		}
	}()
	a.log.Debug().Str("addr", a.cfg.GRPCAddr).Str("config", a.cfgPath).Str("command", cmd.CommandPath()).Msg("dialed server")

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.ConnectTimeout+a.cfg.RequestTimeout)
	defer cancel()
	return fn(ctx, backend)
}

func printJSON(w io.Writer, value any) error {
	serialized, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(serialized))
	return err
}
