package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scenario-advisor/internal/advisor"
	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/httpapi"
	"scenario-advisor/internal/logger"
)

var (
	configPath string
	rt         *components
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "advisor",
		Short: "Scenario-driven investing assistant",
		Long: `advisor tracks investment scenarios, checks news for each one every day,
ranks dividend payers on request and places market orders through the brokerage API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if rt != nil {
				return nil
			}
			r, err := bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			rt = r
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt != nil {
				rt.shutdown(context.Background())
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")

	root.AddCommand(appCommands(func() *advisor.App { return rt.app })...)
	root.AddCommand(serveCmd(), shellCmd(), summaryCmd())
	return root
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daily scheduler and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = rt.cfg.Server.Addr
			}
			rt.app.Start(ctx)
			defer rt.writeSummary(context.Background())

			srv := httpapi.NewServer(addr, rt.app, rt.cfg.News.Timeout+rt.cfg.Brokerage.Timeout)
			errc := make(chan error, 1)
			go func() { errc <- srv.Start(ctx) }()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr from config)")
	return cmd
}

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session with the daily scheduler running in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Info(cmd.Context(), "Shell started", "check_time", rt.cfg.Schedule.CheckTime)
			defer rt.writeSummary(context.Background())
			return runShell(cmd.Context(), rt.app, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary [YYYY-MM-DD]",
		Short: "Write the per-symbol trade summary CSV for a day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.sink == nil {
				return apperr.Statef("summary", "journal.dir is not configured")
			}
			day := time.Now()
			if len(args) == 1 {
				d, err := time.ParseInLocation("2006-01-02", args[0], time.Local)
				if err != nil {
					return apperr.Validationf("summary", "invalid date %q: want YYYY-MM-DD", args[0])
				}
				day = d
			}
			p, err := rt.sink.WriteDaySummary(day)
			if err != nil {
				return err
			}
			if p == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No trades recorded for", day.Format("2006-01-02"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Summary written:", p)
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(apperr.ExitCode(err))
	}
}
