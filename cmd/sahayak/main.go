package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"agrisahayak.in/agri-sahayak/internal/app"
	"agrisahayak.in/agri-sahayak/internal/config"
	"agrisahayak.in/agri-sahayak/internal/session"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sahayak",
	Short: "Agri Sahayak - a farming assistant for the terminal",
	Long: `Agri Sahayak answers farming questions, shows mandi prices and
arrivals, and gives weather based advice for your location.

Run without arguments to start the interactive shell.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The shell shares the terminal with the logger, so only
		// warnings are shown unless asked for more.
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runShell,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var askImage string

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	askCmd.Flags().StringVar(&askImage, "image", "", "Path to a crop photo to attach")
	rootCmd.AddCommand(askCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	out := newConsole(cmd.OutOrStdout())
	a, err := buildApp(cfg, logger, out.audio)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	restored := a.Session().RestoreAsync(ctx)
	go func() {
		<-restored
		if u := a.Session().Username(); u != "" && a.Session().IsAuthenticated() {
			out.info("Signed in as " + u)
		}
	}()

	sh := newShell(a, cmd.InOrStdin(), out)
	return sh.Run(ctx)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	out := newConsole(cmd.OutOrStdout())
	a, err := buildApp(cfg, logger, out.audio)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	a.Session().Restore(ctx)
	if !a.Session().IsAuthenticated() {
		out.fail(app.UserMessage(session.ErrNotAuthenticated))
		return session.ErrNotAuthenticated
	}
	msg, err := a.Chat.Send(ctx, strings.Join(args, " "), askImage)
	if err != nil {
		out.fail(app.UserMessage(err))
		return err
	}
	out.message(msg)
	return nil
}
