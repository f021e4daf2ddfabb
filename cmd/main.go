package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

var envName string

var rootCmd = &cobra.Command{
	Use:   "coderunner",
	Short: "Sandboxed execution engine for untrusted code",
	Long: `coderunner runs untrusted programs under wall-clock, memory and CPU limits
and turns each run into a structured verdict with hints.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return InitReader(envName)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "load NAME.env before reading the configuration")
	rootCmd.AddCommand(serveCmd, runCmd, tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errNotPassed) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

// InitReader loads NAME.env when a name is given, and a plain .env file when
// one exists. Variables already set in the environment win.
func InitReader(environment string) error {
	if environment != "" {
		if err := godotenv.Load(environment + ".env"); err != nil {
			return fmt.Errorf("error loading %s.env file: %w", environment, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}
