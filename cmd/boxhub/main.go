package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/climbbox/boxhub/cmd/boxhub/commands"
	"github.com/climbbox/boxhub/logger"
)

var rootCmd = &cobra.Command{
	Use:   "boxhub",
	Short: "boxhub - live climbing-competition box coordination service",
	Long: `boxhub coordinates live climbing-competition boxes: the per-box
timer/route/score state machine, the operator command API, and the
operator and public WebSocket fan-out.

Available commands:
  server   - Start the box coordination server
  version  - Show version information`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	if err := logger.Initialize(false); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")

	rootCmd.AddCommand(commands.ServerCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
