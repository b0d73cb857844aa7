package commands

import (
	"fmt"

	"github.com/climbbox/boxhub/internal/version"
	"github.com/climbbox/boxhub/logger"
)

// printStartupBanner prints the user-friendly startup message.
func printStartupBanner(verbosity int, port int) {
	cyan := "\033[36m"
	green := "\033[32m"
	yellow := "\033[33m"
	bold := "\033[1m"
	reset := "\033[0m"

	versionInfo := version.Get()

	fmt.Printf("\n%s%s boxhub %s%s\n", cyan, bold, versionInfo.Version, reset)
	fmt.Printf("%s%s┌─ Box Coordination Server ────────────────────────────┐%s\n", green, bold, reset)
	fmt.Printf("%s│%s Version:   %s (commit %s)\n", green, reset, versionInfo.Version, versionInfo.Short())
	fmt.Printf("%s│%s Built:     %s\n", green, reset, versionInfo.BuildTime)
	fmt.Printf("%s│%s Verbosity: %s\n", green, reset, logger.LevelName(verbosity))
	fmt.Printf("%s│%s Port:      %d\n", green, reset, port)
	fmt.Printf("%s└───────────────────────────────────────────────────────┘%s\n", green, reset)

	fmt.Printf("\n%s%s Operator and public WebSocket channels are live%s\n", yellow, bold, reset)
	fmt.Printf("Press Ctrl+C to stop\n\n")
}
