package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - User-facing output only: results, errors with hints
//	1 (-v)      - + startup banner, box lifecycle, hub connect/disconnect
//	2 (-vv)     - + config loaded, HTTP requests, command dispatch timing
//	3 (-vvv)    - + WebSocket frames, internal dispatch flow
//	4 (-vvvv)   - + full snapshot/event payload dumps

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // Command results, CLI output
	OutputErrors                           // Errors with hints and resolution steps
	OutputUserStatus                       // Final success/failure status

	// Level 1 (-v) - Informational
	OutputProgress      // Progress indicators
	OutputStartup       // Startup banners, config summary
	OutputBoxLifecycle  // Box created/reset/session rotated
	OutputHubConnection // Subscriber connect/disconnect

	// Level 2 (-vv) - Detailed
	OutputTiming       // Operation timing
	OutputConfig       // Config values loaded/applied
	OutputHTTPRequests // Incoming HTTP request method/path
	OutputHTTPStatus   // HTTP response status codes
	OutputCommandApply // Per-command apply outcome (ok/ignored/error)

	// Level 3 (-vvv) - Debug
	OutputWSFrames     // WebSocket frame in/out
	OutputInternalFlow // Internal dispatch/hub flow

	// Level 4 (-vvvv) - Full dump
	OutputSnapshotDump // Full snapshot/event payload contents
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	OutputProgress:      VerbosityInfo,
	OutputStartup:       VerbosityInfo,
	OutputBoxLifecycle:  VerbosityInfo,
	OutputHubConnection: VerbosityInfo,

	OutputTiming:       VerbosityDebug,
	OutputConfig:       VerbosityDebug,
	OutputHTTPRequests: VerbosityDebug,
	OutputHTTPStatus:   VerbosityDebug,
	OutputCommandApply: VerbosityDebug,

	OutputWSFrames:     VerbosityTrace,
	OutputInternalFlow: VerbosityTrace,

	OutputSnapshotDump: VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// categoryNames provides human-readable names for output categories
var categoryNames = map[OutputCategory]string{
	OutputResults:       "results",
	OutputErrors:        "errors",
	OutputUserStatus:    "status",
	OutputProgress:      "progress",
	OutputStartup:       "startup",
	OutputBoxLifecycle:  "box-lifecycle",
	OutputHubConnection: "hub-connection",
	OutputTiming:        "timing",
	OutputConfig:        "config",
	OutputHTTPRequests:  "http-requests",
	OutputHTTPStatus:    "http-status",
	OutputCommandApply:  "command-apply",
	OutputWSFrames:      "ws-frames",
	OutputInternalFlow:  "internal-flow",
	OutputSnapshotDump:  "snapshot-dump",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// EnabledCategories returns all output categories enabled at the given verbosity
func EnabledCategories(verbosity int) []OutputCategory {
	var enabled []OutputCategory
	for cat, minLevel := range categoryLevels {
		if verbosity >= minLevel {
			enabled = append(enabled, cat)
		}
	}
	return enabled
}

// VerbosityDescription returns a description of what's shown at each level
func VerbosityDescription(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "results and errors only"
	case VerbosityInfo:
		return "above + startup, box lifecycle, hub connections"
	case VerbosityDebug:
		return "above + timing, config, HTTP requests, command outcomes"
	case VerbosityTrace:
		return "above + WebSocket frames, internal dispatch flow"
	case VerbosityAll:
		return "above + full snapshot/event payload dumps"
	default:
		if verbosity > VerbosityAll {
			return "maximum verbosity"
		}
		return "unknown verbosity level"
	}
}

// SlowThresholdMS is the threshold in milliseconds above which timing is always shown
const SlowThresholdMS = 100

// ShouldShowTiming returns true if timing info should be displayed.
// Shows if: verbosity >= 2 (-vv) OR operation exceeded slow threshold.
func ShouldShowTiming(verbosity int, durationMS int64) bool {
	if durationMS >= SlowThresholdMS {
		return true
	}
	return ShouldOutput(verbosity, OutputTiming)
}

// ShouldShowTimingAlways returns true if timing should always be shown (slow operation)
func ShouldShowTimingAlways(durationMS int64) bool {
	return durationMS >= SlowThresholdMS
}
