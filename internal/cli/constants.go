package cli

import "time"

// Default values for CLI flags and output.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// ProgressThrottle limits progress bar redraws.
	ProgressThrottle = 100 * time.Millisecond
	// setCommandArgs is the number of arguments expected by config set.
	setCommandArgs = 2
)
