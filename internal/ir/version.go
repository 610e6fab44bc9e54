package ir

// Version constants for the log payload format and the tool.
const (
	// FormatVersion is the log payload format version.
	FormatVersion = "1"

	// Version is the nested tool version.
	Version = "0.1.0"
)
