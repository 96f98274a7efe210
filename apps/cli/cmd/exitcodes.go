package cmd

// Exit codes for the httpcst CLI
const (
	// ExitSuccess indicates the command succeeded
	ExitSuccess = 0

	// ExitTestFailure indicates a request or threshold failed
	ExitTestFailure = 1

	// ExitParseError indicates a request file did not parse
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
