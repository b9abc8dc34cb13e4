// Package exitcode defines the process exit codes shared by every command.
package exitcode

// Process exit codes.
const (
	Success = 0

	// UserError covers bad arguments, unknown features or tasks, ambiguous
	// names and invalid positions.
	UserError = 1

	// AuthError covers a broken config file and missing or unusable
	// Google credentials.
	AuthError = 2

	// BackendError covers database, network and API failures.
	BackendError = 3
)
