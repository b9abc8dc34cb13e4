// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"

	"go.uber.org/zap"

	"hillchart/internal/backend/sqlstore"
	"hillchart/internal/config"
	"hillchart/internal/exitcode"
	"hillchart/internal/hill"
	"hillchart/internal/progress"
	"hillchart/internal/service"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsStore returns true if the command reads or writes features.
	NeedsStore() bool

	// NeedsAuth returns true if the command talks to Google Tasks.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command with positional args and returns an exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// Env is what the dispatcher hands to a command.
// Service and Admin are nil unless NeedsStore; Source is nil unless NeedsAuth.
type Env struct {
	Config  *config.Config
	Log     *zap.Logger
	Service service.Service
	Admin   Admin
	Source  service.TaskSource
}

// Admin is the schema and fixture side of a store.
type Admin interface {
	Migrate(ctx context.Context) ([]string, error)
	Applied(ctx context.Context) ([]string, error)
	Drop(ctx context.Context) error
	Seed(ctx context.Context, rng *rand.Rand, avatarBase string) (sqlstore.SeedSummary, error)
}

var _ Admin = (*sqlstore.Store)(nil)

// usageError is a mistake in the command line itself.
type usageError string

func (e usageError) Error() string { return string(e) }

func usagef(format string, args ...any) error {
	return usageError(fmt.Sprintf(format, args...))
}

// fail prints err and maps it to an exit code.
func fail(errOut io.Writer, err error) int {
	var ue usageError
	switch {
	case errors.As(err, &ue),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrAmbiguous),
		errors.Is(err, service.ErrInvalid),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, hill.ErrNonFinite),
		errors.Is(err, progress.ErrNonFinite):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}

// ok prints the success marker unless quiet.
func ok(env *Env, out io.Writer) int {
	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
