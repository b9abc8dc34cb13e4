package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"

	"hillchart/internal/exitcode"
)

func init() {
	Register(&MigrateCmd{})
}

// MigrateCmd applies pending schema migrations and lists what has run.
// With --drop it wipes every table first.
type MigrateCmd struct {
	drop bool
}

// SetDrop sets the drop flag (for testing).
func (c *MigrateCmd) SetDrop(drop bool) {
	c.drop = drop
}

func (c *MigrateCmd) Name() string      { return "migrate" }
func (c *MigrateCmd) Aliases() []string { return nil }
func (c *MigrateCmd) Synopsis() string  { return "Apply database migrations" }
func (c *MigrateCmd) Usage() string     { return "hillchart migrate [common flags] [--drop]" }
func (c *MigrateCmd) NeedsStore() bool  { return true }
func (c *MigrateCmd) NeedsAuth() bool   { return false }

func (c *MigrateCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.drop, "drop", false, "")
}

func (c *MigrateCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if env.Admin == nil {
		fmt.Fprintln(errOut, "error: backend error: store does not support migrations")
		return exitcode.BackendError
	}

	if c.drop {
		if err := env.Admin.Drop(ctx); err != nil {
			return fail(errOut, err)
		}
		env.Log.Warn("dropped all tables")
	}

	applied, err := env.Admin.Migrate(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	for _, id := range applied {
		env.Log.Info("migration applied", zap.String("id", id))
	}

	if env.Config.Quiet {
		return exitcode.Success
	}
	all, err := env.Admin.Applied(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	fresh := make(map[string]bool, len(applied))
	for _, id := range applied {
		fresh[id] = true
	}
	for _, id := range all {
		state := "up to date"
		if fresh[id] {
			state = "applied"
		}
		fmt.Fprintf(out, "%s  %s\n", id, state)
	}
	return exitcode.Success
}
