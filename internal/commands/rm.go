package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"hillchart/internal/exitcode"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	featureName string
}

// SetFeatureName sets the feature name (for testing).
func (c *RmCmd) SetFeatureName(name string) {
	c.featureName = name
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return nil }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "hillchart rm [common flags] [--feature <name>] <ref>" }
func (c *RmCmd) NeedsStore() bool  { return true }
func (c *RmCmd) NeedsAuth() bool   { return false }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.featureName, "feature", "", "")
	fs.StringVar(&c.featureName, "f", "", "")
}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, n, err := ParseTaskRef(args)
	if err != nil {
		return fail(errOut, err)
	}
	if n < len(args) {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[n])
		return exitcode.UserError
	}

	task, err := lookupRef(ctx, env.Service, c.featureName, ref, nil)
	if err != nil {
		return fail(errOut, err)
	}

	if err := env.Service.DeleteTask(ctx, task.ID); err != nil {
		return fail(errOut, err)
	}
	return ok(env, out)
}
