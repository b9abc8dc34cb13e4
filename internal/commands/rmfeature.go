package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"hillchart/internal/exitcode"
)

func init() {
	Register(&RmFeatureCmd{})
}

// RmFeatureCmd deletes a feature and, with --force, its tasks.
type RmFeatureCmd struct {
	force bool
}

// SetForce sets the force flag (for testing).
func (c *RmFeatureCmd) SetForce(force bool) {
	c.force = force
}

func (c *RmFeatureCmd) Name() string      { return "rmfeature" }
func (c *RmFeatureCmd) Aliases() []string { return nil }
func (c *RmFeatureCmd) Synopsis() string  { return "Delete a feature" }
func (c *RmFeatureCmd) Usage() string     { return "hillchart rmfeature [common flags] [--force] <name...>" }
func (c *RmFeatureCmd) NeedsStore() bool  { return true }
func (c *RmFeatureCmd) NeedsAuth() bool   { return false }

func (c *RmFeatureCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "")
}

func (c *RmFeatureCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	// Letters are not accepted here; deleting needs the full name.
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		fmt.Fprintln(errOut, "error: feature name required")
		return exitcode.UserError
	}

	f, err := env.Service.ResolveFeature(ctx, name)
	if err != nil {
		return fail(errOut, err)
	}

	if !c.force {
		tasks, err := env.Service.ListTasks(ctx, f.ID)
		if err != nil {
			return fail(errOut, err)
		}
		if len(tasks) > 0 {
			fmt.Fprintln(errOut, "error: feature not empty (use --force)")
			return exitcode.UserError
		}
	}

	if err := env.Service.DeleteFeature(ctx, f.ID); err != nil {
		return fail(errOut, err)
	}
	return ok(env, out)
}
