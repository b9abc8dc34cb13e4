package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"hillchart/internal/exitcode"
	"hillchart/internal/output"
)

func init() {
	Register(&FeaturesCmd{})
}

// FeaturesCmd lists features with their progress, newest first.
// Handles both `hillchart` (no args) and `hillchart features`.
type FeaturesCmd struct{}

func (c *FeaturesCmd) Name() string      { return "features" }
func (c *FeaturesCmd) Aliases() []string { return []string{"ls"} }
func (c *FeaturesCmd) Synopsis() string  { return "List features with progress" }
func (c *FeaturesCmd) Usage() string     { return "hillchart features [common flags]" }
func (c *FeaturesCmd) NeedsStore() bool  { return true }
func (c *FeaturesCmd) NeedsAuth() bool   { return false }

func (c *FeaturesCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *FeaturesCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	features, err := env.Service.ListFeatures(ctx)
	if err != nil {
		return fail(errOut, err)
	}

	if len(features) == 0 {
		if !env.Config.Quiet {
			fmt.Fprintln(out, "no features found")
		}
		return exitcode.Success
	}

	for i, f := range features {
		output.FormatFeature(out, Letter(i), f)
	}
	return exitcode.Success
}
