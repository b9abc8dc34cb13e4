package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"hillchart/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd prints usage for every registered command.
type HelpCmd struct {
	registry *Registry
}

// NewHelpCmd returns a help command that describes r.
func NewHelpCmd(r *Registry) *HelpCmd {
	return &HelpCmd{registry: r}
}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "hillchart help [<command>]" }
func (c *HelpCmd) NeedsStore() bool  { return false }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	r := c.registry
	if r == nil {
		r = DefaultRegistry
	}

	if len(args) > 0 {
		cmd, ok := r.Find(args[0])
		if !ok {
			fmt.Fprintf(errOut, "error: unknown command: %s\n", args[0])
			return exitcode.UserError
		}
		fmt.Fprintf(out, "Usage:\n  %s\n\n%s\n", cmd.Usage(), cmd.Synopsis())
		return exitcode.Success
	}

	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  hillchart                 List features (same as 'hillchart features')")
	r.WriteUsage(out)
	fmt.Fprint(out, helpFooter)
	return exitcode.Success
}

const helpFooter = `
Task refs:
  a3, a 3          Task 3 of feature a (letters as shown by 'features')
  3                Task 3 of the feature given by --feature, or of the only feature

Common flags:
  --config <dir>   Override config directory
  --db <path>      Override database path
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
