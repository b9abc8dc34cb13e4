package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"hillchart/internal/exitcode"
	"hillchart/internal/output"
)

func init() {
	Register(&AssigneesCmd{})
}

// AssigneesCmd lists assignees, or adds one with --add.
type AssigneesCmd struct {
	add    string
	avatar string
}

// SetAdd sets the --add and --avatar values (for testing).
func (c *AssigneesCmd) SetAdd(username, avatar string) {
	c.add, c.avatar = username, avatar
}

func (c *AssigneesCmd) Name() string      { return "assignees" }
func (c *AssigneesCmd) Aliases() []string { return nil }
func (c *AssigneesCmd) Synopsis() string  { return "List or add assignees" }
func (c *AssigneesCmd) Usage() string {
	return "hillchart assignees [common flags] [--add <username> [--avatar <url>]]"
}
func (c *AssigneesCmd) NeedsStore() bool { return true }
func (c *AssigneesCmd) NeedsAuth() bool  { return false }

func (c *AssigneesCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.add, "add", "", "")
	fs.StringVar(&c.avatar, "avatar", "", "")
}

func (c *AssigneesCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	if name := strings.TrimSpace(c.add); name != "" {
		if _, err := env.Service.CreateAssignee(ctx, name, strings.TrimSpace(c.avatar)); err != nil {
			return fail(errOut, err)
		}
		return ok(env, out)
	}

	list, err := env.Service.ListAssignees(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	if len(list) == 0 && !env.Config.Quiet {
		fmt.Fprintln(out, "no assignees found")
	}
	for _, a := range list {
		output.FormatAssignee(out, a)
	}
	return exitcode.Success
}
