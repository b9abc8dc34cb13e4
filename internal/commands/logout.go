package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"hillchart/internal/exitcode"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd removes the stored Google token. The OAuth client file and the
// database are left alone.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove stored Google credentials" }
func (c *LogoutCmd) Usage() string     { return "hillchart logout [common flags]" }
func (c *LogoutCmd) NeedsStore() bool  { return false }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if !env.Config.HasToken() {
		if !env.Config.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	if err := env.Config.RemoveToken(); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
		return exitcode.AuthError
	}
	return ok(env, out)
}
