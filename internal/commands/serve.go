package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"strings"

	"hillchart/internal/api"
	"hillchart/internal/exitcode"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd runs the HTTP API until interrupted.
type ServeCmd struct {
	addr string
}

// SetAddr sets the listen address (for testing).
func (c *ServeCmd) SetAddr(addr string) {
	c.addr = addr
}

func (c *ServeCmd) Name() string      { return "serve" }
func (c *ServeCmd) Aliases() []string { return nil }
func (c *ServeCmd) Synopsis() string  { return "Serve the HTTP API" }
func (c *ServeCmd) Usage() string     { return "hillchart serve [common flags] [--addr <host:port>]" }
func (c *ServeCmd) NeedsStore() bool  { return true }
func (c *ServeCmd) NeedsAuth() bool   { return false }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	addr := strings.TrimSpace(c.addr)
	if addr == "" {
		addr = env.Config.Server.Addr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(errOut, "error: cannot listen on %s: %v\n", addr, err)
		return exitcode.UserError
	}
	if !env.Config.Quiet {
		fmt.Fprintf(out, "listening on %s\n", ln.Addr())
	}

	h := api.NewRouter(env.Service, api.Options{Logger: env.Log, Chart: env.Config.Chart})
	if err := api.Serve(ctx, ln, h, env.Log); err != nil {
		return fail(errOut, err)
	}
	return exitcode.Success
}
