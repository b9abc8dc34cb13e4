package commands

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"hillchart/internal/exitcode"
	"hillchart/internal/hill"
	"hillchart/internal/render"
)

func init() {
	Register(&ChartCmd{})
}

// ChartCmd renders a feature's hill chart as SVG.
type ChartCmd struct {
	outPath string
}

// SetOut sets the output file (for testing).
func (c *ChartCmd) SetOut(path string) {
	c.outPath = path
}

func (c *ChartCmd) Name() string      { return "chart" }
func (c *ChartCmd) Aliases() []string { return nil }
func (c *ChartCmd) Synopsis() string  { return "Render a feature's hill chart as SVG" }
func (c *ChartCmd) Usage() string     { return "hillchart chart [common flags] [--out <file>] <feature|letter>" }
func (c *ChartCmd) NeedsStore() bool  { return true }
func (c *ChartCmd) NeedsAuth() bool   { return false }

func (c *ChartCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.outPath, "out", "", "")
	fs.StringVar(&c.outPath, "o", "", "")
}

func (c *ChartCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	f, err := resolveFeatureArg(ctx, env.Service, args)
	if err != nil {
		return fail(errOut, err)
	}
	f, tasks, err := env.Service.FeatureWithTasks(ctx, f.ID)
	if err != nil {
		return fail(errOut, err)
	}

	items := make([]hill.Item, len(tasks))
	for i, t := range tasks {
		items[i] = hill.Item{ID: t.ID, Position: t.Position, Label: t.Title}
	}

	params := env.Config.Chart
	if params == (hill.Params{}) {
		params = hill.DefaultParams()
	}

	var buf bytes.Buffer
	if err := render.SVG(&buf, f.Name, items, params); err != nil {
		return fail(errOut, err)
	}

	if c.outPath == "" {
		_, _ = buf.WriteTo(out)
		return exitcode.Success
	}
	if err := os.WriteFile(c.outPath, buf.Bytes(), 0644); err != nil {
		fmt.Fprintf(errOut, "error: failed to write chart: %v\n", err)
		return exitcode.UserError
	}
	return ok(env, out)
}
