package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"hillchart/internal/exitcode"
	"hillchart/internal/hill"
)

func init() {
	Register(&MoveCmd{})
}

// MoveCmd moves a task on the hill, either to a position or to the point
// under a pixel x coordinate of the configured chart.
type MoveCmd struct {
	featureName string
	pixel       string
	origin      float64
}

// SetOptions sets the flag values (for testing).
func (c *MoveCmd) SetOptions(featureName, pixel string, origin float64) {
	c.featureName, c.pixel, c.origin = featureName, pixel, origin
}

func (c *MoveCmd) Name() string      { return "move" }
func (c *MoveCmd) Aliases() []string { return []string{"mv"} }
func (c *MoveCmd) Synopsis() string  { return "Move a task on the hill" }
func (c *MoveCmd) Usage() string {
	return "hillchart move [common flags] [--feature <name>] [--pixel <x> [--origin <x>]] <ref> [<position>]"
}
func (c *MoveCmd) NeedsStore() bool { return true }
func (c *MoveCmd) NeedsAuth() bool  { return false }

func (c *MoveCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.featureName, "feature", "", "")
	fs.StringVar(&c.featureName, "f", "", "")
	fs.StringVar(&c.pixel, "pixel", "", "")
	fs.Float64Var(&c.origin, "origin", 0, "")
}

func (c *MoveCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, n, err := ParseTaskRef(args)
	if err != nil {
		return fail(errOut, err)
	}
	rest := args[n:]

	var position float64
	if c.pixel != "" {
		if len(rest) > 0 {
			fmt.Fprintln(errOut, "error: cannot use both --pixel and a position")
			return exitcode.UserError
		}
		position, err = c.dragTo(env.Config.Chart, ref)
	} else {
		position, err = parsePosition(rest)
	}
	if err != nil {
		return fail(errOut, err)
	}

	task, err := lookupRef(ctx, env.Service, c.featureName, ref, nil)
	if err != nil {
		return fail(errOut, err)
	}
	if err := env.Service.UpdateTaskPosition(ctx, task.ID, position); err != nil {
		return fail(errOut, err)
	}
	env.Log.Debug("task moved", zap.Int64("id", task.ID), zap.Float64("position", position))

	return ok(env, out)
}

// dragTo replays a press/move/release gesture at the --pixel coordinate.
func (c *MoveCmd) dragTo(p hill.Params, ref TaskRef) (float64, error) {
	x, err := strconv.ParseFloat(strings.TrimSpace(c.pixel), 64)
	if err != nil {
		return 0, usagef("invalid pixel: %s", c.pixel)
	}
	if p == (hill.Params{}) {
		p = hill.DefaultParams()
	}

	drag := hill.NewDrag(p, c.origin)
	drag.Press(int64(ref.TaskNum))
	if err := drag.Move(x); err != nil {
		return 0, err
	}
	commit, _ := drag.Release()
	return commit.Position, nil
}

func parsePosition(args []string) (float64, error) {
	switch len(args) {
	case 0:
		return 0, usagef("position required")
	case 1:
	default:
		return 0, usagef("unexpected argument: %s", args[1])
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, usagef("invalid position: %s", args[0])
	}
	return v, nil
}
