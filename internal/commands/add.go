package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"hillchart/internal/exitcode"
	"hillchart/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	featureName string
	due         string
	position    float64
}

// SetFeatureName sets the feature name (for testing).
func (c *AddCmd) SetFeatureName(name string) {
	c.featureName = name
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "hillchart add [common flags] [--feature <name>] [--due <YYYY-MM-DD>] [--position <0-100>] <title...>"
}
func (c *AddCmd) NeedsStore() bool { return true }
func (c *AddCmd) NeedsAuth() bool  { return false }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.featureName, "feature", "", "")
	fs.StringVar(&c.featureName, "f", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.Float64Var(&c.position, "position", 0, "")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	due, err := parseDue(c.due)
	if err != nil {
		return fail(errOut, err)
	}

	f, err := resolveTarget(ctx, env.Service, c.featureName, TaskRef{})
	if err != nil {
		return fail(errOut, err)
	}

	id, err := env.Service.CreateTask(ctx, f.ID, service.TaskInput{
		Title:    title,
		Position: c.position,
		DueDate:  due,
	})
	if err != nil {
		return fail(errOut, err)
	}
	env.Log.Debug("task created", zap.Int64("id", id), zap.Int64("feature_id", f.ID))

	return ok(env, out)
}
