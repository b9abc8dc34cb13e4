package commands

import (
	"context"
	"flag"
	"io"

	"hillchart/internal/exitcode"
	"hillchart/internal/output"
)

func init() {
	Register(&TasksCmd{})
}

// TasksCmd lists one feature's tasks, numbered for use in task refs.
type TasksCmd struct{}

func (c *TasksCmd) Name() string      { return "tasks" }
func (c *TasksCmd) Aliases() []string { return nil }
func (c *TasksCmd) Synopsis() string  { return "List a feature's tasks" }
func (c *TasksCmd) Usage() string     { return "hillchart tasks [common flags] <feature|letter>" }
func (c *TasksCmd) NeedsStore() bool  { return true }
func (c *TasksCmd) NeedsAuth() bool   { return false }

func (c *TasksCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *TasksCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	f, err := resolveFeatureArg(ctx, env.Service, args)
	if err != nil {
		return fail(errOut, err)
	}

	tasks, err := env.Service.ListTasks(ctx, f.ID)
	if err != nil {
		return fail(errOut, err)
	}

	// Header is printed even for an empty feature.
	output.FormatFeatureHeader(out, f)
	for i, t := range tasks {
		output.FormatTask(out, i+1, t)
	}
	return exitcode.Success
}
