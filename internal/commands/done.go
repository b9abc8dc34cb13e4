package commands

import (
	"context"
	"flag"
	"io"

	"go.uber.org/zap"

	"hillchart/internal/service"
)

func init() {
	Register(&DoneCmd{})
	Register(&UndoneCmd{})
}

// DoneCmd marks tasks completed.
type DoneCmd struct {
	featureName string
}

// SetFeatureName sets the feature name (for testing).
func (c *DoneCmd) SetFeatureName(name string) {
	c.featureName = name
}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark tasks completed" }
func (c *DoneCmd) Usage() string     { return "hillchart done [common flags] [--feature <name>] <ref...>" }
func (c *DoneCmd) NeedsStore() bool  { return true }
func (c *DoneCmd) NeedsAuth() bool   { return false }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.featureName, "feature", "", "")
	fs.StringVar(&c.featureName, "f", "", "")
}

func (c *DoneCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	return runSetCompleted(ctx, env, c.featureName, true, args, out, errOut)
}

// UndoneCmd reopens tasks.
type UndoneCmd struct {
	featureName string
}

// SetFeatureName sets the feature name (for testing).
func (c *UndoneCmd) SetFeatureName(name string) {
	c.featureName = name
}

func (c *UndoneCmd) Name() string      { return "undone" }
func (c *UndoneCmd) Aliases() []string { return []string{"reopen"} }
func (c *UndoneCmd) Synopsis() string  { return "Mark tasks not completed" }
func (c *UndoneCmd) Usage() string     { return "hillchart undone [common flags] [--feature <name>] <ref...>" }
func (c *UndoneCmd) NeedsStore() bool  { return true }
func (c *UndoneCmd) NeedsAuth() bool   { return false }

func (c *UndoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.featureName, "feature", "", "")
	fs.StringVar(&c.featureName, "f", "", "")
}

func (c *UndoneCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	return runSetCompleted(ctx, env, c.featureName, false, args, out, errOut)
}

// runSetCompleted is the shared implementation for done and undone.
// All refs are resolved before anything is written, so a bad ref leaves
// every task untouched.
func runSetCompleted(ctx context.Context, env *Env, featureName string, completed bool, args []string, out, errOut io.Writer) int {
	refs, err := ParseTaskRefs(args)
	if err != nil {
		return fail(errOut, err)
	}

	cache := make(taskCache)
	ids := make([]int64, 0, len(refs))
	seen := make(map[int64]bool, len(refs))
	for _, ref := range refs {
		task, err := lookupRef(ctx, env.Service, featureName, ref, cache)
		if err != nil {
			return fail(errOut, err)
		}
		if !seen[task.ID] {
			seen[task.ID] = true
			ids = append(ids, task.ID)
		}
	}

	for _, id := range ids {
		if err := env.Service.UpdateTask(ctx, id, service.TaskUpdate{Completed: &completed}); err != nil {
			return fail(errOut, err)
		}
		env.Log.Debug("task updated", zap.Int64("id", id), zap.Bool("completed", completed))
	}

	return ok(env, out)
}
