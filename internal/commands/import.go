package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"hillchart/internal/exitcode"
	"hillchart/internal/service"
)

func init() {
	Register(&ImportCmd{})
}

// ImportCmd copies a Google Tasks list into a feature. Completed tasks land
// at the bottom right of the hill, open tasks at the start.
type ImportCmd struct {
	listName    string
	featureName string
}

// SetOptions sets the flag values (for testing).
func (c *ImportCmd) SetOptions(listName, featureName string) {
	c.listName, c.featureName = listName, featureName
}

func (c *ImportCmd) Name() string      { return "import" }
func (c *ImportCmd) Aliases() []string { return nil }
func (c *ImportCmd) Synopsis() string  { return "Import a Google Tasks list as a feature" }
func (c *ImportCmd) Usage() string {
	return "hillchart import [common flags] --list <list-name> [--feature <name>]"
}
func (c *ImportCmd) NeedsStore() bool { return true }
func (c *ImportCmd) NeedsAuth() bool  { return true }

func (c *ImportCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
	fs.StringVar(&c.featureName, "feature", "", "")
	fs.StringVar(&c.featureName, "f", "", "")
}

func (c *ImportCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	listName := strings.TrimSpace(c.listName)
	if listName == "" {
		fmt.Fprintln(errOut, "error: --list required")
		return exitcode.UserError
	}
	if env.Source == nil {
		fmt.Fprintln(errOut, "error: not logged in (run: hillchart login)")
		return exitcode.AuthError
	}

	list, err := env.Source.ResolveList(ctx, listName)
	if err != nil {
		return fail(errOut, err)
	}
	items, err := env.Source.ListTasks(ctx, list.ID)
	if err != nil {
		return fail(errOut, err)
	}

	featureName := strings.TrimSpace(c.featureName)
	if featureName == "" {
		featureName = list.Title
	}
	feature, err := c.findOrCreate(ctx, env, featureName)
	if err != nil {
		return fail(errOut, err)
	}

	for _, it := range items {
		in := service.TaskInput{Title: it.Title, Completed: it.Completed, DueDate: it.Due}
		if it.Completed {
			in.Position = 100
		}
		if strings.TrimSpace(in.Title) == "" {
			in.Title = "(untitled)"
		}
		if _, err := env.Service.CreateTask(ctx, feature.ID, in); err != nil {
			return fail(errOut, err)
		}
	}
	env.Log.Info("imported list",
		zap.String("list", list.Title),
		zap.Int64("feature_id", feature.ID),
		zap.Int("tasks", len(items)))

	if !env.Config.Quiet {
		fmt.Fprintf(out, "imported %d tasks into %s\n", len(items), feature.Name)
	}
	return exitcode.Success
}

func (c *ImportCmd) findOrCreate(ctx context.Context, env *Env, name string) (service.Feature, error) {
	f, err := env.Service.ResolveFeature(ctx, name)
	if err == nil || !errors.Is(err, service.ErrNotFound) {
		return f, err
	}
	id, err := env.Service.CreateFeature(ctx, service.FeatureInput{Name: name, Status: service.StatusInProgress})
	if err != nil {
		return service.Feature{}, err
	}
	return env.Service.GetFeature(ctx, id)
}
