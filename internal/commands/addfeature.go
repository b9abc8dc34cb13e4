package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"hillchart/internal/exitcode"
	"hillchart/internal/output"
	"hillchart/internal/service"
)

func init() {
	Register(&AddFeatureCmd{})
}

// AddFeatureCmd creates a feature.
type AddFeatureCmd struct {
	desc   string
	due    string
	status string
}

// SetOptions sets the flag values (for testing).
func (c *AddFeatureCmd) SetOptions(desc, due, status string) {
	c.desc, c.due, c.status = desc, due, status
}

func (c *AddFeatureCmd) Name() string      { return "addfeature" }
func (c *AddFeatureCmd) Aliases() []string { return []string{"createfeature"} }
func (c *AddFeatureCmd) Synopsis() string  { return "Create a feature" }
func (c *AddFeatureCmd) Usage() string {
	return "hillchart addfeature [common flags] [--desc <text>] [--due <YYYY-MM-DD>] [--status <status>] <name...>"
}
func (c *AddFeatureCmd) NeedsStore() bool { return true }
func (c *AddFeatureCmd) NeedsAuth() bool  { return false }

func (c *AddFeatureCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.desc, "desc", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.status, "status", "", "")
}

func (c *AddFeatureCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		fmt.Fprintln(errOut, "error: feature name required")
		return exitcode.UserError
	}

	due, err := parseDue(c.due)
	if err != nil {
		return fail(errOut, err)
	}

	// Names are matched case-insensitively, so refuse duplicates up front.
	_, err = env.Service.ResolveFeature(ctx, name)
	if err == nil {
		fmt.Fprintf(errOut, "error: feature already exists: %s\n", name)
		return exitcode.UserError
	}
	if !errors.Is(err, service.ErrNotFound) && !errors.Is(err, service.ErrAmbiguous) {
		return fail(errOut, err)
	}

	id, err := env.Service.CreateFeature(ctx, service.FeatureInput{
		Name:        name,
		Description: c.desc,
		Status:      service.FeatureStatus(strings.ToLower(strings.TrimSpace(c.status))),
		DueDate:     due,
	})
	if err != nil {
		return fail(errOut, err)
	}
	env.Log.Debug("feature created", zap.Int64("id", id), zap.String("name", name))

	return ok(env, out)
}

// parseDue parses a --due value. Empty means no due date.
func parseDue(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(output.DateLayout, s, time.UTC)
	if err != nil {
		return nil, usagef("invalid due date: %s (want YYYY-MM-DD)", s)
	}
	return &t, nil
}
