package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"hillchart/internal/exitcode"
	"hillchart/internal/output"
	"hillchart/internal/progress"
	"hillchart/internal/service"
)

func init() {
	Register(&StatsCmd{})
}

// StatsCmd prints derived progress for one feature or all of them.
type StatsCmd struct {
	format string
}

// SetFormat sets the output format (for testing).
func (c *StatsCmd) SetFormat(format string) {
	c.format = format
}

func (c *StatsCmd) Name() string      { return "stats" }
func (c *StatsCmd) Aliases() []string { return nil }
func (c *StatsCmd) Synopsis() string  { return "Show feature progress" }
func (c *StatsCmd) Usage() string {
	return "hillchart stats [common flags] [--format text|json|yaml] [<feature|letter>]"
}
func (c *StatsCmd) NeedsStore() bool { return true }
func (c *StatsCmd) NeedsAuth() bool  { return false }

func (c *StatsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "format", output.FormatText, "")
}

// featureStats is the encoded form of one feature's progress.
type featureStats struct {
	FeatureID     int64  `json:"featureId" yaml:"feature_id"`
	Feature       string `json:"feature" yaml:"feature"`
	progress.View `yaml:",inline"`
}

func (c *StatsCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	format, err := output.ParseFormat(c.format)
	if err != nil {
		return fail(errOut, usagef("%v", err))
	}

	var features []service.Feature
	if len(args) > 0 {
		f, err := resolveFeatureArg(ctx, env.Service, args)
		if err != nil {
			return fail(errOut, err)
		}
		features = []service.Feature{f}
	} else {
		features, err = env.Service.ListFeatures(ctx)
		if err != nil {
			return fail(errOut, err)
		}
	}

	// Stats are computed from the current tasks, never cached on the feature.
	rows := make([]featureStats, len(features))
	stats := make([]*progress.Stats, len(features))
	for i, f := range features {
		st, err := env.Service.FeatureStats(ctx, f.ID)
		if err != nil {
			return fail(errOut, err)
		}
		stats[i] = st.Stats
		rows[i] = featureStats{FeatureID: f.ID, Feature: f.Name, View: st.Stats.View()}
	}

	if format == output.FormatText {
		if len(features) == 0 && !env.Config.Quiet {
			fmt.Fprintln(out, "no features found")
		}
		for i, f := range features {
			output.FormatStats(out, f.Name, stats[i])
		}
		return exitcode.Success
	}

	var v any = rows
	if len(args) > 0 {
		v = rows[0]
	}
	if err := output.Encode(out, format, v); err != nil {
		return fail(errOut, err)
	}
	return exitcode.Success
}
