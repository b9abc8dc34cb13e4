package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"

	"hillchart/internal/exitcode"
)

func init() {
	Register(&SeedCmd{})
}

// SeedCmd fills the store with demo features, tasks and assignees.
type SeedCmd struct {
	seed uint64
}

// SetSeed fixes the random seed (for testing).
func (c *SeedCmd) SetSeed(seed uint64) {
	c.seed = seed
}

func (c *SeedCmd) Name() string      { return "seed" }
func (c *SeedCmd) Aliases() []string { return nil }
func (c *SeedCmd) Synopsis() string  { return "Insert demo data" }
func (c *SeedCmd) Usage() string     { return "hillchart seed [common flags] [--seed <n>]" }
func (c *SeedCmd) NeedsStore() bool  { return true }
func (c *SeedCmd) NeedsAuth() bool   { return false }

func (c *SeedCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Uint64Var(&c.seed, "seed", 0, "")
}

func (c *SeedCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if env.Admin == nil {
		fmt.Fprintln(errOut, "error: backend error: store does not support seeding")
		return exitcode.BackendError
	}

	seed := c.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	sum, err := env.Admin.Seed(ctx, rng, env.Config.AvatarBase)
	if err != nil {
		return fail(errOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintf(out, "seeded %d features, %d tasks, %d assignees\n", sum.Features, sum.Tasks, sum.Assignees)
	}
	return exitcode.Success
}
