// Package cli parses the command line and runs commands with the
// environment they ask for.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"hillchart/internal/commands"
	"hillchart/internal/config"
	"hillchart/internal/exitcode"
	"hillchart/internal/logging"
	"hillchart/internal/service"
)

// DefaultCommand runs when no command is given.
const DefaultCommand = "features"

// ServiceFactory opens the feature store for cfg.
// If the result also implements commands.Admin or io.Closer, the
// dispatcher uses that too.
type ServiceFactory func(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.Service, error)

// SourceFactory creates the Google Tasks client for import.
type SourceFactory func(ctx context.Context, cfg *config.Config) (service.TaskSource, error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSource sets the factory used by commands that need auth.
func WithSource(f SourceFactory) Option {
	return func(d *Dispatcher) { d.source = f }
}

// WithLogger replaces the logger built from --debug and --quiet.
func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
	source   SourceFactory
	log      *zap.Logger
}

// NewDispatcher creates a dispatcher over registry. factory opens the
// store for commands that need one.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		factory:  factory,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		args = []string{DefaultCommand}
	}

	cmdName := args[0]

	// Flags require a command in front of them.
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configDir string
	database  string
	quiet     bool
	debug     bool
}

func (c *commonFlags) register(flags *flag.FlagSet) {
	flags.StringVar(&c.configDir, "config", "", "")
	flags.StringVar(&c.database, "db", "", "")
	flags.BoolVar(&c.quiet, "quiet", false, "")
	flags.BoolVar(&c.debug, "debug", false, "")
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	flags := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var common commonFlags
	common.register(flags)
	cmd.RegisterFlags(flags)

	if err := flags.Parse(args); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// A leading "-x" left over after parsing was meant as a flag.
	positional := flags.Args()
	if len(positional) > 0 && strings.HasPrefix(positional[0], "-") && !isNumber(positional[0]) {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positional[0])
		return exitcode.UserError
	}

	cfg, err := config.New(common.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.AuthError
	}
	cfg.Quiet = common.quiet
	cfg.Debug = common.debug
	if common.database != "" {
		cfg.Database = common.database
	}

	log := d.log
	if log == nil {
		log, err = logging.New(cfg.Debug, cfg.Quiet)
		if err != nil {
			fmt.Fprintf(errOut, "error: %s\n", err)
			return exitcode.AuthError
		}
		defer func() { _ = log.Sync() }()
	}
	log = log.With(zap.String("command", cmd.Name()))

	env := &commands.Env{Config: cfg, Log: log}

	if cmd.NeedsAuth() {
		code, ok := d.openSource(ctx, env, errOut)
		if !ok {
			return code
		}
	}

	if cmd.NeedsStore() {
		if d.factory == nil {
			fmt.Fprintln(errOut, "error: backend error: no store configured")
			return exitcode.BackendError
		}
		svc, err := d.factory(ctx, cfg, log)
		if err != nil {
			fmt.Fprintf(errOut, "error: backend error: %s\n", err)
			return exitcode.BackendError
		}
		if c, ok := svc.(io.Closer); ok {
			defer func() {
				if err := c.Close(); err != nil {
					log.Warn("closing store", zap.Error(err))
				}
			}()
		}
		env.Service = svc
		if adm, ok := svc.(commands.Admin); ok {
			env.Admin = adm
		}
		log.Debug("store ready", zap.String("database", cfg.Database))
	}

	return cmd.Run(ctx, env, positional, out, errOut)
}

// openSource fills env.Source. Without a factory it only runs the file
// pre-flight checks, so commands see a nil Source.
func (d *Dispatcher) openSource(ctx context.Context, env *commands.Env, errOut io.Writer) (int, bool) {
	cfg := env.Config
	if d.source == nil {
		if !cfg.HasOAuthClient() {
			fmt.Fprintf(errOut, "error: %s not found in %s\n", config.OAuthClientFile, cfg.Dir)
			return exitcode.AuthError, false
		}
		if !cfg.HasToken() {
			fmt.Fprintln(errOut, "error: not logged in (run: hillchart login)")
			return exitcode.AuthError, false
		}
		return exitcode.Success, true
	}

	src, err := d.source(ctx, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || strings.Contains(err.Error(), "token") || strings.Contains(err.Error(), "oauth") {
			fmt.Fprintf(errOut, "error: auth error: %s\n", err)
			return exitcode.AuthError, false
		}
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError, false
	}
	env.Source = src
	return exitcode.Success, true
}

// flagError rewrites flag package errors into the CLI's wording.
func flagError(err error) string {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "flag needs an argument:"):
		name := strings.TrimSpace(strings.TrimPrefix(msg, "flag needs an argument:"))
		return "flag needs an argument: " + name
	case strings.HasPrefix(msg, "flag provided but not defined:"):
		name := strings.TrimSpace(strings.TrimPrefix(msg, "flag provided but not defined:"))
		return "unknown flag: " + name
	}
	return msg
}

// isNumber lets negative positions such as "-5" through as positionals.
func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
