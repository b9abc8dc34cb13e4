package commands

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Registry holds registered commands.
type Registry struct {
	mu      sync.RWMutex
	cmds    map[string]Command // primary name
	aliases map[string]string  // alias -> primary name
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		cmds:    make(map[string]Command),
		aliases: make(map[string]string),
	}
}

// Register adds a command to the registry.
// Returns an error if the name or any alias is already taken.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(c.Name()) {
		return fmt.Errorf("command already registered: %s", c.Name())
	}
	for _, alias := range c.Aliases() {
		if r.taken(alias) || alias == c.Name() {
			return fmt.Errorf("command alias already registered: %s", alias)
		}
	}

	r.cmds[c.Name()] = c
	for _, alias := range c.Aliases() {
		r.aliases[alias] = c.Name()
	}
	return nil
}

func (r *Registry) taken(name string) bool {
	if _, ok := r.cmds[name]; ok {
		return true
	}
	_, ok := r.aliases[name]
	return ok
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if primary, ok := r.aliases[name]; ok {
		name = primary
	}
	cmd, ok := r.cmds[name]
	return cmd, ok
}

// All returns all commands sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.cmds))
	for name := range r.cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Command, len(names))
	for i, name := range names {
		result[i] = r.cmds[name]
	}
	return result
}

// WriteUsage prints one usage line per command, followed by its synopsis.
func (r *Registry) WriteUsage(w io.Writer) {
	for _, c := range r.All() {
		fmt.Fprintf(w, "  %s\n", c.Usage())
		fmt.Fprintf(w, "      %s", c.Synopsis())
		if aliases := c.Aliases(); len(aliases) > 0 {
			fmt.Fprintf(w, " (alias: %s)", aliases[0])
			for _, a := range aliases[1:] {
				fmt.Fprintf(w, ", %s", a)
			}
		}
		fmt.Fprintln(w)
	}
}

// DefaultRegistry is the global command registry.
var DefaultRegistry = NewRegistry()

// Register adds a command to the default registry.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
