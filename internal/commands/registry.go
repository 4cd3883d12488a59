package commands

import (
	"sort"
	"strings"
)

// Registry maps command names to handlers. Names are case-insensitive.
// The registry is populated once at startup and static afterwards.
type Registry struct {
	cmds map[string]*Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]*Command)}
}

// Register adds a command. A later registration with the same name replaces
// the earlier one.
func (r *Registry) Register(cmd *Command) {
	r.cmds[strings.ToLower(cmd.Name)] = cmd
}

// Lookup resolves a command by its case-folded name.
func (r *Registry) Lookup(name string) (*Command, bool) {
	cmd, ok := r.cmds[strings.ToLower(name)]
	return cmd, ok
}

// List returns all commands sorted by name, for menu output.
func (r *Registry) List() []*Command {
	out := make([]*Command, 0, len(r.cmds))
	for _, cmd := range r.cmds {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
