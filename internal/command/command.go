// Package command defines the user-facing Export and Import actions and
// installs them into a host command registry.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Faultbox/shapekey-exporter/internal/mesh"
	"github.com/Faultbox/shapekey-exporter/internal/shapekey"
	"github.com/Faultbox/shapekey-exporter/pkg/skx"
)

// Command IDs.
const (
	ExportID = "shapekey_exporter.export"
	ImportID = "shapekey_exporter.import"
)

// ErrUnknownCommand is returned when running an ID that is not registered.
var ErrUnknownCommand = errors.New("unknown command")

// Invocation carries what the host passes to a command: the active object
// and the path picked by the user.
type Invocation struct {
	Object mesh.Object
	Path   string
}

// Command is a user-triggered action.
type Command struct {
	ID          string
	Label       string
	Description string
	FilterGlob  string // File picker filter
	Run         func(inv Invocation) (string, error)
}

// Registry is the host side of command registration.
type Registry interface {
	Register(cmd Command)
	Unregister(id string)
}

// Options configures the installed commands.
type Options struct {
	// AppendExtension adds skx.Extension to export paths lacking it.
	AppendExtension bool
}

// Commands returns the Export and Import commands bound to ex and im.
func Commands(ex *shapekey.Exporter, im *shapekey.Importer, opts Options) []Command {
	return []Command{
		{
			ID:          ExportID,
			Label:       "Export",
			Description: "Create a json file of shapekeys for the active mesh object",
			FilterGlob:  "*" + skx.Extension,
			Run: func(inv Invocation) (string, error) {
				path := inv.Path
				if opts.AppendExtension {
					path = skx.EnsureExtension(path)
				}
				df, err := ex.Export(inv.Object, path)
				if err != nil {
					return "", err
				}
				if path == "" {
					return "", nil
				}
				return fmt.Sprintf("Exported %d shape keys to %s", len(df), path), nil
			},
		},
		{
			ID:          ImportID,
			Label:       "Import",
			Description: "Import shape keys from a json file for the active mesh object",
			FilterGlob:  "*" + skx.Extension,
			Run: func(inv Invocation) (string, error) {
				report, err := im.Import(inv.Object, inv.Path)
				if report == nil {
					return "", err
				}
				return Summary(report), err
			},
		},
	}
}

// Install registers the commands. Installing twice replaces the previous
// registration.
func Install(r Registry, cmds []Command) {
	for _, cmd := range cmds {
		r.Register(cmd)
	}
}

// Remove unregisters the commands. Removing commands that are not
// registered is a no-op.
func Remove(r Registry, cmds []Command) {
	for _, cmd := range cmds {
		r.Unregister(cmd.ID)
	}
}

// Summary formats an import report for the user.
func Summary(r *shapekey.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported %d shape keys into %s", len(r.Applied), r.Object)
	if len(r.Created) > 0 {
		fmt.Fprintf(&b, " (%d new)", len(r.Created))
	}
	if r.CreatedBasis {
		fmt.Fprintf(&b, "; created basis %q from mesh geometry", r.Basis)
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, "; skipped: %s", strings.Join(r.Skipped, ", "))
	}
	return b.String()
}

// Table is a map-backed Registry.
type Table struct {
	commands map[string]Command
}

// NewTable creates an empty command table.
func NewTable() *Table {
	return &Table{commands: make(map[string]Command)}
}

// Register adds or replaces a command.
func (t *Table) Register(cmd Command) {
	t.commands[cmd.ID] = cmd
}

// Unregister removes a command.
func (t *Table) Unregister(id string) {
	delete(t.commands, id)
}

// Lookup returns a registered command.
func (t *Table) Lookup(id string) (Command, bool) {
	cmd, ok := t.commands[id]
	return cmd, ok
}

// IDs returns the registered command IDs, sorted.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.commands))
	for id := range t.commands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Run invokes a registered command.
func (t *Table) Run(id string, inv Invocation) (string, error) {
	cmd, ok := t.commands[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}
	return cmd.Run(inv)
}
