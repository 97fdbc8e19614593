// Package registry is the module registry: a compile-time table mapping
// each driver to either an always-run init hook or a set of device-tree
// `compatible` strings, bound against a parsed tree in two passes
// (interrupt controllers first, then every other node).
package registry

import "github.com/tinyrange/rvkernel/internal/fdt"

// Kind distinguishes the two init signatures spec.md §6 names.
type Kind int

const (
	// KindAlwaysRun entries run once per Bind, regardless of the tree's
	// contents.
	KindAlwaysRun Kind = iota
	// KindDriver entries run once per matching compatible node.
	KindDriver
)

// AlwaysRunFunc initializes a component that isn't bound to a specific
// device-tree node.
type AlwaysRunFunc func(dt *fdt.DeviceTree) error

// DriverFunc initializes a component bound to the device-tree node id that
// matched one of its Compatible strings.
type DriverFunc func(dt *fdt.DeviceTree, id fdt.NodeId) error

// Entry is one row of the module registry.
type Entry struct {
	Name       string
	Enabled    bool
	Kind       Kind
	Compatible []string // KindDriver only

	AlwaysRun AlwaysRunFunc // KindAlwaysRun only
	Driver    DriverFunc    // KindDriver only
}

func (e Entry) matches(nodeCompat []string) bool {
	for _, c := range nodeCompat {
		for _, want := range e.Compatible {
			if c == want {
				return true
			}
		}
	}
	return false
}

// Registry holds the registered entries and binds them against a tree.
type Registry struct {
	entries []Entry
}

// New returns an empty Registry, for tests that want isolation from the
// package-level default.
func New() *Registry { return &Registry{} }

// Register appends e to the registry.
func (r *Registry) Register(e Entry) { r.entries = append(r.entries, e) }

// Bind walks dt, binding every node that has a `compatible` property, at
// most once, to the first enabled driver entry that matches it (one entry
// may bind several nodes), and then running every enabled always-run entry
// once. Nodes with an `interrupt-controller` property are bound in an
// early pass before all others.
func (r *Registry) Bind(dt *fdt.DeviceTree) error {
	bound := make(map[fdt.NodeId]bool)

	if err := r.bindPass(dt, bound, true); err != nil {
		return err
	}
	if err := r.bindPass(dt, bound, false); err != nil {
		return err
	}

	for _, e := range r.entries {
		if e.Enabled && e.Kind == KindAlwaysRun {
			if err := e.AlwaysRun(dt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) bindPass(dt *fdt.DeviceTree, bound map[fdt.NodeId]bool, interruptControllersOnly bool) error {
	return dt.Walk(func(id fdt.NodeId, n *fdt.Node) error {
		if bound[id] {
			return nil
		}
		if n.IsInterruptController() != interruptControllersOnly {
			return nil
		}
		compat := n.Compatible()
		if len(compat) == 0 {
			return nil
		}
		for _, e := range r.entries {
			if !e.Enabled || e.Kind != KindDriver {
				continue
			}
			if e.matches(compat) {
				if err := e.Driver(dt, id); err != nil {
					return err
				}
				bound[id] = true
				break
			}
		}
		return nil
	})
}

var def = New()

// Register adds e to the package-level default registry. Driver packages
// call this from init(), mirroring the teacher's single explicit wiring
// point in NewMachine rather than reflection-based discovery.
func Register(e Entry) { def.Register(e) }

// Default returns the package-level registry Register populates.
func Default() *Registry { return def }
