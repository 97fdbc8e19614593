// Package fdt parses a Flattened Device Tree blob produced by firmware
// into an in-memory tree that drivers consult at boot.
//
// The token stream, header layout and big-endian word discipline are
// grounded on the FDT *builder* in the teacher pack
// (_examples/tinyrange-cc/internal/fdt/build.go and
// internal/hv/riscv/rv64/fdt.go): both emit exactly the structure this
// package walks back apart — same magic, same token values, same
// string-table-by-offset scheme, same "pad every struct-block write to
// a 4-byte boundary" rule.
package fdt

// Big-endian structure-block tokens (Devicetree Specification).
const (
	tokenBeginNode = 0x00000001
	tokenEndNode   = 0x00000002
	tokenProp      = 0x00000003
	tokenNop       = 0x00000004
	tokenEnd       = 0x00000009
)

// Magic is the required value of the FDT header's first word.
const Magic = 0xD00DFEED

const (
	headerWords  = 10
	headerBytes  = headerWords * 4
	memRsvEntry  = 16 // two 64-bit fields per entry
	defaultCells = 1 // cell count used when no #address-cells, #size-cells or #interrupt-cells is found
)

// NodeId is a dense index into a DeviceTree's node vector. The root
// node is always id 0.
type NodeId uint32

// RootID is the node id of the tree's root node.
const RootID NodeId = 0

// noParent marks the root node, which has no parent of its own.
const noParent NodeId = ^NodeId(0)

// ChildRef names one child edge out of a node, kept alongside the
// child's own Name so a node's children can be listed without
// following the id back into the node vector (spec.md §3: "children:
// ordered list of (name, NodeId)").
type ChildRef struct {
	Name string
	ID   NodeId
}

// Node is one element of the parsed device tree.
type Node struct {
	Name       string
	Parent     NodeId
	Children   []ChildRef
	Properties []Property
}

// IsRoot reports whether n is the tree's root node.
func (n *Node) IsRoot() bool { return n.Parent == noParent }

// Property looks up a property on the node by name, reporting ok=false
// if it is absent.
func (n *Node) Property(name string) (Property, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Child looks up an immediate child by name.
func (n *Node) Child(name string) (NodeId, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c.ID, true
		}
	}
	return 0, false
}

// DeviceTree is the parsed, immutable form of an FDT blob. It is built
// once at boot and never mutated afterwards; Property.Raw slices alias
// directly into the blob passed to Parse, which must outlive the
// DeviceTree.
type DeviceTree struct {
	nodes    []Node
	phandles map[uint32]NodeId
	blob     []byte
}

// Node returns the node with the given id. Callers must only pass ids
// obtained from this tree (RootID, Children, or a phandle lookup).
func (dt *DeviceTree) Node(id NodeId) *Node {
	return &dt.nodes[id]
}

// NodeCount returns the number of nodes in the tree.
func (dt *DeviceTree) NodeCount() int {
	return len(dt.nodes)
}

// Root returns the tree's root node.
func (dt *DeviceTree) Root() *Node {
	return &dt.nodes[RootID]
}

// ByPhandle resolves a phandle property value to the node that declared
// it, per the phandle table built during parsing.
func (dt *DeviceTree) ByPhandle(phandle uint32) (NodeId, bool) {
	id, ok := dt.phandles[phandle]
	return id, ok
}

// Walk performs a depth-first traversal of the tree, visiting a node
// before its children, matching the recursive structure the teacher's
// fdt builder uses to emit nodes (build.go's emitNode).
func (dt *DeviceTree) Walk(fn func(id NodeId, n *Node) error) error {
	return dt.walk(RootID, fn)
}

func (dt *DeviceTree) walk(id NodeId, fn func(NodeId, *Node) error) error {
	n := dt.Node(id)
	if err := fn(id, n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := dt.walk(c.ID, fn); err != nil {
			return err
		}
	}
	return nil
}
