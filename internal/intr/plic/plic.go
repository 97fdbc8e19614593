// Package plic drives a RISC-V Platform-Level Interrupt Controller from the
// guest side: priority/pending/enable/threshold/claim/complete registers at
// the offsets a real PLIC exposes, reached through an MMIO Bus rather than
// direct pointer access.
//
// Register layout grounded on
// _examples/tinyrange-cc/internal/hv/riscv/rv64/plic.go — that file emulates
// the PLIC as a memory-mapped device; this package is its mirror image, a
// driver issuing the loads/stores a guest kernel would make against it.
package plic

import "errors"

// Register base offsets and strides, all relative to the PLIC's base
// address as given by its device-tree reg property.
const (
	PriorityBase  = 0x000000
	PendingBase   = 0x001000
	EnableBase    = 0x002000
	EnableStride  = 0x80
	ContextBase   = 0x200000
	ContextStride = 0x1000
)

// Context names a PLIC interrupt target: one (hart, privilege mode) pair.
type Context int

const (
	ContextMachine    Context = 0
	ContextSupervisor Context = 1
)

var (
	// ErrInvalidSource is returned when id is outside (0, ndev].
	ErrInvalidSource = errors.New("plic: interrupt source out of range")
	// ErrCompleteMismatch is returned by Complete when id does not match
	// the most recent Claim for that context.
	ErrCompleteMismatch = errors.New("plic: complete id does not match claimed id")
)

// Bus is the 32-bit-word MMIO access the PLIC driver needs; spec.md §4.4
// requires every PLIC access be a 32-bit word load or store.
type Bus interface {
	ReadU32(addr uint64) uint32
	WriteU32(addr uint64, v uint32)
}

// Driver is a guest-side PLIC driver bound to one MMIO base address and a
// source count (ndev, typically read from the node's riscv,ndev property).
type Driver struct {
	bus     Bus
	base    uint64
	ndev    uint32
	claimed [2]uint32 // last id Claim returned, indexed by Context
}

// New returns a driver for the PLIC mapped at base with ndev interrupt
// sources (valid ids are 1..ndev).
func New(bus Bus, base uint64, ndev uint32) *Driver {
	return &Driver{bus: bus, base: base, ndev: ndev}
}

func (d *Driver) validate(id uint32) error {
	if id == 0 || id > d.ndev {
		return ErrInvalidSource
	}
	return nil
}

func (d *Driver) priorityAddr(id uint32) uint64 {
	return d.base + PriorityBase + uint64(id)*4
}

func (d *Driver) enableAddr(ctx Context, id uint32) (addr uint64, bit uint32) {
	word := id / 32
	return d.base + EnableBase + uint64(ctx)*EnableStride + uint64(word)*4, id % 32
}

func (d *Driver) pendingAddr(id uint32) (addr uint64, bit uint32) {
	word := id / 32
	return d.base + PendingBase + uint64(word)*4, id % 32
}

func (d *Driver) contextAddr(ctx Context) uint64 {
	return d.base + ContextBase + uint64(ctx)*ContextStride
}

// SetPriority sets source id's priority (0..7; 0 disables it — a source
// must have a nonzero priority to ever fire).
func (d *Driver) SetPriority(id uint32, priority uint32) error {
	if err := d.validate(id); err != nil {
		return err
	}
	d.bus.WriteU32(d.priorityAddr(id), priority&7)
	return nil
}

// GetPriority reads back source id's priority.
func (d *Driver) GetPriority(id uint32) (uint32, error) {
	if err := d.validate(id); err != nil {
		return 0, err
	}
	return d.bus.ReadU32(d.priorityAddr(id)) & 7, nil
}

// Pending reports whether source id currently has a pending interrupt.
func (d *Driver) Pending(id uint32) (bool, error) {
	if err := d.validate(id); err != nil {
		return false, err
	}
	addr, bit := d.pendingAddr(id)
	return d.bus.ReadU32(addr)&(1<<bit) != 0, nil
}

// SetEnabled enables or disables source id for ctx.
func (d *Driver) SetEnabled(ctx Context, id uint32, enabled bool) error {
	if err := d.validate(id); err != nil {
		return err
	}
	addr, bit := d.enableAddr(ctx, id)
	cur := d.bus.ReadU32(addr)
	if enabled {
		cur |= 1 << bit
	} else {
		cur &^= 1 << bit
	}
	d.bus.WriteU32(addr, cur)
	return nil
}

// SetThreshold sets the minimum priority ctx will accept; sources at or
// below threshold never claim.
func (d *Driver) SetThreshold(ctx Context, threshold uint32) {
	d.bus.WriteU32(d.contextAddr(ctx)+0, threshold&7)
}

// Claim returns the highest-priority pending, enabled source above ctx's
// threshold, or 0 if none qualifies.
func (d *Driver) Claim(ctx Context) uint32 {
	id := d.bus.ReadU32(d.contextAddr(ctx) + 4)
	d.claimed[ctx] = id
	return id
}

// Complete signals that ctx has finished handling id, which must be the id
// most recently returned by Claim for that context.
func (d *Driver) Complete(ctx Context, id uint32) error {
	if d.claimed[ctx] != id || id == 0 {
		return ErrCompleteMismatch
	}
	d.bus.WriteU32(d.contextAddr(ctx)+4, id)
	d.claimed[ctx] = 0
	return nil
}
