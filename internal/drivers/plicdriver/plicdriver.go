// Package plicdriver is the PLIC's registry binding: it owns the
// init()-time registry.Register call spec.md §6 and SPEC_FULL §8 call
// for, so a `riscv,plic0`-compatible device-tree node is actually turned
// into a bound intr/plic.Driver and registered with the kernel's
// interrupt façade during Registry.Bind, rather than only from tests.
//
// Grounded on the teacher's own device-binding shape in NewMachine
// (_examples/tinyrange-cc/internal/hv/riscv/rv64/machine.go), generalized
// from "construct and wire at startup" to "construct and wire when the
// registry walks a matching node."
package plicdriver

import (
	"fmt"

	"github.com/tinyrange/rvkernel/internal/arch"
	"github.com/tinyrange/rvkernel/internal/fdt"
	"github.com/tinyrange/rvkernel/internal/intr"
	"github.com/tinyrange/rvkernel/internal/intr/plic"
	"github.com/tinyrange/rvkernel/internal/kernel"
	"github.com/tinyrange/rvkernel/internal/registry"
)

// defaultNdev is the source count assumed when a node omits the
// optional riscv,ndev property.
const defaultNdev = 1023

func init() {
	registry.Register(registry.Entry{
		Name:       "plic",
		Enabled:    true,
		Kind:       registry.KindDriver,
		Compatible: []string{"riscv,plic0", "sifive,plic-1.0.0"},
		Driver:     bind,
	})
}

// bind constructs a plic.Driver at the node's reg base, wraps it in a
// PLICController for the supervisor context, and registers it with the
// booting Kernel's interrupt façade.
func bind(dt *fdt.DeviceTree, id fdt.NodeId) error {
	n := dt.Node(id)

	regs, err := dt.Reg(id)
	if err != nil || len(regs) == 0 {
		return fmt.Errorf("plicdriver: node %q has no usable reg property: %w", n.Name, err)
	}

	k := kernel.Current()
	if k == nil {
		return fmt.Errorf("plicdriver: no kernel bound for node %q", n.Name)
	}

	ndev := uint32(defaultNdev)
	if p, ok := n.Property("riscv,ndev"); ok {
		if v, err := p.AsU32(); err == nil {
			ndev = v
		}
	}

	driver := plic.New(arch.MMIOBus{}, regs[0].Addr, ndev)
	ctrl := intr.NewPLICController(driver, plic.ContextSupervisor)
	return k.Intr.Register(ctrl)
}
