// Package kernel ties the rest of the runtime together: FDT parsing,
// the buddy/slab allocators, the scheduler, the interrupt core and the
// module registry, behind the single boot sequence spec.md §2 describes
// in prose. Grounded on the teacher's NewMachine
// (_examples/tinyrange-cc/internal/hv/riscv/rv64/machine.go), which
// wires its Bus, CLINT, PLIC and CPUs in one explicit constructor rather
// than through package-level init magic.
package kernel

import (
	"fmt"
	"sync"

	"github.com/tinyrange/rvkernel/internal/arch"
	"github.com/tinyrange/rvkernel/internal/console"
	"github.com/tinyrange/rvkernel/internal/fdt"
	"github.com/tinyrange/rvkernel/internal/intr"
	"github.com/tinyrange/rvkernel/internal/log"
	"github.com/tinyrange/rvkernel/internal/mem/buddy"
	"github.com/tinyrange/rvkernel/internal/mem/slab"
	"github.com/tinyrange/rvkernel/internal/registry"
	"github.com/tinyrange/rvkernel/internal/sched"
)

// threadStackOrder is the buddy order of a thread's kernel stack: order
// 2 is 4 pages (16 KiB).
const threadStackOrder = 2

// threadObjectSize and threadAlignLog size the slab cache that backs
// every spawned thread's bookkeeping object (see internal/sched's
// cache-cache bootstrap compromise, documented in DESIGN.md).
const (
	threadObjectSize = 64
	threadAlignLog   = 3
)

// Kernel is the single value spec.md §9's Design Notes calls for in
// place of package-level globals: everything a trap handler or driver
// needs to reach reads from here.
type Kernel struct {
	Port arch.Port

	DeviceTree *fdt.DeviceTree
	Alloc      *buddy.Allocator
	CacheCache *slab.Cache
	Scheduler  *sched.Scheduler
	Intr       *intr.Facade
	Console    *console.Console
	Registry   *registry.Registry
	Dispatcher *intr.Dispatcher
}

var (
	currentMu sync.Mutex
	current   *Kernel
)

// Current returns the process-wide Kernel installed by the most recent
// Boot that got as far as binding drivers, for trap handlers and other
// call sites that cannot take parameters (spec.md §9). Boot installs it
// before binding, so it stays installed even if binding then fails.
func Current() *Kernel {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current
}

// setCurrent installs k as the process-wide Kernel.
func setCurrent(k *Kernel) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = k
}

// New constructs a Kernel bound to port, with no RAM ingested and no
// device tree parsed yet; call Boot to bring it up. reg supplies the
// module registry to bind against: production boot code passes
// registry.Default(), the singleton every driver package's init()
// populates via registry.Register; tests pass a fresh registry.New()
// for isolation from other packages' init()-time registrations.
func New(port arch.Port, reg *registry.Registry) *Kernel {
	return &Kernel{
		Port:     port,
		Console:  console.New(),
		Registry: reg,
	}
}

// Boot runs the spec.md §2 bring-up sequence: parse the device tree,
// ingest [ramStart, ramStart+ramPages*PageSize) into a fresh buddy
// allocator, stand up the slab cache-cache and the thread cache, start
// the scheduler (which creates the sentinel thread), wire the interrupt
// core, and bind every registered driver against the tree —
// interrupt-controller nodes first.
func (k *Kernel) Boot(fdtBlob []byte, ramStart, ramPages uint64) error {
	dt, err := fdt.Parse(fdtBlob)
	if err != nil {
		return fmt.Errorf("kernel: parse device tree: %w", err)
	}
	k.DeviceTree = dt

	// The allocator indexes pages by absolute address / PageSize, so the
	// arena backing it must span up to the end of RAM, not merely
	// ramPages worth of bytes from offset 0 — otherwise a nonzero
	// ramStart (e.g. the virt platform's 0x8000_0000 base) indexes past
	// the end of a too-small arena the first time a free-list node is
	// written.
	startPage := buddy.PageIndex(ramStart / buddy.PageSize)
	endPage := startPage + buddy.PageIndex(ramPages)
	alloc := buddy.New(buddy.NewArenaMemory(uint64(endPage) * buddy.PageSize))
	if err := alloc.Ingest(startPage, ramPages); err != nil {
		return fmt.Errorf("kernel: ingest ram: %w", err)
	}
	k.Alloc = alloc

	cacheCache, err := slab.NewCacheCache(alloc)
	if err != nil {
		return fmt.Errorf("kernel: init cache-cache: %w", err)
	}
	k.CacheCache = cacheCache

	threadCache, err := cacheCache.NewCache("thread", threadObjectSize, threadAlignLog, 0)
	if err != nil {
		return fmt.Errorf("kernel: init thread cache: %w", err)
	}

	k.Scheduler = sched.New(k.Port, alloc, threadCache, threadStackOrder)

	k.Intr = &intr.Facade{}
	k.Dispatcher = intr.NewDispatcher(k.Intr, k.Scheduler, defaultPanic)

	// Installed before Bind so that a driver's registry.DriverFunc,
	// running synchronously inside Bind, can reach this Kernel through
	// Current() to register its controller with k.Intr.
	setCurrent(k)

	if err := k.Registry.Bind(dt); err != nil {
		return fmt.Errorf("kernel: bind drivers: %w", err)
	}

	return nil
}

// defaultPanic logs a structured record before unwinding, so a panic
// that reaches the console or serial backend still leaves a trace in
// whatever the logger is attached to, same as a crash in the arch port.
func defaultPanic(msg string) {
	log.Default().Error("KERNEL PANIC", "msg", msg)
	panic(msg)
}
