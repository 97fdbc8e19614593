package intr

import (
	"fmt"

	"github.com/tinyrange/rvkernel/internal/arch"
	"github.com/tinyrange/rvkernel/internal/sched"
)

// Exception codes this kernel routes explicitly; every other synchronous
// exception falls through to a generic panic.
const (
	ExceptionInstructionPageFault = 12
	ExceptionLoadPageFault        = 13
	ExceptionStorePageFault       = 15
	ExceptionEcallFromUser        = 8
)

// PanicFunc is called with a formatted message when the dispatcher hits an
// unrecoverable trap. kernel.Boot installs one that logs the message and
// then calls Go's panic; it does not walk a frame-pointer chain or halt
// the hart in a loop. Tests install a recorder instead.
type PanicFunc func(msg string)

// Dispatcher routes a trapped scause to the scheduler, the registered
// interrupt controller, or a panic, per spec.md §4.4.
type Dispatcher struct {
	Facade    *Facade
	Scheduler *sched.Scheduler
	Panic     PanicFunc
}

// NewDispatcher builds a Dispatcher wired to facade and scheduler, with a
// Panic func that must be overridden before use in a non-test build (the
// architecture port has no stack-walking logic of its own to fall back on).
func NewDispatcher(facade *Facade, scheduler *sched.Scheduler, panicFn PanicFunc) *Dispatcher {
	return &Dispatcher{Facade: facade, Scheduler: scheduler, Panic: panicFn}
}

// Dispatch is called from the trap entry stub with the CSRs it read on
// entry: scause (with its async flag), sepc, and stval.
func (d *Dispatcher) Dispatch(scause, sepc, stval uint64) {
	code := arch.Cause(scause)

	if arch.IsAsync(scause) {
		switch code {
		case arch.InterruptSupervisorTimer:
			d.Scheduler.Tick()
		case arch.InterruptSupervisorExternal:
			if err := d.Facade.HandleExternal(); err != nil {
				d.Panic(fmt.Sprintf("external interrupt with %v", err))
			}
		default:
			d.Panic(fmt.Sprintf("unhandled interrupt, cause=%d", code))
		}
		return
	}

	switch code {
	case ExceptionInstructionPageFault, ExceptionLoadPageFault, ExceptionStorePageFault:
		d.Panic(fmt.Sprintf("page fault at 0x%x (pc=0x%x)", stval, sepc))
	case ExceptionEcallFromUser:
		// Reserved for a future syscall path; no syscall ABI exists yet,
		// so there is nothing to dispatch to.
	default:
		d.Panic(fmt.Sprintf("unhandled exception, cause=%d, pc=0x%x, stval=0x%x", code, sepc, stval))
	}
}
