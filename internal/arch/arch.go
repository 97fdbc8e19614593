// Package arch defines the architecture port: the narrow trait the
// rest of the kernel uses to touch CSRs, interrupts, and thread
// context, so that everything above it — scheduler, interrupt core,
// drivers — stays free of riscv64 assembly and CSR names.
//
// The CSR field names and trap-cause numbering are grounded on the
// teacher's rv64 emulator (_examples/tinyrange-cc/internal/hv/riscv/rv64/csr.go,
// cpu.go): Sscratch, Stvec, Sepc, Scause, Stval as named uint64 fields,
// sstatus.SIE/sie/sip bit positions, and scause's top bit flagging an
// interrupt rather than an exception — all read the same way there as
// spec.md §6 describes for this port.
package arch

// Registers is a thread's saved register frame: the trap entry stub
// (per spec.md §4.4) spills every GPR here before dispatch and reloads
// them from here on return. X[0] is architecturally hardwired to zero;
// callers must not rely on writes to it sticking.
type Registers struct {
	X  [32]uint64
	PC uint64
}

// CSR names the small set of control/status registers the kernel
// touches through the architecture port (spec.md §6).
type CSR int

const (
	CSRSscratch CSR = iota // pointer to the current thread's Registers
	CSRStvec               // trap vector address, mode in the low 2 bits
	CSRSstatus              // sstatus; only the SIE bit is consulted
	CSRSie                  // per-source interrupt enable
	CSRSip                  // per-source interrupt pending
	CSRSepc                 // exception PC, read on trap entry
	CSRScause               // trap cause, high bit = async flag
	CSRStval                // trap value (faulting address, etc.)
)

// sstatus.SIE: the master supervisor interrupt enable bit.
const SstatusSIE uint64 = 1 << 1

// sie/sip bit positions for the three sources this kernel knows about.
const (
	InterruptSupervisorSoftware = 1
	InterruptSupervisorTimer    = 5
	InterruptSupervisorExternal = 9
)

// CauseAsyncFlag is scause's high bit: set for interrupts, clear for
// synchronous exceptions.
const CauseAsyncFlag uint64 = 1 << 63

// Cause extracts the exception/interrupt code from a scause value.
func Cause(scause uint64) uint64 {
	return scause &^ CauseAsyncFlag
}

// IsAsync reports whether a scause value denotes an interrupt rather
// than a synchronous exception.
func IsAsync(scause uint64) bool {
	return scause&CauseAsyncFlag != 0
}

// Port is the architecture-specific surface the rest of the kernel is
// built against. This repository contains no riscv64 implementation of
// it (CSR access, assembly trap stub); TestPort is the implementation
// here and backs it in every package's unit tests.
type Port interface {
	// EnableInterrupts sets sstatus.SIE.
	EnableInterrupts()

	// DisableInterrupts clears sstatus.SIE and returns whether it was
	// set beforehand, so a critical section can restore it exactly.
	DisableInterrupts() (wasEnabled bool)

	// RestoreInterrupts sets sstatus.SIE to the value DisableInterrupts
	// returned.
	RestoreInterrupts(wasEnabled bool)

	// InstallTrapVector sets stvec to vector in direct mode (spec.md §4.4).
	InstallTrapVector(vector uintptr)

	// SetupThread initializes a fresh register frame so that a trap
	// return into it begins execution at entry with the given stack.
	SetupThread(regs *Registers, entry, stackTop uint64)

	// SwitchTo points sscratch at next's register frame, the only
	// observable side effect of scheduling a new thread (spec.md §4.5).
	SwitchTo(next *Registers)

	// ReadCSR/WriteCSR access the named CSR directly, for drivers and
	// the trap dispatcher that need more than the helpers above.
	ReadCSR(csr CSR) uint64
	WriteCSR(csr CSR, value uint64)
}

// CriticalSection disables interrupts, runs fn, and restores the prior
// interrupt-enable state — the "interrupt-disabled critical section"
// spec.md §5 requires around state shared with an interrupt handler.
func CriticalSection(p Port, fn func()) {
	prev := p.DisableInterrupts()
	defer p.RestoreInterrupts(prev)
	fn()
}
