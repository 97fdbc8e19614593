package arch

import "sync/atomic"

// Spinlock is the ticketless test-and-set lock spec.md §5 calls for:
// acquire loops until an atomic swap observes 0, release swaps 0 back.
// It is a placeholder for the SMP future — on today's single hart it
// reduces to disabling interrupts, which callers that share state with
// an interrupt handler should prefer (CriticalSection) over this lock.
//
// Grounded on the teacher's own use of sync/atomic for single-word
// shared state (CLINT.msip, Machine.halted in
// _examples/tinyrange-cc/internal/hv/riscv/rv64/{clint,machine}.go),
// generalized from load/store to the swap this lock needs.
type Spinlock struct {
	state atomic.Uint64
}

// Lock spins until it acquires the lock.
func (s *Spinlock) Lock() {
	for s.state.Swap(1) != 0 {
	}
}

// Unlock releases the lock.
func (s *Spinlock) Unlock() {
	s.state.Swap(0)
}

// TryLock attempts to acquire the lock without spinning.
func (s *Spinlock) TryLock() bool {
	return s.state.Swap(1) == 0
}
