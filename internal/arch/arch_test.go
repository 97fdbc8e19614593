package arch

import "testing"

func TestCriticalSectionRestoresPriorState(t *testing.T) {
	p := NewTestPort()
	p.EnableInterrupts()

	ran := false
	CriticalSection(p, func() {
		ran = true
		if p.ReadCSR(CSRSstatus)&SstatusSIE != 0 {
			t.Fatal("interrupts still enabled inside critical section")
		}
	})

	if !ran {
		t.Fatal("CriticalSection did not run fn")
	}
	if p.ReadCSR(CSRSstatus)&SstatusSIE == 0 {
		t.Fatal("CriticalSection did not restore SIE")
	}
}

func TestIsAsyncAndCause(t *testing.T) {
	const exceptionCode = 13
	async := CauseAsyncFlag | exceptionCode

	if !IsAsync(async) {
		t.Fatal("IsAsync(async) = false")
	}
	if IsAsync(exceptionCode) {
		t.Fatal("IsAsync(sync) = true")
	}
	if Cause(async) != exceptionCode {
		t.Fatalf("Cause(async) = %d, want %d", Cause(async), exceptionCode)
	}
}

func TestSpinlockMutualExclusion(t *testing.T) {
	var lock Spinlock
	lock.Lock()
	if lock.TryLock() {
		t.Fatal("TryLock succeeded while locked")
	}
	lock.Unlock()
	if !lock.TryLock() {
		t.Fatal("TryLock failed after unlock")
	}
	lock.Unlock()
}

func TestSetupThread(t *testing.T) {
	p := NewTestPort()
	var regs Registers
	p.SetupThread(&regs, 0x8000_1000, 0x9000_0000)

	if regs.PC != 0x8000_1000 {
		t.Fatalf("PC = 0x%x, want 0x80001000", regs.PC)
	}
	if regs.X[2] != 0x9000_0000 {
		t.Fatalf("sp = 0x%x, want 0x90000000", regs.X[2])
	}
	for i, v := range regs.X {
		if i == 2 {
			continue
		}
		if v != 0 {
			t.Fatalf("X[%d] = %d, want 0", i, v)
		}
	}
}
