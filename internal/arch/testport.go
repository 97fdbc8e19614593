package arch

// TestPort is a plain-Go Port double: an in-memory stand-in for real
// CSRs. Every other package's tests run against it instead of riscv64
// hardware, the same way the teacher exercises its CSR/trap logic
// against an in-process Machine and Bus rather than real silicon
// (_examples/tinyrange-cc/internal/hv/riscv/rv64/emulator_test.go).
type TestPort struct {
	csrs      [8]uint64
	sie       bool
	current   *Registers
	vector    uintptr
	switches  int
}

// NewTestPort returns a TestPort with interrupts initially disabled.
func NewTestPort() *TestPort {
	return &TestPort{}
}

func (p *TestPort) EnableInterrupts() {
	p.sie = true
}

func (p *TestPort) DisableInterrupts() bool {
	prev := p.sie
	p.sie = false
	return prev
}

func (p *TestPort) RestoreInterrupts(wasEnabled bool) {
	p.sie = wasEnabled
}

func (p *TestPort) InstallTrapVector(vector uintptr) {
	p.vector = vector
}

func (p *TestPort) TrapVector() uintptr { return p.vector }

func (p *TestPort) SetupThread(regs *Registers, entry, stackTop uint64) {
	*regs = Registers{}
	regs.PC = entry
	regs.X[2] = stackTop // x2 = sp
}

func (p *TestPort) SwitchTo(next *Registers) {
	p.current = next
	p.switches++
}

// Current returns the register frame most recently installed by
// SwitchTo, mirroring what sscratch would point at.
func (p *TestPort) Current() *Registers { return p.current }

// Switches reports how many times SwitchTo has been called.
func (p *TestPort) Switches() int { return p.switches }

func (p *TestPort) ReadCSR(csr CSR) uint64 {
	if csr == CSRSstatus {
		if p.sie {
			return SstatusSIE
		}
		return 0
	}
	return p.csrs[csr]
}

func (p *TestPort) WriteCSR(csr CSR, value uint64) {
	if csr == CSRSstatus {
		p.sie = value&SstatusSIE != 0
		return
	}
	p.csrs[csr] = value
}

var _ Port = (*TestPort)(nil)
