package arch

import "unsafe"

// MMIOBus reaches a device register directly at its physical address, the
// way a freestanding kernel with no host OS underneath it must: there is
// no syscall or file descriptor standing in for the load/store, only the
// pointer. Every access goes through unsafe.Pointer for exactly that
// reason — drivers (plic.Bus, future UART/timer backends) depend on this
// narrow interface rather than unsafe directly, so only this file needs
// the escape hatch.
type MMIOBus struct{}

// ReadU32 issues a single 32-bit load at addr.
func (MMIOBus) ReadU32(addr uint64) uint32 {
	return *(*uint32)(unsafe.Pointer(uintptr(addr)))
}

// WriteU32 issues a single 32-bit store at addr.
func (MMIOBus) WriteU32(addr uint64, v uint32) {
	*(*uint32)(unsafe.Pointer(uintptr(addr))) = v
}
