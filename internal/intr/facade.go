// Package intr is the interrupt core: a single registered interrupt
// controller reached through a narrow façade, and the trap dispatcher that
// routes a supervisor trap to the scheduler, the controller, or a panic.
package intr

import "errors"

var (
	// ErrNoController is returned by every façade op before a controller
	// has been registered.
	ErrNoController = errors.New("intr: no controller registered")
	// ErrAlreadyRegistered is returned by a second Register call.
	ErrAlreadyRegistered = errors.New("intr: controller already registered")
)

// Controller is the trait a registered interrupt controller implements.
// PLIC is the only controller this kernel ships, but the façade is written
// against the interface so a second controller (e.g. CLINT-only boards)
// could register instead.
type Controller interface {
	Enable(id uint32) error
	Disable(id uint32) error
	SetPriority(id uint32, priority uint32) error
	GetPriority(id uint32) (uint32, error)
	SetHandler(id uint32, handler func())

	// HandleExternal claims, dispatches, and completes the highest-priority
	// pending interrupt, invoked when the trap dispatcher sees
	// supervisor_external.
	HandleExternal()
}

// Facade is the single point of contact the rest of the kernel uses to
// reach whichever controller registered itself.
type Facade struct {
	controller Controller
}

// Register binds c as the kernel's sole interrupt controller. A second
// call fails with ErrAlreadyRegistered.
func (f *Facade) Register(c Controller) error {
	if f.controller != nil {
		return ErrAlreadyRegistered
	}
	f.controller = c
	return nil
}

// Registered reports whether a controller has been registered, for probes
// that want to avoid a guaranteed-failing call.
func (f *Facade) Registered() bool { return f.controller != nil }

func (f *Facade) Enable(id uint32) error {
	if f.controller == nil {
		return ErrNoController
	}
	return f.controller.Enable(id)
}

func (f *Facade) Disable(id uint32) error {
	if f.controller == nil {
		return ErrNoController
	}
	return f.controller.Disable(id)
}

func (f *Facade) SetPriority(id, priority uint32) error {
	if f.controller == nil {
		return ErrNoController
	}
	return f.controller.SetPriority(id, priority)
}

func (f *Facade) GetPriority(id uint32) (uint32, error) {
	if f.controller == nil {
		return 0, ErrNoController
	}
	return f.controller.GetPriority(id)
}

func (f *Facade) SetHandler(id uint32, handler func()) error {
	if f.controller == nil {
		return ErrNoController
	}
	f.controller.SetHandler(id, handler)
	return nil
}

// HandleExternal delegates to the registered controller; the trap
// dispatcher calls this on a supervisor_external interrupt.
func (f *Facade) HandleExternal() error {
	if f.controller == nil {
		return ErrNoController
	}
	f.controller.HandleExternal()
	return nil
}
