package intr

import "testing"

type fakeController struct {
	enabled   map[uint32]bool
	priority  map[uint32]uint32
	handlers  map[uint32]func()
	externalN int
}

func newFakeController() *fakeController {
	return &fakeController{
		enabled:  make(map[uint32]bool),
		priority: make(map[uint32]uint32),
		handlers: make(map[uint32]func()),
	}
}

func (c *fakeController) Enable(id uint32) error         { c.enabled[id] = true; return nil }
func (c *fakeController) Disable(id uint32) error        { c.enabled[id] = false; return nil }
func (c *fakeController) SetPriority(id, p uint32) error { c.priority[id] = p; return nil }
func (c *fakeController) GetPriority(id uint32) (uint32, error) {
	return c.priority[id], nil
}
func (c *fakeController) SetHandler(id uint32, h func()) { c.handlers[id] = h }
func (c *fakeController) HandleExternal()                { c.externalN++ }

func TestFacadeFailsBeforeRegistration(t *testing.T) {
	var f Facade

	if err := f.Enable(1); err != ErrNoController {
		t.Fatalf("Enable() before registration = %v, want ErrNoController", err)
	}
	if err := f.Disable(1); err != ErrNoController {
		t.Fatalf("Disable() before registration = %v, want ErrNoController", err)
	}
	if err := f.SetPriority(1, 5); err != ErrNoController {
		t.Fatalf("SetPriority() before registration = %v, want ErrNoController", err)
	}
	if _, err := f.GetPriority(1); err != ErrNoController {
		t.Fatalf("GetPriority() before registration = %v, want ErrNoController", err)
	}
	if err := f.SetHandler(1, func() {}); err != ErrNoController {
		t.Fatalf("SetHandler() before registration = %v, want ErrNoController", err)
	}
	if f.Registered() {
		t.Fatal("Registered() = true before any Register call")
	}
}

func TestSecondRegisterFails(t *testing.T) {
	var f Facade
	c1 := newFakeController()
	c2 := newFakeController()

	if err := f.Register(c1); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := f.Register(c2); err != ErrAlreadyRegistered {
		t.Fatalf("second Register() = %v, want ErrAlreadyRegistered", err)
	}
	if !f.Registered() {
		t.Fatal("Registered() = false after successful registration")
	}
}

func TestOpsDelegateAfterRegistration(t *testing.T) {
	var f Facade
	c := newFakeController()
	if err := f.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := f.Enable(3); err != nil || !c.enabled[3] {
		t.Fatalf("Enable(3) did not delegate: err=%v enabled=%v", err, c.enabled[3])
	}
	if err := f.SetPriority(3, 6); err != nil || c.priority[3] != 6 {
		t.Fatalf("SetPriority(3,6) did not delegate")
	}
	got, err := f.GetPriority(3)
	if err != nil || got != 6 {
		t.Fatalf("GetPriority(3) = %d, %v, want 6, nil", got, err)
	}

	ran := false
	if err := f.SetHandler(3, func() { ran = true }); err != nil {
		t.Fatalf("SetHandler: %v", err)
	}
	c.handlers[3]()
	if !ran {
		t.Fatal("registered handler did not run")
	}

	if err := f.HandleExternal(); err != nil {
		t.Fatalf("HandleExternal: %v", err)
	}
	if c.externalN != 1 {
		t.Fatalf("externalN = %d, want 1", c.externalN)
	}
}
