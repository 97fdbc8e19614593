package intr

import "github.com/tinyrange/rvkernel/internal/intr/plic"

// PLICController adapts a plic.Driver, bound to one context, to the
// Controller interface the façade expects. It owns the id->handler table
// the bare register driver has no room for.
type PLICController struct {
	driver   *plic.Driver
	ctx      plic.Context
	handlers map[uint32]func()
}

// NewPLICController wraps driver for interrupts delivered to ctx.
func NewPLICController(driver *plic.Driver, ctx plic.Context) *PLICController {
	return &PLICController{driver: driver, ctx: ctx, handlers: make(map[uint32]func())}
}

func (c *PLICController) Enable(id uint32) error  { return c.driver.SetEnabled(c.ctx, id, true) }
func (c *PLICController) Disable(id uint32) error { return c.driver.SetEnabled(c.ctx, id, false) }

func (c *PLICController) SetPriority(id, priority uint32) error {
	return c.driver.SetPriority(id, priority)
}

func (c *PLICController) GetPriority(id uint32) (uint32, error) {
	return c.driver.GetPriority(id)
}

func (c *PLICController) SetHandler(id uint32, handler func()) {
	c.handlers[id] = handler
}

// HandleExternal claims the highest-priority pending source, runs its
// handler if one is registered, and completes it.
func (c *PLICController) HandleExternal() {
	id := c.driver.Claim(c.ctx)
	if id == 0 {
		return
	}
	if h, ok := c.handlers[id]; ok {
		h()
	}
	c.driver.Complete(c.ctx, id)
}

var _ Controller = (*PLICController)(nil)
