// Package buddy implements the physical-page buddy allocator: power-of-two
// blocks of pages, one address-sorted free list per order, and buddy
// coalescing on free. Free-block metadata lives in-band — the free-list
// node for a block is written into the block's own first sixteen bytes —
// rather than in a side table, the same way the teacher keeps device state
// packed into the memory it describes instead of a parallel structure
// (_examples/tinyrange-cc/internal/hv/riscv/rv64/bus.go).
package buddy

import "errors"

// PageSize is the unit the allocator hands out multiples of.
const PageSize = 4096

// OrderCount is the number of orders the allocator tracks: 0..OrderCount-1,
// so the largest block is 2^(OrderCount-1) pages.
const OrderCount = 11

// MaxOrder is the highest order the allocator will ever ingest or hand out.
const MaxOrder = OrderCount - 1

var (
	// ErrEmptyRegion is returned by Ingest when given a zero-length region.
	ErrEmptyRegion = errors.New("buddy: empty region")
	// ErrInvalidOrder is returned when an order outside [0, MaxOrder] is requested.
	ErrInvalidOrder = errors.New("buddy: invalid order")
	// ErrOutOfMemory is returned by Alloc when no block of a sufficient order is free.
	ErrOutOfMemory = errors.New("buddy: out of memory")
)

// PageIndex identifies a physical page by its index (address / PageSize).
type PageIndex uint64

const noPage PageIndex = ^PageIndex(0)

// Memory is the narrow read/write surface the allocator needs to embed
// free-list nodes into the pages it manages. It is addressed the same way
// the teacher's Bus is: byte offset, little-endian width.
type Memory interface {
	ReadU64(addr uint64) uint64
	WriteU64(addr uint64, v uint64)
}

// Allocator is a buddy allocator over a Memory-backed page range.
type Allocator struct {
	mem    Memory
	heads  [OrderCount]PageIndex
	counts [OrderCount]int
	order  map[PageIndex]int // order of every block currently on a free list
	pages  uint64            // total pages ever ingested
}

// New returns an empty Allocator backed by mem. Call Ingest to donate memory
// before calling Alloc.
func New(mem Memory) *Allocator {
	a := &Allocator{mem: mem, order: make(map[PageIndex]int)}
	for i := range a.heads {
		a.heads[i] = noPage
	}
	return a
}

// TotalPages reports how many pages have been ingested in total.
func (a *Allocator) TotalPages() uint64 { return a.pages }

// Stats summarizes the allocator's current state for diagnostics.
type Stats struct {
	FreePages      uint64
	AllocatedPages uint64
	TotalPages     uint64
	FreeByOrder    [OrderCount]int
}

// Stats reports free/allocated page counts and the free-block count at
// each order.
func (a *Allocator) Stats() Stats {
	s := Stats{TotalPages: a.pages, FreeByOrder: a.counts}
	for order, count := range a.counts {
		s.FreePages += uint64(count) << uint(order)
	}
	s.AllocatedPages = a.pages - s.FreePages
	return s
}

func (a *Allocator) nodeAddr(p PageIndex) uint64 { return uint64(p) * PageSize }

func (a *Allocator) prevOf(p PageIndex) PageIndex { return PageIndex(a.mem.ReadU64(a.nodeAddr(p))) }
func (a *Allocator) nextOf(p PageIndex) PageIndex {
	return PageIndex(a.mem.ReadU64(a.nodeAddr(p) + 8))
}
func (a *Allocator) setPrev(p, v PageIndex) { a.mem.WriteU64(a.nodeAddr(p), uint64(v)) }
func (a *Allocator) setNext(p, v PageIndex) { a.mem.WriteU64(a.nodeAddr(p)+8, uint64(v)) }

// insert adds p to order's free list, keeping the list sorted by address.
func (a *Allocator) insert(order int, p PageIndex) {
	a.order[p] = order
	a.counts[order]++

	head := a.heads[order]
	if head == noPage || p < head {
		a.setPrev(p, noPage)
		a.setNext(p, head)
		if head != noPage {
			a.setPrev(head, p)
		}
		a.heads[order] = p
		return
	}

	cur := head
	for {
		next := a.nextOf(cur)
		if next == noPage || p < next {
			a.setPrev(p, cur)
			a.setNext(p, next)
			a.setNext(cur, p)
			if next != noPage {
				a.setPrev(next, p)
			}
			return
		}
		cur = next
	}
}

// remove unlinks p from order's free list. p must currently be free at order.
func (a *Allocator) remove(order int, p PageIndex) {
	delete(a.order, p)
	a.counts[order]--

	prev := a.prevOf(p)
	next := a.nextOf(p)
	if prev == noPage {
		a.heads[order] = next
	} else {
		a.setNext(prev, next)
	}
	if next != noPage {
		a.setPrev(next, prev)
	}
}

func (a *Allocator) popFront(order int) (PageIndex, bool) {
	head := a.heads[order]
	if head == noPage {
		return 0, false
	}
	a.remove(order, head)
	return head, true
}

func trailingZeroOrder(n uint64, cap int) int {
	if n == 0 {
		return cap
	}
	order := 0
	for order < cap && n&1 == 0 {
		n >>= 1
		order++
	}
	return order
}

func floorLog2Capped(n uint64, cap int) int {
	order := 0
	for order < cap && uint64(1)<<uint(order+1) <= n {
		order++
	}
	return order
}

// Ingest donates a contiguous run of count pages starting at start to the
// allocator, splitting it into the largest naturally-aligned power-of-two
// blocks possible and recursing on the leading/trailing slivers.
func (a *Allocator) Ingest(start PageIndex, count uint64) error {
	if count == 0 {
		return ErrEmptyRegion
	}
	a.pages += count
	a.ingest(start, count)
	return nil
}

func (a *Allocator) ingest(start PageIndex, count uint64) {
	if count == 0 {
		return
	}
	alignOrder := trailingZeroOrder(uint64(start), MaxOrder)
	sizeOrder := floorLog2Capped(count, MaxOrder)
	order := alignOrder
	if sizeOrder < order {
		order = sizeOrder
	}
	blockPages := uint64(1) << uint(order)
	a.insert(order, start)
	a.ingest(start+PageIndex(blockPages), count-blockPages)
}

// Alloc returns a block of exactly 2^order pages, splitting a larger free
// block if no block of the requested order is free.
func (a *Allocator) Alloc(order int) (PageIndex, error) {
	if order < 0 || order > MaxOrder {
		return 0, ErrInvalidOrder
	}

	k := order
	for k <= MaxOrder && a.counts[k] == 0 {
		k++
	}
	if k > MaxOrder {
		return 0, ErrOutOfMemory
	}

	p, _ := a.popFront(k)
	for k > order {
		k--
		half := PageIndex(uint64(1) << uint(k))
		a.insert(k, p+half)
	}
	return p, nil
}

// Free returns a block of 2^order pages previously returned by Alloc,
// merging with its buddy at each order while the buddy is also free.
func (a *Allocator) Free(p PageIndex, order int) error {
	if order < 0 || order > MaxOrder {
		return ErrInvalidOrder
	}

	for order < MaxOrder {
		buddy := p ^ PageIndex(uint64(1)<<uint(order))
		buddyOrder, free := a.order[buddy]
		if !free || buddyOrder != order {
			break
		}
		a.remove(order, buddy)
		if buddy < p {
			p = buddy
		}
		order++
	}
	a.insert(order, p)
	return nil
}
