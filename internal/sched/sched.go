// Package sched implements the cooperative round-robin thread scheduler:
// a single circular run-queue of live threads, the statically-allocated
// sentinel thread at id 0, and a fixed-size id bitset. The only suspension
// point in kernel mode is a trap; ordinary code runs to completion between
// them, so the run-queue never needs locking beyond the interrupt-disabled
// critical sections callers are expected to take around it.
package sched

import (
	"errors"

	"github.com/tinyrange/rvkernel/internal/arch"
	"github.com/tinyrange/rvkernel/internal/mem/buddy"
	"github.com/tinyrange/rvkernel/internal/mem/slab"
)

// MaxThreads bounds the id bitset; ids are drawn from [0, MaxThreads).
const MaxThreads = 8192

// SentinelID is the statically-allocated thread that halts in a wfi loop
// and is always live.
const SentinelID ThreadID = 0

// ThreadID names a thread. IDs are u16-sized, per spec.md §4.5.
type ThreadID uint16

// Level distinguishes kernel from user threads.
type Level int

const (
	LevelKernel Level = iota
	LevelUser
)

var (
	// ErrNoAvailableThreads is returned when the id bitset is exhausted.
	ErrNoAvailableThreads = errors.New("sched: no available thread ids")
)

// Thread is one schedulable context: its id, privilege level, saved
// register frame, stack, and run-queue link.
type Thread struct {
	ID        ThreadID
	Level     Level
	Registers arch.Registers
	StackTop  uint64

	next *Thread
}

type idBitset [MaxThreads / 64]uint64

func (b *idBitset) test(id ThreadID) bool {
	return b[id/64]&(uint64(1)<<(id%64)) != 0
}

func (b *idBitset) set(id ThreadID) {
	b[id/64] |= uint64(1) << (id % 64)
}

func (b *idBitset) clear(id ThreadID) {
	b[id/64] &^= uint64(1) << (id % 64)
}

// allocate finds the first unset bit, sets it, and returns its id.
func (b *idBitset) allocate() (ThreadID, bool) {
	for word := 0; word < len(b); word++ {
		if b[word] == ^uint64(0) {
			continue
		}
		for bit := 0; bit < 64; bit++ {
			id := ThreadID(word*64 + bit)
			if !b.test(id) {
				b.set(id)
				return id, true
			}
		}
	}
	return 0, false
}

// Scheduler owns the run-queue, the thread id bitset, and the resources
// (stack pages, Thread bookkeeping objects) a spawn consumes.
type Scheduler struct {
	port        arch.Port
	alloc       *buddy.Allocator
	threadCache *slab.Cache
	stackOrder  int

	ids      idBitset
	sentinel *Thread
	head     *Thread
	tail     *Thread
}

// New creates a scheduler with the sentinel thread as its sole, current
// member. threadCache backs Thread bookkeeping allocations; alloc and
// stackOrder size each spawned thread's stack.
func New(port arch.Port, alloc *buddy.Allocator, threadCache *slab.Cache, stackOrder int) *Scheduler {
	s := &Scheduler{port: port, alloc: alloc, threadCache: threadCache, stackOrder: stackOrder}
	s.ids.set(SentinelID)
	s.sentinel = &Thread{ID: SentinelID, Level: LevelKernel}
	s.sentinel.next = s.sentinel
	s.head = s.sentinel
	s.tail = s.sentinel
	return s
}

// appendToQueue inserts th as the new tail of the circular run-queue.
func (s *Scheduler) appendToQueue(th *Thread) {
	th.next = s.head
	s.tail.next = th
	s.tail = th
}

// SpawnKernel obtains a fresh thread id, a Thread bookkeeping object from
// the thread cache, and a stack (one buddy block of the scheduler's
// stackOrder), then appends the new thread to the run-queue with pc=entry
// and sp=stackTop.
func (s *Scheduler) SpawnKernel(entry uint64) (ThreadID, error) {
	id, ok := s.ids.allocate()
	if !ok {
		return 0, ErrNoAvailableThreads
	}

	if _, err := s.threadCache.Alloc(); err != nil {
		s.ids.clear(id)
		return 0, err
	}

	stackBase, err := s.alloc.Alloc(s.stackOrder)
	if err != nil {
		s.ids.clear(id)
		return 0, err
	}
	stackTop := (uint64(stackBase) + (uint64(1) << uint(s.stackOrder))) * buddy.PageSize

	th := &Thread{ID: id, Level: LevelKernel, StackTop: stackTop}
	s.port.SetupThread(&th.Registers, entry, stackTop)
	s.appendToQueue(th)

	return id, nil
}

// Tick rotates the run-queue head to the tail and dispatches the new head
// via the architecture port, the only side effect of scheduling a new
// thread.
func (s *Scheduler) Tick() *Thread {
	oldHead := s.head
	s.head = oldHead.next
	s.tail = oldHead
	s.port.SwitchTo(&s.head.Registers)
	return s.head
}

// CurrentThread returns the thread at the head of the run-queue.
func (s *Scheduler) CurrentThread() *Thread { return s.head }

// Stats summarizes the run-queue's live thread count.
type Stats struct {
	ThreadCount int
}

// Stats walks the circular run-queue once to report how many threads are
// currently live.
func (s *Scheduler) Stats() Stats {
	count := 0
	for cur := s.head; ; cur = cur.next {
		count++
		if cur.next == s.head {
			break
		}
	}
	return Stats{ThreadCount: count}
}
