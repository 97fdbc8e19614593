package buddy

import "testing"

func newAllocator(pages uint64) *Allocator {
	return New(NewArenaMemory(pages * PageSize))
}

func TestIngestRegionFreeCountsByOrder(t *testing.T) {
	// 0x3D0000 and 0xA0E000 are byte addresses; the allocator works in
	// page indices, so divide by PageSize before ingesting.
	const startAddr, endAddr = 0x3D0000, 0xA0E000
	start := PageIndex(startAddr / PageSize)
	end := PageIndex(endAddr / PageSize)

	a := newAllocator(uint64(end))
	if err := a.Ingest(start, uint64(end-start)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	want := [OrderCount]int{0: 0, 1: 1, 2: 1, 3: 1, 4: 1, 5: 1, 6: 0, 7: 0, 8: 0, 9: 1, 10: 1}
	got := a.Stats().FreeByOrder
	if got != want {
		t.Fatalf("FreeByOrder = %v, want %v", got, want)
	}
}

func TestIngestEmptyRegion(t *testing.T) {
	a := newAllocator(1)
	if err := a.Ingest(0, 0); err != ErrEmptyRegion {
		t.Fatalf("Ingest(0,0) = %v, want ErrEmptyRegion", err)
	}
}

func TestAllocSplitsLargerBlock(t *testing.T) {
	a := newAllocator(1024)
	if err := a.Ingest(0, 1024); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	p, err := a.Alloc(0)
	if err != nil {
		t.Fatalf("Alloc(0): %v", err)
	}
	if p != 0 {
		t.Fatalf("Alloc(0) = %d, want 0", p)
	}

	stats := a.Stats()
	for order := 0; order <= 9; order++ {
		if stats.FreeByOrder[order] != 1 {
			t.Fatalf("FreeByOrder[%d] = %d, want 1 after splitting one order-10 block", order, stats.FreeByOrder[order])
		}
	}
	if stats.FreeByOrder[10] != 0 {
		t.Fatalf("FreeByOrder[10] = %d, want 0", stats.FreeByOrder[10])
	}
}

func TestFreeCoalescesBuddies(t *testing.T) {
	a := newAllocator(1024)
	if err := a.Ingest(0, 1024); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	p, err := a.Alloc(MaxOrder)
	if err != nil {
		t.Fatalf("Alloc(MaxOrder): %v", err)
	}
	if err := a.Free(p, MaxOrder); err != nil {
		t.Fatalf("Free: %v", err)
	}

	stats := a.Stats()
	if stats.FreeByOrder[MaxOrder] != 1 {
		t.Fatalf("FreeByOrder[MaxOrder] = %d, want 1 after free coalesces back to one block", stats.FreeByOrder[MaxOrder])
	}
	for order := 0; order < MaxOrder; order++ {
		if stats.FreeByOrder[order] != 0 {
			t.Fatalf("FreeByOrder[%d] = %d, want 0", order, stats.FreeByOrder[order])
		}
	}
}

func TestAllocOutOfMemory(t *testing.T) {
	a := newAllocator(1)
	if err := a.Ingest(0, 1); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if _, err := a.Alloc(0); err != nil {
		t.Fatalf("Alloc(0): %v", err)
	}
	if _, err := a.Alloc(0); err != ErrOutOfMemory {
		t.Fatalf("Alloc(0) on empty allocator = %v, want ErrOutOfMemory", err)
	}
}

func TestAllocInvalidOrder(t *testing.T) {
	a := newAllocator(1)
	if _, err := a.Alloc(-1); err != ErrInvalidOrder {
		t.Fatalf("Alloc(-1) = %v, want ErrInvalidOrder", err)
	}
	if _, err := a.Alloc(OrderCount); err != ErrInvalidOrder {
		t.Fatalf("Alloc(OrderCount) = %v, want ErrInvalidOrder", err)
	}
}

func TestFreeListsStayAddressSorted(t *testing.T) {
	a := newAllocator(64)
	// Split one order-2 block into four order-0 pages, then free them out
	// of address order: while their buddies are still allocated, the
	// order-0 list must hold the freed pages in ascending address order.
	if err := a.Ingest(0, 4); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	p0, _ := a.Alloc(0)
	p1, _ := a.Alloc(0)
	p2, _ := a.Alloc(0)
	p3, _ := a.Alloc(0)

	// Free out of address order; coalescing should still reassemble the
	// full order-2 block.
	if err := a.Free(p3, 0); err != nil {
		t.Fatalf("Free p3: %v", err)
	}
	if err := a.Free(p1, 0); err != nil {
		t.Fatalf("Free p1: %v", err)
	}
	if a.heads[0] != p1 || a.nextOf(p1) != p3 {
		t.Fatalf("order-0 list = [%d %d ...], want [%d %d] (address order)", a.heads[0], a.nextOf(a.heads[0]), p1, p3)
	}
	if err := a.Free(p0, 0); err != nil {
		t.Fatalf("Free p0: %v", err)
	}
	if err := a.Free(p2, 0); err != nil {
		t.Fatalf("Free p2: %v", err)
	}

	stats := a.Stats()
	if stats.FreeByOrder[2] != 1 {
		t.Fatalf("FreeByOrder[2] = %d, want 1 after all four order-0 blocks freed", stats.FreeByOrder[2])
	}
	if stats.FreePages != 4 {
		t.Fatalf("FreePages = %d, want 4", stats.FreePages)
	}
}
