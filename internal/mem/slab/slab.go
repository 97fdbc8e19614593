// Package slab implements the object-cache allocator: fixed-size objects
// carved out of buddy-allocated slabs, with an in-slab next-list of object
// indices standing in for the free-object linked list.
//
// Grounded on spec.md §4.3's algorithm; there is no slab/SLUB-style
// allocator anywhere in the example pack to imitate directly, so this
// package follows the teacher's general shape for a resource-cache driver
// type (fixed descriptor + three occupancy buckets) while the object-cache
// math itself comes straight from the specification.
package slab

import (
	"errors"

	"github.com/tinyrange/rvkernel/internal/mem/buddy"
)

// descriptorSize (D) and indexSize (I) are the fixed footprint, in bytes,
// that every slab's descriptor and next-list occupy ahead of its objects.
const (
	descriptorSize = 32
	indexSize      = 2
	endOfList      = 0xFFFF
	maxCacheName   = 24
)

var (
	// ErrNameTooLong is returned by NewCache when name exceeds maxCacheName.
	ErrNameTooLong = errors.New("slab: cache name too long")
	// ErrNotOwned is returned by Free when addr belongs to no slab in the cache.
	ErrNotOwned = errors.New("slab: address not owned by this cache")
)

// layout computes objects-per-slab and the byte offset of the first object,
// per spec.md §4.3: estimate n from slab size minus descriptor size, divided
// by (index + object) size; account for the padding needed to align the
// object array, decrementing n by one if that padding exceeds the estimate's
// wastage.
func layout(slabOrder int, objectSize, alignLog uint32) (n int, dataOffset uint64) {
	s := (uint64(1) << uint(slabOrder)) * buddy.PageSize
	d := uint64(descriptorSize)
	i := uint64(indexSize)
	o := uint64(objectSize)
	a := uint64(1) << alignLog

	count := (s - d) / (i + o)
	wastage := (s - d) - count*(i+o)
	listEnd := d + count*i
	gap := (a - listEnd%a) % a
	if gap > wastage {
		count--
		listEnd = d + count*i
		gap = (a - listEnd%a) % a
	}
	return int(count), listEnd + gap
}

// ObjectsPerSlab reports how many fixed-size objects fit in one slab of
// order slabOrder, for an object of the given size and alignment.
func ObjectsPerSlab(slabOrder int, objectSize, alignLog uint32) int {
	n, _ := layout(slabOrder, objectSize, alignLog)
	return n
}

type slabDescriptor struct {
	base      buddy.PageIndex
	free      int
	firstFree uint16
	next      []uint16
}

func (sd *slabDescriptor) contains(addr, base, size uint64) bool {
	return addr >= base && addr < base+size
}

// Cache is a fixed-size object allocator backed by a buddy.Allocator.
type Cache struct {
	name           string
	objectSize     uint32
	alignLog       uint32
	slabOrder      int
	objectsPerSlab int
	dataOffset     uint64
	slabSize       uint64

	alloc *buddy.Allocator

	full, partial, unused []*slabDescriptor
}

// NewCache creates a cache of fixed-size objects backed by alloc. slabOrder
// selects the buddy-block size each slab is carved from.
func NewCache(name string, objectSize, alignLog uint32, slabOrder int, alloc *buddy.Allocator) (*Cache, error) {
	if len(name) > maxCacheName {
		return nil, ErrNameTooLong
	}
	n, dataOffset := layout(slabOrder, objectSize, alignLog)
	return &Cache{
		name:           name,
		objectSize:     objectSize,
		alignLog:       alignLog,
		slabOrder:      slabOrder,
		objectsPerSlab: n,
		dataOffset:     dataOffset,
		slabSize:       (uint64(1) << uint(slabOrder)) * buddy.PageSize,
		alloc:          alloc,
	}, nil
}

// Name returns the cache's name.
func (c *Cache) Name() string { return c.name }

func (c *Cache) growSlab() (*slabDescriptor, error) {
	base, err := c.alloc.Alloc(c.slabOrder)
	if err != nil {
		return nil, err
	}
	next := make([]uint16, c.objectsPerSlab)
	for i := range next {
		next[i] = uint16(i + 1)
	}
	if len(next) > 0 {
		next[len(next)-1] = endOfList
	}
	sd := &slabDescriptor{base: base, free: c.objectsPerSlab, firstFree: 0, next: next}
	return sd, nil
}

func popLast(list []*slabDescriptor) (*slabDescriptor, []*slabDescriptor) {
	n := len(list)
	return list[n-1], list[:n-1]
}

func removeDescriptor(list []*slabDescriptor, sd *slabDescriptor) []*slabDescriptor {
	for i, s := range list {
		if s == sd {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Alloc returns the address of one fixed-size object, growing the cache by
// one slab if every existing slab is full.
func (c *Cache) Alloc() (uint64, error) {
	var sd *slabDescriptor
	switch {
	case len(c.partial) > 0:
		sd, c.partial = popLast(c.partial)
	case len(c.unused) > 0:
		sd, c.unused = popLast(c.unused)
	default:
		var err error
		sd, err = c.growSlab()
		if err != nil {
			return 0, err
		}
	}

	idx := sd.firstFree
	sd.firstFree = sd.next[idx]
	sd.free--

	if sd.free == 0 {
		c.full = append(c.full, sd)
	} else {
		c.partial = append(c.partial, sd)
	}

	addr := c.base(sd) + c.dataOffset + uint64(idx)*uint64(c.objectSize)
	return addr, nil
}

func (c *Cache) base(sd *slabDescriptor) uint64 {
	return uint64(sd.base) * buddy.PageSize
}

func (c *Cache) findOwner(addr uint64) (list *[]*slabDescriptor, sd *slabDescriptor) {
	for _, sd := range c.full {
		if sd.contains(addr, c.base(sd), c.slabSize) {
			return &c.full, sd
		}
	}
	for _, sd := range c.partial {
		if sd.contains(addr, c.base(sd), c.slabSize) {
			return &c.partial, sd
		}
	}
	return nil, nil
}

// Free returns an object previously returned by Alloc to its slab,
// pushing its index onto the head of the slab's next-list.
func (c *Cache) Free(addr uint64) error {
	list, sd := c.findOwner(addr)
	if sd == nil {
		return ErrNotOwned
	}

	idx := uint16((addr - c.base(sd) - c.dataOffset) / uint64(c.objectSize))
	sd.next[idx] = sd.firstFree
	sd.firstFree = idx
	sd.free++

	*list = removeDescriptor(*list, sd)
	if sd.free == c.objectsPerSlab {
		c.unused = append(c.unused, sd)
	} else {
		c.partial = append(c.partial, sd)
	}
	return nil
}

// Stats summarizes a cache's current occupancy.
type Stats struct {
	FreeObjects  int
	TotalObjects int
	Slabs        int
}

// CacheStats reports free/total object counts and the number of slabs the
// cache currently holds, across all three occupancy lists.
func (c *Cache) CacheStats() Stats {
	var s Stats
	for _, sd := range c.full {
		s.FreeObjects += sd.free
		s.TotalObjects += c.objectsPerSlab
		s.Slabs++
	}
	for _, sd := range c.partial {
		s.FreeObjects += sd.free
		s.TotalObjects += c.objectsPerSlab
		s.Slabs++
	}
	for _, sd := range c.unused {
		s.FreeObjects += sd.free
		s.TotalObjects += c.objectsPerSlab
		s.Slabs++
	}
	return s
}
