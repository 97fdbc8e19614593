package slab

import "github.com/tinyrange/rvkernel/internal/mem/buddy"

// cacheDescriptorSize approximates the in-kernel footprint of a Cache
// descriptor. A real freestanding kernel slab-allocates every Cache's
// bookkeeping from the cache-cache, including the cache-cache's own first
// instance; this Go port keeps Cache values as ordinary Go allocations (no
// unsafe pointer casting of a byte slab into a live struct) but still routes
// every NewCache through one allocation from the cache-cache, so the
// cache-cache's occupancy reflects how many caches exist the way spec.md
// §4.3's bootstrap describes.
const cacheDescriptorSize = 64

// NewCacheCache creates the statically-initialized cache-cache: the first
// cache, used to hand out bookkeeping slots for every other cache created
// through it.
func NewCacheCache(alloc *buddy.Allocator) (*Cache, error) {
	return NewCache("cache-cache", cacheDescriptorSize, 3, 0, alloc)
}

// NewCache allocates one bookkeeping object from the cache-cache, then
// constructs and returns a new cache backed by the same buddy allocator.
func (c *Cache) NewCache(name string, objectSize, alignLog uint32, slabOrder int) (*Cache, error) {
	if _, err := c.Alloc(); err != nil {
		return nil, err
	}
	return NewCache(name, objectSize, alignLog, slabOrder, c.alloc)
}
