// Package pool recycles the byte buffers behind the bool coder writers.
// Buffers are kept in size classes growing by a factor of four, from 1 KiB
// up to the 16 MiB limit of a token partition.
package pool

import "sync"

// Size classes.
const (
	Size1K   = 1 << 10
	Size4K   = 1 << 12
	Size16K  = 1 << 14
	Size64K  = 1 << 16
	Size256K = 1 << 18
	Size1M   = 1 << 20
	Size4M   = 1 << 22
	Size16M  = 1 << 24
)

var sizes = [...]int{Size1K, Size4K, Size16K, Size64K, Size256K, Size1M, Size4M, Size16M}

var pools [len(sizes)]sync.Pool

// class returns the smallest class holding size bytes, or -1 when size is
// larger than every class.
func class(size int) int {
	for i, s := range sizes {
		if size <= s {
			return i
		}
	}
	return -1
}

// Get returns a slice of length size. Requests above the largest class are
// allocated directly.
func Get(size int) []byte {
	c := class(size)
	if c < 0 {
		return make([]byte, size)
	}
	if bp, ok := pools[c].Get().(*[]byte); ok {
		return (*bp)[:size]
	}
	return make([]byte, size, sizes[c])
}

// Put hands b back for reuse. Only slices whose capacity is exactly a size
// class are kept; anything else is left to the garbage collector.
func Put(b []byte) {
	c := class(cap(b))
	if c < 0 || cap(b) != sizes[c] {
		return
	}
	b = b[:0]
	pools[c].Put(&b)
}
