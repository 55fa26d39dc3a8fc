package store

import "strconv"

// IdAllocator hands out record ids. It starts at 0, advances by exactly one
// per allocation and never goes back, so deleted ids are never reissued.
//
// The zero value is ready to use. An IdAllocator is owned by one store and
// is not safe for concurrent use on its own.
type IdAllocator struct {
	next uint64
}

// Next returns the next id and advances the counter.
func (a *IdAllocator) Next() string {
	id := strconv.FormatUint(a.next, 10)
	a.next++
	return id
}

// Peek returns the id the next call to Next will return.
func (a *IdAllocator) Peek() string {
	return strconv.FormatUint(a.next, 10)
}

// Allocated returns how many ids have been handed out.
func (a *IdAllocator) Allocated() uint64 {
	return a.next
}
