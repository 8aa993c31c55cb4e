package alloc

import (
	"sync"

	"github.com/mit-pdos/go-simplefs/fserr"
	"github.com/mit-pdos/go-simplefs/util"
)

// NBITS is the width of an allocator's bitmap.
const NBITS uint64 = 64

// Alloc uses a bit map to allocate and free numbers. A set bit marks a free
// number. Bit 0 corresponds to number start, bit 1 to start+1, and so on.
//
// Alloc does no I/O; its owner persists Bitmap() after every change.
type Alloc struct {
	lock   *sync.Mutex // protects bitmap
	start  uint64
	len    uint64
	bitmap uint64
}

// MkAlloc returns an allocator for [start, start+len) whose free set is
// given by bitmap, as read from disk.
func MkAlloc(start uint64, len uint64, bitmap uint64) *Alloc {
	if len > NBITS {
		panic("MkAlloc")
	}
	a := &Alloc{
		lock:   new(sync.Mutex),
		start:  start,
		len:    len,
		bitmap: bitmap & mask(len),
	}
	return a
}

// MkMaxAlloc returns an allocator with all of [start, start+len) free.
func MkMaxAlloc(start uint64, len uint64) *Alloc {
	return MkAlloc(start, len, mask(len))
}

func mask(len uint64) uint64 {
	if len == NBITS {
		return ^uint64(0)
	}
	return (uint64(1) << len) - 1
}

func (a *Alloc) bit(num uint64) (uint64, bool) {
	if num < a.start || num-a.start >= a.len {
		return 0, false
	}
	return num - a.start, true
}

// AllocNum claims the lowest free number.
func (a *Alloc) AllocNum() (uint64, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	for i := uint64(0); i < a.len; i++ {
		if a.bitmap&(1<<i) != 0 {
			a.bitmap = a.bitmap & ^(1 << i)
			util.DPrintf(10, "AllocNum: %d\n", a.start+i)
			return a.start + i, nil
		}
	}
	return 0, fserr.New(fserr.OutOfSpace, "no free number in [%d,%d)", a.start, a.start+a.len)
}

// FreeNum returns num to the free set.
func (a *Alloc) FreeNum(num uint64) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	i, ok := a.bit(num)
	if !ok {
		return fserr.New(fserr.InvalidIdentifier, "free of %d outside [%d,%d)", num, a.start, a.start+a.len)
	}
	if a.bitmap&(1<<i) != 0 {
		return fserr.New(fserr.InvalidArg, "double free of %d", num)
	}
	a.bitmap = a.bitmap | (1 << i)
	util.DPrintf(10, "FreeNum: %d\n", num)
	return nil
}

// MarkUsed claims num regardless of its state.
func (a *Alloc) MarkUsed(num uint64) {
	a.lock.Lock()
	defer a.lock.Unlock()
	i, ok := a.bit(num)
	if !ok {
		panic("MarkUsed")
	}
	a.bitmap = a.bitmap & ^(1 << i)
}

// IsFree reports whether num is free. Numbers outside the range are never
// free.
func (a *Alloc) IsFree(num uint64) bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	i, ok := a.bit(num)
	return ok && a.bitmap&(1<<i) != 0
}

func (a *Alloc) InRange(num uint64) bool {
	_, ok := a.bit(num)
	return ok
}

func popCnt(b uint64) uint64 {
	var count uint64
	var x = b
	for x != 0 {
		count += x & 1
		x = x >> 1
	}
	return count
}

func (a *Alloc) NumFree() uint64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	return popCnt(a.bitmap)
}

// Bitmap is the on-disk form of the free set.
func (a *Alloc) Bitmap() uint64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.bitmap
}
