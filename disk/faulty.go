package disk

import (
	"errors"
	"sync"
)

var ErrInjected = errors.New("injected I/O failure")

// FaultyDisk wraps a Disk and fails reads or writes of selected blocks on
// demand. Tests use it to drive the I/O error paths.
type FaultyDisk struct {
	Disk
	mu         *sync.Mutex
	failRead   map[uint64]bool
	failWrite  map[uint64]bool
	writesLeft int // writes allowed before every write fails; -1 is unlimited
	failIn     int // writes allowed before a single failing one; -1 is off
	Writes     []uint64
}

func NewFaultyDisk(d Disk) *FaultyDisk {
	return &FaultyDisk{
		Disk:       d,
		mu:         new(sync.Mutex),
		failRead:   make(map[uint64]bool),
		failWrite:  make(map[uint64]bool),
		writesLeft: -1,
		failIn:     -1,
	}
}

func (f *FaultyDisk) FailRead(a uint64, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRead[a] = fail
}

func (f *FaultyDisk) FailWrite(a uint64, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrite[a] = fail
}

// FailAfter lets n more writes through, then fails every write. A negative n
// removes the limit.
func (f *FaultyDisk) FailAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writesLeft = n
}

// FailNext lets n more writes through and fails only the one after them.
func (f *FaultyDisk) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failIn = n
}

func (f *FaultyDisk) ResetWrites() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = nil
}

func (f *FaultyDisk) Read(a uint64) (Block, error) {
	f.mu.Lock()
	fail := f.failRead[a]
	f.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return f.Disk.Read(a)
}

func (f *FaultyDisk) ReadTo(a uint64, b Block) error {
	f.mu.Lock()
	fail := f.failRead[a]
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.Disk.ReadTo(a, b)
}

func (f *FaultyDisk) Write(a uint64, v Block) error {
	f.mu.Lock()
	fail := f.failWrite[a] || f.writesLeft == 0
	if f.failIn == 0 {
		fail = true
		f.failIn = -1
	} else if f.failIn > 0 && !fail {
		f.failIn--
	}
	if !fail {
		if f.writesLeft > 0 {
			f.writesLeft--
		}
		f.Writes = append(f.Writes, a)
	}
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.Disk.Write(a, v)
}
