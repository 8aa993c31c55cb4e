package disk

import (
	"fmt"

	gdisk "github.com/tchajed/goose/machine/disk"
)

// gooseDisk adapts a goose disk, which panics on bad addresses and has no
// error results, to Disk.
type gooseDisk struct {
	d gdisk.Disk
}

var _ Disk = gooseDisk{}

// FromGoose wraps a goose disk (for example gdisk.NewMemDisk) as a Disk.
func FromGoose(d gdisk.Disk) Disk {
	return gooseDisk{d: d}
}

func (g gooseDisk) inBounds(a uint64) bool {
	return a < g.d.Size()
}

func (g gooseDisk) Read(a uint64) (Block, error) {
	if !g.inBounds(a) {
		return nil, fmt.Errorf("out-of-bounds read at %v", a)
	}
	return g.d.Read(a), nil
}

func (g gooseDisk) ReadTo(a uint64, b Block) error {
	if !g.inBounds(a) {
		return fmt.Errorf("out-of-bounds read at %v", a)
	}
	if uint64(len(b)) != BlockSize {
		panic("buffer is not block-sized")
	}
	copy(b, g.d.Read(a))
	return nil
}

func (g gooseDisk) Write(a uint64, v Block) error {
	if !g.inBounds(a) {
		return fmt.Errorf("out-of-bounds write at %v", a)
	}
	g.d.Write(a, v)
	return nil
}

func (g gooseDisk) Size() (uint64, error) {
	return g.d.Size(), nil
}

func (g gooseDisk) Barrier() error {
	g.d.Barrier()
	return nil
}

func (g gooseDisk) Close() error {
	g.d.Close()
	return nil
}
