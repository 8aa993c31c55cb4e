package disk

import (
	"github.com/mit-pdos/go-simplefs/common"
)

// Block is a 4096-byte buffer
type Block = []byte

const BlockSize uint64 = common.BlockSize

// Disk provides access to a logical block-based disk.
//
// This is the only path to stable storage. Every method is synchronous: a
// Write followed by a Barrier is on disk when Barrier returns.
type Disk interface {
	// Read reads a disk block by address
	//
	// Expects a < Size().
	Read(a uint64) (Block, error)

	// ReadTo reads the disk block at a and stores the result in b
	//
	// Expects a < Size().
	ReadTo(a uint64, b Block) error

	// Write updates a disk block by address
	//
	// Expects a < Size().
	Write(a uint64, v Block) error

	// Size reports how big the disk is, in blocks
	Size() (uint64, error)

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}

// WriteSync writes block a and waits for it to reach stable storage.
func WriteSync(d Disk, a uint64, v Block) error {
	err := d.Write(a, v)
	if err != nil {
		return err
	}
	return d.Barrier()
}
