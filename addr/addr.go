package addr

import (
	"github.com/mit-pdos/go-simplefs/common"
)

// Addr identifies the start of a disk object.
//
// Blkno is the block number containing the object, and Off is the location of
// the object within the block (expressed as a bit offset). The size of the
// object is determined by the context in which Addr is used: a metadata
// record, a directory entry or a whole block.
type Addr struct {
	Blkno common.Bnum
	Off   uint64 // offset in bits
}

// ByteOff is the offset of the object within its block, in bytes.
func (a Addr) ByteOff() uint64 {
	return a.Off / 8
}

func MkAddr(blkno common.Bnum, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

// MkSlotAddr is the address of the i-th fixed-size slot of a block, for
// objects of sz bytes.
func MkSlotAddr(blkno common.Bnum, i uint64, sz uint64) Addr {
	return MkAddr(blkno, i*sz*8)
}

// MkInodeAddr is the address of inum's record in the metadata table.
func MkInodeAddr(inum common.Inum) Addr {
	return MkSlotAddr(common.INODEBLK, uint64(inum-common.ROOTINUM), common.INODESZ)
}

// MkDirentAddr is the address of the i-th entry of a directory block.
func MkDirentAddr(blkno common.Bnum, i uint64) Addr {
	return MkSlotAddr(blkno, i, common.DIRENTSZ)
}
